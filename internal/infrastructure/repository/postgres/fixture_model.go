package postgres

import (
	"database/sql"
	"time"

	"github.com/matchpulse/fixture-poller/internal/domain/fixture"
)

type fixtureTableModel struct {
	ID           int64         `db:"id"`
	LeagueID     int64         `db:"league_id"`
	Season       int           `db:"season"`
	HomeTeamID   int64         `db:"home_team_id"`
	AwayTeamID   int64         `db:"away_team_id"`
	HomeTeam     string        `db:"home_team_name"`
	AwayTeam     string        `db:"away_team_name"`
	KickoffAt    time.Time     `db:"kickoff_at"`
	Status       string        `db:"status"`
	HomeScore    sql.NullInt64 `db:"home_score"`
	AwayScore    sql.NullInt64 `db:"away_score"`
	WinnerTeamID sql.NullInt64 `db:"winner_team_id"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}

func fixtureFromRow(row fixtureTableModel) fixture.Fixture {
	return fixture.Fixture{
		ID:           row.ID,
		LeagueID:     row.LeagueID,
		Season:       row.Season,
		HomeTeamID:   row.HomeTeamID,
		AwayTeamID:   row.AwayTeamID,
		HomeTeam:     row.HomeTeam,
		AwayTeam:     row.AwayTeam,
		KickoffAt:    row.KickoffAt.UTC(),
		Status:       fixture.NormalizeStatus(row.Status),
		HomeScore:    nullInt64ToIntPtr(row.HomeScore),
		AwayScore:    nullInt64ToIntPtr(row.AwayScore),
		WinnerTeamID: row.WinnerTeamID.Int64,
	}
}

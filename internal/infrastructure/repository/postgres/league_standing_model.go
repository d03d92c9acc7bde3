package postgres

import (
	"database/sql"
	"strings"
	"time"

	"github.com/matchpulse/fixture-poller/internal/domain/leaguestanding"
)

type leagueStandingTableModel struct {
	ID              int64        `db:"id"`
	LeagueID        int64        `db:"league_id"`
	Season          int          `db:"season"`
	TeamID          int64        `db:"team_id"`
	TeamName        string       `db:"team_name"`
	Position        int          `db:"position"`
	Played          int          `db:"played"`
	Won             int          `db:"won"`
	Draw            int          `db:"draw"`
	Lost            int          `db:"lost"`
	GoalsFor        int          `db:"goals_for"`
	GoalsAgainst    int          `db:"goals_against"`
	GoalDifference  int          `db:"goal_difference"`
	Points          int          `db:"points"`
	Form            string       `db:"form"`
	SourceUpdatedAt sql.NullTime `db:"source_updated_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

type leagueStandingInsertModel struct {
	LeagueID        int64      `db:"league_id"`
	Season          int        `db:"season"`
	TeamID          int64      `db:"team_id"`
	TeamName        string     `db:"team_name"`
	Position        int        `db:"position"`
	Played          int        `db:"played"`
	Won             int        `db:"won"`
	Draw            int        `db:"draw"`
	Lost            int        `db:"lost"`
	GoalsFor        int        `db:"goals_for"`
	GoalsAgainst    int        `db:"goals_against"`
	GoalDifference  int        `db:"goal_difference"`
	Points          int        `db:"points"`
	Form            string     `db:"form"`
	SourceUpdatedAt *time.Time `db:"source_updated_at"`
}

func leagueStandingFromRow(row leagueStandingTableModel) leaguestanding.Standing {
	return leaguestanding.Standing{
		LeagueID:        row.LeagueID,
		Season:          row.Season,
		TeamID:          row.TeamID,
		TeamName:        strings.TrimSpace(row.TeamName),
		Position:        row.Position,
		Played:          row.Played,
		Won:             row.Won,
		Draw:            row.Draw,
		Lost:            row.Lost,
		GoalsFor:        row.GoalsFor,
		GoalsAgainst:    row.GoalsAgainst,
		GoalDifference:  row.GoalDifference,
		Points:          row.Points,
		Form:            strings.TrimSpace(row.Form),
		SourceUpdatedAt: nullTimeToTimePtr(row.SourceUpdatedAt),
	}
}

func leagueStandingToInsertRow(item leaguestanding.Standing) leagueStandingInsertModel {
	return leagueStandingInsertModel{
		LeagueID:        item.LeagueID,
		Season:          item.Season,
		TeamID:          item.TeamID,
		TeamName:        strings.TrimSpace(item.TeamName),
		Position:        item.Position,
		Played:          item.Played,
		Won:             item.Won,
		Draw:            item.Draw,
		Lost:            item.Lost,
		GoalsFor:        item.GoalsFor,
		GoalsAgainst:    item.GoalsAgainst,
		GoalDifference:  item.GoalDifference,
		Points:          item.Points,
		Form:            strings.TrimSpace(item.Form),
		SourceUpdatedAt: item.SourceUpdatedAt,
	}
}

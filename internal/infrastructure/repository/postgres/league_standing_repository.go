package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchpulse/fixture-poller/internal/domain/leaguestanding"
	qb "github.com/matchpulse/fixture-poller/internal/platform/querybuilder"
)

type LeagueStandingRepository struct {
	db *sqlx.DB
}

func NewLeagueStandingRepository(db *sqlx.DB) *LeagueStandingRepository {
	return &LeagueStandingRepository{db: db}
}

func (r *LeagueStandingRepository) ListByLeague(ctx context.Context, leagueID int64, season int) ([]leaguestanding.Standing, error) {
	query, args, err := qb.Select("*").From("league_standings").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("season", season),
		).
		OrderBy("position", "points DESC", "goal_difference DESC", "team_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list league standings query: %w", err)
	}

	var rows []leagueStandingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list league standings: %w", err)
	}

	out := make([]leaguestanding.Standing, 0, len(rows))
	for _, row := range rows {
		out = append(out, leagueStandingFromRow(row))
	}
	return out, nil
}

// ReplaceByLeague swaps the whole table for one (league, season) atomically.
// A partial refresh is worse than a stale one for standings, hence the single
// transaction.
func (r *LeagueStandingRepository) ReplaceByLeague(ctx context.Context, leagueID int64, season int, standings []leaguestanding.Standing) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace league standings: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	clearQuery, clearArgs, err := qb.DeleteFrom("league_standings").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("season", season),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear league standings query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("clear league standings: %w", err)
	}

	for _, item := range standings {
		query, args, err := qb.InsertModel("league_standings", leagueStandingToInsertRow(item), "")
		if err != nil {
			return fmt.Errorf("build insert league standing query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert league standing team=%d: %w", item.TeamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace league standings tx: %w", err)
	}
	return nil
}

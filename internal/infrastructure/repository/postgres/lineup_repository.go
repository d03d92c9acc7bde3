package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchpulse/fixture-poller/internal/domain/lineup"
	qb "github.com/matchpulse/fixture-poller/internal/platform/querybuilder"
)

// LineupRepository stores one row per (fixture, side). The unique index on
// that pair is load-bearing: the service layer relies on duplicate inserts
// failing with lineup.ErrConflict.
type LineupRepository struct {
	db *sqlx.DB
}

func NewLineupRepository(db *sqlx.DB) *LineupRepository {
	return &LineupRepository{db: db}
}

func (r *LineupRepository) GetByFixture(ctx context.Context, fixtureID int64) (lineup.Snapshot, lineup.Snapshot, bool, error) {
	query, args, err := qb.Select("*").From("fixture_lineups").
		Where(qb.Eq("fixture_id", fixtureID)).
		OrderBy("side").
		ToSQL()
	if err != nil {
		return lineup.Snapshot{}, lineup.Snapshot{}, false, fmt.Errorf("build get lineups query: %w", err)
	}

	var rows []lineupTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return lineup.Snapshot{}, lineup.Snapshot{}, false, fmt.Errorf("get lineups: %w", err)
	}
	if len(rows) == 0 {
		return lineup.Snapshot{}, lineup.Snapshot{}, false, nil
	}

	var home, away lineup.Snapshot
	for _, row := range rows {
		snapshot, err := lineupFromRow(row)
		if err != nil {
			return lineup.Snapshot{}, lineup.Snapshot{}, false, err
		}
		switch snapshot.Side {
		case lineup.SideHome:
			home = snapshot
		case lineup.SideAway:
			away = snapshot
		}
	}
	return home, away, true, nil
}

// ReplaceByFixture swaps both team sheets in a single transaction. An aborted
// replace rolls back to the previous rows; a unique violation from a
// concurrent writer surfaces as lineup.ErrConflict for the caller's retry.
func (r *LineupRepository) ReplaceByFixture(ctx context.Context, fixtureID int64, home, away lineup.Snapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace lineups: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	clearQuery, clearArgs, err := qb.DeleteFrom("fixture_lineups").
		Where(qb.Eq("fixture_id", fixtureID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear lineups query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("clear lineups fixture=%d: %w", fixtureID, err)
	}

	for _, snapshot := range []lineup.Snapshot{home, away} {
		if snapshot.Empty() {
			continue
		}
		insertModel, err := lineupToInsertRow(snapshot)
		if err != nil {
			return err
		}
		query, args, err := qb.InsertModel("fixture_lineups", insertModel, "")
		if err != nil {
			return fmt.Errorf("build insert lineup query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert lineup fixture=%d side=%s: %w", snapshot.FixtureID, snapshot.Side, lineup.ErrConflict)
			}
			return fmt.Errorf("insert lineup fixture=%d side=%s: %w", snapshot.FixtureID, snapshot.Side, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("commit replace lineups fixture=%d: %w", fixtureID, lineup.ErrConflict)
		}
		return fmt.Errorf("commit replace lineups tx: %w", err)
	}
	return nil
}

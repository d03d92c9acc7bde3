package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchpulse/fixture-poller/internal/domain/livematch"
	qb "github.com/matchpulse/fixture-poller/internal/platform/querybuilder"
)

type LiveMatchRepository struct {
	db *sqlx.DB
}

func NewLiveMatchRepository(db *sqlx.DB) *LiveMatchRepository {
	return &LiveMatchRepository{db: db}
}

func (r *LiveMatchRepository) GetByFixture(ctx context.Context, fixtureID int64) (livematch.State, bool, error) {
	query, args, err := qb.Select("*").From("live_matches").
		Where(qb.Eq("fixture_id", fixtureID)).
		ToSQL()
	if err != nil {
		return livematch.State{}, false, fmt.Errorf("build get live match query: %w", err)
	}

	var row liveMatchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return livematch.State{}, false, nil
		}
		return livematch.State{}, false, fmt.Errorf("get live match: %w", err)
	}
	state, err := liveMatchFromRow(row)
	if err != nil {
		return livematch.State{}, false, err
	}
	return state, true, nil
}

func (r *LiveMatchRepository) Upsert(ctx context.Context, state livematch.State) error {
	events, err := liveMatchEventsToJSON(state.FixtureID, state.Events)
	if err != nil {
		return err
	}

	query, args, err := qb.InsertInto("live_matches").
		Columns("fixture_id", "status", "minute", "home_score", "away_score", "events", "source_updated_at", "updated_at").
		Values(state.FixtureID, state.Status, state.Minute, state.HomeScore, state.AwayScore, events, state.SourceUpdatedAt, state.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (fixture_id)
DO UPDATE SET
    status = EXCLUDED.status,
    minute = EXCLUDED.minute,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    events = EXCLUDED.events,
    source_updated_at = EXCLUDED.source_updated_at,
    updated_at = EXCLUDED.updated_at`).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert live match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert live match fixture=%d: %w", state.FixtureID, err)
	}
	return nil
}

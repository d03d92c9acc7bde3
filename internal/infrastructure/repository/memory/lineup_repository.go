package memory

import (
	"context"
	"sync"

	"github.com/matchpulse/fixture-poller/internal/domain/lineup"
)

// LineupRepository mirrors the relational semantics: one snapshot per
// (fixture, side), replaced atomically per fixture.
type LineupRepository struct {
	mu   sync.RWMutex
	rows map[int64]map[string]lineup.Snapshot
}

func NewLineupRepository() *LineupRepository {
	return &LineupRepository{rows: make(map[int64]map[string]lineup.Snapshot)}
}

func (r *LineupRepository) GetByFixture(_ context.Context, fixtureID int64) (lineup.Snapshot, lineup.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sides, ok := r.rows[fixtureID]
	if !ok || len(sides) == 0 {
		return lineup.Snapshot{}, lineup.Snapshot{}, false, nil
	}
	return sides[lineup.SideHome], sides[lineup.SideAway], true, nil
}

func (r *LineupRepository) ReplaceByFixture(_ context.Context, fixtureID int64, home, away lineup.Snapshot) error {
	sides := make(map[string]lineup.Snapshot, 2)
	if !home.Empty() {
		sides[home.Side] = home
	}
	if !away.Empty() {
		sides[away.Side] = away
	}

	r.mu.Lock()
	if len(sides) == 0 {
		delete(r.rows, fixtureID)
	} else {
		r.rows[fixtureID] = sides
	}
	r.mu.Unlock()
	return nil
}

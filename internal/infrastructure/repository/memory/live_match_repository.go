package memory

import (
	"context"
	"sync"

	"github.com/matchpulse/fixture-poller/internal/domain/livematch"
)

type LiveMatchRepository struct {
	mu     sync.RWMutex
	states map[int64]livematch.State
}

func NewLiveMatchRepository() *LiveMatchRepository {
	return &LiveMatchRepository{states: make(map[int64]livematch.State)}
}

func (r *LiveMatchRepository) GetByFixture(_ context.Context, fixtureID int64) (livematch.State, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[fixtureID]
	return state, ok, nil
}

func (r *LiveMatchRepository) Upsert(_ context.Context, state livematch.State) error {
	r.mu.Lock()
	r.states[state.FixtureID] = state
	r.mu.Unlock()
	return nil
}

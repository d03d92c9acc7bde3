package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/matchpulse/fixture-poller/internal/domain/fixture"
)

type FixtureRepository struct {
	mu       sync.RWMutex
	fixtures map[int64]fixture.Fixture
}

func NewFixtureRepository(fixtures []fixture.Fixture) *FixtureRepository {
	byID := make(map[int64]fixture.Fixture, len(fixtures))
	for _, item := range fixtures {
		byID[item.ID] = item
	}
	return &FixtureRepository{fixtures: byID}
}

func (r *FixtureRepository) GetByID(_ context.Context, fixtureID int64) (fixture.Fixture, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.fixtures[fixtureID]
	return item, ok, nil
}

func (r *FixtureRepository) ListUpcoming(_ context.Context, leagueID int64) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(r.fixtures))
	for _, item := range r.fixtures {
		if item.LeagueID != leagueID {
			continue
		}
		if fixture.IsFinishedStatus(item.Status) || fixture.IsCancelledLikeStatus(item.Status) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].KickoffAt.Before(out[j].KickoffAt)
	})
	return out, nil
}

func (r *FixtureRepository) Upsert(_ context.Context, item fixture.Fixture) {
	r.mu.Lock()
	r.fixtures[item.ID] = item
	r.mu.Unlock()
}

package memory

import (
	"context"
	"sync"

	"github.com/matchpulse/fixture-poller/internal/domain/leaguestanding"
)

type LeagueStandingRepository struct {
	mu   sync.RWMutex
	rows map[standingKey][]leaguestanding.Standing
}

type standingKey struct {
	leagueID int64
	season   int
}

func NewLeagueStandingRepository() *LeagueStandingRepository {
	return &LeagueStandingRepository{rows: make(map[standingKey][]leaguestanding.Standing)}
}

func (r *LeagueStandingRepository) ListByLeague(_ context.Context, leagueID int64, season int) ([]leaguestanding.Standing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.rows[standingKey{leagueID: leagueID, season: season}]
	out := make([]leaguestanding.Standing, 0, len(items))
	out = append(out, items...)
	return out, nil
}

func (r *LeagueStandingRepository) ReplaceByLeague(_ context.Context, leagueID int64, season int, standings []leaguestanding.Standing) error {
	r.mu.Lock()
	r.rows[standingKey{leagueID: leagueID, season: season}] = append([]leaguestanding.Standing(nil), standings...)
	r.mu.Unlock()
	return nil
}

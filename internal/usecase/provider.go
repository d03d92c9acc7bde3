package usecase

import (
	"context"
	"time"

	"github.com/matchpulse/fixture-poller/internal/domain/leaguestanding"
	"github.com/matchpulse/fixture-poller/internal/domain/lineup"
	"github.com/matchpulse/fixture-poller/internal/domain/livematch"
)

// FixtureSnapshot is one provider poll result for a single fixture. Lineup
// snapshots are Empty() when the provider has not published them yet.
type FixtureSnapshot struct {
	FixtureID       int64
	Status          string
	Minute          int
	HomeTeamID      int64
	AwayTeamID      int64
	HomeScore       int
	AwayScore       int
	HomeLineup      lineup.Snapshot
	AwayLineup      lineup.Snapshot
	Events          []livematch.Event
	SourceUpdatedAt *time.Time
}

// SportDataSource is the upstream football data provider.
type SportDataSource interface {
	FetchFixtureSnapshot(ctx context.Context, fixtureID int64) (FixtureSnapshot, error)
	FetchLeagueStandings(ctx context.Context, leagueID int64, season int) ([]leaguestanding.Standing, error)
}

// Notifier delivers operational alerts. Implementations own per
// (category, entityID) deduplication and must never block callers on
// downstream delivery problems.
type Notifier interface {
	NotifyOnce(ctx context.Context, category string, entityID int64, severity string, message string)
}

const (
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"

	AlertCategoryLineupDelay = "lineup-delay"
)

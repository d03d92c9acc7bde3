package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchpulse/fixture-poller/internal/domain/fixture"
	"github.com/matchpulse/fixture-poller/internal/domain/lineup"
	"github.com/matchpulse/fixture-poller/internal/domain/livematch"
)

const timeRounding = time.Minute

// preKickoffTick is the lineup watch. It polls until both team sheets are
// complete, kickoff arrives, or the fixture is called off. The kickoff check
// runs before the fetch so a provider outage cannot delay the live handover.
func (s *LifecycleService) preKickoffTick(ctx context.Context, tf *trackedFixture) (tickVerdict, error) {
	now := s.now()
	if !now.Before(tf.kickoffAt) {
		return tickAdvance, nil
	}

	snap, err := s.source.FetchFixtureSnapshot(ctx, tf.fixtureID)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			// The next interval is our retry; no point logging a warning for
			// every quota blip an hour before kickoff.
			s.logger.DebugContext(ctx, "lineup poll rate limited", "fixture_id", tf.fixtureID)
			return tickContinue, nil
		}
		return tickContinue, fmt.Errorf("fetch fixture snapshot: %w", err)
	}

	if fixture.IsCancelledLikeStatus(snap.Status) {
		s.logger.InfoContext(ctx, "fixture called off before kickoff",
			"fixture_id", tf.fixtureID,
			"status", snap.Status,
		)
		return tickAbort, nil
	}

	complete, err := s.syncLineups(ctx, tf, snap)
	if err != nil {
		return tickContinue, err
	}
	if complete {
		return tickComplete, nil
	}

	if !now.Before(tf.kickoffAt.Add(-s.cfg.LineupAlertLead)) && lineupMissing(tf) {
		s.notifier.NotifyOnce(ctx, AlertCategoryLineupDelay, tf.fixtureID, AlertSeverityWarning,
			fmt.Sprintf("lineup still missing %s before kickoff of fixture %d",
				tf.kickoffAt.Sub(now).Round(timeRounding), tf.fixtureID))
	}
	return tickContinue, nil
}

// liveTick persists match state every interval and watches for a terminal
// status. Lineup reconciliation keeps running: providers frequently resolve
// youth players and publish formation corrections after the whistle.
func (s *LifecycleService) liveTick(ctx context.Context, tf *trackedFixture) (tickVerdict, error) {
	if s.now().After(tf.kickoffAt.Add(s.cfg.PostMatchCutoff)) {
		return tickComplete, nil
	}

	snap, err := s.source.FetchFixtureSnapshot(ctx, tf.fixtureID)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.logger.DebugContext(ctx, "live poll rate limited", "fixture_id", tf.fixtureID)
			return tickContinue, nil
		}
		return tickContinue, fmt.Errorf("fetch fixture snapshot: %w", err)
	}

	if fixture.IsCancelledLikeStatus(snap.Status) {
		s.logger.InfoContext(ctx, "fixture abandoned during live watch",
			"fixture_id", tf.fixtureID,
			"status", snap.Status,
		)
		if err := s.persistLiveState(ctx, tf, snap); err != nil {
			s.logger.WarnContext(ctx, "persist final state failed", "fixture_id", tf.fixtureID, "error", err)
		}
		return tickAbort, nil
	}

	if err := s.persistLiveState(ctx, tf, snap); err != nil {
		return tickContinue, fmt.Errorf("persist live state: %w", err)
	}
	if _, err := s.syncLineups(ctx, tf, snap); err != nil {
		s.logger.WarnContext(ctx, "lineup reconcile during live failed",
			"fixture_id", tf.fixtureID,
			"error", err,
		)
	}

	if fixture.IsFinishedStatus(snap.Status) {
		return tickAdvance, nil
	}
	return tickContinue, nil
}

// postMatchTick sweeps for late corrections (VAR-adjusted events, resolved
// player identities, final score fixes) until its window or the hard cutoff
// after kickoff ends it.
func (s *LifecycleService) postMatchTick(ctx context.Context, tf *trackedFixture) (tickVerdict, error) {
	if s.now().After(tf.kickoffAt.Add(s.cfg.PostMatchCutoff)) {
		return tickComplete, nil
	}

	snap, err := s.source.FetchFixtureSnapshot(ctx, tf.fixtureID)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.logger.DebugContext(ctx, "post-match poll rate limited", "fixture_id", tf.fixtureID)
			return tickContinue, nil
		}
		return tickContinue, fmt.Errorf("fetch fixture snapshot: %w", err)
	}

	if err := s.persistLiveState(ctx, tf, snap); err != nil {
		return tickContinue, fmt.Errorf("persist post-match state: %w", err)
	}
	if _, err := s.syncLineups(ctx, tf, snap); err != nil {
		s.logger.WarnContext(ctx, "lineup correction failed",
			"fixture_id", tf.fixtureID,
			"error", err,
		)
	}
	return tickContinue, nil
}

// syncLineups merges the polled team sheets into the tracked state and
// persists them when anything changed. It reports whether both sheets are now
// complete.
func (s *LifecycleService) syncLineups(ctx context.Context, tf *trackedFixture, snap FixtureSnapshot) (bool, error) {
	prevHome, prevAway := tf.snapshotLineups()

	home, away := prevHome, prevAway
	if !snap.HomeLineup.Empty() {
		home = lineup.Reconcile(prevHome, snap.HomeLineup)
	}
	if !snap.AwayLineup.Empty() {
		away = lineup.Reconcile(prevAway, snap.AwayLineup)
	}
	if home.Empty() && away.Empty() {
		return false, nil
	}

	if !lineup.Equal(home, prevHome) || !lineup.Equal(away, prevAway) {
		if err := s.persistLineups(ctx, tf.fixtureID, home, away); err != nil {
			return false, err
		}
		tf.setLineups(home, away)
		s.logger.InfoContext(ctx, "lineups stored",
			"fixture_id", tf.fixtureID,
			"home_slots", len(home.Slots),
			"away_slots", len(away.Slots),
			"complete", lineup.IsComplete(home, away),
		)
	}
	return lineup.IsComplete(home, away), nil
}

// persistLineups replaces the stored team sheets in one atomic step. A
// conflict means a concurrent writer won the replace race; one retry is
// attempted before the error propagates.
func (s *LifecycleService) persistLineups(ctx context.Context, fixtureID int64, home, away lineup.Snapshot) error {
	err := s.lineupRepo.ReplaceByFixture(ctx, fixtureID, home, away)
	if err == nil {
		return nil
	}
	if !errors.Is(err, lineup.ErrConflict) {
		return err
	}

	s.logger.WarnContext(ctx, "lineup replace conflicted, retrying once",
		"fixture_id", fixtureID,
		"error", err,
	)
	if err := s.lineupRepo.ReplaceByFixture(ctx, fixtureID, home, away); err != nil {
		return fmt.Errorf("resave lineups after conflict: %w", err)
	}
	return nil
}

func (s *LifecycleService) persistLiveState(ctx context.Context, tf *trackedFixture, snap FixtureSnapshot) error {
	state := livematch.State{
		FixtureID:       tf.fixtureID,
		Status:          fixture.NormalizeStatus(snap.Status),
		Minute:          snap.Minute,
		HomeScore:       snap.HomeScore,
		AwayScore:       snap.AwayScore,
		Events:          snap.Events,
		SourceUpdatedAt: snap.SourceUpdatedAt,
		UpdatedAt:       s.now().UTC(),
	}
	return s.liveRepo.Upsert(ctx, state)
}

func lineupMissing(tf *trackedFixture) bool {
	home, away := tf.snapshotLineups()
	return home.Empty() || away.Empty()
}

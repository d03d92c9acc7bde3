package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/matchpulse/fixture-poller/internal/domain/fixture"
	"github.com/matchpulse/fixture-poller/internal/domain/lineup"
	"github.com/matchpulse/fixture-poller/internal/domain/livematch"
	"github.com/matchpulse/fixture-poller/internal/platform/logging"
	"github.com/matchpulse/fixture-poller/internal/platform/scheduling"
)

// LifecycleConfig carries the polling cadence and windows for the three
// fixture phases. Zero values are replaced by defaults in Normalize.
type LifecycleConfig struct {
	// PreKickoffLead is how long before kickoff the lineup watch starts.
	PreKickoffLead     time.Duration
	PreKickoffInterval time.Duration
	PreKickoffWindow   time.Duration

	LiveInterval time.Duration
	LiveWindow   time.Duration

	PostMatchInterval time.Duration
	PostMatchWindow   time.Duration

	// PostMatchCutoff is the hard ceiling measured from kickoff after which a
	// fixture is never polled again, whatever state it is in.
	PostMatchCutoff time.Duration

	// LineupAlertLead is how long before kickoff a still-missing lineup
	// raises a delay alert.
	LineupAlertLead time.Duration

	// LiveOnLineupComplete starts the live watch as soon as both lineups are
	// complete instead of waiting for kickoff.
	LiveOnLineupComplete bool

	// TrackAllMaxWorkers caps the worker pool used by TrackAll.
	TrackAllMaxWorkers int
}

func (c LifecycleConfig) Normalize() LifecycleConfig {
	if c.PreKickoffLead <= 0 {
		c.PreKickoffLead = time.Hour
	}
	if c.PreKickoffInterval <= 0 {
		c.PreKickoffInterval = time.Minute
	}
	if c.PreKickoffWindow <= 0 {
		c.PreKickoffWindow = 5 * time.Hour
	}
	if c.LiveInterval <= 0 {
		c.LiveInterval = 17 * time.Second
	}
	if c.LiveWindow <= 0 {
		c.LiveWindow = 5 * time.Hour
	}
	if c.PostMatchInterval <= 0 {
		c.PostMatchInterval = time.Minute
	}
	if c.PostMatchWindow <= 0 {
		c.PostMatchWindow = time.Hour
	}
	if c.PostMatchCutoff <= 0 {
		c.PostMatchCutoff = 6 * time.Hour
	}
	if c.LineupAlertLead <= 0 {
		c.LineupAlertLead = 10 * time.Minute
	}
	if c.TrackAllMaxWorkers <= 0 {
		c.TrackAllMaxWorkers = 8
	}
	return c
}

// trackedFixture is the in-memory lifecycle state for one fixture. At most
// one phase job is active per fixture at any time, so per-fixture fields are
// only mutated from that job's tick goroutine; the mutex covers reads from
// TrackAll and external status queries.
type trackedFixture struct {
	mu sync.Mutex

	fixtureID int64
	kickoffAt time.Time
	phase     scheduling.Phase

	home lineup.Snapshot
	away lineup.Snapshot
}

func (t *trackedFixture) snapshotLineups() (lineup.Snapshot, lineup.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.home, t.away
}

func (t *trackedFixture) setLineups(home, away lineup.Snapshot) {
	t.mu.Lock()
	t.home, t.away = home, away
	t.mu.Unlock()
}

// LifecycleService drives a tracked fixture through its three polling phases.
// It owns the job registry entries for fixtures and is the only component
// that registers or cancels fixture jobs.
type LifecycleService struct {
	registry     *scheduling.Registry
	fixtureRepo  fixture.Repository
	lineupRepo   lineup.Repository
	liveRepo     livematch.Repository
	source       SportDataSource
	notifier     Notifier
	cfg          LifecycleConfig
	logger       *logging.Logger
	now          func() time.Time

	mu      sync.Mutex
	tracked map[int64]*trackedFixture
}

func NewLifecycleService(
	registry *scheduling.Registry,
	fixtureRepo fixture.Repository,
	lineupRepo lineup.Repository,
	liveRepo livematch.Repository,
	source SportDataSource,
	notifier Notifier,
	cfg LifecycleConfig,
	logger *logging.Logger,
) *LifecycleService {
	if logger == nil {
		logger = logging.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LifecycleService{
		registry:    registry,
		fixtureRepo: fixtureRepo,
		lineupRepo:  lineupRepo,
		liveRepo:    liveRepo,
		source:      source,
		notifier:    notifier,
		cfg:         cfg.Normalize(),
		logger:      logger,
		now:         time.Now,
		tracked:     make(map[int64]*trackedFixture),
	}
}

// NopNotifier discards alerts. Used when alerting is not configured.
type NopNotifier struct{}

func (NopNotifier) NotifyOnce(context.Context, string, int64, string, string) {}

// TrackFixture begins lifecycle polling for one fixture. The fixture must
// already exist in the reference store. Tracking an already tracked fixture
// fails with ErrAlreadyTracked; fixtures whose post-match cutoff has passed
// are rejected rather than silently dropped later.
func (s *LifecycleService) TrackFixture(ctx context.Context, fixtureID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.TrackFixture")
	defer span.End()

	if fixtureID <= 0 {
		return fmt.Errorf("%w: fixture_id must be positive", ErrInvalidInput)
	}

	fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return fmt.Errorf("load fixture %d: %w", fixtureID, err)
	}
	if !found {
		return fmt.Errorf("%w: fixture %d is not cached", ErrNotFound, fixtureID)
	}
	if fx.KickoffAt.IsZero() {
		return fmt.Errorf("%w: fixture %d has no kickoff time", ErrInvalidInput, fixtureID)
	}
	if fixture.IsFinishedStatus(fx.Status) || fixture.IsCancelledLikeStatus(fx.Status) {
		return fmt.Errorf("%w: fixture %d status %q is not trackable", ErrInvalidInput, fixtureID, fx.Status)
	}

	now := s.now()
	if now.After(fx.KickoffAt.Add(s.cfg.PostMatchCutoff)) {
		return fmt.Errorf("%w: fixture %d is past its polling cutoff", ErrInvalidInput, fixtureID)
	}

	tf := &trackedFixture{
		fixtureID: fixtureID,
		kickoffAt: fx.KickoffAt,
	}
	if home, away, ok, lerr := s.lineupRepo.GetByFixture(ctx, fixtureID); lerr == nil && ok {
		tf.home, tf.away = home, away
	}

	// Insert and schedule under one lock so a concurrent UntrackFixture
	// either sees no state yet or cancels the job this call registers.
	s.mu.Lock()
	if _, exists := s.tracked[fixtureID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: fixture %d", ErrAlreadyTracked, fixtureID)
	}
	s.tracked[fixtureID] = tf

	var scheduleErr error
	if now.Before(fx.KickoffAt) {
		scheduleErr = s.schedulePreKickoff(tf)
	} else {
		// Joined late, between kickoff and cutoff. The lineup watch would be
		// pure misfire backlog, so enter the live phase directly.
		if !fixture.IsLiveStatus(fx.Status) {
			// Kickoff has passed but the provider still reports a pre-match
			// status, usually a delayed kickoff. Worth a trace when the live
			// watch then polls an idle fixture.
			s.logger.WarnContext(ctx, "fixture past kickoff but not in play",
				"fixture_id", fixtureID,
				"status", fx.Status,
				"kickoff_at", fx.KickoffAt,
			)
		}
		scheduleErr = s.scheduleLive(tf, now)
	}
	if scheduleErr != nil {
		delete(s.tracked, fixtureID)
		s.mu.Unlock()
		return scheduleErr
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "fixture tracked",
		"fixture_id", fixtureID,
		"kickoff_at", fx.KickoffAt,
		"phase", string(tf.currentPhase()),
	)
	return nil
}

// UntrackFixture stops all polling for the fixture. Untracking an unknown
// fixture is a no-op so callers can retry removals safely.
func (s *LifecycleService) UntrackFixture(ctx context.Context, fixtureID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.UntrackFixture")
	defer span.End()

	if fixtureID <= 0 {
		return fmt.Errorf("%w: fixture_id must be positive", ErrInvalidInput)
	}

	// Forget before cancelling: a phase handover checks membership under the
	// same lock before it schedules, so it either sees the fixture gone or
	// finishes scheduling before forget returns, and the cancel sweep below
	// then tears the new job down.
	removed := s.forget(fixtureID)
	for _, phase := range []scheduling.Phase{scheduling.PhasePreKickoff, scheduling.PhaseLive, scheduling.PhasePostMatch} {
		s.registry.Cancel(scheduling.Key{FixtureID: fixtureID, Phase: phase})
	}
	if removed {
		s.logger.InfoContext(ctx, "fixture untracked", "fixture_id", fixtureID)
	}
	return nil
}

// IsTracked reports whether the fixture currently has lifecycle state.
func (s *LifecycleService) IsTracked(fixtureID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tracked[fixtureID]
	return ok
}

// TrackedCount returns the number of fixtures with live lifecycle state.
func (s *LifecycleService) TrackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}

type TrackAllInput struct {
	LeagueID   int64
	MaxWorkers int
}

type TrackAllResult struct {
	LeagueID     int64 `json:"league_id"`
	FixtureCount int   `json:"fixture_count"`
	TrackedCount int   `json:"tracked_count"`
	SkippedCount int   `json:"skipped_count"`
	FailedCount  int   `json:"failed_count"`
	WorkerCount  int   `json:"worker_count"`
}

// TrackAll bootstraps tracking for every upcoming fixture of a league, used
// at startup and after provider schedule refreshes. Fixtures already tracked
// or outside the tracking window count as skipped, not failed.
func (s *LifecycleService) TrackAll(ctx context.Context, input TrackAllInput) (TrackAllResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.TrackAll")
	defer span.End()

	if input.LeagueID <= 0 {
		return TrackAllResult{}, fmt.Errorf("%w: league_id must be positive", ErrInvalidInput)
	}

	fixtures, err := s.fixtureRepo.ListUpcoming(ctx, input.LeagueID)
	if err != nil {
		return TrackAllResult{}, fmt.Errorf("list upcoming fixtures: %w", err)
	}

	workerCount := input.MaxWorkers
	if workerCount <= 0 {
		workerCount = s.cfg.TrackAllMaxWorkers
	}
	if workerCount > len(fixtures) && len(fixtures) > 0 {
		workerCount = len(fixtures)
	}

	result := TrackAllResult{
		LeagueID:     input.LeagueID,
		FixtureCount: len(fixtures),
		WorkerCount:  workerCount,
	}
	if len(fixtures) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return TrackAllResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var trackedCount, skippedCount, failedCount atomic.Int64
	var workers sync.WaitGroup
	for _, fx := range fixtures {
		fx := fx
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			switch trackErr := s.TrackFixture(ctx, fx.ID); {
			case trackErr == nil:
				trackedCount.Add(1)
			case isSkippableTrackError(trackErr):
				skippedCount.Add(1)
			default:
				failedCount.Add(1)
				s.logger.WarnContext(ctx, "track fixture failed",
					"fixture_id", fx.ID,
					"league_id", input.LeagueID,
					"error", trackErr,
				)
			}
		}); err != nil {
			workers.Done()
			failedCount.Add(1)
		}
	}
	workers.Wait()

	result.TrackedCount = int(trackedCount.Load())
	result.SkippedCount = int(skippedCount.Load())
	result.FailedCount = int(failedCount.Load())

	s.logger.InfoContext(ctx, "track all finished",
		"league_id", input.LeagueID,
		"fixtures", result.FixtureCount,
		"tracked", result.TrackedCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

func isSkippableTrackError(err error) bool {
	return errorsIsAny(err, ErrAlreadyTracked, ErrInvalidInput)
}

// Shutdown stops every fixture job and waits for in-flight ticks.
func (s *LifecycleService) Shutdown(ctx context.Context) error {
	return s.registry.Shutdown(ctx)
}

func (s *LifecycleService) forget(fixtureID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracked[fixtureID]; !ok {
		return false
	}
	delete(s.tracked, fixtureID)
	return true
}

func (t *trackedFixture) currentPhase() scheduling.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *trackedFixture) setPhase(phase scheduling.Phase) {
	t.mu.Lock()
	t.phase = phase
	t.mu.Unlock()
}

func (s *LifecycleService) schedulePreKickoff(tf *trackedFixture) error {
	key := scheduling.Key{FixtureID: tf.fixtureID, Phase: scheduling.PhasePreKickoff}
	spec := scheduling.WindowSpec(tf.kickoffAt.Add(-s.cfg.PreKickoffLead), s.cfg.PreKickoffInterval, s.cfg.PreKickoffWindow)
	tf.setPhase(scheduling.PhasePreKickoff)
	return s.registry.Schedule(key, spec, s.runTick(key, spec, tf, s.preKickoffTick))
}

func (s *LifecycleService) scheduleLive(tf *trackedFixture, startAt time.Time) error {
	key := scheduling.Key{FixtureID: tf.fixtureID, Phase: scheduling.PhaseLive}
	spec := scheduling.WindowSpec(startAt, s.cfg.LiveInterval, s.cfg.LiveWindow)
	tf.setPhase(scheduling.PhaseLive)
	return s.registry.Schedule(key, spec, s.runTick(key, spec, tf, s.liveTick))
}

func (s *LifecycleService) schedulePostMatch(tf *trackedFixture, startAt time.Time) error {
	key := scheduling.Key{FixtureID: tf.fixtureID, Phase: scheduling.PhasePostMatch}
	spec := scheduling.WindowSpec(startAt, s.cfg.PostMatchInterval, s.cfg.PostMatchWindow)
	tf.setPhase(scheduling.PhasePostMatch)
	return s.registry.Schedule(key, spec, s.runTick(key, spec, tf, s.postMatchTick))
}

type tickVerdict int

const (
	// tickContinue keeps the current phase job armed.
	tickContinue tickVerdict = iota
	// tickAdvance moves the fixture to its next phase now.
	tickAdvance
	// tickComplete ends the current phase having reached its goal. For the
	// lineup watch that still hands over to the live phase; for the
	// post-match sweep it retires the fixture.
	tickComplete
	// tickAbort retires the fixture entirely, all phases included.
	tickAbort
)

type phaseTask func(ctx context.Context, tf *trackedFixture) (tickVerdict, error)

// runTick wraps a phase task as registry work. Task errors keep the job armed
// for the next interval; verdict handling and job bookkeeping live here so the
// tasks stay pure polling logic. The local tick counter mirrors the trigger's
// repeat budget so a phase that exhausts its window without a verdict still
// retires the fixture instead of leaking lifecycle state.
func (s *LifecycleService) runTick(key scheduling.Key, spec scheduling.TriggerSpec, tf *trackedFixture, task phaseTask) scheduling.Work {
	var ticks int
	return func(ctx context.Context) {
		ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService."+string(key.Phase)+"Tick")
		defer span.End()

		ticks++
		verdict, err := task(ctx, tf)
		if err != nil {
			s.logger.WarnContext(ctx, "fixture poll tick failed",
				"job", key.String(),
				"fixture_id", tf.fixtureID,
				"error", err,
			)
		}

		switch verdict {
		case tickContinue:
			if ticks >= spec.MaxRepeats {
				s.expirePhase(ctx, key, tf)
			}
		case tickAdvance:
			s.advancePhase(ctx, key, tf)
		case tickComplete:
			s.completePhase(ctx, key, tf)
		case tickAbort:
			s.logger.InfoContext(ctx, "fixture retired", "job", key.String(), "fixture_id", tf.fixtureID)
			s.registry.Cancel(key)
			s.forget(tf.fixtureID)
		}
	}
}

// advancePhase hands the fixture to its next phase immediately. Phases only
// ever move forward. The membership re-check and the scheduling of the next
// job share one critical section: a fixture untracked while this tick was in
// flight must stay dead.
func (s *LifecycleService) advancePhase(ctx context.Context, key scheduling.Key, tf *trackedFixture) {
	s.registry.Cancel(key)
	now := s.now()

	s.mu.Lock()
	if s.tracked[tf.fixtureID] != tf {
		s.mu.Unlock()
		return
	}

	var err error
	switch key.Phase {
	case scheduling.PhasePreKickoff:
		err = s.scheduleLive(tf, now)
	case scheduling.PhaseLive:
		err = s.schedulePostMatch(tf, now)
	default:
		delete(s.tracked, tf.fixtureID)
		s.mu.Unlock()
		return
	}
	if err != nil {
		delete(s.tracked, tf.fixtureID)
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "phase handover failed",
			"job", key.String(),
			"fixture_id", tf.fixtureID,
			"error", err,
		)
		return
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "fixture phase advanced",
		"fixture_id", tf.fixtureID,
		"from", string(key.Phase),
		"to", string(tf.currentPhase()),
	)
}

// completePhase ends a phase that reached its goal before its window ran out.
// Like advancePhase it re-checks membership under the lock before scheduling
// the live watch.
func (s *LifecycleService) completePhase(ctx context.Context, key scheduling.Key, tf *trackedFixture) {
	s.registry.Cancel(key)

	s.mu.Lock()
	if s.tracked[tf.fixtureID] != tf {
		s.mu.Unlock()
		return
	}

	switch key.Phase {
	case scheduling.PhasePreKickoff:
		// Both lineups are locked in. The live watch is kickoff-driven by
		// default; the eager mode trades provider quota for earlier live data.
		startAt := tf.kickoffAt
		if now := s.now(); s.cfg.LiveOnLineupComplete || now.After(startAt) {
			startAt = now
		}
		if err := s.scheduleLive(tf, startAt); err != nil {
			delete(s.tracked, tf.fixtureID)
			s.mu.Unlock()
			s.logger.ErrorContext(ctx, "phase handover failed",
				"job", key.String(),
				"fixture_id", tf.fixtureID,
				"error", err,
			)
			return
		}
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "lineups complete, live watch scheduled",
			"fixture_id", tf.fixtureID,
			"live_start_at", startAt,
		)
	default:
		delete(s.tracked, tf.fixtureID)
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "fixture lifecycle finished", "fixture_id", tf.fixtureID, "phase", string(key.Phase))
	}
}

// expirePhase handles a phase whose repeat budget ran out without a verdict.
// Earlier phases fall through to the next one so a flaky provider cannot
// strand a fixture; the post-match sweep just ends.
func (s *LifecycleService) expirePhase(ctx context.Context, key scheduling.Key, tf *trackedFixture) {
	s.logger.WarnContext(ctx, "fixture phase window exhausted",
		"job", key.String(),
		"fixture_id", tf.fixtureID,
	)
	switch key.Phase {
	case scheduling.PhasePreKickoff, scheduling.PhaseLive:
		s.advancePhase(ctx, key, tf)
	default:
		s.registry.Cancel(key)
		s.forget(tf.fixtureID)
	}
}

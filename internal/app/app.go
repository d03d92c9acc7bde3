package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matchpulse/fixture-poller/external/alertwebhook"
	"github.com/matchpulse/fixture-poller/external/sportmonks"
	"github.com/matchpulse/fixture-poller/internal/config"
	"github.com/matchpulse/fixture-poller/internal/infrastructure/repository/postgres"
	"github.com/matchpulse/fixture-poller/internal/observability"
	"github.com/matchpulse/fixture-poller/internal/platform/logging"
	"github.com/matchpulse/fixture-poller/internal/platform/resilience"
	"github.com/matchpulse/fixture-poller/internal/platform/scheduling"
	"github.com/matchpulse/fixture-poller/internal/usecase"
)

// App owns every long-lived component of the poller and the order they shut
// down in. Jobs stop first so nothing fires against a closed database.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	Lifecycle *usecase.LifecycleService
	Standings *usecase.StandingsRefreshService

	db       dbCloser
	pprofSrv *http.Server
	stopFns  []func(context.Context) error
}

type dbCloser interface {
	Close() error
}

// New wires the full dependency graph. It fails fast on anything that would
// otherwise surface as a mid-poll error, like an unreachable database.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	a := &App{cfg: cfg, logger: logger}

	uptraceShutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	if uptraceShutdown != nil {
		a.stopFns = append(a.stopFns, uptraceShutdown)
	}

	pyroscopeStop, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	if pyroscopeStop != nil {
		a.stopFns = append(a.stopFns, func(context.Context) error { return pyroscopeStop() })
	}

	a.pprofSrv, err = observability.StartPprofServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("start pprof: %w", err)
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db

	fixtureRepo := postgres.NewFixtureRepository(db)
	lineupRepo := postgres.NewLineupRepository(db)
	liveRepo := postgres.NewLiveMatchRepository(db)
	standingRepo := postgres.NewLeagueStandingRepository(db)

	source := sportmonks.NewClient(sportmonks.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.SportMonksTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:    cfg.SportMonksBaseURL,
		Token:      cfg.SportMonksToken,
		Timeout:    cfg.SportMonksTimeout,
		MaxRetries: cfg.SportMonksMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SportMonksCircuitEnabled,
			FailureThreshold: cfg.SportMonksCircuitFailureCount,
			OpenTimeout:      cfg.SportMonksCircuitOpenTimeout,
			ProbeBudget:      cfg.SportMonksCircuitHalfOpenMaxReq,
		},
	})

	var notifier usecase.Notifier = usecase.NopNotifier{}
	if cfg.AlertWebhookEnabled {
		webhook, werr := alertwebhook.NewNotifier(alertwebhook.NotifierConfig{
			WebhookURL: cfg.AlertWebhookURL,
			Timeout:    cfg.AlertWebhookTimeout,
		}, logger)
		if werr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("build alert notifier: %w", werr)
		}
		notifier = webhook
	}

	registry := scheduling.NewRegistry(logger)

	a.Lifecycle = usecase.NewLifecycleService(
		registry,
		fixtureRepo,
		lineupRepo,
		liveRepo,
		source,
		notifier,
		usecase.LifecycleConfig{
			PreKickoffLead:       cfg.PreKickoffLead,
			PreKickoffInterval:   cfg.PreKickoffInterval,
			PreKickoffWindow:     cfg.PreKickoffWindow,
			LiveInterval:         cfg.LiveInterval,
			LiveWindow:           cfg.LiveWindow,
			PostMatchInterval:    cfg.PostMatchInterval,
			PostMatchWindow:      cfg.PostMatchWindow,
			PostMatchCutoff:      cfg.PostMatchCutoff,
			LineupAlertLead:      cfg.LineupAlertLead,
			LiveOnLineupComplete: cfg.LiveOnLineupComplete,
			TrackAllMaxWorkers:   cfg.TrackAllMaxWorkers,
		},
		logger,
	)

	a.Standings = usecase.NewStandingsRefreshService(
		source,
		standingRepo,
		usecase.StandingsRefreshConfig{
			MaxTries:          cfg.StandingsMaxTries,
			RetryOffsetSecond: cfg.StandingsRetryOffsetSecond,
		},
		logger,
	)

	return a, nil
}

// Bootstrap enrolls every upcoming fixture of the configured leagues and
// primes the league tables. Polling itself is driven by the job registry
// from here on.
func (a *App) Bootstrap(ctx context.Context) error {
	for _, leagueID := range a.cfg.LeagueIDs {
		result, err := a.Lifecycle.TrackAll(ctx, usecase.TrackAllInput{
			LeagueID:   leagueID,
			MaxWorkers: a.cfg.TrackAllMaxWorkers,
		})
		if err != nil {
			return fmt.Errorf("track league %d: %w", leagueID, err)
		}
		a.logger.InfoContext(ctx, "league tracking bootstrapped",
			"league_id", leagueID,
			"fixtures", result.FixtureCount,
			"tracked", result.TrackedCount,
			"skipped", result.SkippedCount,
			"failed", result.FailedCount,
		)
	}

	entries := make([]usecase.StandingsQueueEntry, 0, len(a.cfg.LeagueIDs))
	for _, leagueID := range a.cfg.LeagueIDs {
		entries = append(entries, usecase.StandingsQueueEntry{
			LeagueID: leagueID,
			Season:   a.cfg.Season,
		})
	}

	report, err := a.Standings.Run(ctx, entries)
	if err != nil {
		return fmt.Errorf("refresh standings: %w", err)
	}
	a.logger.InfoContext(ctx, "standings bootstrapped",
		"refreshed", report.Refreshed,
		"dropped", report.Dropped,
		"attempts", report.Attempts,
	)

	return nil
}

// Shutdown stops components in reverse dependency order. Errors are logged
// and the teardown keeps going; a half-stopped process helps nobody.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if a.Lifecycle != nil {
		if err := a.Lifecycle.Shutdown(ctx); err != nil {
			a.logger.ErrorContext(ctx, "lifecycle shutdown failed", "error", err)
			firstErr = err
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.ErrorContext(ctx, "database close failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := observability.StopPprofServer(a.pprofSrv, a.logger, 5*time.Second); err != nil {
		a.logger.ErrorContext(ctx, "pprof shutdown failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	for i := len(a.stopFns) - 1; i >= 0; i-- {
		if err := a.stopFns[i](ctx); err != nil {
			a.logger.ErrorContext(ctx, "observability shutdown failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

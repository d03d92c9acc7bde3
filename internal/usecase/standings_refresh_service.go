package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchpulse/fixture-poller/internal/domain/leaguestanding"
	"github.com/matchpulse/fixture-poller/internal/platform/logging"
)

// StandingsQueueEntry is one league table refresh request.
type StandingsQueueEntry struct {
	LeagueID int64
	Name     string
	Season   int

	tryCount int
}

type StandingsRefreshConfig struct {
	// MaxTries is how many attempts an entry gets before it is dropped.
	MaxTries int
	// RetryOffsetSecond is the second within the next minute at which a
	// rate-limited batch resumes. Provider quotas reset on minute boundaries;
	// the offset keeps the retry clear of the reset itself.
	RetryOffsetSecond int
}

func (c StandingsRefreshConfig) Normalize() StandingsRefreshConfig {
	if c.MaxTries <= 0 {
		c.MaxTries = 3
	}
	if c.RetryOffsetSecond <= 0 || c.RetryOffsetSecond > 59 {
		c.RetryOffsetSecond = 3
	}
	return c
}

// StandingsRefreshReport summarizes one queue drain.
type StandingsRefreshReport struct {
	Refreshed    int `json:"refreshed"`
	Dropped      int `json:"dropped"`
	Attempts     int `json:"attempts"`
	RateLimitHit int `json:"rate_limit_hit"`
}

// StandingsRefreshService drains a FIFO queue of league table refreshes
// through a single worker. Serializing the drain is the point: standings
// endpoints are the most quota-expensive provider calls, and one in-flight
// request at a time keeps a burst of post-match refreshes from tripping the
// limiter for the live pollers.
type StandingsRefreshService struct {
	source       SportDataSource
	standingRepo leaguestanding.Repository
	cfg          StandingsRefreshConfig
	logger       *logging.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewStandingsRefreshService(
	source SportDataSource,
	standingRepo leaguestanding.Repository,
	cfg StandingsRefreshConfig,
	logger *logging.Logger,
) *StandingsRefreshService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StandingsRefreshService{
		source:       source,
		standingRepo: standingRepo,
		cfg:          cfg.Normalize(),
		logger:       logger,
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// Run drains the queue in arrival order and returns when it is empty or ctx
// ends. A rate-limited entry goes to the back of the queue and the worker
// pauses until the next quota window; any other failure requeues the entry
// without a pause. An entry that keeps failing is dropped after MaxTries
// attempts so one broken league cannot wedge the queue.
func (s *StandingsRefreshService) Run(ctx context.Context, entries []StandingsQueueEntry) (StandingsRefreshReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsRefreshService.Run")
	defer span.End()

	var report StandingsRefreshReport
	queue := make([]StandingsQueueEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.LeagueID <= 0 {
			return report, fmt.Errorf("%w: league_id must be positive", ErrInvalidInput)
		}
		entry.tryCount = 0
		queue = append(queue, entry)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("standings refresh interrupted: %w", err)
		}

		entry := queue[0]
		queue = queue[1:]
		entry.tryCount++

		if entry.tryCount > s.cfg.MaxTries {
			report.Dropped++
			s.logger.WarnContext(ctx, "standings refresh dropped, out of tries",
				"league_id", entry.LeagueID,
				"league", entry.Name,
				"season", entry.Season,
				"max_tries", s.cfg.MaxTries,
			)
			continue
		}
		report.Attempts++

		err := s.refreshOne(ctx, entry)
		if err == nil {
			report.Refreshed++
			continue
		}

		queue = append(queue, entry)
		if !errors.Is(err, ErrRateLimited) {
			s.logger.WarnContext(ctx, "standings refresh failed, requeued",
				"league_id", entry.LeagueID,
				"try", entry.tryCount,
				"error", err,
			)
			continue
		}

		report.RateLimitHit++
		delay := s.nextQuotaWindowDelay()
		s.logger.InfoContext(ctx, "standings refresh rate limited, pausing until next quota window",
			"league_id", entry.LeagueID,
			"resume_in", delay,
		)
		if err := s.sleep(ctx, delay); err != nil {
			return report, fmt.Errorf("standings refresh interrupted: %w", err)
		}
	}
	return report, nil
}

func (s *StandingsRefreshService) refreshOne(ctx context.Context, entry StandingsQueueEntry) error {
	standings, err := s.source.FetchLeagueStandings(ctx, entry.LeagueID, entry.Season)
	if err != nil {
		return fmt.Errorf("fetch standings: %w", err)
	}
	if err := s.standingRepo.ReplaceByLeague(ctx, entry.LeagueID, entry.Season, standings); err != nil {
		return fmt.Errorf("replace standings: %w", err)
	}
	s.logger.InfoContext(ctx, "standings refreshed",
		"league_id", entry.LeagueID,
		"league", entry.Name,
		"season", entry.Season,
		"rows", len(standings),
	)
	return nil
}

// nextQuotaWindowDelay targets second RetryOffsetSecond of the next wall-clock
// minute, e.g. a rejection at 10:07:45 resumes at 10:08:03.
func (s *StandingsRefreshService) nextQuotaWindowDelay() time.Duration {
	now := s.now()
	target := now.Truncate(time.Minute).Add(time.Minute + time.Duration(s.cfg.RetryOffsetSecond)*time.Second)
	return target.Sub(now)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

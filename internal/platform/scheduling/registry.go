package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/matchpulse/fixture-poller/internal/platform/logging"
)

var (
	ErrAlreadyScheduled = errors.New("job already scheduled for key")
	ErrRegistryClosed   = errors.New("job registry is shut down")
)

// Work is one tick of a recurring job. It receives the registry's lifecycle
// context bounded by the trigger's tick timeout. A Work that fails must handle
// its own logging; the registry only guards against panics escaping into the
// timer loop.
type Work func(ctx context.Context)

// Registry owns the mapping from job keys to active recurring timers. It
// guarantees at most one active job per key and serializes all bookkeeping
// mutations behind a single mutex; ticks themselves run concurrently across
// keys, one goroutine per job.
type Registry struct {
	mu     sync.Mutex
	jobs   map[Key]*job
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	logger *logging.Logger
	now    func() time.Time
}

type job struct {
	key          Key
	spec         TriggerSpec
	work         Work
	stop         chan struct{}
	registeredAt time.Time
}

func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		jobs:   make(map[Key]*job),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		now:    time.Now,
	}
}

// Schedule activates a recurring timer for key. It fails with
// ErrAlreadyScheduled when the key already has an active job; callers must
// Cancel first. The misfire policy is fire-now-with-remaining-count: a StartAt
// in the past fires once immediately and forfeits the repeats that have
// already elapsed, never replaying missed fires.
func (r *Registry) Schedule(key Key, spec TriggerSpec, work Work) error {
	if work == nil {
		return fmt.Errorf("schedule %s: work function is required", key)
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("schedule %s: %w", key, ErrRegistryClosed)
	}
	if _, exists := r.jobs[key]; exists {
		r.mu.Unlock()
		return fmt.Errorf("schedule %s: %w", key, ErrAlreadyScheduled)
	}

	j := &job{
		key:          key,
		spec:         spec,
		work:         work,
		stop:         make(chan struct{}),
		registeredAt: r.now().UTC(),
	}
	r.jobs[key] = j
	r.mu.Unlock()

	r.wg.Go(func() { r.run(j) })
	r.logger.Debug("job scheduled",
		"job", key.String(),
		"trigger", key.TriggerName(),
		"start_at", spec.StartAt,
		"interval", spec.Interval,
		"max_repeats", spec.MaxRepeats,
	)
	return nil
}

// Cancel removes the job for key and stops its next scheduled fire. An
// in-flight tick completes normally. Cancelling an unknown key is a no-op:
// jobs may self-terminate concurrently with an external removal request.
func (r *Registry) Cancel(key Key) {
	r.mu.Lock()
	j := r.jobs[key]
	r.mu.Unlock()
	if j != nil {
		r.release(j)
	}
}

func (r *Registry) IsScheduled(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[key]
	return ok
}

// ActiveKeys returns a snapshot of currently scheduled keys.
func (r *Registry) ActiveKeys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Key, 0, len(r.jobs))
	for key := range r.jobs {
		out = append(out, key)
	}
	return out
}

// Shutdown cancels every pending fire and waits for in-flight ticks to finish
// or ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	jobs := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	for _, j := range jobs {
		r.release(j)
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job registry shutdown: %w", ctx.Err())
	}
}

// release drops bookkeeping for j exactly once. The membership check under the
// lock makes concurrent releases (external Cancel racing a self-terminating
// tick loop) safe: only the caller that still finds the entry closes the stop
// channel.
func (r *Registry) release(j *job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.jobs[j.key]
	if !ok || current != j {
		return false
	}
	delete(r.jobs, j.key)
	close(j.stop)
	return true
}

func (r *Registry) run(j *job) {
	now := r.now()
	remaining := j.spec.MaxRepeats
	var wait time.Duration

	if now.Before(j.spec.StartAt) {
		wait = j.spec.StartAt.Sub(now)
	} else {
		missed := int(now.Sub(j.spec.StartAt) / j.spec.Interval)
		remaining -= missed
	}

	if remaining <= 0 {
		// The whole repeat budget elapsed while we were away; discard
		// instead of replaying stale fires.
		if r.release(j) {
			r.logger.Warn("job discarded, repeat budget elapsed before first fire",
				"job", j.key.String(),
				"start_at", j.spec.StartAt,
			)
		}
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-r.ctx.Done():
			r.release(j)
			return
		case <-timer.C:
		}

		r.fire(j)
		remaining--

		if remaining <= 0 {
			r.release(j)
			return
		}
		// An in-flight tick may have been raced by Cancel; never re-arm a
		// key that is no longer registered.
		if !r.IsScheduled(j.key) {
			return
		}
		timer.Reset(j.spec.Interval)
	}
}

func (r *Registry) fire(j *job) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job tick panicked",
				"job", j.key.String(),
				"panic", fmt.Sprintf("%v", rec),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(r.ctx, j.spec.tickTimeout())
	defer cancel()
	j.work(ctx)
}

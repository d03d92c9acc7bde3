package scheduling

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matchpulse/fixture-poller/internal/platform/logging"
)

func testKey(fixtureID int64, phase Phase) Key {
	return Key{FixtureID: fixtureID, Phase: phase}
}

func TestRegistry_Schedule_RejectsDuplicateKey(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	key := testKey(101, PhaseLive)
	spec := TriggerSpec{StartAt: time.Now().Add(time.Hour), Interval: time.Second, MaxRepeats: 10}

	if err := r.Schedule(key, spec, func(context.Context) {}); err != nil {
		t.Fatalf("first schedule failed: %v", err)
	}
	err := r.Schedule(key, spec, func(context.Context) {})
	if !errors.Is(err, ErrAlreadyScheduled) {
		t.Fatalf("expected ErrAlreadyScheduled, got %v", err)
	}
	if !r.IsScheduled(key) {
		t.Fatal("original job should still be scheduled")
	}
}

func TestRegistry_Schedule_ValidatesSpec(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	cases := []struct {
		name string
		spec TriggerSpec
	}{
		{"zero start", TriggerSpec{Interval: time.Second, MaxRepeats: 1}},
		{"zero interval", TriggerSpec{StartAt: time.Now(), MaxRepeats: 1}},
		{"zero repeats", TriggerSpec{StartAt: time.Now(), Interval: time.Second}},
	}

	for _, tc := range cases {
		if err := r.Schedule(testKey(1, PhaseLive), tc.spec, func(context.Context) {}); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
	if r.IsScheduled(testKey(1, PhaseLive)) {
		t.Fatal("invalid specs must not register jobs")
	}
}

func TestRegistry_Cancel_IsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	key := testKey(202, PhasePreKickoff)
	spec := TriggerSpec{StartAt: time.Now().Add(time.Hour), Interval: time.Second, MaxRepeats: 5}
	if err := r.Schedule(key, spec, func(context.Context) {}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	r.Cancel(key)
	if r.IsScheduled(key) {
		t.Fatal("job should be gone after cancel")
	}

	// Cancelling again, and cancelling a never-scheduled key, must not panic.
	r.Cancel(key)
	r.Cancel(testKey(999, PhasePostMatch))

	if err := r.Schedule(key, spec, func(context.Context) {}); err != nil {
		t.Fatalf("key should be reusable after cancel: %v", err)
	}
}

func TestRegistry_FiresOnSchedule(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	var fires atomic.Int32
	key := testKey(303, PhaseLive)
	spec := TriggerSpec{StartAt: time.Now().Add(10 * time.Millisecond), Interval: 20 * time.Millisecond, MaxRepeats: 3}

	if err := r.Schedule(key, spec, func(context.Context) { fires.Add(1) }); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return fires.Load() == 3 && !r.IsScheduled(key) })
	if got := fires.Load(); got != 3 {
		t.Fatalf("expected exactly 3 fires, got %d", got)
	}
}

func TestRegistry_MisfireFiresNowWithRemainingCount(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	// Started 5 intervals ago with a budget of 7: the 5 missed fires are
	// forfeited, the job fires immediately and then runs out after 2 total.
	var fires atomic.Int32
	key := testKey(404, PhaseLive)
	spec := TriggerSpec{
		StartAt:    time.Now().Add(-500 * time.Millisecond),
		Interval:   100 * time.Millisecond,
		MaxRepeats: 7,
	}

	if err := r.Schedule(key, spec, func(context.Context) { fires.Add(1) }); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return !r.IsScheduled(key) })
	if got := fires.Load(); got != 2 {
		t.Fatalf("expected 2 fires after misfire forfeit, got %d", got)
	}
}

func TestRegistry_MisfireDiscardsExhaustedJob(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	var fires atomic.Int32
	key := testKey(505, PhasePostMatch)
	spec := TriggerSpec{
		StartAt:    time.Now().Add(-time.Hour),
		Interval:   time.Second,
		MaxRepeats: 10,
	}

	if err := r.Schedule(key, spec, func(context.Context) { fires.Add(1) }); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return !r.IsScheduled(key) })
	if got := fires.Load(); got != 0 {
		t.Fatalf("stale job must not fire, got %d fires", got)
	}
}

func TestRegistry_CancelStopsFutureFires(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	var fires atomic.Int32
	key := testKey(606, PhaseLive)
	spec := TriggerSpec{StartAt: time.Now().Add(5 * time.Millisecond), Interval: 10 * time.Millisecond, MaxRepeats: 1000}

	if err := r.Schedule(key, spec, func(context.Context) { fires.Add(1) }); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return fires.Load() >= 2 })
	r.Cancel(key)
	settled := fires.Load()

	time.Sleep(100 * time.Millisecond)
	if got := fires.Load(); got > settled+1 {
		t.Fatalf("job kept firing after cancel: %d -> %d", settled, got)
	}
	if r.IsScheduled(key) {
		t.Fatal("cancelled key must not be scheduled")
	}
}

func TestRegistry_TickPanicDoesNotKillJob(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	var fires atomic.Int32
	key := testKey(707, PhaseLive)
	spec := TriggerSpec{StartAt: time.Now(), Interval: 10 * time.Millisecond, MaxRepeats: 3}

	if err := r.Schedule(key, spec, func(context.Context) {
		fires.Add(1)
		panic("boom")
	}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return fires.Load() == 3 })
}

func TestRegistry_ShutdownRejectsNewJobs(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())

	key := testKey(808, PhaseLive)
	spec := TriggerSpec{StartAt: time.Now().Add(time.Hour), Interval: time.Second, MaxRepeats: 1}
	if err := r.Schedule(key, spec, func(context.Context) {}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	shutdownRegistry(t, r)

	if r.IsScheduled(key) {
		t.Fatal("shutdown must drop pending jobs")
	}
	err := r.Schedule(testKey(809, PhaseLive), spec, func(context.Context) {})
	if !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("expected ErrRegistryClosed, got %v", err)
	}
}

func TestRegistry_ActiveKeysSnapshot(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logging.NewNop())
	defer shutdownRegistry(t, r)

	spec := TriggerSpec{StartAt: time.Now().Add(time.Hour), Interval: time.Second, MaxRepeats: 1}
	for _, key := range []Key{testKey(1, PhasePreKickoff), testKey(1, PhaseLive), testKey(2, PhaseLive)} {
		if err := r.Schedule(key, spec, func(context.Context) {}); err != nil {
			t.Fatalf("schedule %s failed: %v", key, err)
		}
	}

	if got := len(r.ActiveKeys()); got != 3 {
		t.Fatalf("expected 3 active keys, got %d", got)
	}
}

func TestWindowSpec_RepeatCount(t *testing.T) {
	t.Parallel()

	start := time.Now()

	spec := WindowSpec(start, 17*time.Second, 5*time.Hour)
	if want := int(5 * time.Hour / (17 * time.Second)); spec.MaxRepeats != want {
		t.Fatalf("unexpected repeat count: got=%d want=%d", spec.MaxRepeats, want)
	}

	// A window no longer than the interval still yields one fire.
	spec = WindowSpec(start, time.Minute, time.Minute)
	if spec.MaxRepeats != 1 {
		t.Fatalf("expected single fire, got %d", spec.MaxRepeats)
	}
}

func shutdownRegistry(t *testing.T, r *Registry) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("registry shutdown: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Phase is one lifecycle stage of a tracked fixture's polling.
type Phase string

const (
	PhasePreKickoff Phase = "prekickoff"
	PhaseLive       Phase = "live"
	PhasePostMatch  Phase = "postmatch"
)

// KeyGroup is the job group shared by all fixture polling jobs. Collaborators
// reconstruct job names from the fixture ID alone, so the naming scheme below
// must stay stable.
const KeyGroup = "fixture"

// Key identifies one recurring job: at most one job may be active per key.
type Key struct {
	FixtureID int64
	Phase     Phase
}

func (k Key) Name() string {
	return string(k.Phase) + "-" + strconv.FormatInt(k.FixtureID, 10)
}

func (k Key) TriggerName() string {
	return string(k.Phase) + "-trigger-" + strconv.FormatInt(k.FixtureID, 10)
}

func (k Key) String() string {
	return KeyGroup + "/" + k.Name()
}

// TriggerSpec bounds a recurring job's wall-clock exposure: the job fires at
// StartAt and then every Interval, at most MaxRepeats times in total. The
// product MaxRepeats*Interval is always finite; a job can never run forever.
type TriggerSpec struct {
	StartAt    time.Time
	Interval   time.Duration
	MaxRepeats int

	// TickTimeout bounds a single work invocation. Zero means one Interval.
	TickTimeout time.Duration
}

var errInvalidTrigger = errors.New("invalid trigger spec")

func (s TriggerSpec) Validate() error {
	if s.StartAt.IsZero() {
		return fmt.Errorf("%w: start time is required", errInvalidTrigger)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval must be > 0", errInvalidTrigger)
	}
	if s.MaxRepeats < 1 {
		return fmt.Errorf("%w: max repeats must be >= 1", errInvalidTrigger)
	}
	return nil
}

func (s TriggerSpec) tickTimeout() time.Duration {
	if s.TickTimeout > 0 {
		return s.TickTimeout
	}
	return s.Interval
}

// WindowSpec is a convenience constructor for "every interval, for at most
// window of wall-clock time" triggers.
func WindowSpec(startAt time.Time, interval, window time.Duration) TriggerSpec {
	repeats := 1
	if interval > 0 && window > interval {
		repeats = int(window / interval)
	}
	return TriggerSpec{
		StartAt:    startAt,
		Interval:   interval,
		MaxRepeats: repeats,
	}
}

package logic

import "time"

// LatchState is the phase of the motion display latch.
type LatchState int

const (
	LatchIdle    LatchState = iota // nothing to show
	LatchArmed                     // first event of a burst seen this tick
	LatchHolding                   // showing DETECTED! until the hold elapses
)

func (s LatchState) String() string {
	switch s {
	case LatchIdle:
		return "idle"
	case LatchArmed:
		return "armed"
	case LatchHolding:
		return "holding"
	}
	return "unknown"
}

// MotionLatch holds the motion indicator at DETECTED! for a minimum duration
// after the first event of a burst. Later events in the same burst do not
// extend the hold.
type MotionLatch struct {
	hold  time.Duration
	state LatchState
	since time.Time
}

// NewMotionLatch creates an idle latch with the given hold duration.
func NewMotionLatch(hold time.Duration) *MotionLatch {
	return &MotionLatch{hold: hold}
}

// Update advances the latch with this tick's detection result and returns
// the status to display.
func (l *MotionLatch) Update(motion bool, now time.Time) MotionStatus {
	if l.state != LatchIdle && now.Sub(l.since) >= l.hold {
		l.state = LatchIdle
	}

	switch l.state {
	case LatchIdle:
		if !motion {
			return MotionIdle
		}
		l.state = LatchArmed
		l.since = now
	case LatchArmed:
		l.state = LatchHolding
	}
	return MotionDetected
}

// State returns the current latch phase.
func (l *MotionLatch) State() LatchState {
	return l.state
}

// Since returns the time of the first event in the current burst.
func (l *MotionLatch) Since() time.Time {
	return l.since
}

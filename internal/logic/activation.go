package logic

import "time"

// Activation converts motion events into a persistent Home/Away state.
// Each motion event (re)starts the deactivation timer; the state reverts to
// Away once delay has elapsed since the last event.
type Activation struct {
	delay      time.Duration
	state      ActivationState
	timerSet   bool
	timerStart time.Time
}

// NewActivation creates a state machine in the Away state with no timer running.
func NewActivation(delay time.Duration) *Activation {
	return &Activation{
		delay: delay,
		state: StateAway,
	}
}

// Update applies this tick's motion result and returns the resulting state
// and whether it changed.
func (a *Activation) Update(motion bool, now time.Time) (ActivationState, bool) {
	prev := a.state

	if motion {
		a.state = StateHome
		a.timerSet = true
		a.timerStart = now
		return a.state, prev != a.state
	}

	if a.timerSet && now.Sub(a.timerStart) >= a.delay {
		a.state = StateAway
		a.timerSet = false
	}
	return a.state, prev != a.state
}

// State returns the current activation state.
func (a *Activation) State() ActivationState {
	return a.state
}

// Home reports whether the state is Home. The home output pin mirrors it.
func (a *Activation) Home() bool {
	return a.state == StateHome
}

// TimerRunning reports whether a deactivation timer is pending.
func (a *Activation) TimerRunning() bool {
	return a.timerSet
}

// TimerStart returns when the pending deactivation timer was last (re)started.
func (a *Activation) TimerStart() time.Time {
	return a.timerStart
}

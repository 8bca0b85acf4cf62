// Package behavior runs the agent's stack of states.
package behavior

import "time"

// State is one node on the stack. Tick runs while the state is on top;
// Complete is asked at the start of each Run and a true answer pops it.
type State interface {
	Tick(ctx *Context)
	Complete(ctx *Context) bool
	String() string
	Timing() *StateTimer
}

// StateTimer tracks when a state's current activation began. The entry time
// is taken lazily on the first Tick after a push or after the state is
// exposed again by a pop.
type StateTimer struct {
	MaxStateTime time.Duration

	entry   time.Duration
	started bool
}

// Timing lets structs that embed a StateTimer satisfy State.
func (t *StateTimer) Timing() *StateTimer {
	return t
}

// Start records now as the entry time unless the activation already began.
func (t *StateTimer) Start(now time.Duration) {
	if t.started {
		return
	}
	t.entry = now
	t.started = true
}

// Reset begins a new activation window on the next Start.
func (t *StateTimer) Reset() {
	t.started = false
	t.entry = 0
}

// EntryTime reports when the current activation began, if it has.
func (t *StateTimer) EntryTime() (time.Duration, bool) {
	return t.entry, t.started
}

func (t *StateTimer) HasMaxStateTime() bool {
	return t.MaxStateTime > 0
}

// Elapsed is zero until the activation has started.
func (t *StateTimer) Elapsed(now time.Duration) time.Duration {
	if !t.started {
		return 0
	}
	return now - t.entry
}

// IsOutOfTime reports whether the activation outlived MaxStateTime.
func (t *StateTimer) IsOutOfTime(now time.Duration) bool {
	return t.HasMaxStateTime() && t.started && t.Elapsed(now) > t.MaxStateTime
}

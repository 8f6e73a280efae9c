// Package debounce provides cancellable deferred actions on an injectable clock.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	pending int32 = iota
	fired
	cancelled
)

// Handle refers to one scheduled action.
type Handle struct {
	timer clockwork.Timer
	state atomic.Int32
}

// Cancel prevents the action from running. It reports false if the action
// already started or was cancelled before. Once Cancel returns true the action
// never runs, even if its timer had already expired.
func (h *Handle) Cancel() bool {
	if h == nil || !h.state.CompareAndSwap(pending, cancelled) {
		return false
	}
	h.timer.Stop()
	return true
}

// Pending reports whether the action has neither run nor been cancelled.
func (h *Handle) Pending() bool {
	return h != nil && h.state.Load() == pending
}

// Schedule runs action once after delay on clock.
func Schedule(clock clockwork.Clock, delay time.Duration, action func()) *Handle {
	h := &Handle{}
	h.timer = clock.AfterFunc(delay, func() {
		if h.state.CompareAndSwap(pending, fired) {
			action()
		}
	})
	return h
}

// Debouncer keeps at most one pending action: scheduling again cancels the
// previous one and restarts the delay.
type Debouncer struct {
	clock clockwork.Clock

	mu      sync.Mutex
	current *Handle
}

func New(clock clockwork.Clock) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock}
}

// Schedule replaces any pending action with action, due after delay.
func (d *Debouncer) Schedule(delay time.Duration, action func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.current.Cancel()
	d.current = Schedule(d.clock, delay, action)
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	ok := d.current.Cancel()
	d.current = nil
	return ok
}

// Pending reports whether an action is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current.Pending()
}

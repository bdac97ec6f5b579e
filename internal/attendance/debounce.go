package attendance

import (
	"sync"
	"time"
)

// ToggleDelay is how long rapid checkbox flips coalesce before the last
// state wins.
const ToggleDelay = 200 * time.Millisecond

// Debouncer coalesces bursts of calls into one trailing-edge invocation.
// Used by the UI layer so a rapidly flipped presence checkbox issues only
// its final state.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Do schedules fn after the delay, cancelling any previously scheduled call.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

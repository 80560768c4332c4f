package livesync

import (
	"sync"
	"time"
)

// DefaultQuiescence is the trailing debounce window for refreshes.
const DefaultQuiescence = 500 * time.Millisecond

// Debouncer coalesces bursts of triggers into one trailing invocation: the
// function runs once the triggers have been quiet for the configured window.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer invoking fn after window of quiet.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	if window <= 0 {
		window = DefaultQuiescence
	}
	return &Debouncer{window: window, fn: fn}
}

// Schedule arms the debouncer. A pending invocation is pushed back to a full
// window from now.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.run)
}

func (d *Debouncer) run() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	fn := d.fn
	d.mu.Unlock()

	fn()
}

// Stop cancels any pending invocation. The debouncer ignores Schedule calls
// afterwards, so stopping during teardown is final.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

package syncctl

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one call. A call runs once no trigger has
// arrived for wait, or once maxWait has passed since the first trigger of the burst,
// whichever comes first. The leading edge never fires.
type Debouncer struct {
	wait    time.Duration
	maxWait time.Duration
	fn      func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	first   time.Time
	stopped bool
}

// NewDebouncer returns a Debouncer calling fn. maxWait <= 0 disables the upper bound.
func NewDebouncer(wait, maxWait time.Duration, fn func()) *Debouncer {
	return &Debouncer{wait: wait, maxWait: maxWait, fn: fn}
}

// Trigger schedules a call, pushing back one that is already scheduled.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	now := time.Now()
	if !d.pending {
		d.pending = true
		d.first = now
	}

	delay := d.wait
	if d.maxWait > 0 {
		if remaining := d.maxWait - now.Sub(d.first); remaining < delay {
			delay = max(remaining, 0)
		}
	}

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.fn()
}

// take clears the pending call and reports whether there was one.
func (d *Debouncer) take() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.pending
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return was
}

// Flush runs a scheduled call immediately on the caller's goroutine. It reports whether a
// call was pending.
func (d *Debouncer) Flush() bool {
	if !d.take() {
		return false
	}
	d.fn()
	return true
}

// Cancel drops a scheduled call and reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	return d.take()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any scheduled call and ignores later triggers. It reports whether a call
// was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	return d.take()
}

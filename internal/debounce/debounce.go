// Package debounce coalesces bursts of calls into one call with the last
// value, after a quiet period.
package debounce

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// Debouncer delivers the most recent value passed to Trigger once no
// further Trigger has happened for the configured delay.
type Debouncer[T any] struct {
	clock clock.Clock
	delay time.Duration
	fire  func(T)

	mu      sync.Mutex
	timer   clock.Timer
	pending T
	gen     uint64
	stopped bool
}

// New returns a debouncer calling fire on its own goroutine. A nil clock
// means the wall clock.
func New[T any](clk clock.Clock, delay time.Duration, fire func(T)) *Debouncer[T] {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Debouncer[T]{clock: clk, delay: delay, fire: fire}
}

// Trigger records v and restarts the quiet period. A pending value is
// replaced and its timer cancelled.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = v
	d.timer = d.clock.AfterFunc(d.delay, func() { d.expire(gen) })
}

// expire fires the pending value unless a later Trigger, Flush or Stop
// superseded the timer that called it.
func (d *Debouncer[T]) expire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	d.fire(v)
}

// take clears the pending value. Callers hold d.mu.
func (d *Debouncer[T]) take() T {
	v := d.pending
	var zero T
	d.pending = zero
	d.timer = nil
	d.gen++
	return v
}

// Pending reports whether a value is waiting for its quiet period.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Flush fires a pending value now, on the caller's goroutine. It reports
// whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return false
	}
	d.timer.Stop()
	v := d.take()
	d.mu.Unlock()
	d.fire(v)
	return true
}

// Stop drops any pending value. Later Triggers are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.take()
	}
}

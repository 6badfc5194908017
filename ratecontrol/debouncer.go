/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-uikit/log"
	"github.com/acronis/go-uikit/timeutil"
)

// Debouncer runs the callback once per burst of Invoke calls,
// window after the last one, with the most recent argument.
// At most one deferred run is pending at any moment.
// Debouncer is safe for concurrent use.
type Debouncer[T any] struct {
	window    time.Duration
	callback  Callback[T]
	leading   bool
	scheduler timeutil.Scheduler
	logger    log.FieldLogger
	onError   func(error)
	metrics   MetricsCollector

	mu      sync.Mutex
	seq     uint64
	timer   timeutil.Timer
	pending bool
	arg     T
}

var _ Controller[int] = (*Debouncer[int])(nil)

// NewDebouncer creates a new Debouncer with default options.
func NewDebouncer[T any](window time.Duration, cb Callback[T]) (*Debouncer[T], error) {
	return NewDebouncerWithOpts(window, cb, Options{})
}

// NewDebouncerWithOpts creates a new Debouncer with the provided options.
func NewDebouncerWithOpts[T any](window time.Duration, cb Callback[T], opts Options) (*Debouncer[T], error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive: %w", ErrInvalidConfiguration)
	}
	if cb == nil {
		return nil, fmt.Errorf("callback must not be nil: %w", ErrInvalidConfiguration)
	}
	return &Debouncer[T]{
		window:    window,
		callback:  cb,
		leading:   opts.Leading,
		scheduler: opts.scheduler(),
		logger:    opts.Logger,
		onError:   opts.OnError,
		metrics:   opts.metrics(),
	}, nil
}

// Invoke captures v and (re)schedules the deferred run window from now.
// A previously scheduled run that has not fired yet is replaced, so only
// the last call of a burst survives.
//
// When the Leading option is enabled and no run was pending, the callback
// is additionally invoked synchronously with v; in that case Invoke returns
// fired == true and the callback's error, if any. The deferred run is
// scheduled either way.
func (d *Debouncer[T]) Invoke(v T) (bool, error) {
	d.metrics.IncInvoked(ModeDebounce)

	d.mu.Lock()
	replaced := d.pending
	if d.timer != nil {
		d.timer.Stop()
	}
	leadingFire := d.leading && !d.pending
	d.seq++
	seq := d.seq
	d.arg = v
	d.pending = true
	d.timer = d.scheduler.Schedule(d.window, func() { d.fire(seq) })
	d.mu.Unlock()

	if replaced {
		d.metrics.IncSuppressed(ModeDebounce)
	}
	if !leadingFire {
		return false, nil
	}
	d.metrics.IncFired(ModeDebounce)
	if err := d.callback(v); err != nil {
		return true, err
	}
	return true, nil
}

// fire is the deferred run scheduled by Invoke. A stale timer (one that was
// replaced or canceled after its Stop raced with expiry) detects the sequence
// mismatch under the lock and does nothing.
func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.takeArg()
	d.mu.Unlock()

	d.metrics.IncFired(ModeDebounce)
	if err := d.callback(v); err != nil {
		d.reportError(err)
	}
}

// Flush runs the pending deferred invocation immediately instead of waiting
// out the window. It returns false if nothing was pending. Unlike deferred
// fires, the callback's error is returned to the caller.
func (d *Debouncer[T]) Flush() (bool, error) {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false, nil
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	v := d.takeArg()
	d.mu.Unlock()

	d.metrics.IncFired(ModeDebounce)
	if err := d.callback(v); err != nil {
		return true, err
	}
	return true, nil
}

// CancelPending discards the pending deferred invocation, if any,
// and reports whether there was one.
func (d *Debouncer[T]) CancelPending() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.takeArg()
	d.mu.Unlock()

	d.metrics.IncCanceled(ModeDebounce)
	return true
}

// Pending reports whether a deferred invocation is currently scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// takeArg consumes the captured argument and clears the pending state.
// Must be called with the lock held.
func (d *Debouncer[T]) takeArg() T {
	v := d.arg
	var zero T
	d.arg = zero
	d.pending = false
	d.timer = nil
	return v
}

func (d *Debouncer[T]) reportError(err error) {
	if d.onError != nil {
		d.onError(err)
		return
	}
	if d.logger != nil {
		d.logger.Error("debounced callback failed", log.Error(err))
	}
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/acronis/go-uikit/timeutil"
)

// Throttler runs the callback on the first Invoke and discards all further
// invocations until window elapses (leading edge). Discarded invocations are
// never queued: once the window reopens, only a new Invoke fires.
// Throttler is safe for concurrent use.
type Throttler[T any] struct {
	window    time.Duration
	callback  Callback[T]
	scheduler timeutil.Scheduler
	metrics   MetricsCollector

	mu      sync.Mutex
	limiter *rate.Limiter
}

var _ Controller[int] = (*Throttler[int])(nil)

// NewThrottler creates a new Throttler with default options.
func NewThrottler[T any](window time.Duration, cb Callback[T]) (*Throttler[T], error) {
	return NewThrottlerWithOpts(window, cb, Options{})
}

// NewThrottlerWithOpts creates a new Throttler with the provided options.
func NewThrottlerWithOpts[T any](window time.Duration, cb Callback[T], opts Options) (*Throttler[T], error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive: %w", ErrInvalidConfiguration)
	}
	if cb == nil {
		return nil, fmt.Errorf("callback must not be nil: %w", ErrInvalidConfiguration)
	}
	if opts.Leading {
		return nil, fmt.Errorf("leading option is not applicable to throttle mode: %w", ErrInvalidConfiguration)
	}
	return &Throttler[T]{
		window:    window,
		callback:  cb,
		scheduler: opts.scheduler(),
		metrics:   opts.metrics(),
		limiter:   rate.NewLimiter(rate.Every(window), 1),
	}, nil
}

// Invoke runs the callback with v if the window is open and discards v
// otherwise. fired reports whether the callback ran; its error, if any,
// is returned to the caller.
func (t *Throttler[T]) Invoke(v T) (bool, error) {
	t.metrics.IncInvoked(ModeThrottle)

	t.mu.Lock()
	allowed := t.limiter.AllowN(t.scheduler.Now(), 1)
	t.mu.Unlock()

	if !allowed {
		t.metrics.IncSuppressed(ModeThrottle)
		return false, nil
	}
	t.metrics.IncFired(ModeThrottle)
	if err := t.callback(v); err != nil {
		return true, err
	}
	return true, nil
}

// Suppressed reports whether the window is currently closed,
// i.e. whether Invoke would discard its argument right now.
func (t *Throttler[T]) Suppressed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limiter.TokensAt(t.scheduler.Now()) < 1
}

// CancelPending reopens the window so that the next Invoke fires immediately.
// It reports whether the throttler was suppressing at the time of the call.
func (t *Throttler[T]) CancelPending() bool {
	t.mu.Lock()
	suppressed := t.limiter.TokensAt(t.scheduler.Now()) < 1
	if suppressed {
		t.limiter = rate.NewLimiter(rate.Every(t.window), 1)
	}
	t.mu.Unlock()

	if suppressed {
		t.metrics.IncCanceled(ModeThrottle)
	}
	return suppressed
}

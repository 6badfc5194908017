/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
	"golang.org/x/time/rate"

	"github.com/acronis/go-uikit/internal/lru"
	"github.com/acronis/go-uikit/timeutil"
)

// ThrottleAlg is a rate limiting algorithm used by KeyedThrottler.
type ThrottleAlg int

// Supported rate limiting algorithms.
const (
	// ThrottleAlgTokenBucket keeps a token bucket (golang.org/x/time/rate)
	// per key in an LRU cache. Time is read through the injected scheduler,
	// so manual schedulers fully control it in tests.
	ThrottleAlgTokenBucket ThrottleAlg = iota

	// ThrottleAlgGCRA implements GCRA (Generic Cell Rate Algorithm), a leaky
	// bucket variant, over an in-memory store capped at MaxKeys. The store
	// keeps time internally using the wall clock, the injected scheduler
	// does not apply.
	ThrottleAlgGCRA
)

// KeyedThrottlerOptions represents options for NewKeyedThrottlerWithOpts.
type KeyedThrottlerOptions struct {
	KeyedOptions

	// Alg is a rate limiting algorithm. ThrottleAlgTokenBucket is used if not specified.
	Alg ThrottleAlg
}

// KeyedThrottler throttles independently per string key (one widget or event
// source per key): per key, the first Invoke fires and everything else is
// discarded until window elapses. The number of tracked keys is bounded by
// MaxKeys. KeyedThrottler is safe for concurrent use.
type KeyedThrottler[T any] struct {
	callback KeyedCallback[T]
	metrics  MetricsCollector
	gate     keyedGate
}

// NewKeyedThrottler creates a new KeyedThrottler with default options.
func NewKeyedThrottler[T any](window time.Duration, cb KeyedCallback[T]) (*KeyedThrottler[T], error) {
	return NewKeyedThrottlerWithOpts(window, cb, KeyedThrottlerOptions{})
}

// NewKeyedThrottlerWithOpts creates a new KeyedThrottler with the provided options.
func NewKeyedThrottlerWithOpts[T any](
	window time.Duration, cb KeyedCallback[T], opts KeyedThrottlerOptions,
) (*KeyedThrottler[T], error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive: %w", ErrInvalidConfiguration)
	}
	if cb == nil {
		return nil, fmt.Errorf("callback must not be nil: %w", ErrInvalidConfiguration)
	}
	if opts.Leading {
		return nil, fmt.Errorf("leading option is not applicable to throttle mode: %w", ErrInvalidConfiguration)
	}
	if opts.MaxKeys < 0 {
		return nil, fmt.Errorf("max keys must be positive: %w", ErrInvalidConfiguration)
	}

	var gate keyedGate
	var err error
	switch opts.Alg {
	case ThrottleAlgTokenBucket:
		gate, err = newTokenBucketGate(window, opts.scheduler(), opts.maxKeys())
	case ThrottleAlgGCRA:
		gate, err = newGCRAGate(window, opts.maxKeys())
	default:
		return nil, fmt.Errorf("unknown throttle alg %d: %w", int(opts.Alg), ErrInvalidConfiguration)
	}
	if err != nil {
		return nil, err
	}

	return &KeyedThrottler[T]{
		callback: cb,
		metrics:  opts.metrics(),
		gate:     gate,
	}, nil
}

// Invoke runs the callback with v if the window for the given key is open and
// discards v otherwise. Keys are independent: firing on one key does not close
// the window of another. An error is returned when the underlying store fails
// (possible with ThrottleAlgGCRA only); the invocation does not fire then.
func (kt *KeyedThrottler[T]) Invoke(key string, v T) (bool, error) {
	kt.metrics.IncInvoked(ModeThrottle)

	allowed, err := kt.gate.allow(key)
	if err != nil {
		return false, fmt.Errorf("rate limit key %q: %w", key, err)
	}
	if !allowed {
		kt.metrics.IncSuppressed(ModeThrottle)
		return false, nil
	}
	kt.metrics.IncFired(ModeThrottle)
	if err := kt.callback(key, v); err != nil {
		return true, err
	}
	return true, nil
}

// Len returns the number of keys currently tracked.
// ThrottleAlgGCRA manages keys inside its own store, Len always returns 0 for it.
func (kt *KeyedThrottler[T]) Len() int {
	return kt.gate.len()
}

type keyedGate interface {
	allow(key string) (bool, error)
	len() int
}

type tokenBucketGate struct {
	window    time.Duration
	scheduler timeutil.Scheduler
	cache     *lru.Cache[string, *rate.Limiter]
}

func newTokenBucketGate(window time.Duration, scheduler timeutil.Scheduler, maxKeys int) (*tokenBucketGate, error) {
	cache, err := lru.New[string, *rate.Limiter](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU cache: %w", err)
	}
	return &tokenBucketGate{window: window, scheduler: scheduler, cache: cache}, nil
}

func (g *tokenBucketGate) allow(key string) (bool, error) {
	lim, _ := g.cache.GetOrAdd(key, func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(g.window), 1)
	})
	return lim.AllowN(g.scheduler.Now(), 1), nil
}

func (g *tokenBucketGate) len() int {
	return g.cache.Len()
}

type gcraGate struct {
	limiter *throttled.GCRARateLimiter
}

func newGCRAGate(window time.Duration, maxKeys int) (*gcraGate, error) {
	store, err := memstore.New(maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	quota := throttled.RateQuota{MaxRate: throttled.PerDuration(1, window)}
	limiter, err := throttled.NewGCRARateLimiter(store, quota)
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return &gcraGate{limiter: limiter}, nil
}

func (g *gcraGate) allow(key string) (bool, error) {
	limited, _, err := g.limiter.RateLimit(key, 1)
	if err != nil {
		return false, err
	}
	return !limited, nil
}

func (g *gcraGate) len() int {
	return 0
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"fmt"
	"time"

	"github.com/acronis/go-uikit/internal/lru"
)

// DefaultMaxKeys is a default number of keys tracked by keyed controllers.
const DefaultMaxKeys = 10000

// KeyedCallback is the unit of work suppressed by keyed controllers.
type KeyedCallback[T any] func(key string, v T) error

// KeyedOptions represents options for keyed controller constructors.
type KeyedOptions struct {
	Options

	// MaxKeys is a maximum number of keys for which controller state is kept
	// in memory. When it is exceeded, the least recently used key is dropped.
	// DefaultMaxKeys is used if not specified.
	MaxKeys int
}

func (o KeyedOptions) maxKeys() int {
	if o.MaxKeys != 0 {
		return o.MaxKeys
	}
	return DefaultMaxKeys
}

// KeyedDebouncer debounces independently per string key
// (one input field, widget, or event source per key).
// Per-key state is bounded by MaxKeys with LRU eviction; evicting a key
// cancels its pending deferred invocation, so timers never leak.
// KeyedDebouncer is safe for concurrent use.
type KeyedDebouncer[T any] struct {
	window   time.Duration
	callback KeyedCallback[T]
	opts     Options
	cache    *lru.Cache[string, *Debouncer[T]]
}

// NewKeyedDebouncer creates a new KeyedDebouncer with default options.
func NewKeyedDebouncer[T any](window time.Duration, cb KeyedCallback[T]) (*KeyedDebouncer[T], error) {
	return NewKeyedDebouncerWithOpts(window, cb, KeyedOptions{})
}

// NewKeyedDebouncerWithOpts creates a new KeyedDebouncer with the provided options.
func NewKeyedDebouncerWithOpts[T any](
	window time.Duration, cb KeyedCallback[T], opts KeyedOptions,
) (*KeyedDebouncer[T], error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive: %w", ErrInvalidConfiguration)
	}
	if cb == nil {
		return nil, fmt.Errorf("callback must not be nil: %w", ErrInvalidConfiguration)
	}
	if opts.MaxKeys < 0 {
		return nil, fmt.Errorf("max keys must be positive: %w", ErrInvalidConfiguration)
	}
	cache, err := lru.New[string, *Debouncer[T]](opts.maxKeys(), func(_ string, d *Debouncer[T]) {
		d.CancelPending()
	})
	if err != nil {
		return nil, fmt.Errorf("new LRU cache: %w", err)
	}
	return &KeyedDebouncer[T]{
		window:   window,
		callback: cb,
		opts:     opts.Options,
		cache:    cache,
	}, nil
}

// Invoke debounces v under the given key. Keys are independent: a burst on
// one key does not delay deferred runs of another. Semantics per key are
// those of Debouncer.Invoke.
func (kd *KeyedDebouncer[T]) Invoke(key string, v T) (bool, error) {
	return kd.debouncer(key).Invoke(v)
}

// CancelPending discards the pending deferred invocation for the given key,
// if any, and reports whether there was one.
func (kd *KeyedDebouncer[T]) CancelPending(key string) bool {
	d, ok := kd.cache.Get(key)
	if !ok {
		return false
	}
	return d.CancelPending()
}

// CancelAll discards pending deferred invocations for all keys, drops all
// per-key state and returns the number of invocations that were discarded.
func (kd *KeyedDebouncer[T]) CancelAll() int {
	canceled := 0
	for _, d := range kd.cache.Drain() {
		if d.CancelPending() {
			canceled++
		}
	}
	return canceled
}

// Len returns the number of keys currently tracked.
func (kd *KeyedDebouncer[T]) Len() int {
	return kd.cache.Len()
}

func (kd *KeyedDebouncer[T]) debouncer(key string) *Debouncer[T] {
	d, _ := kd.cache.GetOrAdd(key, func() *Debouncer[T] {
		deb, _ := NewDebouncerWithOpts(kd.window, func(v T) error { return kd.callback(key, v) }, kd.opts)
		return deb
	})
	return d
}

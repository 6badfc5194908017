/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-uikit/timeutil"
)

func TestNewKeyedDebouncer(t *testing.T) {
	tests := []struct {
		Name       string
		Window     time.Duration
		Callback   KeyedCallback[string]
		Opts       KeyedOptions
		WantErrMsg string
	}{
		{
			Name:       "window is zero",
			Window:     0,
			Callback:   func(string, string) error { return nil },
			WantErrMsg: "window must be positive: invalid configuration",
		},
		{
			Name:       "callback is nil",
			Window:     time.Second,
			Callback:   nil,
			WantErrMsg: "callback must not be nil: invalid configuration",
		},
		{
			Name:       "negative max keys",
			Window:     time.Second,
			Callback:   func(string, string) error { return nil },
			Opts:       KeyedOptions{MaxKeys: -1},
			WantErrMsg: "max keys must be positive: invalid configuration",
		},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.Name, func(t *testing.T) {
			_, err := NewKeyedDebouncerWithOpts(tt.Window, tt.Callback, tt.Opts)
			require.EqualError(t, err, tt.WantErrMsg)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestKeyedDebouncer_Invoke(t *testing.T) {
	t.Run("keys are debounced independently", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		var calls []string
		kd, err := NewKeyedDebouncerWithOpts(300*time.Millisecond, func(key, query string) error {
			calls = append(calls, key+":"+query)
			return nil
		}, KeyedOptions{Options: Options{Scheduler: scheduler}})
		require.NoError(t, err)

		_, _ = kd.Invoke("search", "g")
		scheduler.Advance(100 * time.Millisecond)
		_, _ = kd.Invoke("filter", "active")
		scheduler.Advance(100 * time.Millisecond)
		_, _ = kd.Invoke("search", "gopher")
		require.Equal(t, 2, kd.Len())

		// The filter burst ended at t=100ms, so it fires at t=400ms;
		// the search burst ended at t=200ms and fires at t=500ms.
		scheduler.Advance(time.Second)
		require.Equal(t, []string{"filter:active", "search:gopher"}, calls)
	})

	t.Run("callback receives the key", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		gotKeys := map[string]int{}
		kd, err := NewKeyedDebouncerWithOpts(100*time.Millisecond, func(key string, _ int) error {
			gotKeys[key]++
			return nil
		}, KeyedOptions{Options: Options{Scheduler: scheduler}})
		require.NoError(t, err)

		_, _ = kd.Invoke("a", 1)
		_, _ = kd.Invoke("b", 2)
		scheduler.Advance(100 * time.Millisecond)
		require.Equal(t, map[string]int{"a": 1, "b": 1}, gotKeys)
	})

	t.Run("leading fires per key", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		var calls []string
		kd, err := NewKeyedDebouncerWithOpts(300*time.Millisecond, func(key, v string) error {
			calls = append(calls, key+":"+v)
			return nil
		}, KeyedOptions{Options: Options{Leading: true, Scheduler: scheduler}})
		require.NoError(t, err)

		fired, err := kd.Invoke("a", "1")
		require.NoError(t, err)
		require.True(t, fired, "first call on a fresh key fires synchronously")

		fired, err = kd.Invoke("a", "2")
		require.NoError(t, err)
		require.False(t, fired, "the key is mid-burst now")

		fired, err = kd.Invoke("b", "1")
		require.NoError(t, err)
		require.True(t, fired, "another key starts its own burst")

		require.Equal(t, []string{"a:1", "b:1"}, calls)
	})
}

func TestKeyedDebouncer_Eviction(t *testing.T) {
	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	var calls []string
	kd, err := NewKeyedDebouncerWithOpts(300*time.Millisecond, func(key, v string) error {
		calls = append(calls, key+":"+v)
		return nil
	}, KeyedOptions{Options: Options{Scheduler: scheduler}, MaxKeys: 2})
	require.NoError(t, err)

	_, _ = kd.Invoke("a", "1")
	_, _ = kd.Invoke("b", "1")
	require.Equal(t, 2, kd.Len())
	require.Equal(t, 2, scheduler.Pending())

	// The third key evicts the least recently used one ("a") together with
	// its pending deferred run.
	_, _ = kd.Invoke("c", "1")
	require.Equal(t, 2, kd.Len())
	require.Equal(t, 2, scheduler.Pending(), "the evicted key's timer should be stopped")

	scheduler.Advance(time.Second)
	require.Equal(t, []string{"b:1", "c:1"}, calls, "the evicted key's run should not fire")
}

func TestKeyedDebouncer_CancelPending(t *testing.T) {
	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	fired := 0
	kd, err := NewKeyedDebouncerWithOpts(300*time.Millisecond, func(string, string) error {
		fired++
		return nil
	}, KeyedOptions{Options: Options{Scheduler: scheduler}})
	require.NoError(t, err)

	require.False(t, kd.CancelPending("unknown"))

	_, _ = kd.Invoke("a", "1")
	_, _ = kd.Invoke("b", "1")

	require.True(t, kd.CancelPending("a"))
	require.False(t, kd.CancelPending("a"), "nothing is pending for the key anymore")

	scheduler.Advance(time.Second)
	require.Equal(t, 1, fired, "only the untouched key should fire")
}

func TestKeyedDebouncer_CancelAll(t *testing.T) {
	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	fired := 0
	kd, err := NewKeyedDebouncerWithOpts(300*time.Millisecond, func(string, string) error {
		fired++
		return nil
	}, KeyedOptions{Options: Options{Scheduler: scheduler}})
	require.NoError(t, err)

	require.Equal(t, 0, kd.CancelAll())

	_, _ = kd.Invoke("a", "1")
	_, _ = kd.Invoke("b", "1")
	_, _ = kd.Invoke("c", "1")
	require.True(t, kd.CancelPending("c"))

	require.Equal(t, 2, kd.CancelAll(), "only keys with pending runs count")
	require.Equal(t, 0, kd.Len())
	require.Equal(t, 0, scheduler.Pending())

	scheduler.Advance(time.Second)
	require.Equal(t, 0, fired)
}

func TestKeyedDebouncer_ConcurrentInvoke(t *testing.T) {
	const goroutinesNum = 8
	const keysNum = 4
	const invokesPerGoroutine = 100

	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	fireCount := atomic.NewInt32(0)
	kd, err := NewKeyedDebouncerWithOpts(100*time.Millisecond, func(string, int) error {
		fireCount.Inc()
		return nil
	}, KeyedOptions{Options: Options{Scheduler: scheduler}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < goroutinesNum; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < invokesPerGoroutine; j++ {
				_, _ = kd.Invoke(fmt.Sprintf("key-%d", j%keysNum), j)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, keysNum, kd.Len())
	scheduler.Advance(100 * time.Millisecond)
	require.Equal(t, int32(keysNum), fireCount.Load(), "each key should collapse into a single deferred run")
}

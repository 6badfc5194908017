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

	"github.com/acronis/go-uikit/log/logtest"
	"github.com/acronis/go-uikit/timeutil"
)

func TestNewDebouncer(t *testing.T) {
	tests := []struct {
		Name       string
		Window     time.Duration
		Callback   Callback[string]
		WantErrMsg string
	}{
		{
			Name:       "window is zero",
			Window:     0,
			Callback:   func(string) error { return nil },
			WantErrMsg: "window must be positive: invalid configuration",
		},
		{
			Name:       "window is negative",
			Window:     -time.Second,
			Callback:   func(string) error { return nil },
			WantErrMsg: "window must be positive: invalid configuration",
		},
		{
			Name:       "callback is nil",
			Window:     time.Second,
			Callback:   nil,
			WantErrMsg: "callback must not be nil: invalid configuration",
		},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.Name, func(t *testing.T) {
			_, err := NewDebouncer(tt.Window, tt.Callback)
			require.EqualError(t, err, tt.WantErrMsg)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestDebouncer_Invoke(t *testing.T) {
	t.Run("only the last call of a burst fires", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		var calls []string
		var fireTimes []time.Time
		d, err := NewDebouncerWithOpts(300*time.Millisecond, func(query string) error {
			calls = append(calls, query)
			fireTimes = append(fireTimes, scheduler.Now())
			return nil
		}, Options{Scheduler: scheduler})
		require.NoError(t, err)

		invoke := func(v string) {
			fired, invokeErr := d.Invoke(v)
			require.NoError(t, invokeErr)
			require.False(t, fired)
		}

		invoke("g")
		scheduler.Advance(100 * time.Millisecond)
		invoke("go")
		scheduler.Advance(150 * time.Millisecond)
		invoke("gopher")

		scheduler.Advance(299 * time.Millisecond)
		require.Empty(t, calls, "the quiet period has not elapsed yet")

		scheduler.Advance(time.Millisecond)
		require.Equal(t, []string{"gopher"}, calls)
		require.Equal(t, []time.Time{time.Unix(0, 0).Add(550 * time.Millisecond)}, fireTimes)
		require.False(t, d.Pending())

		scheduler.Advance(time.Second)
		require.Equal(t, []string{"gopher"}, calls, "nothing is pending, nothing else should fire")
	})

	t.Run("fires once per quiet period", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		var calls []int
		d, err := NewDebouncerWithOpts(100*time.Millisecond, func(v int) error {
			calls = append(calls, v)
			return nil
		}, Options{Scheduler: scheduler})
		require.NoError(t, err)

		_, _ = d.Invoke(1)
		scheduler.Advance(100 * time.Millisecond)
		_, _ = d.Invoke(2)
		scheduler.Advance(100 * time.Millisecond)
		require.Equal(t, []int{1, 2}, calls)
	})

	t.Run("zero value argument fires like any other", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		fired := 0
		d, err := NewDebouncerWithOpts(100*time.Millisecond, func(v string) error {
			fired++
			require.Equal(t, "", v)
			return nil
		}, Options{Scheduler: scheduler})
		require.NoError(t, err)

		_, _ = d.Invoke("")
		scheduler.Advance(100 * time.Millisecond)
		require.Equal(t, 1, fired)
	})

	t.Run("callback may re-enter the debouncer", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		var calls []string
		var d *Debouncer[string]
		d, err := NewDebouncerWithOpts(100*time.Millisecond, func(v string) error {
			calls = append(calls, v)
			if v == "first" {
				_, _ = d.Invoke("second")
			}
			return nil
		}, Options{Scheduler: scheduler})
		require.NoError(t, err)

		_, _ = d.Invoke("first")
		scheduler.Advance(200 * time.Millisecond)
		require.Equal(t, []string{"first", "second"}, calls)
	})
}

func TestDebouncer_Leading(t *testing.T) {
	t.Run("first call of a burst fires synchronously", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		var calls []string
		d, err := NewDebouncerWithOpts(300*time.Millisecond, func(v string) error {
			calls = append(calls, v)
			return nil
		}, Options{Leading: true, Scheduler: scheduler})
		require.NoError(t, err)

		fired, err := d.Invoke("a")
		require.NoError(t, err)
		require.True(t, fired)
		require.Equal(t, []string{"a"}, calls)

		// In-burst calls are not leading anymore.
		scheduler.Advance(100 * time.Millisecond)
		fired, err = d.Invoke("b")
		require.NoError(t, err)
		require.False(t, fired)

		// The trailing run still fires with the latest argument.
		scheduler.Advance(300 * time.Millisecond)
		require.Equal(t, []string{"a", "b"}, calls)

		// A new burst after a quiet period leading-fires again.
		fired, err = d.Invoke("c")
		require.NoError(t, err)
		require.True(t, fired)
		require.Equal(t, []string{"a", "b", "c"}, calls)
	})

	t.Run("synchronous fire error is returned to the caller", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		wantErr := fmt.Errorf("search backend is down")
		d, err := NewDebouncerWithOpts(100*time.Millisecond, func(string) error {
			return wantErr
		}, Options{Leading: true, Scheduler: scheduler})
		require.NoError(t, err)

		fired, err := d.Invoke("a")
		require.True(t, fired)
		require.ErrorIs(t, err, wantErr)
	})
}

func TestDebouncer_Flush(t *testing.T) {
	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	var calls []string
	d, err := NewDebouncerWithOpts(300*time.Millisecond, func(v string) error {
		calls = append(calls, v)
		return nil
	}, Options{Scheduler: scheduler})
	require.NoError(t, err)

	fired, err := d.Flush()
	require.NoError(t, err)
	require.False(t, fired, "nothing is pending")

	_, _ = d.Invoke("a")
	require.True(t, d.Pending())

	fired, err = d.Flush()
	require.NoError(t, err)
	require.True(t, fired)
	require.Equal(t, []string{"a"}, calls)
	require.False(t, d.Pending())

	scheduler.Advance(time.Second)
	require.Equal(t, []string{"a"}, calls, "the flushed run should not fire again")
}

func TestDebouncer_FlushReturnsCallbackError(t *testing.T) {
	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	wantErr := fmt.Errorf("save failed")
	d, err := NewDebouncerWithOpts(300*time.Millisecond, func(string) error {
		return wantErr
	}, Options{Scheduler: scheduler})
	require.NoError(t, err)

	_, _ = d.Invoke("draft")
	fired, err := d.Flush()
	require.True(t, fired)
	require.ErrorIs(t, err, wantErr)
}

func TestDebouncer_CancelPending(t *testing.T) {
	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	fired := 0
	d, err := NewDebouncerWithOpts(300*time.Millisecond, func(string) error {
		fired++
		return nil
	}, Options{Scheduler: scheduler})
	require.NoError(t, err)

	require.False(t, d.CancelPending(), "nothing is pending")

	_, _ = d.Invoke("a")
	require.True(t, d.Pending())
	require.True(t, d.CancelPending())
	require.False(t, d.Pending())

	scheduler.Advance(time.Second)
	require.Equal(t, 0, fired, "the canceled run should not fire")
	require.Equal(t, 0, scheduler.Pending(), "the canceled timer should be stopped")
}

func TestDebouncer_DeferredErrors(t *testing.T) {
	t.Run("reported to OnError", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		wantErr := fmt.Errorf("render failed")
		var gotErr error
		d, err := NewDebouncerWithOpts(100*time.Millisecond, func(string) error {
			return wantErr
		}, Options{
			Scheduler: scheduler,
			OnError:   func(e error) { gotErr = e },
		})
		require.NoError(t, err)

		fired, err := d.Invoke("a")
		require.NoError(t, err, "deferred errors should not surface in Invoke")
		require.False(t, fired)

		scheduler.Advance(100 * time.Millisecond)
		require.ErrorIs(t, gotErr, wantErr)
	})

	t.Run("logged when OnError is not set", func(t *testing.T) {
		scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
		recorder := logtest.NewRecorder()
		d, err := NewDebouncerWithOpts(100*time.Millisecond, func(string) error {
			return fmt.Errorf("render failed")
		}, Options{Scheduler: scheduler, Logger: recorder})
		require.NoError(t, err)

		_, _ = d.Invoke("a")
		scheduler.Advance(100 * time.Millisecond)

		entry, found := recorder.FindEntry("debounced callback failed")
		require.True(t, found)
		field, found := entry.FindField("error")
		require.True(t, found)
		fieldErr, ok := field.Any.(error)
		require.True(t, ok)
		require.EqualError(t, fieldErr, "render failed")
	})
}

func TestDebouncer_ConcurrentInvoke(t *testing.T) {
	const goroutinesNum = 16
	const invokesPerGoroutine = 100

	scheduler := timeutil.NewManualScheduler(time.Unix(0, 0))
	fireCount := atomic.NewInt32(0)
	d, err := NewDebouncerWithOpts(100*time.Millisecond, func(int) error {
		fireCount.Inc()
		return nil
	}, Options{Scheduler: scheduler})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < goroutinesNum; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < invokesPerGoroutine; j++ {
				_, _ = d.Invoke(n*invokesPerGoroutine + j)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, scheduler.Pending(), "replaced timers should be stopped")
	scheduler.Advance(100 * time.Millisecond)
	require.Equal(t, int32(1), fireCount.Load(), "a burst should collapse into a single deferred run")
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package timeutil provides a small scheduling abstraction over the system timer.
//
// Components that defer work (debouncers, auto-dismissing notifications) depend on
// the Scheduler interface instead of calling time.AfterFunc directly. Production
// code uses SystemScheduler; tests use ManualScheduler to control time explicitly
// and make timing-dependent behavior deterministic.
package timeutil

import (
	"time"
)

// Timer is a handle for a single scheduled callback.
type Timer interface {
	// Stop cancels the scheduled callback.
	// It returns false if the callback has already run or has already been stopped.
	// Stopping an expired or stopped timer is a safe no-op.
	Stop() bool
}

// Scheduler schedules callbacks to run after a delay and reports the current time.
// Implementations must be safe for concurrent use.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// Schedule arranges for fn to be called once after the given delay.
	// The callback runs on an unspecified goroutine and must not be assumed
	// to run synchronously with Schedule.
	Schedule(delay time.Duration, fn func()) Timer
}

// SystemScheduler is a Scheduler backed by the real clock (time.Now, time.AfterFunc).
// The zero value is ready to use.
type SystemScheduler struct{}

// Now returns the current system time.
func (SystemScheduler) Now() time.Time {
	return time.Now()
}

// Schedule calls fn once after delay on a new goroutine.
func (SystemScheduler) Schedule(delay time.Duration, fn func()) Timer {
	return systemTimer{timer: time.AfterFunc(delay, fn)}
}

type systemTimer struct {
	timer *time.Timer
}

func (t systemTimer) Stop() bool {
	return t.timer.Stop()
}

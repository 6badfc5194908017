/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package timeutil

import (
	"sync"
	"time"
)

// ManualScheduler is a Scheduler whose time advances only when told to.
// It makes timing-dependent code fully deterministic in tests:
// scheduled callbacks run synchronously on the goroutine that calls
// Advance or AdvanceTo, in deadline order (ties are broken by scheduling order).
//
// While a callback runs, Now reports that callback's deadline, so work scheduled
// from inside a callback gets a deadline relative to its own firing time and,
// if it falls within the advanced range, runs during the same Advance call.
//
// Schedule and Timer.Stop are safe to call from any goroutine, including from
// running callbacks. Advance and AdvanceTo are intended to be driven from a
// single goroutine (usually the test itself).
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	timers []*manualTimer
}

type manualTimer struct {
	s        *ManualScheduler
	id       uint64
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// NewManualScheduler creates a ManualScheduler with its clock set to start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the current manual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule registers fn to run once the clock reaches now+delay.
// A non-positive delay makes the callback due immediately, but it still runs
// only on the next Advance or AdvanceTo call (possibly Advance(0)), never
// synchronously inside Schedule.
func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &manualTimer{
		s:        s,
		id:       s.nextID,
		deadline: s.now.Add(delay),
		fn:       fn,
	}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d, running every due callback along the way.
// It panics if d is negative.
func (s *ManualScheduler) Advance(d time.Duration) {
	if d < 0 {
		panic("timeutil: cannot advance manual scheduler by negative duration")
	}
	s.mu.Lock()
	s.advanceLocked(s.now.Add(d))
}

// AdvanceTo moves the clock forward to t, running every due callback along the way.
// It panics if t is before the current time.
func (s *ManualScheduler) AdvanceTo(t time.Time) {
	s.mu.Lock()
	if t.Before(s.now) {
		s.mu.Unlock()
		panic("timeutil: cannot advance manual scheduler to the past")
	}
	s.advanceLocked(t)
}

// Pending returns the number of scheduled callbacks that have not fired
// and have not been stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// advanceLocked runs due callbacks one at a time up to target and leaves the
// clock at target. It is entered with s.mu held and releases it before return.
// The lock is dropped around each callback so callbacks may call Schedule,
// Stop, Now, and Pending without deadlocking.
func (s *ManualScheduler) advanceLocked(target time.Time) {
	for {
		t := s.popDue(target)
		if t == nil {
			break
		}
		if t.deadline.After(s.now) {
			s.now = t.deadline
		}
		s.mu.Unlock()
		t.fn()
		s.mu.Lock()
	}
	if target.After(s.now) {
		s.now = target
	}
	s.mu.Unlock()
}

// popDue removes and returns the pending timer with the earliest deadline
// not after target, preferring lower ids on equal deadlines. It returns nil
// when no pending timer is due. Must be called with s.mu held.
func (s *ManualScheduler) popDue(target time.Time) *manualTimer {
	idx := -1
	for i, t := range s.timers {
		if t.deadline.After(target) {
			continue
		}
		if idx == -1 || t.deadline.Before(s.timers[idx].deadline) ||
			(t.deadline.Equal(s.timers[idx].deadline) && t.id < s.timers[idx].id) {
			idx = i
		}
	}
	if idx == -1 {
		return nil
	}
	t := s.timers[idx]
	s.timers = append(s.timers[:idx], s.timers[idx+1:]...)
	t.fired = true
	return t
}

// Stop cancels the timer. It returns false if the callback has already run
// or the timer has already been stopped.
func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	for i, pending := range t.s.timers {
		if pending == t {
			t.s.timers = append(t.s.timers[:i], t.s.timers[i+1:]...)
			break
		}
	}
	return true
}

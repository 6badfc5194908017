/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratecontrol provides debouncing and throttling of repeated work.
//
// Both strategies suppress bursts of calls to an expensive callback
// (search queries, scroll handlers, autosaves) and differ in which call of
// a burst survives:
//
//   - Debouncer runs the callback once per quiet period, window after the
//     last call, with the most recent argument (trailing edge).
//   - Throttler runs the callback on the first call and discards everything
//     else until window elapses (leading edge). Suppressed calls are never
//     queued and never run later.
//
// Keyed variants (KeyedDebouncer, KeyedThrottler) manage one controller per
// string key with an LRU cap on the number of tracked keys.
//
// Time is read through timeutil.Scheduler, so tests can drive controllers
// with timeutil.ManualScheduler instead of waiting on the real clock.
package ratecontrol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acronis/go-uikit/log"
	"github.com/acronis/go-uikit/timeutil"
)

// ErrInvalidConfiguration is returned (wrapped) by constructors
// when they are called with unusable parameters.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Mode determines which rate control strategy a controller applies.
type Mode int

// Supported rate control modes.
const (
	ModeDebounce Mode = iota
	ModeThrottle
)

const (
	modeDebounceStr = "debounce"
	modeThrottleStr = "throttle"
)

// String returns a string representation of the mode.
// Implements fmt.Stringer interface.
func (m Mode) String() string {
	switch m {
	case ModeDebounce:
		return modeDebounceStr
	case ModeThrottle:
		return modeThrottleStr
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
// which is used by mapstructure.TextUnmarshallerHookFunc.
func (m *Mode) UnmarshalText(text []byte) error {
	return m.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return m.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return m.unmarshal(text)
}

func (m *Mode) unmarshal(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case modeDebounceStr:
		*m = ModeDebounce
	case modeThrottleStr:
		*m = ModeThrottle
	default:
		return fmt.Errorf("unknown rate control mode %q, should be %q or %q", s, modeDebounceStr, modeThrottleStr)
	}
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// Callback is the unit of work a controller suppresses.
// An error returned from a synchronous fire is reported to the Invoke caller;
// see Options.OnError for errors from deferred fires.
type Callback[T any] func(v T) error

// Controller is a common interface for Debouncer and Throttler.
type Controller[T any] interface {
	// Invoke asks the controller to run the callback with v.
	// fired reports whether the callback ran synchronously during this call.
	Invoke(v T) (fired bool, err error)

	// CancelPending discards work the controller is currently holding back
	// and reports whether there was any.
	CancelPending() bool
}

// Options represents options for controller constructors.
type Options struct {
	// Leading makes a debouncer additionally fire synchronously on the first
	// call of a burst. It is not applicable to throttle mode (the constructor
	// returns an error): a throttler is leading-edge by definition.
	Leading bool

	// Scheduler is used to defer work and to read the current time.
	// timeutil.SystemScheduler is used if not specified.
	Scheduler timeutil.Scheduler

	// Logger is used to log errors from deferred fires when OnError is not set.
	Logger log.FieldLogger

	// OnError is called with errors returned by the callback from deferred
	// fires. If both OnError and Logger are nil, such errors are dropped.
	OnError func(error)

	// MetricsCollector is a collector of metrics.
	// PrometheusMetrics can be used as ready-to-use Prometheus implementation.
	// Metrics collecting is disabled if not specified.
	MetricsCollector MetricsCollector
}

func (o Options) scheduler() timeutil.Scheduler {
	if o.Scheduler != nil {
		return o.Scheduler
	}
	return timeutil.SystemScheduler{}
}

func (o Options) metrics() MetricsCollector {
	if o.MetricsCollector != nil {
		return o.MetricsCollector
	}
	return disabledMetricsCollector
}

// New creates a new controller applying the given mode.
// It is a mode-switching form of NewDebouncerWithOpts and NewThrottlerWithOpts.
func New[T any](mode Mode, window time.Duration, cb Callback[T], opts Options) (Controller[T], error) {
	switch mode {
	case ModeDebounce:
		return NewDebouncerWithOpts(window, cb, opts)
	case ModeThrottle:
		return NewThrottlerWithOpts(window, cb, opts)
	}
	return nil, fmt.Errorf("unknown mode %d: %w", int(mode), ErrInvalidConfiguration)
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package notify

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/acronis/go-uikit/log"
	"github.com/acronis/go-uikit/timeutil"
)

// Options represents options for NewWithOpts and NewWithConfig.
type Options struct {
	// DefaultDuration is how long notifications stay up when a Notify call
	// does not specify a duration and no per-kind override applies.
	// DefaultDuration (the package constant) is used if not specified.
	// Negative values are rejected.
	DefaultDuration time.Duration

	// KindDurations overrides the default duration per notification kind.
	// A zero value makes notifications of that kind sticky.
	// Negative values are rejected.
	KindDurations map[Kind]time.Duration

	// Scheduler is used to schedule auto-dismiss timers and to read the
	// current time. timeutil.SystemScheduler is used if not specified.
	Scheduler timeutil.Scheduler

	// Logger is used to log lifecycle transitions at debug level.
	// Logging is disabled if not specified.
	Logger log.FieldLogger

	// OnEvent, if set, is called synchronously with every lifecycle event
	// (see Event) after the Center's internal lock is released.
	// The callback may call back into the Center.
	OnEvent func(Event)

	// MetricsCollector is a collector of metrics.
	// PrometheusMetrics can be used as ready-to-use Prometheus implementation.
	// Metrics collecting is disabled if not specified.
	MetricsCollector MetricsCollector
}

// NotifyOption is a type for functional options for the Center.Notify method.
type NotifyOption func(*notifyOptions)

type notifyOptions struct {
	kind        Kind
	duration    time.Duration
	durationSet bool
}

// WithKind returns a NotifyOption that sets the notification kind.
// KindInfo is used if not specified.
func WithKind(kind Kind) NotifyOption {
	return func(o *notifyOptions) {
		o.kind = kind
	}
}

// WithDuration returns a NotifyOption that sets how long the notification
// stays up, overriding the Center's per-kind and default durations.
// Zero makes the notification sticky, negative values are rejected.
func WithDuration(d time.Duration) NotifyOption {
	return func(o *notifyOptions) {
		o.duration = d
		o.durationSet = true
	}
}

// WithSticky returns a NotifyOption that makes the notification stay up
// until it is dismissed explicitly. It is a shorthand for WithDuration(0).
func WithSticky() NotifyOption {
	return WithDuration(0)
}

type centerEntry struct {
	notification Notification
	timer        timeutil.Timer
}

// Center manages the lifecycle of ephemeral notifications.
// It preserves creation order, assigns unique IDs, and guarantees that each
// notification is removed exactly once, whether by its auto-dismiss timer or
// by an explicit Dismiss call. Center is safe for concurrent use.
type Center struct {
	defaultDuration time.Duration
	kindDurations   map[Kind]time.Duration
	scheduler       timeutil.Scheduler
	logger          log.FieldLogger
	onEvent         func(Event)
	metrics         MetricsCollector

	mu      sync.Mutex
	ordered *list.List
	index   map[string]*list.Element
}

// New creates a new Center with default options.
func New() *Center {
	c, _ := NewWithOpts(Options{})
	return c
}

// NewWithOpts creates a new Center with the provided options.
func NewWithOpts(opts Options) (*Center, error) {
	if opts.DefaultDuration < 0 {
		return nil, fmt.Errorf("default duration must not be negative: %w", ErrInvalidConfiguration)
	}
	kindDurations := make(map[Kind]time.Duration, len(opts.KindDurations))
	for kind, d := range opts.KindDurations {
		if !kind.IsValid() {
			return nil, fmt.Errorf("unknown notification kind %q: %w", kind, ErrInvalidConfiguration)
		}
		if d < 0 {
			return nil, fmt.Errorf("duration for kind %q must not be negative: %w", kind, ErrInvalidConfiguration)
		}
		kindDurations[kind] = d
	}

	defaultDuration := opts.DefaultDuration
	if defaultDuration == 0 {
		defaultDuration = DefaultDuration
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = timeutil.SystemScheduler{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetricsCollector
	}

	return &Center{
		defaultDuration: defaultDuration,
		kindDurations:   kindDurations,
		scheduler:       scheduler,
		logger:          logger,
		onEvent:         opts.OnEvent,
		metrics:         metrics,
		ordered:         list.New(),
		index:           make(map[string]*list.Element),
	}, nil
}

// NewWithConfig creates a new Center with durations from the passed
// configuration. Explicit options take precedence: Options.DefaultDuration
// (when non-zero) overrides Config.DefaultDuration, and per-kind durations
// from Options.KindDurations override the configured ones.
//
// Unlike Options.DefaultDuration, a zero Config.DefaultDuration is honored
// as configured: notifications become sticky by default.
func NewWithConfig(cfg *Config, opts Options) (*Center, error) {
	c, err := NewWithOpts(opts)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return c, nil
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate notify configuration: %w", err)
	}
	if opts.DefaultDuration == 0 {
		c.defaultDuration = cfg.DefaultDuration.Duration()
	}
	for kindStr, d := range cfg.KindDurations {
		kind, _ := ParseKind(kindStr)
		if _, ok := opts.KindDurations[kind]; !ok {
			c.kindDurations[kind] = d.Duration()
		}
	}
	return c, nil
}

// Notify creates a new notification and returns its ID.
//
// The notification is visible in List immediately. Unless the resolved
// duration is zero (sticky), an auto-dismiss timer is scheduled for it.
// The duration is resolved in order: WithDuration/WithSticky option,
// the Center's per-kind duration, the Center's default duration.
//
// Notify never blocks and performs no de-duplication: identical messages
// produce independent notifications, each with its own ID and timer.
func (c *Center) Notify(message string, options ...NotifyOption) (string, error) {
	if message == "" {
		return "", fmt.Errorf("message must not be empty: %w", ErrInvalidConfiguration)
	}
	nOpts := notifyOptions{kind: KindInfo}
	for _, opt := range options {
		opt(&nOpts)
	}
	if !nOpts.kind.IsValid() {
		return "", fmt.Errorf("unknown notification kind %q: %w", nOpts.kind, ErrInvalidConfiguration)
	}
	duration, err := c.resolveDuration(nOpts)
	if err != nil {
		return "", err
	}

	notification := Notification{
		ID:        xid.New().String(),
		Message:   message,
		Kind:      nOpts.kind,
		CreatedAt: c.scheduler.Now(),
		Duration:  duration,
	}

	entry := &centerEntry{notification: notification}
	c.mu.Lock()
	c.index[notification.ID] = c.ordered.PushBack(entry)
	if duration > 0 {
		id := notification.ID
		entry.timer = c.scheduler.Schedule(duration, func() { c.expire(id) })
	}
	active := len(c.index)
	c.mu.Unlock()

	c.metrics.IncCreated(notification.Kind)
	c.metrics.SetActive(active)
	c.logger.Debug("notification created",
		log.String("id", notification.ID),
		log.String("kind", string(notification.Kind)),
		log.Duration("duration", notification.Duration),
	)
	c.emit(EventCreated, notification)
	return notification.ID, nil
}

// Dismiss removes the notification with the given ID and stops its
// auto-dismiss timer. It returns false if the ID is unknown or the
// notification has already been removed; repeated calls are a safe no-op.
func (c *Center) Dismiss(id string) bool {
	notification, active, ok := c.remove(id)
	if !ok {
		return false
	}
	c.metrics.IncRemoved(notification.Kind, RemovalReasonDismissed)
	c.metrics.SetActive(active)
	c.logger.Debug("notification dismissed", log.String("id", id))
	c.emit(EventDismissed, notification)
	return true
}

// List returns a snapshot of the live notifications in creation order.
// The returned slice is owned by the caller.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	notifications := make([]Notification, 0, c.ordered.Len())
	for elem := c.ordered.Front(); elem != nil; elem = elem.Next() {
		notifications = append(notifications, elem.Value.(*centerEntry).notification)
	}
	return notifications
}

// Get returns the live notification with the given ID.
func (c *Center) Get(id string) (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.index[id]
	if !ok {
		return Notification{}, false
	}
	return elem.Value.(*centerEntry).notification, true
}

// Len returns the number of live notifications.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Clear removes all live notifications, stops their auto-dismiss timers, and
// returns the number of removed notifications. One EventCleared is emitted
// per removed notification, in creation order.
func (c *Center) Clear() int {
	c.mu.Lock()
	removed := make([]Notification, 0, c.ordered.Len())
	for elem := c.ordered.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*centerEntry)
		if entry.timer != nil {
			entry.timer.Stop()
		}
		removed = append(removed, entry.notification)
	}
	c.ordered.Init()
	c.index = make(map[string]*list.Element)
	c.mu.Unlock()

	if len(removed) == 0 {
		return 0
	}
	for _, notification := range removed {
		c.metrics.IncRemoved(notification.Kind, RemovalReasonCleared)
	}
	c.metrics.SetActive(0)
	c.logger.Debug("notifications cleared", log.Int("count", len(removed)))
	for _, notification := range removed {
		c.emit(EventCleared, notification)
	}
	return len(removed)
}

// expire is the auto-dismiss path scheduled by Notify. The ID lookup inside
// remove is the single arbiter between expiry and a concurrent Dismiss or
// Clear: whichever removes the ID first wins, and the loser finds the ID
// gone and does nothing.
func (c *Center) expire(id string) {
	notification, active, ok := c.remove(id)
	if !ok {
		return
	}
	c.metrics.IncRemoved(notification.Kind, RemovalReasonExpired)
	c.metrics.SetActive(active)
	c.logger.Debug("notification expired", log.String("id", id))
	c.emit(EventExpired, notification)
}

// remove deletes the notification with the given ID and stops its timer.
// It returns a copy of the removed notification and the number of
// notifications still live.
func (c *Center) remove(id string) (Notification, int, bool) {
	c.mu.Lock()
	elem, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return Notification{}, 0, false
	}
	entry := elem.Value.(*centerEntry)
	if entry.timer != nil {
		entry.timer.Stop()
	}
	c.ordered.Remove(elem)
	delete(c.index, id)
	active := len(c.index)
	c.mu.Unlock()
	return entry.notification, active, true
}

func (c *Center) resolveDuration(nOpts notifyOptions) (time.Duration, error) {
	if nOpts.durationSet {
		if nOpts.duration < 0 {
			return 0, fmt.Errorf("duration must not be negative: %w", ErrInvalidConfiguration)
		}
		return nOpts.duration, nil
	}
	if d, ok := c.kindDurations[nOpts.kind]; ok {
		return d, nil
	}
	return c.defaultDuration, nil
}

func (c *Center) emit(eventType EventType, notification Notification) {
	if c.onEvent == nil {
		return
	}
	c.onEvent(Event{Type: eventType, Notification: notification, At: c.scheduler.Now()})
}

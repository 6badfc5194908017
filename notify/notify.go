/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package notify manages the lifecycle of ephemeral notifications
// (toasts, status banners, validation messages).
//
// A Center owns an ordered collection of live notifications. Notify creates
// a notification and, unless it is sticky, schedules its auto-dismissal;
// Dismiss removes it earlier. Auto-expiry and manual dismissal are mutually
// exclusive: whichever happens first removes the notification, the other
// becomes a no-op. The Center holds no rendering logic; a presentation layer
// renders List snapshots or reacts to Options.OnEvent callbacks.
//
// Timers are scheduled through timeutil.Scheduler, so tests can drive
// expiration with timeutil.ManualScheduler instead of waiting on the real clock.
package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfiguration is returned (wrapped) by constructors and Notify
// when they are called with unusable parameters.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// DefaultDuration is how long a notification stays up when neither per-call
// options nor Center options specify a duration.
const DefaultDuration = 3 * time.Second

// Kind classifies a notification for the presentation layer.
type Kind string

// Supported notification kinds.
const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// IsValid reports whether the kind is one of the supported values.
func (k Kind) IsValid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

// ParseKind parses a notification kind from its string representation.
// Parsing is case-insensitive.
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown notification kind %q, should be one of [%s %s %s %s]",
			s, KindInfo, KindSuccess, KindWarning, KindError)
	}
	return kind, nil
}

// Notification is a single ephemeral message shown to the user.
// Values returned by Center methods are copies; mutating them has no effect
// on the Center's state.
type Notification struct {
	// ID is a unique identifier assigned at creation. IDs are never reused.
	ID string `json:"id"`

	// Message is the text to display.
	Message string `json:"message"`

	// Kind classifies the notification (info, success, warning, error).
	Kind Kind `json:"kind"`

	// CreatedAt is the creation time. Notifications are listed in creation order.
	CreatedAt time.Time `json:"createdAt"`

	// Duration is how long the notification stays up before it is dismissed
	// automatically. Zero means sticky: it stays until dismissed explicitly.
	Duration time.Duration `json:"duration"`
}

// Sticky reports whether the notification must be dismissed explicitly.
func (n Notification) Sticky() bool {
	return n.Duration == 0
}

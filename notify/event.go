/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package notify

import "time"

// EventType distinguishes notification lifecycle events.
type EventType string

// Notification lifecycle events.
const (
	// EventCreated is emitted when a notification is created by Notify.
	EventCreated EventType = "created"

	// EventDismissed is emitted when a notification is removed by Dismiss.
	EventDismissed EventType = "dismissed"

	// EventExpired is emitted when a notification is removed by its
	// auto-dismiss timer.
	EventExpired EventType = "expired"

	// EventCleared is emitted for each notification removed by Clear.
	EventCleared EventType = "cleared"
)

// Event describes a single notification lifecycle transition.
// Events are delivered to Options.OnEvent so that a presentation layer can
// render created notifications and remove dismissed or expired ones.
type Event struct {
	// Type is a lifecycle transition type.
	Type EventType

	// Notification is a copy of the affected notification.
	Notification Notification

	// At is the time the transition happened.
	At time.Time
}

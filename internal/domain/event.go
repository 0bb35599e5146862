package domain

import "time"

// EventStatus represents the provider-reported status of an event
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusTentative EventStatus = "tentative"
	StatusCancelled EventStatus = "cancelled"
)

// IsValid checks if the status is a known value
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusConfirmed, StatusTentative, StatusCancelled:
		return true
	}
	return false
}

// Event is the canonical internal representation of a calendar event,
// normalized from the provider record. The engine treats it as read-only
// except for the fields the rule transformer overwrites before writing
// to a destination.
type Event struct {
	// ID is the provider event id (opaque, provider-scoped)
	ID string

	// CalendarID is the calendar the event was read from
	CalendarID string

	// Start and End are timezone-aware instants. All-day events are
	// normalized to a half-open [Start, End) interval of whole days.
	Start time.Time
	End   time.Time

	// AllDay marks events normalized from a date-only interval
	AllDay bool

	Summary     string
	Description string
	Location    string

	Status EventStatus

	// Updated is the provider's last-modified timestamp
	Updated time.Time

	// RecurringEventID and OriginalStart identify an instance of a
	// recurring series (empty/zero for standalone events)
	RecurringEventID string
	OriginalStart    time.Time

	// Attendees invited to the event (source side only; transformer
	// strips them from destination payloads)
	Attendees []Attendee

	// Transparent is true for events marked free rather than busy
	Transparent bool

	// SelfResponse is the owning account's own invitation response
	// ("accepted", "declined", "tentative", "needsAction", or empty
	// when the event is not an invitation)
	SelfResponse string
}

// Attendee is a guest on an event
type Attendee struct {
	Email          string
	ResponseStatus string
	Self           bool
}

// IsInstance returns true if the event is a concrete instance of a
// recurring series
func (e Event) IsInstance() bool {
	return e.RecurringEventID != "" || !e.OriginalStart.IsZero()
}

// Cancelled returns true if the provider reports the event cancelled
func (e Event) Cancelled() bool {
	return e.Status == StatusCancelled
}

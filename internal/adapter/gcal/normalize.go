package gcal

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// Normalize converts a raw API event into the canonical form. It
// resolves timed vs all-day boundaries, normalizes status and
// transparency, and extracts the authenticated account's own
// response from the attendee list.
func Normalize(raw *calendar.Event, calendarID string) (domain.Event, error) {
	if raw == nil || raw.Id == "" {
		return domain.Event{}, fmt.Errorf("%w: missing event id", domain.ErrInvalidEvent)
	}

	ev := domain.Event{
		ID:               raw.Id,
		CalendarID:       calendarID,
		Summary:          raw.Summary,
		Description:      raw.Description,
		Location:         raw.Location,
		RecurringEventID: raw.RecurringEventId,
		Transparent:      raw.Transparency == "transparent",
	}

	switch raw.Status {
	case "tentative":
		ev.Status = domain.StatusTentative
	case "cancelled":
		ev.Status = domain.StatusCancelled
	default:
		ev.Status = domain.StatusConfirmed
	}

	// Cancelled records may omit times entirely; keep the identity
	// fields so the differencer can retire the mapping.
	if ev.Status == domain.StatusCancelled && raw.Start == nil {
		if raw.OriginalStartTime != nil {
			if orig, _, err := parseBoundary(raw.OriginalStartTime); err == nil {
				ev.OriginalStart = orig
			}
		}
		return ev, nil
	}

	start, allDay, err := parseBoundary(raw.Start)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: event %s: %v", domain.ErrInvalidEvent, raw.Id, err)
	}
	ev.Start = start
	ev.AllDay = allDay

	if end, _, err := parseBoundary(raw.End); err == nil {
		ev.End = end
	}

	if raw.OriginalStartTime != nil {
		if orig, _, err := parseBoundary(raw.OriginalStartTime); err == nil {
			ev.OriginalStart = orig
		}
	}

	if raw.Updated != "" {
		if updated, err := time.Parse(time.RFC3339, raw.Updated); err == nil {
			ev.Updated = updated
		}
	}

	for _, att := range raw.Attendees {
		if att == nil {
			continue
		}
		ev.Attendees = append(ev.Attendees, domain.Attendee{
			Email:          att.Email,
			ResponseStatus: att.ResponseStatus,
			Self:           att.Self,
		})
		if att.Self {
			ev.SelfResponse = att.ResponseStatus
		}
	}

	return ev, nil
}

// parseBoundary resolves an event boundary to an instant. Date-only
// boundaries mark the event as all-day and resolve to local midnight.
func parseBoundary(dt *calendar.EventDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, fmt.Errorf("missing boundary")
	}

	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid datetime %q: %v", dt.DateTime, err)
		}
		return t, false, nil
	}

	if dt.Date != "" {
		t, err := time.ParseInLocation(allDayFormat, dt.Date, time.Local)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid date %q: %v", dt.Date, err)
		}
		return t, true, nil
	}

	return time.Time{}, false, fmt.Errorf("empty boundary")
}

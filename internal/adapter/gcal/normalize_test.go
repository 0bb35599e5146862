package gcal

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/imyu7/calendar-sync/internal/domain"
)

func timedEvent() *calendar.Event {
	return &calendar.Event{
		Id:      "evt-1",
		Summary: "Team standup",
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{DateTime: "2026-03-10T09:00:00+09:00"},
		End:     &calendar.EventDateTime{DateTime: "2026-03-10T09:30:00+09:00"},
		Updated: "2026-03-01T12:00:00.000Z",
	}
}

func TestNormalize_TimedEvent(t *testing.T) {
	ev, err := Normalize(timedEvent(), "primary")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if ev.ID != "evt-1" || ev.CalendarID != "primary" {
		t.Errorf("Expected identity carried, got id=%s calendar=%s", ev.ID, ev.CalendarID)
	}
	if ev.AllDay {
		t.Error("Expected timed event, got all-day")
	}

	wantStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, ev.Start)
	}
	if ev.End.Sub(ev.Start) != 30*time.Minute {
		t.Errorf("Expected 30 minute duration, got %v", ev.End.Sub(ev.Start))
	}
	if ev.Status != domain.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", ev.Status)
	}
	if ev.Updated.IsZero() {
		t.Error("Expected updated timestamp parsed")
	}
}

func TestNormalize_AllDayEvent(t *testing.T) {
	raw := &calendar.Event{
		Id:      "evt-2",
		Summary: "Offsite",
		Start:   &calendar.EventDateTime{Date: "2026-03-10"},
		End:     &calendar.EventDateTime{Date: "2026-03-11"},
	}

	ev, err := Normalize(raw, "primary")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if !ev.AllDay {
		t.Error("Expected all-day event")
	}
	if ev.Start.Hour() != 0 || ev.Start.Day() != 10 {
		t.Errorf("Expected local midnight March 10, got %v", ev.Start)
	}
	if ev.End.Sub(ev.Start) != 24*time.Hour {
		t.Errorf("Expected one-day interval, got %v", ev.End.Sub(ev.Start))
	}
}

func TestNormalize_StatusMapping(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.EventStatus
	}{
		{"confirmed", domain.StatusConfirmed},
		{"tentative", domain.StatusTentative},
		{"cancelled", domain.StatusCancelled},
		{"", domain.StatusConfirmed},
	}

	for _, tc := range cases {
		raw := timedEvent()
		raw.Status = tc.raw
		ev, err := Normalize(raw, "primary")
		if err != nil {
			t.Fatalf("Normalize failed for status %q: %v", tc.raw, err)
		}
		if ev.Status != tc.want {
			t.Errorf("Status %q: expected %s, got %s", tc.raw, tc.want, ev.Status)
		}
	}
}

func TestNormalize_CancelledWithoutTimes(t *testing.T) {
	raw := &calendar.Event{
		Id:               "evt-3",
		Status:           "cancelled",
		RecurringEventId: "master-1",
		OriginalStartTime: &calendar.EventDateTime{
			DateTime: "2026-03-10T09:00:00Z",
		},
	}

	ev, err := Normalize(raw, "primary")
	if err != nil {
		t.Fatalf("Expected cancelled stub normalized, got %v", err)
	}

	if !ev.Cancelled() {
		t.Error("Expected cancelled status")
	}
	if ev.RecurringEventID != "master-1" {
		t.Errorf("Expected recurrence identity kept, got %q", ev.RecurringEventID)
	}
	if ev.OriginalStart.IsZero() {
		t.Error("Expected original start parsed")
	}
	if !ev.Start.IsZero() {
		t.Errorf("Expected zero start on cancelled stub, got %v", ev.Start)
	}
}

func TestNormalize_RecurrenceInstance(t *testing.T) {
	raw := timedEvent()
	raw.RecurringEventId = "master-1"
	raw.OriginalStartTime = &calendar.EventDateTime{DateTime: "2026-03-10T09:00:00+09:00"}

	ev, err := Normalize(raw, "primary")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if !ev.IsInstance() {
		t.Error("Expected event recognized as a recurring instance")
	}
	if !ev.OriginalStart.Equal(ev.Start) {
		t.Errorf("Expected original start %v, got %v", ev.Start, ev.OriginalStart)
	}
}

func TestNormalize_SelfResponse(t *testing.T) {
	raw := timedEvent()
	raw.Attendees = []*calendar.EventAttendee{
		{Email: "organizer@example.com", ResponseStatus: "accepted"},
		{Email: "me@example.com", ResponseStatus: "needsAction", Self: true},
		nil,
	}

	ev, err := Normalize(raw, "primary")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(ev.Attendees) != 2 {
		t.Fatalf("Expected 2 attendees, got %d", len(ev.Attendees))
	}
	if ev.SelfResponse != "needsAction" {
		t.Errorf("Expected own response needsAction, got %q", ev.SelfResponse)
	}
}

func TestNormalize_Transparency(t *testing.T) {
	raw := timedEvent()
	raw.Transparency = "transparent"

	ev, err := Normalize(raw, "primary")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !ev.Transparent {
		t.Error("Expected transparent event flagged")
	}

	raw.Transparency = ""
	ev, _ = Normalize(raw, "primary")
	if ev.Transparent {
		t.Error("Expected default opacity to be busy")
	}
}

func TestNormalize_MalformedRecords(t *testing.T) {
	cases := []struct {
		name string
		raw  *calendar.Event
	}{
		{"nil event", nil},
		{"missing id", &calendar.Event{Summary: "No id"}},
		{"missing start", &calendar.Event{Id: "evt-4", Status: "confirmed"}},
		{"bad datetime", &calendar.Event{
			Id:    "evt-5",
			Start: &calendar.EventDateTime{DateTime: "not-a-time"},
		}},
		{"bad date", &calendar.Event{
			Id:    "evt-6",
			Start: &calendar.EventDateTime{Date: "03/10/2026"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw, "primary")
			if !errors.Is(err, domain.ErrInvalidEvent) {
				t.Errorf("Expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}

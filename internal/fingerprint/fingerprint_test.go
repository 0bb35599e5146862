package fingerprint

import (
	"testing"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

func baseEvent() domain.Event {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return domain.Event{
		ID:         "evt-1",
		CalendarID: "primary",
		Start:      start,
		End:        start.Add(time.Hour),
		Summary:    "Team standup",
		Status:     domain.StatusConfirmed,
	}
}

func TestNew_Deterministic(t *testing.T) {
	ev := baseEvent()

	k1 := New(ev)
	k2 := New(ev)

	if k1 != k2 {
		t.Errorf("Expected identical keys, got %s and %s", k1, k2)
	}
}

func TestNew_IgnoresProviderIdentity(t *testing.T) {
	ev := baseEvent()
	other := ev
	other.ID = "completely-different-id"
	other.CalendarID = "another-calendar"

	if New(ev) != New(other) {
		t.Error("Expected provider id and calendar id to not affect the key")
	}
}

func TestNew_IgnoresDetails(t *testing.T) {
	ev := baseEvent()
	other := ev
	other.Description = "agenda attached"
	other.Location = "Room 4"
	other.Attendees = []domain.Attendee{{Email: "a@example.com"}}

	if New(ev) != New(other) {
		t.Error("Expected description, location and attendees to not affect the key")
	}
}

func TestNew_ChangesWithContent(t *testing.T) {
	ev := baseEvent()

	cases := []struct {
		name   string
		mutate func(*domain.Event)
	}{
		{"start", func(e *domain.Event) { e.Start = e.Start.Add(time.Minute) }},
		{"end", func(e *domain.Event) { e.End = e.End.Add(time.Minute) }},
		{"summary", func(e *domain.Event) { e.Summary = "Renamed" }},
		{"recurring id", func(e *domain.Event) { e.RecurringEventID = "master-1" }},
		{"original start", func(e *domain.Event) { e.OriginalStart = e.Start }},
		{"all day", func(e *domain.Event) { e.AllDay = true }},
	}

	base := New(ev)
	for _, tc := range cases {
		mutated := ev
		tc.mutate(&mutated)
		if New(mutated) == base {
			t.Errorf("Expected %s change to produce a different key", tc.name)
		}
	}
}

func TestNew_TimezoneIndependent(t *testing.T) {
	ev := baseEvent()

	shifted := ev
	loc := time.FixedZone("JST", 9*3600)
	shifted.Start = ev.Start.In(loc)
	shifted.End = ev.End.In(loc)

	if New(ev) != New(shifted) {
		t.Error("Expected the same instant in different zones to produce the same key")
	}
}

func TestNew_DistinguishesInstances(t *testing.T) {
	ev := baseEvent()
	ev.RecurringEventID = "master-1"
	ev.OriginalStart = ev.Start

	later := ev
	later.OriginalStart = ev.Start.Add(7 * 24 * time.Hour)

	if New(ev) == New(later) {
		t.Error("Expected instances with different original starts to have distinct keys")
	}
}

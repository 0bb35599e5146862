package transform

import (
	"testing"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
	"github.com/imyu7/calendar-sync/internal/testutil"
)

func TestApply_StripsProviderIdentity(t *testing.T) {
	ev := testutil.Event("evt-1", "Team standup", time.Now())
	ev.CalendarID = "primary"

	out := Apply(testutil.Rule("r", "work", "home"), ev)

	if out.ID != "" {
		t.Errorf("Expected empty id on payload, got %q", out.ID)
	}
	if out.CalendarID != "" {
		t.Errorf("Expected empty calendar id on payload, got %q", out.CalendarID)
	}
}

func TestApply_AlwaysDropsAttendees(t *testing.T) {
	rule := testutil.Rule("r", "work", "home")
	rule.PreserveDetails = true

	ev := testutil.Event("evt-1", "Planning", time.Now())
	ev.Attendees = []domain.Attendee{
		{Email: "a@example.com", ResponseStatus: "accepted"},
		{Email: "b@example.com", ResponseStatus: "needsAction", Self: true},
	}
	ev.SelfResponse = "accepted"

	out := Apply(rule, ev)

	if out.Attendees != nil {
		t.Errorf("Expected attendees dropped even with preserve_details, got %d", len(out.Attendees))
	}
	if out.SelfResponse != "" {
		t.Errorf("Expected self response cleared, got %q", out.SelfResponse)
	}
}

func TestApply_SummaryOverride(t *testing.T) {
	rule := testutil.Rule("r", "work", "home")
	rule.NewSummary = "Busy"

	out := Apply(rule, testutil.Event("evt-1", "1:1 with manager", time.Now()))

	if out.Summary != "Busy" {
		t.Errorf("Expected summary 'Busy', got %q", out.Summary)
	}
}

func TestApply_NoOverrideKeepsSummary(t *testing.T) {
	out := Apply(testutil.Rule("r", "work", "home"), testutil.Event("evt-1", "Planning", time.Now()))

	if out.Summary != "Planning" {
		t.Errorf("Expected original summary, got %q", out.Summary)
	}
}

func TestApply_DetailStripping(t *testing.T) {
	ev := testutil.Event("evt-1", "Planning", time.Now())
	ev.Description = "quarterly goals"
	ev.Location = "HQ"

	stripped := Apply(testutil.Rule("r", "work", "home"), ev)
	if stripped.Description != "" || stripped.Location != "" {
		t.Errorf("Expected stripped details, got description=%q location=%q",
			stripped.Description, stripped.Location)
	}

	rule := testutil.Rule("r", "work", "home")
	rule.PreserveDetails = true
	kept := Apply(rule, ev)
	if kept.Description != "quarterly goals" || kept.Location != "HQ" {
		t.Errorf("Expected preserved details, got description=%q location=%q",
			kept.Description, kept.Location)
	}
}

func TestApply_KeepsTiming(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ev := testutil.Event("evt-1", "Planning", start)
	ev.RecurringEventID = "master-1"
	ev.OriginalStart = start

	out := Apply(testutil.Rule("r", "work", "home"), ev)

	if !out.Start.Equal(ev.Start) || !out.End.Equal(ev.End) {
		t.Error("Expected start and end to carry over unchanged")
	}
	if out.RecurringEventID != "master-1" || !out.OriginalStart.Equal(start) {
		t.Error("Expected recurrence identity to carry over unchanged")
	}
}

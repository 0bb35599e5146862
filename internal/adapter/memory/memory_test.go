package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imyu7/calendar-sync/internal/adapter"
	"github.com/imyu7/calendar-sync/internal/domain"
	"github.com/imyu7/calendar-sync/internal/testutil"
)

func TestListEvents_WindowAndOrder(t *testing.T) {
	p := NewProvider()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	p.Seed("cal", testutil.Event("late", "Late", base.Add(48*time.Hour)))
	p.Seed("cal", testutil.Event("early", "Early", base))
	p.Seed("cal", testutil.Event("outside", "Outside", base.Add(30*24*time.Hour)))

	events, err := p.ListEvents(context.Background(), "cal", adapter.Window{
		Start: base.Add(-time.Hour),
		End:   base.AddDate(0, 0, 21),
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events inside the window, got %d", len(events))
	}
	if events[0].ID != "early" || events[1].ID != "late" {
		t.Errorf("Expected start ordering, got %s, %s", events[0].ID, events[1].ID)
	}
}

func TestInsertUpdateDelete(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()
	ev := testutil.Event("", "Standup", time.Now().Add(time.Hour))

	id, err := p.InsertEvent(ctx, "cal", ev)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected generated id")
	}

	ev.Summary = "Standup (moved)"
	if err := p.UpdateEvent(ctx, "cal", id, ev); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, ok := p.Get("cal", id)
	if !ok || got.Summary != "Standup (moved)" {
		t.Errorf("Expected updated event, got %+v", got)
	}

	if err := p.DeleteEvent(ctx, "cal", id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if p.Count("cal") != 0 {
		t.Errorf("Expected empty calendar, got %d", p.Count("cal"))
	}
}

func TestMissingEventIsNotFound(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	if err := p.UpdateEvent(ctx, "cal", "nope", domain.Event{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update, got %v", err)
	}
	if err := p.DeleteEvent(ctx, "cal", "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on delete, got %v", err)
	}
}

func TestFailWithPoisonsMutations(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()
	p.FailWith = domain.ErrRateLimited

	if _, err := p.InsertEvent(ctx, "cal", domain.Event{}); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("Expected injected failure, got %v", err)
	}

	// Reads stay healthy
	if _, err := p.ListEvents(ctx, "cal", adapter.Window{End: time.Now()}); err != nil {
		t.Errorf("Expected list unaffected, got %v", err)
	}
}

func TestFailCountHealsAfterExhaustion(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()
	p.FailWith = domain.ErrRateLimited
	p.FailCount = 2

	for i := 0; i < 2; i++ {
		if _, err := p.InsertEvent(ctx, "cal", domain.Event{}); !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("Expected injected failure on attempt %d, got %v", i+1, err)
		}
	}

	if _, err := p.InsertEvent(ctx, "cal", domain.Event{}); err != nil {
		t.Errorf("Expected provider healed after 2 failures, got %v", err)
	}
	if p.Count("cal") != 1 {
		t.Errorf("Expected 1 stored event, got %d", p.Count("cal"))
	}
}

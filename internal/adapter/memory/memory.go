// Package memory implements an in-process calendar provider used by
// tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/imyu7/calendar-sync/internal/adapter"
	"github.com/imyu7/calendar-sync/internal/domain"
)

// Provider stores events per calendar in memory
type Provider struct {
	mu        sync.Mutex
	calendars map[string]map[string]domain.Event

	// Counters let tests assert on write traffic
	Inserts int
	Updates int
	Deletes int

	// FailWith, when set, is returned by mutating calls. FailCount > 0
	// limits the failure to that many mutations, after which the
	// provider heals itself.
	FailWith  error
	FailCount int
}

// NewProvider creates an empty in-memory provider
func NewProvider() *Provider {
	return &Provider{calendars: make(map[string]map[string]domain.Event)}
}

// Seed places an event directly into a calendar, assigning an id when
// the event has none
func (p *Provider) Seed(calendarID string, ev domain.Event) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CalendarID = calendarID
	p.calendar(calendarID)[ev.ID] = ev
	return ev.ID
}

// ListEvents returns events whose start falls inside the window,
// ordered by start time
func (p *Provider) ListEvents(ctx context.Context, calendarID string, window adapter.Window) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var result []domain.Event
	for _, ev := range p.calendar(calendarID) {
		if window.Contains(ev.Start) {
			result = append(result, ev)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Start.Equal(result[j].Start) {
			return result[i].ID < result[j].ID
		}
		return result[i].Start.Before(result[j].Start)
	})
	return result, nil
}

// InsertEvent stores a new event and returns its generated id
func (p *Provider) InsertEvent(ctx context.Context, calendarID string, ev domain.Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.mutationErr(); err != nil {
		return "", err
	}

	ev.ID = uuid.NewString()
	ev.CalendarID = calendarID
	p.calendar(calendarID)[ev.ID] = ev
	p.Inserts++
	return ev.ID, nil
}

// UpdateEvent overwrites an existing event, preserving its id
func (p *Provider) UpdateEvent(ctx context.Context, calendarID, eventID string, ev domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.mutationErr(); err != nil {
		return err
	}

	cal := p.calendar(calendarID)
	if _, ok := cal[eventID]; !ok {
		return domain.ErrNotFound
	}

	ev.ID = eventID
	ev.CalendarID = calendarID
	cal[eventID] = ev
	p.Updates++
	return nil
}

// DeleteEvent removes an event by id
func (p *Provider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.mutationErr(); err != nil {
		return err
	}

	cal := p.calendar(calendarID)
	if _, ok := cal[eventID]; !ok {
		return domain.ErrNotFound
	}

	delete(cal, eventID)
	p.Deletes++
	return nil
}

// Get returns a stored event by id
func (p *Provider) Get(calendarID, eventID string) (domain.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev, ok := p.calendar(calendarID)[eventID]
	return ev, ok
}

// Count returns the number of events in a calendar
func (p *Provider) Count(calendarID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calendar(calendarID))
}

// Close releases any resources
func (p *Provider) Close() error {
	return nil
}

// mutationErr returns the configured failure for a mutating call and
// decrements the remaining failure count. Callers must hold the mutex.
func (p *Provider) mutationErr() error {
	if p.FailWith == nil {
		return nil
	}
	if p.FailCount > 0 {
		p.FailCount--
		err := p.FailWith
		if p.FailCount == 0 {
			p.FailWith = nil
		}
		return err
	}
	return p.FailWith
}

// calendar returns the event map for a calendar, creating it on demand.
// Callers must hold the mutex.
func (p *Provider) calendar(calendarID string) map[string]domain.Event {
	cal, ok := p.calendars[calendarID]
	if !ok {
		cal = make(map[string]domain.Event)
		p.calendars[calendarID] = cal
	}
	return cal
}

var _ adapter.Provider = (*Provider)(nil)

// Package transform applies a rule's declared transformation to produce
// the destination-bound event payload.
package transform

import "github.com/imyu7/calendar-sync/internal/domain"

// Apply builds the destination payload for a source event under a rule.
// The payload never carries the source's provider event id or calendar
// id, and attendees are always dropped so destination copies do not
// re-invite guests.
func Apply(rule domain.SyncRule, ev domain.Event) domain.Event {
	out := ev

	out.ID = ""
	out.CalendarID = ""
	out.Attendees = nil
	out.SelfResponse = ""

	if rule.NewSummary != "" {
		out.Summary = rule.NewSummary
	}

	if !rule.PreserveDetails {
		out.Description = ""
		out.Location = ""
	}

	return out
}

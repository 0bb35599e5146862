// Package diff classifies a rule's fetched source events against stored
// mapping state into create/update/delete/unchanged actions. Deletions
// are detected by absence from the fetch, so the caller must fetch a
// window that is a superset of all previously mapped, still-relevant
// events.
package diff

import (
	"github.com/imyu7/calendar-sync/internal/domain"
	"github.com/imyu7/calendar-sync/internal/fingerprint"
)

// Differencer classifies source events against mapping state
type Differencer interface {
	// Classify builds the sync plan for one rule. sourceEvents is the
	// normalized fetch result; mappings is every entry stored for the
	// rule, tombstones included.
	Classify(rule domain.SyncRule, sourceEvents []domain.Event, mappings []domain.Mapping) domain.Plan
}

// DefaultDifferencer detects changes by fingerprint and last-modified
// comparison against the stored mapping entry
type DefaultDifferencer struct{}

// NewDefaultDifferencer creates a new DefaultDifferencer
func NewDefaultDifferencer() *DefaultDifferencer {
	return &DefaultDifferencer{}
}

// Classify implements the Differencer interface
func (d *DefaultDifferencer) Classify(rule domain.SyncRule, sourceEvents []domain.Event, mappings []domain.Mapping) domain.Plan {
	plan := domain.Plan{RuleID: rule.ID()}

	// Lookup of live (non-tombstoned) entries by source event id.
	// Tombstones are kept separately: a tombstoned source id must never
	// be re-created, even if the provider shows it again.
	live := make(map[string]domain.Mapping)
	tombstoned := make(map[string]bool)
	for _, m := range mappings {
		if m.Tombstoned {
			tombstoned[m.SourceEventID] = true
			continue
		}
		live[m.SourceEventID] = m
	}

	events := dedupeByID(sourceEvents)

	// Track which mapped ids the fetch still contains
	seen := make(map[string]bool, len(events))

	for _, ev := range events {
		seen[ev.ID] = true

		if ev.Cancelled() {
			// Cancelled events are handled below with the deletion
			// sweep when mapped; unmapped ones need no action.
			if _, ok := live[ev.ID]; !ok {
				plan.Skipped++
			}
			continue
		}

		entry, ok := live[ev.ID]
		if !ok {
			if tombstoned[ev.ID] {
				plan.Skipped++
				continue
			}
			plan.Creates = append(plan.Creates, domain.Action{
				Type:   domain.ActionCreate,
				Event:  ev,
				Reason: "no mapping entry for source event",
			})
			continue
		}

		if changed(ev, entry) {
			entryCopy := entry
			plan.Updates = append(plan.Updates, domain.Action{
				Type:    domain.ActionUpdate,
				Event:   ev,
				Mapping: &entryCopy,
				Reason:  "source event changed since last sync",
			})
			continue
		}

		plan.Unchanged++
	}

	// Entries whose source event is gone from the fetch, or now reports
	// cancelled, propagate as deletions.
	for _, ev := range events {
		if !ev.Cancelled() {
			continue
		}
		if entry, ok := live[ev.ID]; ok {
			entryCopy := entry
			plan.Deletes = append(plan.Deletes, domain.Action{
				Type:    domain.ActionDelete,
				Event:   ev,
				Mapping: &entryCopy,
				Reason:  "source event cancelled",
			})
			delete(live, ev.ID)
		}
	}
	for id, entry := range live {
		if seen[id] {
			continue
		}
		entryCopy := entry
		plan.Deletes = append(plan.Deletes, domain.Action{
			Type:    domain.ActionDelete,
			Mapping: &entryCopy,
			Reason:  "source event absent from fetch window",
		})
	}

	return plan
}

// changed reports whether the source event differs from its last synced
// state in the mapping entry
func changed(ev domain.Event, entry domain.Mapping) bool {
	if fingerprint.New(ev).String() != entry.Fingerprint {
		return true
	}
	if !entry.SourceUpdated.IsZero() && !ev.Updated.Equal(entry.SourceUpdated) {
		return true
	}
	return false
}

// dedupeByID collapses duplicate source event ids in one fetch. When a
// provider returns both a recurring instance and its series master under
// the same id, the concrete instance wins.
func dedupeByID(events []domain.Event) []domain.Event {
	index := make(map[string]int, len(events))
	var out []domain.Event

	for _, ev := range events {
		i, ok := index[ev.ID]
		if !ok {
			index[ev.ID] = len(out)
			out = append(out, ev)
			continue
		}
		if ev.IsInstance() && !out[i].IsInstance() {
			out[i] = ev
		}
	}

	return out
}

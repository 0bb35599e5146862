// Package state persists mapping entries and run history across sync
// passes. The mapping store is the engine's only source of "have I
// already synced this" truth.
package state

import (
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// Store is the durable key-value mapping store, keyed by
// (rule id, source event id). Implementations must serialize writes to
// a given key and must never resurrect a tombstoned entry.
type Store interface {
	// Get returns the entry for the key, or nil if none exists
	Get(ruleID, sourceEventID string) (*domain.Mapping, error)

	// List returns every entry stored for a rule, tombstones included
	List(ruleID string) ([]domain.Mapping, error)

	// Put creates or refreshes an entry. Returns domain.ErrTombstoned
	// if the key already holds a propagated deletion.
	Put(m domain.Mapping) error

	// Tombstone marks the entry's deletion as propagated. Idempotent;
	// returns domain.ErrNotFound if no entry exists.
	Tombstone(ruleID, sourceEventID string) error

	// DeleteRule removes every entry for a rule, tombstones included,
	// and returns how many were removed. Used when a rule's synced
	// copies are purged wholesale.
	DeleteRule(ruleID string) (int, error)

	// SaveRun records one rule's outcome within a run
	SaveRun(record RunRecord) error

	// History returns recent run records, newest first
	History(limit int) ([]RunRecord, error)

	// RuleHistory returns recent run records for one rule, newest first
	RuleHistory(ruleID string, limit int) ([]RunRecord, error)

	// Close releases underlying resources
	Close() error
}

// RunRecord is one rule's outcome within a sync pass
type RunRecord struct {
	ID        int64
	RunID     string
	RuleID    string
	StartTime time.Time
	EndTime   time.Time
	Status    string // "success", "failed", "partial"
	Created   int
	Updated   int
	Deleted   int
	Skipped   int
	Error     string
}

// Run statuses
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusPartial = "partial"
)

// validStatus checks a run record status value
func validStatus(s string) bool {
	switch s {
	case RunStatusSuccess, RunStatusFailed, RunStatusPartial:
		return true
	}
	return false
}

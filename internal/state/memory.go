package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// MemoryStore is an in-memory Store for tests and dry runs. It honors
// the same invariants as the sqlite store but nothing survives the
// process.
type MemoryStore struct {
	mu       sync.Mutex
	mappings map[domain.MappingKey]domain.Mapping
	runs     []RunRecord
	nextID   int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[domain.MappingKey]domain.Mapping),
	}
}

// Get returns the entry for the key, or nil if none exists
func (s *MemoryStore) Get(ruleID, sourceEventID string) (*domain.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mappings[domain.MappingKey{RuleID: ruleID, SourceEventID: sourceEventID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// List returns every entry stored for a rule, tombstones included
func (s *MemoryStore) List(ruleID string) ([]domain.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Mapping
	for _, m := range s.mappings {
		if m.RuleID == ruleID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SourceEventID < out[j].SourceEventID
	})
	return out, nil
}

// Put creates or refreshes an entry
func (s *MemoryStore) Put(m domain.Mapping) error {
	if m.RuleID == "" || m.SourceEventID == "" || m.DestEventID == "" {
		return fmt.Errorf("mapping requires rule_id, source_event_id and dest_event_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mappings[m.Key()]; ok && existing.Tombstoned {
		return domain.ErrTombstoned
	}

	for _, other := range s.mappings {
		if other.RuleID == m.RuleID &&
			other.DestEventID == m.DestEventID &&
			other.SourceEventID != m.SourceEventID &&
			!other.Tombstoned {
			return fmt.Errorf("destination event %s already mapped under rule %s", m.DestEventID, m.RuleID)
		}
	}

	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	s.mappings[m.Key()] = m
	return nil
}

// Tombstone marks the entry's deletion as propagated
func (s *MemoryStore) Tombstone(ruleID, sourceEventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.MappingKey{RuleID: ruleID, SourceEventID: sourceEventID}
	m, ok := s.mappings[key]
	if !ok {
		return domain.ErrNotFound
	}

	m.Tombstoned = true
	m.UpdatedAt = time.Now()
	s.mappings[key] = m
	return nil
}

// DeleteRule removes every mapping stored for a rule
func (s *MemoryStore) DeleteRule(ruleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.mappings {
		if key.RuleID == ruleID {
			delete(s.mappings, key)
			removed++
		}
	}
	return removed, nil
}

// SaveRun records one rule's outcome within a run
func (s *MemoryStore) SaveRun(record RunRecord) error {
	if !validStatus(record.Status) {
		return fmt.Errorf("invalid status: %s (must be 'success', 'failed', or 'partial')", record.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	record.ID = s.nextID
	s.runs = append(s.runs, record)
	return nil
}

// History returns recent run records, newest first
func (s *MemoryStore) History(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recent(s.runs, limit), nil
}

// RuleHistory returns recent run records for one rule, newest first
func (s *MemoryStore) RuleHistory(ruleID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []RunRecord
	for _, r := range s.runs {
		if r.RuleID == ruleID {
			filtered = append(filtered, r)
		}
	}
	return s.recent(filtered, limit), nil
}

// recent sorts newest first and truncates; callers hold the mutex
func (s *MemoryStore) recent(records []RunRecord, limit int) []RunRecord {
	out := make([]RunRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)

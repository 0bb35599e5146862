package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// SQLiteStore is the durable Store implementation backed by sqlite
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the store under dataDir
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "calendar-sync.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mappings (
		rule_id TEXT NOT NULL,
		source_event_id TEXT NOT NULL,
		dest_event_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		source_updated TIMESTAMP,
		tombstoned INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (rule_id, source_event_id)
	);

	CREATE INDEX IF NOT EXISTS idx_mappings_dest ON mappings(rule_id, dest_event_id);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		created INTEGER DEFAULT 0,
		updated INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_rule_time ON runs(rule_id, start_time DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the entry for the key, or nil if none exists
func (s *SQLiteStore) Get(ruleID, sourceEventID string) (*domain.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT rule_id, source_event_id, dest_event_id, fingerprint, source_updated, tombstoned, updated_at
		FROM mappings
		WHERE rule_id = ? AND source_event_id = ?
	`

	var m domain.Mapping
	var tombstoned int
	var sourceUpdated sql.NullTime
	err := s.db.QueryRow(query, ruleID, sourceEventID).Scan(
		&m.RuleID,
		&m.SourceEventID,
		&m.DestEventID,
		&m.Fingerprint,
		&sourceUpdated,
		&tombstoned,
		&m.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping: %w", err)
	}

	m.Tombstoned = tombstoned != 0
	if sourceUpdated.Valid {
		m.SourceUpdated = sourceUpdated.Time
	}
	return &m, nil
}

// List returns every entry stored for a rule, tombstones included
func (s *SQLiteStore) List(ruleID string) ([]domain.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT rule_id, source_event_id, dest_event_id, fingerprint, source_updated, tombstoned, updated_at
		FROM mappings
		WHERE rule_id = ?
		ORDER BY source_event_id
	`

	rows, err := s.db.Query(query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.Mapping
	for rows.Next() {
		var m domain.Mapping
		var tombstoned int
		var sourceUpdated sql.NullTime
		err := rows.Scan(
			&m.RuleID,
			&m.SourceEventID,
			&m.DestEventID,
			&m.Fingerprint,
			&sourceUpdated,
			&tombstoned,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		m.Tombstoned = tombstoned != 0
		if sourceUpdated.Valid {
			m.SourceUpdated = sourceUpdated.Time
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mappings: %w", err)
	}

	return mappings, nil
}

// Put creates or refreshes an entry. A tombstoned key is never
// resurrected, and a destination event id may back at most one live
// entry per rule.
func (s *SQLiteStore) Put(m domain.Mapping) error {
	if m.RuleID == "" || m.SourceEventID == "" || m.DestEventID == "" {
		return fmt.Errorf("mapping requires rule_id, source_event_id and dest_event_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var tombstoned int
	err := s.db.QueryRow(
		`SELECT tombstoned FROM mappings WHERE rule_id = ? AND source_event_id = ?`,
		m.RuleID, m.SourceEventID,
	).Scan(&tombstoned)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing mapping: %w", err)
	}
	if err == nil && tombstoned != 0 {
		return domain.ErrTombstoned
	}

	// No two live entries may share a destination event under one rule
	var conflict int
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM mappings
		 WHERE rule_id = ? AND dest_event_id = ? AND source_event_id != ? AND tombstoned = 0`,
		m.RuleID, m.DestEventID, m.SourceEventID,
	).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("failed to check destination conflict: %w", err)
	}
	if conflict > 0 {
		return fmt.Errorf("destination event %s already mapped under rule %s", m.DestEventID, m.RuleID)
	}

	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}

	_, err = s.db.Exec(
		`INSERT INTO mappings (rule_id, source_event_id, dest_event_id, fingerprint, source_updated, tombstoned, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(rule_id, source_event_id) DO UPDATE SET
			dest_event_id = excluded.dest_event_id,
			fingerprint = excluded.fingerprint,
			source_updated = excluded.source_updated,
			updated_at = excluded.updated_at`,
		m.RuleID, m.SourceEventID, m.DestEventID, m.Fingerprint, m.SourceUpdated, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}

// Tombstone marks the entry's deletion as propagated
func (s *SQLiteStore) Tombstone(ruleID, sourceEventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE mappings SET tombstoned = 1, updated_at = ? WHERE rule_id = ? AND source_event_id = ?`,
		time.Now(), ruleID, sourceEventID,
	)
	if err != nil {
		return fmt.Errorf("failed to tombstone mapping: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check tombstone result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// DeleteRule removes every mapping stored for a rule
func (s *SQLiteStore) DeleteRule(ruleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM mappings WHERE rule_id = ?`, ruleID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rule mappings: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return int(affected), nil
}

// SaveRun records one rule's outcome within a run
func (s *SQLiteStore) SaveRun(record RunRecord) error {
	if !validStatus(record.Status) {
		return fmt.Errorf("invalid status: %s (must be 'success', 'failed', or 'partial')", record.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO runs (run_id, rule_id, start_time, end_time, status, created, updated, deleted, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		record.RunID,
		record.RuleID,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.Created,
		record.Updated,
		record.Deleted,
		record.Skipped,
		record.Error,
	)

	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

// History returns recent run records, newest first
func (s *SQLiteStore) History(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, run_id, rule_id, start_time, end_time, status, created, updated, deleted, skipped, error
		FROM runs
		ORDER BY start_time DESC
		LIMIT ?
	`

	return s.queryRuns(query, limit)
}

// RuleHistory returns recent run records for one rule, newest first
func (s *SQLiteStore) RuleHistory(ruleID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, run_id, rule_id, start_time, end_time, status, created, updated, deleted, skipped, error
		FROM runs
		WHERE rule_id = ?
		ORDER BY start_time DESC
		LIMIT ?
	`

	return s.queryRuns(query, ruleID, limit)
}

// queryRuns runs a run-record query; callers hold the mutex
func (s *SQLiteStore) queryRuns(query string, args ...any) ([]RunRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.RuleID,
			&record.StartTime,
			&record.EndTime,
			&record.Status,
			&record.Created,
			&record.Updated,
			&record.Deleted,
			&record.Skipped,
			&record.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run records: %w", err)
	}

	return records, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)

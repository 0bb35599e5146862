// Package testutil holds shared helpers for package tests.
package testutil

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// TempDir creates a temporary directory for testing.
// It returns the directory path and a cleanup function.
func TempDir(t *testing.T) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "calendar-sync-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

// Event builds a confirmed one-hour timed event for tests
func Event(id, summary string, start time.Time) domain.Event {
	return domain.Event{
		ID:      id,
		Summary: summary,
		Start:   start,
		End:     start.Add(time.Hour),
		Status:  domain.StatusConfirmed,
		Updated: start.Add(-24 * time.Hour),
	}
}

// AllDayEvent builds a confirmed single-day all-day event for tests
func AllDayEvent(id, summary string, day time.Time) domain.Event {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return domain.Event{
		ID:      id,
		Summary: summary,
		Start:   start,
		End:     start.AddDate(0, 0, 1),
		AllDay:  true,
		Status:  domain.StatusConfirmed,
		Updated: start.Add(-24 * time.Hour),
	}
}

// Instance builds a concrete instance of a recurring series for tests
func Instance(id, masterID, summary string, start time.Time) domain.Event {
	ev := Event(id, summary, start)
	ev.RecurringEventID = masterID
	ev.OriginalStart = start
	return ev
}

// Rule builds an enabled sync rule for tests
func Rule(name, source, destination string) domain.SyncRule {
	return domain.SyncRule{
		Name:        name,
		Source:      source,
		Destination: destination,
		Enabled:     true,
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}

		<-ticker.C
	}
}

// AssertEventually asserts that a condition becomes true within timeout
func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msgAndArgs ...interface{}) {
	t.Helper()

	if !WaitForCondition(timeout, condition) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("condition not met within %v: %v", timeout, msgAndArgs[0])
		} else {
			t.Fatalf("condition not met within %v", timeout)
		}
	}
}

// RandomString generates a random string of the given length
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

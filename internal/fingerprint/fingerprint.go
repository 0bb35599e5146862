// Package fingerprint derives content keys for duplicate and change
// detection. The same logical event carries different provider ids in
// different calendars, so keys are computed from event content only.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// Key is a deterministic content key for an event
type Key string

// New computes the fingerprint of an event from its normalized start,
// end, summary and recurrence identity. Provider event ids and calendar
// ids never contribute: two events with identical fingerprints are the
// same logical event even across accounts.
func New(ev domain.Event) Key {
	var b strings.Builder
	b.WriteString(instant(ev.Start))
	b.WriteByte('|')
	b.WriteString(instant(ev.End))
	b.WriteByte('|')
	b.WriteString(ev.Summary)
	b.WriteByte('|')
	b.WriteString(ev.RecurringEventID)
	b.WriteByte('|')
	b.WriteString(instant(ev.OriginalStart))
	if ev.AllDay {
		b.WriteString("|allday")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Key(hex.EncodeToString(sum[:]))
}

// String returns the hex form stored in mapping entries
func (k Key) String() string {
	return string(k)
}

// instant renders a timestamp in a timezone-independent canonical form
func instant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

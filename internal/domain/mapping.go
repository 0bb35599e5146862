package domain

import "time"

// Mapping is the persistent association between a (rule, source event)
// pair and the destination event it produced. It is the primary source
// of "have I already synced this" truth; destination content is only
// consulted by the duplicate guard, which repairs a lost mapping by
// adopting an existing unmapped copy.
type Mapping struct {
	// RuleID and SourceEventID form the key
	RuleID        string
	SourceEventID string

	// DestEventID is the provider id of the mirrored destination event
	DestEventID string

	// Fingerprint is the content key of the source event as last synced
	Fingerprint string

	// SourceUpdated is the source event's last-modified timestamp as
	// last synced
	SourceUpdated time.Time

	// Tombstoned marks a propagated deletion. Tombstoned entries are
	// never resurrected: if the same source event id is observed again
	// it is not re-created.
	Tombstoned bool

	// UpdatedAt is when this entry was last written
	UpdatedAt time.Time
}

// Key returns the (rule, source event) composite key
func (m Mapping) Key() MappingKey {
	return MappingKey{RuleID: m.RuleID, SourceEventID: m.SourceEventID}
}

// MappingKey identifies a mapping entry
type MappingKey struct {
	RuleID        string
	SourceEventID string
}

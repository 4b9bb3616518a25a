// Package cache provides the offline data cache: last-known-good response
// bodies keyed by endpoint path and query parameters, with Redis and BoltDB
// backends.
package cache

import (
	"encoding/json"
	"time"
)

// Entry is a cached response body for one composite key.
//
// Entries are never proactively expired unless the backend is configured
// with a TTL: staleness is tolerated, not enforced. The cache is a
// convenience layer, not a source of truth.
type Entry struct {
	// Payload is the opaque JSON response body
	Payload json.RawMessage `json:"payload"`

	// StoredAt is when this entry was written
	StoredAt time.Time `json:"stored_at"`
}

// NewEntry wraps a payload with the current timestamp.
func NewEntry(payload json.RawMessage) *Entry {
	return &Entry{
		Payload:  payload,
		StoredAt: time.Now(),
	}
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}

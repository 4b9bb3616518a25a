package loader

import (
	"encoding/json"
	"time"
)

// Phase is the position of a query in its loading sequence.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseCacheLoad
	PhaseCacheHit
	PhaseCacheMiss
	PhaseFetching
	PhaseSettled
)

// String returns a log-friendly phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseCacheLoad:
		return "cache_load"
	case PhaseCacheHit:
		return "cache_hit"
	case PhaseCacheMiss:
		return "cache_miss"
	case PhaseFetching:
		return "fetching"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal condition of a settled query.
//
// Empty is deliberately distinct from Error: "no data available" (offline
// with a cold cache) is not a failure and must not reuse the error path.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeData
	OutcomeEmpty
	OutcomeError
)

// String returns a log-friendly outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeData:
		return "data"
	case OutcomeEmpty:
		return "empty"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Slice is the externally visible state of one query. Each slice updates
// independently as cache and network completions land; there is no
// all-or-nothing barrier across queries.
type Slice struct {
	Phase   Phase
	Outcome Outcome

	// Payload is the currently rendered body, from cache or network.
	Payload json.RawMessage

	// FromCache is true while Payload is a stale cached copy.
	FromCache bool

	// StoredAt is the cache timestamp when FromCache is true.
	StoredAt time.Time

	// Err is the surfaced error, if any. Failures suppressed after a
	// stale render leave Err nil.
	Err error
}

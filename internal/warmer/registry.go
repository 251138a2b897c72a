package warmer

import (
	"sync"
	"time"

	"github.com/cagcore/engine/pkg/models"
)

// SessionRegistry is the explicit, single-writer-discipline structure
// backing the warmer's idempotency guarantee: a session warmed once
// never re-runs the warming phases.
type SessionRegistry struct {
	mu      sync.Mutex
	records map[string]models.SessionWarmingRecord
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{records: make(map[string]models.SessionWarmingRecord)}
}

// Get returns the record for sessionID, if warmed.
func (r *SessionRegistry) Get(sessionID string) (models.SessionWarmingRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sessionID]
	return rec, ok
}

// Record marks sessionID as warmed with the given stats. It does not
// check for a prior record: callers must use Get first and treat the
// check-then-record window as the single warming critical section (the
// Warmer serializes this per session via its own lock, see warmer.go).
func (r *SessionRegistry) Record(sessionID string, stats models.CacheStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[sessionID] = models.SessionWarmingRecord{WarmedAt: time.Now(), CacheStats: stats}
}

// Has reports whether sessionID has already been warmed.
func (r *SessionRegistry) Has(sessionID string) bool {
	_, ok := r.Get(sessionID)
	return ok
}

// Size returns the number of warmed sessions, mostly useful for tests.
func (r *SessionRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

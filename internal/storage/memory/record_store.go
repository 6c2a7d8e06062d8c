// Package memory holds the session-scoped record store and an in-memory
// blob store used for development and tests.
package memory

import (
	"sync"

	"github.com/JakeFAU/websight/internal/metrics"
	"github.com/JakeFAU/websight/internal/probe"
)

// RecordStore is an append-only list of probe records for one session.
// Appends are serialized; snapshots may be taken concurrently.
type RecordStore struct {
	id      string
	mu      sync.RWMutex
	records []probe.Record
}

// NewRecordStore creates an empty store identified by sessionID.
func NewRecordStore(sessionID string) *RecordStore {
	return &RecordStore{id: sessionID}
}

// ID returns the session identifier.
func (s *RecordStore) ID() string {
	return s.id
}

// Append adds a record to the end of the session.
func (s *RecordStore) Append(record probe.Record) {
	s.mu.Lock()
	s.records = append(s.records, cloneRecord(record))
	n := len(s.records)
	s.mu.Unlock()
	metrics.SetStoredRecords(n)
}

// Snapshot returns a copy of every record in insertion order.
func (s *RecordStore) Snapshot() []probe.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]probe.Record, len(s.records))
	for i, r := range s.records {
		out[i] = cloneRecord(r)
	}
	return out
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// cloneRecord detaches the optional fields so callers cannot mutate stored records.
func cloneRecord(r probe.Record) probe.Record {
	out := r
	if r.StatusCode != nil {
		v := *r.StatusCode
		out.StatusCode = &v
	}
	if r.LoadTimeSeconds != nil {
		v := *r.LoadTimeSeconds
		out.LoadTimeSeconds = &v
	}
	if r.SSLIssuerCommonName != nil {
		v := *r.SSLIssuerCommonName
		out.SSLIssuerCommonName = &v
	}
	if r.SSLExpiry != nil {
		v := *r.SSLExpiry
		out.SSLExpiry = &v
	}
	return out
}

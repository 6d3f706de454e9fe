package engine

import (
	"fmt"
	"sync"
	"time"

	"fulfil/internal/record"
)

// Snapshot is an immutable view of the last successful poll: the records in
// store order plus a reverse index from record id to position.
type Snapshot struct {
	Records             []record.Record
	Index               map[string]int
	HasData             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// Lookup returns the record with the given id, if present.
func (s Snapshot) Lookup(id string) (record.Record, bool) {
	i, ok := s.Index[id]
	if !ok {
		return record.Record{}, false
	}
	return s.Records[i], true
}

// IsOffline returns true when the store has been unreachable for multiple
// polls in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// RecordStore coordinates the poller's wholesale snapshot replacements with
// the update loop's reads. Published snapshots are never mutated; both
// Replace and Snapshot copy.
type RecordStore struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Replace installs a fresh snapshot. When err is non-nil the previous records
// are kept and only the error bookkeeping changes, so the grid keeps showing
// the last known-good data through an outage.
func (s *RecordStore) Replace(records []record.Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Records = cloneRecords(records)
	s.snapshot.Index = buildIndex(s.snapshot.Records)
	s.snapshot.HasData = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *RecordStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Records = cloneRecords(s.snapshot.Records)
	snap.Index = buildIndex(snap.Records)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneRecords(records []record.Record) []record.Record {
	if len(records) == 0 {
		return nil
	}
	dup := make([]record.Record, len(records))
	for i, r := range records {
		dup[i] = r.Clone()
	}
	return dup
}

func buildIndex(records []record.Record) map[string]int {
	if len(records) == 0 {
		return nil
	}
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	return index
}

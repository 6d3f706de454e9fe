package engine

import (
	"sync"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a pending update.
type Status int

const (
	StatusInFlight Status = iota
	StatusConfirmed
	StatusFailed
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case StatusInFlight:
		return "in-flight"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CellKey identifies one editable cell of the grid.
type CellKey struct {
	RecordID string
	Field    string
}

// PendingUpdate is one user edit whose backing-store write has not been
// folded into the view yet.
type PendingUpdate struct {
	Key      CellKey
	OldValue string // last store-confirmed value, the rollback target
	NewValue string
	Status   Status
	Handle   uuid.UUID // correlates the write outcome with the live entry
	Err      string    // failure message when Status is StatusFailed
}

// Tracker holds at most one pending update per cell. It is the only engine
// state touched from both the update loop (RegisterEdit, Snapshot, Finalize)
// and dispatcher workers (Resolve), so every operation serializes on an
// internal mutex and does no I/O.
type Tracker struct {
	mu      sync.Mutex
	pending map[CellKey]PendingUpdate
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[CellKey]PendingUpdate)}
}

// RegisterEdit records a new pending entry for the cell and returns the
// handle the eventual write completion must present. A re-edit of a cell that
// is already pending replaces the entry (last edit wins locally) but keeps
// the original OldValue: the rollback target stays the last value the store
// actually confirmed, not an earlier speculative edit.
func (t *Tracker) RegisterEdit(recordID, field, oldValue, newValue string) uuid.UUID {
	key := CellKey{RecordID: recordID, Field: field}
	handle := uuid.New()

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.pending[key]; ok {
		oldValue = prev.OldValue
	}
	t.pending[key] = PendingUpdate{
		Key:      key,
		OldValue: oldValue,
		NewValue: newValue,
		Status:   StatusInFlight,
		Handle:   handle,
	}
	return handle
}

// Resolve records a write outcome. It only applies when the handle still
// matches the live entry for the cell; a completion for a superseded edit is
// dropped so the newer edit's outcome decides the cell. Note the superseded
// write itself still ran against the store, so two same-cell writes that
// finish out of order can leave the store with the first value until the
// second completion or a later poll corrects the view.
func (t *Tracker) Resolve(key CellKey, handle uuid.UUID, writeErr error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.pending[key]
	if !ok || entry.Handle != handle {
		return false
	}
	if writeErr != nil {
		entry.Status = StatusFailed
		entry.Err = writeErr.Error()
	} else {
		entry.Status = StatusConfirmed
	}
	t.pending[key] = entry
	return true
}

// Snapshot returns an independent copy of all pending entries so the
// reconciler can walk them without holding the lock across view repaints.
func (t *Tracker) Snapshot() []PendingUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pending) == 0 {
		return nil
	}
	out := make([]PendingUpdate, 0, len(t.pending))
	for _, entry := range t.pending {
		out = append(out, entry)
	}
	return out
}

// Finalize removes the entry for a cell and returns it. The second call for
// the same cell reports ok=false, which is what makes rollback idempotent: a
// failed entry is applied to the view exactly once no matter how many
// reconcile passes observe it.
func (t *Tracker) Finalize(key CellKey) (PendingUpdate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.pending[key]
	if !ok {
		return PendingUpdate{}, false
	}
	delete(t.pending, key)
	return entry, true
}

// Len reports the number of pending entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

package engine

import "go.uber.org/zap"

// Reconciler merges the latest poll snapshot with the pending-update set and
// drives the view. It runs after every poll and after every write completion,
// always on the update loop, so two passes never interleave.
type Reconciler struct {
	tracker *Tracker
	view    View
	logger  *zap.Logger
}

// NewReconciler wires the merge pass to its collaborators. logger may be nil.
func NewReconciler(tracker *Tracker, view View, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{tracker: tracker, view: view, logger: logger}
}

// Apply is the merge pass. Cells without a pending entry show the polled
// value; pending overlays win over polled values until confirmed or failed,
// which is what keeps a poll from flickering an in-flight edit back to its
// old value.
//
// Per pending entry:
//   - record gone from the snapshot: confirmed-deleted, drop without repaint
//   - write failed: repaint with the old value, clear the marker, notify once
//   - polled value matches the edit: the store caught up, drop the entry
//   - otherwise: keep displaying the edit with the pending marker, even when
//     the write is already acknowledged but the poll has not reflected it yet
func (r *Reconciler) Apply(snap Snapshot) {
	if snap.HasData {
		r.view.RebuildFromSnapshot(snap.Records)
	}

	for _, entry := range r.tracker.Snapshot() {
		key := entry.Key

		rec, exists := snap.Lookup(key.RecordID)
		if snap.HasData && !exists {
			if _, ok := r.tracker.Finalize(key); ok {
				r.logger.Debug("pending edit dropped, record deleted remotely",
					zap.String("record", key.RecordID),
					zap.String("field", key.Field))
			}
			continue
		}

		switch {
		case entry.Status == StatusFailed:
			// Finalize gates the rollback so a second pass arriving before
			// the repaint is visible cannot roll back twice.
			if fin, ok := r.tracker.Finalize(key); ok {
				r.view.SetCellValue(key.RecordID, key.Field, fin.OldValue)
				r.view.MarkCellPending(key.RecordID, key.Field, false)
				r.view.NotifyWriteFailed(key.RecordID, key.Field, fin.Err)
			}

		case snap.HasData && rec.Value(key.Field) == entry.NewValue:
			if _, ok := r.tracker.Finalize(key); ok {
				r.view.MarkCellPending(key.RecordID, key.Field, false)
			}

		default:
			r.view.SetCellValue(key.RecordID, key.Field, entry.NewValue)
			r.view.MarkCellPending(key.RecordID, key.Field, true)
		}
	}
}

// Package engine implements the optimistic update and reconciliation core
// behind the editable ticket grid.
//
// # Overview
//
// A grid of remotely stored records is refreshed wholesale on a fixed timer,
// while individual cell edits are applied to the view instantly and written
// back asynchronously. The engine merges those two streams so that a poll
// never visibly reverts an in-flight edit, a confirmed edit settles without
// repainting, and a failed edit rolls back exactly once.
//
// # Architecture
//
//	Poller goroutine:                 Update loop:
//	┌──────────────────┐             ┌─────────────────────────┐
//	│ ReadAllRecords() │             │ OnUserEdit ─┐           │
//	│       ↓          │             │             ↓           │
//	│ store.Replace()  │────────────→│ tracker.RegisterEdit    │
//	│   (RWMutex)      │  Snapshot() │ view paint (optimistic) │
//	└──────────────────┘             │ dispatcher.Dispatch ────┼──→ worker
//	                                 │                         │    goroutine
//	     results channel ←───────────┼── HandleWriteResult ←───┼─── persist +
//	                                 │       ↓                 │    tracker.Resolve
//	                                 │ reconciler.Apply        │
//	                                 └─────────────────────────┘
//
// The update loop (the Bubble Tea program) owns the view and all reconcile
// logic. Poll snapshots and write completions both enter it as messages, so
// two merge passes never interleave. Dispatcher workers touch nothing but
// the tracker, which serializes every operation on an internal mutex.
//
// # Reconciliation rules
//
// For each pending entry against the fresh snapshot S:
//
//   - record absent from S: confirmed-deleted, entry dropped, no rollback
//   - status Failed: cell repainted with the old value, marker cleared,
//     user notified; Finalize makes this idempotent across passes
//   - S already shows the edited value: entry dropped, marker cleared, no
//     repaint (the display is already correct)
//   - otherwise: the edit overlays the polled value with the pending marker
//
// Cells with no pending entry always show the polled value.
//
// # Failure model
//
// A failed write is terminal: the cell rolls back and the user may re-edit,
// which starts a fresh dispatch. There is no cancellation; Close drains
// outstanding writes so the last edit before shutdown still lands.
package engine

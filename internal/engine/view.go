package engine

import "fulfil/internal/record"

// View is the narrow boundary to the rendering layer. The reconciler and
// tracker only ever reach the screen through these four calls, which keeps
// the merge logic testable without a terminal.
//
// Implementations are invoked solely from the update loop; they must not
// block.
type View interface {
	// SetCellValue repaints one cell with the given display value.
	SetCellValue(recordID, field, value string)
	// MarkCellPending toggles the cell's pending-edit styling.
	MarkCellPending(recordID, field string, pending bool)
	// RebuildFromSnapshot repaints the whole grid from polled records.
	// Overlay calls for pending cells follow in the same pass.
	RebuildFromSnapshot(records []record.Record)
	// NotifyWriteFailed surfaces a failed write to the user after its cell
	// has been rolled back.
	NotifyWriteFailed(recordID, field, message string)
}

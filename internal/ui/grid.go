package ui

import (
	"sort"

	"fulfil/internal/record"
)

// cellKey identifies one grid cell.
type cellKey struct {
	recordID string
	field    string
}

// Grid holds the paintable state of the record table. It implements
// engine.View: the reconciler repaints it from polled snapshots and pending
// overlays, and the model reads it back when rendering.
//
// All methods run on the update loop, so no locking is needed.
type Grid struct {
	schema  record.Schema
	rows    []record.Record
	index   map[string]int // record ID -> rows position
	pending map[cellKey]bool
	notices []string
}

// NewGrid creates an empty grid for the given schema.
func NewGrid(schema record.Schema) *Grid {
	return &Grid{
		schema:  schema,
		index:   make(map[string]int),
		pending: make(map[cellKey]bool),
	}
}

// SetCellValue repaints one cell.
func (g *Grid) SetCellValue(recordID, field, value string) {
	i, ok := g.index[recordID]
	if !ok {
		return
	}
	if g.rows[i].Values == nil {
		g.rows[i].Values = make(map[string]string)
	}
	g.rows[i].Values[field] = value
}

// MarkCellPending toggles the pending-edit styling for one cell.
func (g *Grid) MarkCellPending(recordID, field string, pending bool) {
	key := cellKey{recordID: recordID, field: field}
	if pending {
		g.pending[key] = true
		return
	}
	delete(g.pending, key)
}

// RebuildFromSnapshot replaces all rows with the polled records. Pending marks
// for records that no longer exist are dropped; marks for surviving rows are
// kept because the reconciler's overlay pass follows immediately.
func (g *Grid) RebuildFromSnapshot(records []record.Record) {
	rows := make([]record.Record, len(records))
	index := make(map[string]int, len(records))
	for i, rec := range records {
		rows[i] = rec.Clone()
		index[rec.ID] = i
	}
	g.rows = rows
	g.index = index

	for key := range g.pending {
		if _, ok := index[key.recordID]; !ok {
			delete(g.pending, key)
		}
	}
}

// NotifyWriteFailed queues a user-facing notice for a rolled-back write.
func (g *Grid) NotifyWriteFailed(recordID, field, message string) {
	g.notices = append(g.notices, recordID+" "+field+": "+message)
}

// CellValue returns the displayed value of one cell.
func (g *Grid) CellValue(recordID, field string) string {
	i, ok := g.index[recordID]
	if !ok {
		return ""
	}
	return g.rows[i].Value(field)
}

// IsPending reports whether the cell shows an unconfirmed edit.
func (g *Grid) IsPending(recordID, field string) bool {
	return g.pending[cellKey{recordID: recordID, field: field}]
}

// PendingCells returns the pending cell keys in a stable order. Used by tests
// and the status bar.
func (g *Grid) PendingCells() []string {
	keys := make([]string, 0, len(g.pending))
	for key := range g.pending {
		keys = append(keys, key.recordID+"/"+key.field)
	}
	sort.Strings(keys)
	return keys
}

// Rows returns the current rows in display order.
func (g *Grid) Rows() []record.Record {
	return g.rows
}

// Row returns the row at position i.
func (g *Grid) Row(i int) (record.Record, bool) {
	if i < 0 || i >= len(g.rows) {
		return record.Record{}, false
	}
	return g.rows[i], true
}

// RowIndex returns the display position of a record, or -1.
func (g *Grid) RowIndex(recordID string) int {
	if i, ok := g.index[recordID]; ok {
		return i
	}
	return -1
}

// Len returns the number of rows.
func (g *Grid) Len() int {
	return len(g.rows)
}

// TakeNotices returns queued failure notices and clears the queue.
func (g *Grid) TakeNotices() []string {
	notices := g.notices
	g.notices = nil
	return notices
}

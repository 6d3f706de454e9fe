package ui

import (
	"testing"

	"fulfil/internal/record"
)

func testSchema() record.Schema {
	return record.NewSchema(
		record.FieldSpec{Name: "Ticket", Type: record.FieldText},
		record.FieldSpec{Name: "Status", Type: record.FieldEnum, Editable: true, Options: []string{"Open", "Completed"}},
	)
}

func testRecords() []record.Record {
	return []record.Record{
		{ID: "T-1", Values: map[string]string{"Ticket": "T-1", "Status": "Open"}},
		{ID: "T-2", Values: map[string]string{"Ticket": "T-2", "Status": "Open"}},
	}
}

func TestGrid_RebuildReplacesRows(t *testing.T) {
	g := NewGrid(testSchema())
	g.RebuildFromSnapshot(testRecords())

	if g.Len() != 2 {
		t.Fatalf("Len = %d, want 2", g.Len())
	}
	if got := g.CellValue("T-2", "Status"); got != "Open" {
		t.Fatalf("CellValue(T-2, Status) = %q, want %q", got, "Open")
	}
	if g.RowIndex("T-1") != 0 || g.RowIndex("T-2") != 1 {
		t.Fatalf("row order = %d,%d, want 0,1", g.RowIndex("T-1"), g.RowIndex("T-2"))
	}
}

func TestGrid_OverlayPaintSurvivesUntilRebuild(t *testing.T) {
	g := NewGrid(testSchema())
	g.RebuildFromSnapshot(testRecords())

	g.SetCellValue("T-1", "Status", "Completed")
	g.MarkCellPending("T-1", "Status", true)

	if got := g.CellValue("T-1", "Status"); got != "Completed" {
		t.Fatalf("CellValue = %q, want %q", got, "Completed")
	}
	if !g.IsPending("T-1", "Status") {
		t.Fatalf("IsPending = false, want true")
	}

	// A rebuild repaints the polled value; the reconciler's overlay pass
	// follows in the same reconcile call, so the pending mark survives.
	g.RebuildFromSnapshot(testRecords())
	if got := g.CellValue("T-1", "Status"); got != "Open" {
		t.Fatalf("CellValue after rebuild = %q, want %q", got, "Open")
	}
	if !g.IsPending("T-1", "Status") {
		t.Fatalf("pending mark dropped by rebuild, want it kept")
	}
}

func TestGrid_RebuildPrunesPendingOfMissingRecords(t *testing.T) {
	g := NewGrid(testSchema())
	g.RebuildFromSnapshot(testRecords())
	g.MarkCellPending("T-2", "Status", true)

	g.RebuildFromSnapshot(testRecords()[:1])

	if g.Len() != 1 {
		t.Fatalf("Len = %d, want 1", g.Len())
	}
	if g.IsPending("T-2", "Status") {
		t.Fatalf("pending mark for vanished record kept, want it pruned")
	}
	if got := len(g.PendingCells()); got != 0 {
		t.Fatalf("PendingCells = %d entries, want 0", got)
	}
}

func TestGrid_SetCellValueIgnoresUnknownRecord(t *testing.T) {
	g := NewGrid(testSchema())
	g.RebuildFromSnapshot(testRecords())

	g.SetCellValue("T-404", "Status", "Completed")
	if got := g.CellValue("T-404", "Status"); got != "" {
		t.Fatalf("CellValue for unknown record = %q, want empty", got)
	}
}

func TestGrid_RowsAreIndependentOfSource(t *testing.T) {
	recs := testRecords()
	g := NewGrid(testSchema())
	g.RebuildFromSnapshot(recs)

	recs[0].Values["Status"] = "Completed"
	if got := g.CellValue("T-1", "Status"); got != "Open" {
		t.Fatalf("CellValue = %q after mutating source, want %q", got, "Open")
	}
}

func TestGrid_NoticesDrainOnce(t *testing.T) {
	g := NewGrid(testSchema())
	g.RebuildFromSnapshot(testRecords())

	g.NotifyWriteFailed("T-1", "Status", "db down")
	g.NotifyWriteFailed("T-2", "Status", "db down")

	notices := g.TakeNotices()
	if len(notices) != 2 {
		t.Fatalf("TakeNotices = %d entries, want 2", len(notices))
	}
	if got := g.TakeNotices(); len(got) != 0 {
		t.Fatalf("second TakeNotices = %d entries, want 0", len(got))
	}
}

package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fulfil/internal/record"
)

// Persistence is the narrow interface to the backing store. The real store
// groups related table writes into one transaction per WriteField call and
// rolls the whole group back on failure; the engine treats each write as an
// opaque all-or-nothing operation.
type Persistence interface {
	ReadAllRecords(ctx context.Context) ([]record.Record, error)
	WriteField(ctx context.Context, recordID, field, value string) error
}

// Options configure an Engine.
type Options struct {
	Schema  record.Schema
	Persist Persistence
	View    View
	Logger  *zap.Logger
}

// Engine ties the record store, pending-update tracker, write dispatcher and
// reconciler together behind the handful of entry points the application
// calls: Poll from the poller goroutine, everything else from the update
// loop.
type Engine struct {
	schema     record.Schema
	store      *RecordStore
	tracker    *Tracker
	dispatcher *Dispatcher
	reconciler *Reconciler
	persist    Persistence
	view       View
	logger     *zap.Logger
}

// New assembles an engine. Logger may be nil.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker := NewTracker()
	e := &Engine{
		schema:  opts.Schema,
		store:   &RecordStore{},
		tracker: tracker,
		persist: opts.Persist,
		view:    opts.View,
		logger:  logger,
	}
	// The worker records the outcome against the tracker the moment the
	// write returns; the reconcile pass itself waits for the result to
	// reach the update loop.
	e.dispatcher = NewDispatcher(func(res WriteResult) {
		tracker.Resolve(res.Key, res.Handle, res.Err)
	}, logger)
	e.reconciler = NewReconciler(tracker, opts.View, logger)
	return e
}

// Store exposes the record store for the poller.
func (e *Engine) Store() *RecordStore {
	return e.store
}

// Results exposes the dispatcher's completion channel for the update loop.
func (e *Engine) Results() <-chan WriteResult {
	return e.dispatcher.Results()
}

// PendingCount reports how many edits are awaiting confirmation.
func (e *Engine) PendingCount() int {
	return e.tracker.Len()
}

// Poll refreshes the record store from the backing store. On error the
// previous snapshot is kept; pending overlays are unaffected either way.
func (e *Engine) Poll(ctx context.Context) error {
	records, err := e.persist.ReadAllRecords(ctx)
	if err != nil {
		e.store.Replace(nil, err)
		return fmt.Errorf("read records: %w", err)
	}
	e.store.Replace(records, nil)
	return nil
}

// Reconcile runs one merge pass against the latest snapshot and returns that
// snapshot for the caller's own bookkeeping. Update loop only.
func (e *Engine) Reconcile() Snapshot {
	snap := e.store.Snapshot()
	e.reconciler.Apply(snap)
	return snap
}

// HandleWriteResult folds a completed write into the view. The outcome is
// already recorded on the tracker by the worker; this runs the merge pass
// that applies it. Update loop only.
func (e *Engine) HandleWriteResult(res WriteResult) Snapshot {
	if res.Err != nil {
		e.logger.Info("reconciling failed write",
			zap.String("record", res.Key.RecordID),
			zap.String("field", res.Key.Field))
	}
	return e.Reconcile()
}

// OnUserEdit validates the edit, applies it to the view optimistically,
// registers it as pending, and dispatches the asynchronous write. Update
// loop only.
func (e *Engine) OnUserEdit(ctx context.Context, recordID, field, newValue string) error {
	// Validation works on the trimmed value, so trim first: the value painted,
	// tracked and persisted must be the same string the poll will echo back.
	newValue = strings.TrimSpace(newValue)
	if err := e.schema.Validate(field, newValue); err != nil {
		return err
	}

	snap := e.store.Snapshot()
	rec, ok := snap.Lookup(recordID)
	if !ok {
		return fmt.Errorf("unknown record %q", recordID)
	}
	oldValue := rec.Value(field)

	key := CellKey{RecordID: recordID, Field: field}
	handle := e.tracker.RegisterEdit(recordID, field, oldValue, newValue)
	e.view.SetCellValue(recordID, field, newValue)
	e.view.MarkCellPending(recordID, field, true)

	err := e.dispatcher.Dispatch(ctx, key, handle, func(ctx context.Context) error {
		return e.persist.WriteField(ctx, recordID, field, newValue)
	})
	if err != nil {
		// Shutdown race: the edit never left, undo the optimistic paint.
		if fin, finOK := e.tracker.Finalize(key); finOK {
			e.view.SetCellValue(recordID, field, fin.OldValue)
			e.view.MarkCellPending(recordID, field, false)
		}
		return err
	}

	e.logger.Debug("edit dispatched",
		zap.String("record", recordID),
		zap.String("field", field))
	return nil
}

// Close stops accepting edits and waits for outstanding writes so a user's
// last action is never silently lost.
func (e *Engine) Close() {
	e.dispatcher.Close()
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is returned by Dispatch after Close has been called.
var ErrClosed = errors.New("dispatcher closed")

// WriteResult reports the terminal outcome of one dispatched write.
type WriteResult struct {
	Key    CellKey
	Handle uuid.UUID
	Err    error
}

// PersistFunc performs the actual backing-store write for one cell.
type PersistFunc func(ctx context.Context) error

// Dispatcher runs each write on its own goroutine and delivers outcomes on a
// channel that only the update loop drains. Workers never call into view
// code; the resolve hook they invoke touches nothing but the tracker.
//
// There is no cancellation and no automatic retry: a dispatched write always
// runs to completion, and a failure is terminal (the store wraps the write in
// its own transaction, so retrying blindly risks duplicate side effects).
type Dispatcher struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	results chan WriteResult
	closed  bool

	// resolve is called on the worker goroutine as soon as the write
	// returns, before the result is queued for the update loop.
	resolve func(WriteResult)
	logger  *zap.Logger
}

// NewDispatcher builds a dispatcher. resolve may be nil; logger may be nil.
func NewDispatcher(resolve func(WriteResult), logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		results: make(chan WriteResult, 64),
		resolve: resolve,
		logger:  logger,
	}
}

// Dispatch starts the write for one cell. It never blocks on the write
// itself and returns ErrClosed once the dispatcher is shutting down.
func (d *Dispatcher) Dispatch(ctx context.Context, key CellKey, handle uuid.UUID, persist PersistFunc) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		res := WriteResult{Key: key, Handle: handle, Err: d.runPersist(ctx, persist)}
		if res.Err != nil {
			d.logger.Warn("write failed",
				zap.String("record", key.RecordID),
				zap.String("field", key.Field),
				zap.Error(res.Err))
		}
		if d.resolve != nil {
			d.resolve(res)
		}
		d.results <- res
	}()
	return nil
}

// runPersist converts anything the persistence collaborator does, including a
// panic, into an explicit error. No failure may escape the dispatch boundary.
func (d *Dispatcher) runPersist(ctx context.Context, persist PersistFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("persist panicked: %v", r)
		}
	}()
	return persist(ctx)
}

// Results exposes the completion channel for the update loop.
func (d *Dispatcher) Results() <-chan WriteResult {
	return d.results
}

// Close stops accepting new writes, lets outstanding ones finish, and closes
// the results channel. Results still in flight at shutdown are drained here
// so no worker blocks; their writes already reached the store.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	go func() {
		d.wg.Wait()
		close(d.results)
	}()
	for range d.results {
	}
}

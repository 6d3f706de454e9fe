package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func awaitResult(t *testing.T, ch <-chan WriteResult) WriteResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for write result")
		return WriteResult{}
	}
}

func TestDispatcher_DeliversSuccessAndFailure(t *testing.T) {
	d := NewDispatcher(nil, nil)
	defer d.Close()

	key := CellKey{RecordID: "T-1001", Field: "Status"}
	h := uuid.New()
	require.NoError(t, d.Dispatch(context.Background(), key, h, func(context.Context) error {
		return nil
	}))

	res := awaitResult(t, d.Results())
	assert.Equal(t, key, res.Key)
	assert.Equal(t, h, res.Handle)
	assert.NoError(t, res.Err)

	wantErr := errors.New("constraint violation")
	require.NoError(t, d.Dispatch(context.Background(), key, uuid.New(), func(context.Context) error {
		return wantErr
	}))
	res = awaitResult(t, d.Results())
	assert.ErrorIs(t, res.Err, wantErr)
}

func TestDispatcher_ResolveHookRunsBeforeResultIsQueued(t *testing.T) {
	var mu sync.Mutex
	var order []string

	d := NewDispatcher(func(WriteResult) {
		mu.Lock()
		order = append(order, "resolve")
		mu.Unlock()
	}, nil)
	defer d.Close()

	require.NoError(t, d.Dispatch(context.Background(), CellKey{RecordID: "T-1", Field: "Status"}, uuid.New(),
		func(context.Context) error { return nil }))

	awaitResult(t, d.Results())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"resolve"}, order)
}

func TestDispatcher_ConcurrentWritesForDifferentCells(t *testing.T) {
	d := NewDispatcher(nil, nil)
	defer d.Close()

	// Both writes block until released; if the dispatcher serialized them
	// this would deadlock.
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	for _, id := range []string{"T-1001", "T-2002"} {
		require.NoError(t, d.Dispatch(context.Background(), CellKey{RecordID: id, Field: "Status"}, uuid.New(),
			func(context.Context) error {
				started.Done()
				<-release
				return nil
			}))
	}
	started.Wait()
	close(release)

	awaitResult(t, d.Results())
	awaitResult(t, d.Results())
}

func TestDispatcher_PanicBecomesError(t *testing.T) {
	d := NewDispatcher(nil, nil)
	defer d.Close()

	require.NoError(t, d.Dispatch(context.Background(), CellKey{RecordID: "T-1", Field: "Status"}, uuid.New(),
		func(context.Context) error { panic("store exploded") }))

	res := awaitResult(t, d.Results())
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "store exploded")
}

func TestDispatcher_CloseWaitsForOutstandingWrites(t *testing.T) {
	var finished bool
	var mu sync.Mutex

	d := NewDispatcher(nil, nil)
	release := make(chan struct{})
	require.NoError(t, d.Dispatch(context.Background(), CellKey{RecordID: "T-1", Field: "Status"}, uuid.New(),
		func(context.Context) error {
			<-release
			mu.Lock()
			finished = true
			mu.Unlock()
			return nil
		}))

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, finished, "Close returned before the outstanding write completed")
}

func TestDispatcher_DispatchAfterCloseFails(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Close()

	err := d.Dispatch(context.Background(), CellKey{RecordID: "T-1", Field: "Status"}, uuid.New(),
		func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)

	// Close is idempotent.
	d.Close()
}

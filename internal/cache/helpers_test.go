package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cueline/internal/rundown"
)

// fakeStore is an in-memory RundownStore that counts writes.
type fakeStore struct {
	mu          sync.Mutex
	rundowns    map[string]rundown.Rundown
	defs        rundown.CustomFields
	writes      int
	fieldWrites int
	failWrites  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rundowns: map[string]rundown.Rundown{}, defs: rundown.CustomFields{}}
}

var errWriteFailed = errors.New("disk full")

func (f *fakeStore) GetRundown(_ context.Context, id string) (rundown.Rundown, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rundowns[id]
	if !ok {
		return rundown.Rundown{}, errors.New("not found")
	}
	return r.Clone(), nil
}

func (f *fakeStore) SetRundown(_ context.Context, id string, r rundown.Rundown) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errWriteFailed
	}
	f.writes++
	f.rundowns[id] = r.Clone()
	return nil
}

func (f *fakeStore) GetCustomFields(context.Context) (rundown.CustomFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defs.Clone(), nil
}

func (f *fakeStore) SetCustomFields(_ context.Context, defs rundown.CustomFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errWriteFailed
	}
	f.fieldWrites++
	f.defs = defs.Clone()
	return nil
}

func (f *fakeStore) stored(id string) (rundown.Rundown, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rundowns[id], f.writes
}

// event builds a scheduled event; times are minutes past midnight.
func event(id string, startMin, durMin int64) *rundown.Event {
	start := startMin * 60_000
	dur := durMin * 60_000
	return &rundown.Event{
		ID:           id,
		Title:        id,
		TimeStart:    start,
		TimeEnd:      start + dur,
		Duration:     dur,
		TimeStrategy: rundown.LockDuration,
		TimerType:    rundown.TimerCountDown,
		EndAction:    rundown.EndNone,
		TimeWarning:  rundown.DefaultTimeWarning,
		TimeDanger:   rundown.DefaultTimeDanger,
		IsPublic:     true,
	}
}

// testRundown returns a rundown of three back-to-back events.
func testRundown(t *testing.T) rundown.Rundown {
	t.Helper()
	r := rundown.New("show", "Show")
	after := ""
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, rundown.InsertEntry(&r, event(id, 600+int64(i)*10, 10), after, ""))
		after = id
	}
	return r
}

// startPersister runs the persister until the test ends.
func startPersister(t *testing.T, c *Cache) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.RunPersister(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func flush(t *testing.T, c *Cache) {
	t.Helper()
	require.NoError(t, c.Flush(context.Background()))
}

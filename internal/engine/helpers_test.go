package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cueline/internal/cache"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/store"
	"github.com/roach88/cueline/internal/testutil"
)

const minute = int64(60_000)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// showEvent builds a public count-down event; times are minutes past
// midnight.
func showEvent(id, cue string, startMin, durMin int64, end rundown.EndAction) *rundown.Event {
	return &rundown.Event{
		ID:           id,
		Cue:          cue,
		Title:        id,
		TimeStart:    startMin * minute,
		TimeEnd:      (startMin + durMin) * minute,
		Duration:     durMin * minute,
		TimeStrategy: rundown.LockDuration,
		TimerType:    rundown.TimerCountDown,
		EndAction:    end,
		TimeWarning:  rundown.DefaultTimeWarning,
		TimeDanger:   rundown.DefaultTimeDanger,
		IsPublic:     true,
	}
}

// showRundown is three ten-minute events from 10:00.
func showRundown(t *testing.T) rundown.Rundown {
	t.Helper()
	r := rundown.New("show", "Show")
	events := []*rundown.Event{
		showEvent("a", "1", 600, 10, rundown.EndPlayNext),
		showEvent("b", "2", 610, 10, rundown.EndStop),
		showEvent("c", "3", 620, 10, rundown.EndNone),
	}
	after := ""
	for _, ev := range events {
		require.NoError(t, rundown.InsertEntry(&r, ev, after, ""))
		after = ev.ID
	}
	return r
}

// newTestCore returns a core over showRundown with the clock at msOfDay.
func newTestCore(t *testing.T, msOfDay int64) (*Core, *cache.Cache, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClockAt(msOfDay)
	c := cache.New(setupTestStore(t), cache.WithStrict(true))
	c.Init(showRundown(t), nil)
	core := NewCore(c, clock, WithIDGenerator(rundown.NewSequenceGenerator("new")))
	return core, c, clock
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsCommandError(err), "not a command error: %v", err)
	require.Equal(t, code, CodeOf(err))
}

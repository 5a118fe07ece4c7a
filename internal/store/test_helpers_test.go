package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/cueline/internal/rundown"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRundown builds a small processed-looking rundown: a group with
// one event and a top-level milestone.
func createTestRundown(t *testing.T, id string) rundown.Rundown {
	t.Helper()
	r := rundown.New(id, "Test show")
	r.Revision = 3
	start := int64(36_000_000)
	end := int64(37_800_000)
	entries := []struct {
		e      rundown.Entry
		after  string
		parent string
	}{
		{&rundown.Group{ID: "g1", Title: "Block", TimeStart: &start, TimeEnd: &end, Duration: 1_800_000}, "", ""},
		{&rundown.Event{
			ID: "e1", Cue: "1", Title: "Opening",
			TimeStart: start, TimeEnd: end, Duration: 1_800_000,
			TimeStrategy: rundown.LockDuration, TimerType: rundown.TimerCountDown, EndAction: rundown.EndNone,
			IsPublic: true, Custom: map[string]string{"camera": "wide"},
		}, "", "g1"},
		{&rundown.Milestone{ID: "m1", Title: "Doors"}, "g1", ""},
	}
	for _, x := range entries {
		if err := rundown.InsertEntry(&r, x.e, x.after, x.parent); err != nil {
			t.Fatalf("InsertEntry(%s) failed: %v", x.e.EntryID(), err)
		}
	}
	return r
}

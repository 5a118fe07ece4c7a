package rundown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    Entry
		after    string
		parent   string
		wantFlat []string
		parentID string
	}{
		{"head", &Event{ID: "n"}, "", "", []string{"n", "e1", "g1", "e2", "d1", "m1"}, ""},
		{"after top level", &Milestone{ID: "n"}, "g1", "", []string{"e1", "g1", "e2", "d1", "n", "m1"}, ""},
		{"group head", &Event{ID: "n"}, "", "g1", []string{"e1", "g1", "n", "e2", "d1", "m1"}, "g1"},
		{"inside group", &Delay{ID: "n"}, "e2", "g1", []string{"e1", "g1", "e2", "n", "d1", "m1"}, "g1"},
		{"stale parent cleared", &Event{ID: "n", ParentID: "g1"}, "m1", "", []string{"e1", "g1", "e2", "d1", "m1", "n"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sample()
			require.NoError(t, InsertEntry(&r, tt.entry, tt.after, tt.parent))
			assert.Equal(t, tt.wantFlat, r.FlatOrder)
			assert.Equal(t, tt.parentID, ParentOf(r.Entries["n"]))
			require.NoError(t, r.Verify())
		})
	}
}

func TestInsertEntryErrors(t *testing.T) {
	tests := []struct {
		name   string
		entry  Entry
		after  string
		parent string
		want   string
	}{
		{"no id", &Event{}, "", "", "has no id"},
		{"duplicate", &Event{ID: "e1"}, "", "", "already exists"},
		{"missing anchor", &Event{ID: "n"}, "ghost", "", `anchor "ghost" not found`},
		{"missing group", &Event{ID: "n"}, "", "g9", `group "g9" not found`},
		{"nested group", &Group{ID: "n"}, "", "g1", "cannot be nested"},
		{"anchor outside group", &Event{ID: "n"}, "e1", "g1", `anchor "e1" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sample()
			before := r.Clone()
			err := InsertEntry(&r, tt.entry, tt.after, tt.parent)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, before.FlatOrder, r.FlatOrder)
			assert.Len(t, r.Entries, len(before.Entries))
		})
	}
}

func TestRemoveEntries(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		r := sample()
		assert.Equal(t, 1, RemoveEntries(&r, "e2"))
		assert.Equal(t, []string{"e1", "g1", "d1", "m1"}, r.FlatOrder)
		assert.Equal(t, []string{"d1"}, r.Group("g1").Entries)
		require.NoError(t, r.Verify())
	})

	t.Run("group takes members", func(t *testing.T) {
		r := sample()
		assert.Equal(t, 3, RemoveEntries(&r, "g1"))
		assert.Equal(t, []string{"e1", "m1"}, r.FlatOrder)
		assert.NotContains(t, r.Entries, "e2")
		assert.NotContains(t, r.Entries, "d1")
		require.NoError(t, r.Verify())
	})

	t.Run("unknown ignored", func(t *testing.T) {
		r := sample()
		assert.Equal(t, 0, RemoveEntries(&r, "ghost"))
		assert.Equal(t, 1, RemoveEntries(&r, "ghost", "m1"))
		assert.Equal(t, []string{"e1", "g1", "e2", "d1"}, r.FlatOrder)
	})
}

func TestMoveEntry(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		after string
		want  []string
	}{
		{"to head", "m1", "", []string{"m1", "e1", "g1", "e2", "d1"}},
		{"after group", "e1", "g1", []string{"g1", "e2", "d1", "e1", "m1"}},
		{"within group", "e2", "d1", []string{"e1", "g1", "d1", "e2", "m1"}},
		{"onto itself", "e1", "e1", []string{"e1", "g1", "e2", "d1", "m1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sample()
			require.NoError(t, MoveEntry(&r, tt.id, tt.after))
			assert.Equal(t, tt.want, r.FlatOrder)
			require.NoError(t, r.Verify())
		})
	}

	t.Run("unknown entry", func(t *testing.T) {
		r := sample()
		assert.Error(t, MoveEntry(&r, "ghost", ""))
	})
	t.Run("anchor in other list", func(t *testing.T) {
		r := sample()
		err := MoveEntry(&r, "e2", "e1")
		require.Error(t, err)
		assert.Equal(t, []string{"e2", "d1"}, r.Group("g1").Entries, "failed move leaves the list alone")
	})
}

func ptr[T any](v T) *T { return &v }

func TestPatchEvent(t *testing.T) {
	const minute = int64(60_000)
	base := func(strategy TimeStrategy) Rundown {
		r := New("r", "")
		r.Entries["e"] = &Event{
			ID: "e", TimeStart: 10 * minute, TimeEnd: 20 * minute, Duration: 10 * minute,
			TimeStrategy: strategy, Custom: map[string]string{"camera": "wide", "notes": "n"},
		}
		r.Order = []string{"e"}
		r.FlatOrder = r.BuildFlatOrder()
		return r
	}

	tests := []struct {
		name     string
		strategy TimeStrategy
		patch    EventPatch
		start    int64
		end      int64
		duration int64
	}{
		{"start with lock-duration", LockDuration, EventPatch{TimeStart: ptr(15 * minute)}, 15 * minute, 25 * minute, 10 * minute},
		{"start with lock-end", LockEnd, EventPatch{TimeStart: ptr(15 * minute)}, 15 * minute, 20 * minute, 5 * minute},
		{"start and end", LockDuration, EventPatch{TimeStart: ptr(5 * minute), TimeEnd: ptr(30 * minute)}, 5 * minute, 30 * minute, 25 * minute},
		{"start and duration", LockEnd, EventPatch{TimeStart: ptr(5 * minute), Duration: ptr(minute)}, 5 * minute, 6 * minute, minute},
		{"end only", LockDuration, EventPatch{TimeEnd: ptr(40 * minute)}, 10 * minute, 40 * minute, 30 * minute},
		{"duration only", LockEnd, EventPatch{Duration: ptr(2 * minute)}, 10 * minute, 12 * minute, 2 * minute},
		{"end before start wraps", LockDuration, EventPatch{TimeEnd: ptr(5 * minute)}, 10 * minute, 5 * minute, DayMs - 5*minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base(tt.strategy)
			require.NoError(t, PatchEvent(&r, "e", tt.patch))
			ev := r.Event("e")
			assert.Equal(t, tt.start, ev.TimeStart, "start")
			assert.Equal(t, tt.end, ev.TimeEnd, "end")
			assert.Equal(t, tt.duration, ev.Duration, "duration")
			assert.Equal(t, int64(1), ev.Revision)
		})
	}

	t.Run("fields and custom merge", func(t *testing.T) {
		r := base(LockDuration)
		require.NoError(t, PatchEvent(&r, "e", EventPatch{
			Title:     ptr("Keynote"),
			Cue:       ptr("7"),
			Skip:      ptr(true),
			EndAction: ptr(EndLoadNext),
			Custom:    map[string]string{"camera": "close", "notes": "", "mic": "2"},
		}))
		ev := r.Event("e")
		assert.Equal(t, "Keynote", ev.Title)
		assert.Equal(t, "7", ev.Cue)
		assert.True(t, ev.Skip)
		assert.Equal(t, EndLoadNext, ev.EndAction)
		assert.Equal(t, map[string]string{"camera": "close", "mic": "2"}, ev.Custom)
	})

	t.Run("out of range", func(t *testing.T) {
		r := base(LockDuration)
		err := PatchEvent(&r, "e", EventPatch{Duration: ptr(DayMs + 1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
		assert.Equal(t, 10*minute, r.Event("e").Duration)
	})

	t.Run("not an event", func(t *testing.T) {
		r := sample()
		assert.Error(t, PatchEvent(&r, "g1", EventPatch{Title: ptr("x")}))
		assert.Error(t, PatchEvent(&r, "ghost", EventPatch{}))
	})
}

func TestEventPatchAffectsSchedule(t *testing.T) {
	assert.False(t, EventPatch{}.AffectsSchedule())
	assert.False(t, EventPatch{Title: ptr("t"), Note: ptr("n"), Cue: ptr("c")}.AffectsSchedule())
	assert.True(t, EventPatch{Duration: ptr(int64(1))}.AffectsSchedule())
	assert.True(t, EventPatch{Skip: ptr(true)}.AffectsSchedule())
	assert.True(t, EventPatch{Custom: map[string]string{}}.AffectsSchedule())
}

func TestResolveTimes(t *testing.T) {
	ev := &Event{TimeStart: DayMs - 60_000, TimeEnd: 0, Duration: 120_000, TimeStrategy: LockDuration}
	ResolveTimes(ev)
	assert.Equal(t, int64(60_000), ev.TimeEnd)

	ev = &Event{TimeStart: DayMs - 60_000, TimeEnd: 60_000, Duration: 1, TimeStrategy: LockEnd}
	ResolveTimes(ev)
	assert.Equal(t, int64(120_000), ev.Duration)
}

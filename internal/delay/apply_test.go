package delay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cueline/internal/rundown"
)

func event(id string, start, end int64) *rundown.Event {
	return &rundown.Event{
		ID:           id,
		TimeStart:    start,
		TimeEnd:      end,
		Duration:     rundown.SpanBetween(start, end),
		TimeStrategy: rundown.LockDuration,
	}
}

func linked(ev *rundown.Event) *rundown.Event {
	ev.LinkStart = true
	return ev
}

// build assembles a rundown from top-level entries; groups must list their
// members, which are added after the group.
func build(t *testing.T, top []rundown.Entry, members ...rundown.Entry) rundown.Rundown {
	t.Helper()
	r := rundown.New("rd", "Test")
	for _, e := range top {
		require.NoError(t, rundown.InsertEntry(&r, e, last(r.Order), ""))
	}
	for _, m := range members {
		parent := rundown.ParentOf(m)
		require.NoError(t, rundown.InsertEntry(&r, m, last(r.Group(parent).Entries), parent))
	}
	require.NoError(t, r.Verify())
	return r
}

func last(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[len(list)-1]
}

func TestApply_PositiveDelayStopsAtGroup(t *testing.T) {
	r := build(t, []rundown.Entry{
		&rundown.Delay{ID: "delay", Duration: 10},
		event("A", 0, 10),
		linked(event("B", 10, 20)),
		&rundown.Group{ID: "G"},
		event("C", 20, 30),
		linked(event("D", 30, 40)),
	})
	rev := r.Revision

	Apply("delay", &r)

	assert.Equal(t, []string{"A", "B", "G", "C", "D"}, r.Order)
	assert.Equal(t, r.BuildFlatOrder(), r.FlatOrder)
	assert.NotContains(t, r.Entries, "delay")
	assert.Equal(t, rev+1, r.Revision)

	a, b, c, d := r.Event("A"), r.Event("B"), r.Event("C"), r.Event("D")
	assert.Equal(t, int64(10), a.TimeStart)
	assert.Equal(t, int64(20), a.TimeEnd)
	assert.Equal(t, int64(20), b.TimeStart)
	assert.Equal(t, int64(30), b.TimeEnd)
	assert.True(t, b.LinkStart, "B keeps its link: its gap stays zero")
	assert.Equal(t, int64(1), a.Revision)
	assert.Equal(t, int64(1), b.Revision)

	assert.Equal(t, int64(20), c.TimeStart)
	assert.Equal(t, int64(30), c.TimeEnd)
	assert.Equal(t, int64(30), d.TimeStart)
	assert.True(t, d.LinkStart)
	assert.Zero(t, c.Revision)
	assert.Zero(t, d.Revision)
}

func TestApply_ZeroDurationIsCleanup(t *testing.T) {
	r := build(t, []rundown.Entry{
		event("A", 0, 10),
		&rundown.Delay{ID: "delay"},
		event("B", 10, 20),
	})
	before := r.Clone()

	Apply("delay", &r)

	assert.Equal(t, []string{"A", "B"}, r.Order)
	assert.Equal(t, []string{"A", "B"}, r.FlatOrder)
	assert.Equal(t, before.Entries["A"], r.Entries["A"])
	assert.Equal(t, before.Entries["B"], r.Entries["B"])
}

func TestApply_LastPositionIsCleanup(t *testing.T) {
	r := build(t, []rundown.Entry{
		event("A", 0, 10),
		event("B", 10, 20),
		&rundown.Delay{ID: "delay", Duration: 60_000},
	})
	before := r.Clone()

	Apply("delay", &r)

	assert.Equal(t, []string{"A", "B"}, r.Order)
	assert.Equal(t, before.Entries["A"], r.Entries["A"])
	assert.Equal(t, before.Entries["B"], r.Entries["B"])
}

func TestApply_MissingIDIsNoop(t *testing.T) {
	r := build(t, []rundown.Entry{event("A", 0, 10)})
	rev := r.Revision

	Apply("nope", &r)

	assert.Equal(t, []string{"A"}, r.Order)
	assert.Equal(t, rev, r.Revision)
}

func TestApply_GapAbsorbsDelay(t *testing.T) {
	t.Run("gap larger than delay absorbs it fully", func(t *testing.T) {
		b := event("B", 30, 40)
		b.Gap = 20
		r := build(t, []rundown.Entry{
			event("A", 0, 10),
			&rundown.Delay{ID: "delay", Duration: 10},
			b,
			linked(event("C", 40, 50)),
		})

		Apply("delay", &r)

		assert.Equal(t, int64(30), r.Event("B").TimeStart)
		assert.Equal(t, int64(40), r.Event("C").TimeStart)
		assert.True(t, r.Event("C").LinkStart)
	})

	t.Run("gap equal to delay absorbs it fully", func(t *testing.T) {
		b := event("B", 20, 30)
		b.Gap = 10
		r := build(t, []rundown.Entry{
			event("A", 0, 10),
			&rundown.Delay{ID: "delay", Duration: 10},
			b,
		})

		Apply("delay", &r)

		assert.Equal(t, int64(20), r.Event("B").TimeStart)
		assert.Zero(t, r.Event("B").Revision)
	})

	t.Run("smaller gap reduces the delay", func(t *testing.T) {
		b := event("B", 15, 25)
		b.Gap = 5
		r := build(t, []rundown.Entry{
			event("A", 0, 10),
			&rundown.Delay{ID: "delay", Duration: 10},
			b,
			linked(event("C", 25, 35)),
			event("D", 35, 45),
		})

		Apply("delay", &r)

		assert.Equal(t, int64(20), r.Event("B").TimeStart)
		assert.Equal(t, int64(30), r.Event("C").TimeStart)
		assert.True(t, r.Event("C").LinkStart)
		assert.Equal(t, int64(40), r.Event("D").TimeStart)
	})
}

func TestApply_UnlinksFirstShiftedEvent(t *testing.T) {
	r := build(t, []rundown.Entry{
		event("A", 0, 10),
		&rundown.Delay{ID: "delay", Duration: 5},
		linked(event("B", 10, 20)),
		linked(event("C", 20, 30)),
	})

	Apply("delay", &r)

	b, c := r.Event("B"), r.Event("C")
	assert.False(t, b.LinkStart, "B now starts after a visible gap")
	assert.Equal(t, int64(15), b.TimeStart)
	assert.True(t, c.LinkStart)
	assert.Equal(t, int64(25), c.TimeStart)
}

func TestApply_NegativeDelayClamps(t *testing.T) {
	r := build(t, []rundown.Entry{
		&rundown.Delay{ID: "delay", Duration: -30},
		event("A", 10, 30),
		event("B", 40, 50),
	})

	Apply("delay", &r)

	a, b := r.Event("A"), r.Event("B")
	assert.Equal(t, int64(0), a.TimeStart)
	assert.Equal(t, int64(20), a.TimeEnd, "end never falls below the duration")
	assert.Equal(t, int64(20), a.Duration)
	assert.Equal(t, int64(10), b.TimeStart)
	assert.Equal(t, int64(20), b.TimeEnd)
}

func TestApply_GroupImmediatelyAfterDelay(t *testing.T) {
	r := build(t,
		[]rundown.Entry{
			&rundown.Delay{ID: "delay", Duration: 10},
			&rundown.Group{ID: "G"},
			event("C", 100, 110),
		},
		&rundown.Event{ID: "A", TimeStart: 0, TimeEnd: 10, Duration: 10, ParentID: "G"},
		&rundown.Event{ID: "B", TimeStart: 10, TimeEnd: 20, Duration: 10, LinkStart: true, ParentID: "G"},
	)

	Apply("delay", &r)

	assert.Equal(t, []string{"G", "C"}, r.Order)
	assert.Equal(t, []string{"G", "A", "B", "C"}, r.FlatOrder)
	assert.Equal(t, int64(10), r.Event("A").TimeStart)
	assert.Equal(t, int64(20), r.Event("B").TimeStart)
	assert.True(t, r.Event("B").LinkStart)
	assert.Equal(t, int64(100), r.Event("C").TimeStart, "propagation ends with the group")
}

func TestApply_DelayInsideGroup(t *testing.T) {
	r := build(t,
		[]rundown.Entry{
			&rundown.Group{ID: "G"},
			event("C", 100, 110),
		},
		&rundown.Event{ID: "A", TimeStart: 0, TimeEnd: 10, Duration: 10, ParentID: "G"},
		&rundown.Delay{ID: "delay", Duration: 10, ParentID: "G"},
		&rundown.Event{ID: "B", TimeStart: 10, TimeEnd: 20, Duration: 10, ParentID: "G"},
	)

	Apply("delay", &r)

	assert.Equal(t, []string{"A", "B"}, r.Group("G").Entries)
	assert.Equal(t, int64(0), r.Event("A").TimeStart)
	assert.Equal(t, int64(20), r.Event("B").TimeStart)
	assert.Equal(t, int64(100), r.Event("C").TimeStart)
	require.NoError(t, r.Verify())
}

func TestApply_MidnightWrap(t *testing.T) {
	r := build(t, []rundown.Entry{
		&rundown.Delay{ID: "delay", Duration: 3_600_000},
		event("A", 82_800_000, 3_600_000), // 23:00 to 01:00
	})

	Apply("delay", &r)

	a := r.Event("A")
	assert.Zero(t, a.TimeStart, "a start at 24:00 folds to midnight")
	assert.Equal(t, int64(7_200_000), a.TimeEnd)
	assert.Equal(t, int64(7_200_000), a.Duration)
}

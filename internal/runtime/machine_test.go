package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/testutil"
)

const (
	minute = int64(60_000)
	hour   = 60 * minute
)

func ev(id string, start, end int64) rundown.Event {
	return rundown.Event{
		ID:           id,
		Cue:          id,
		TimeStart:    start,
		TimeEnd:      end,
		Duration:     rundown.SpanBetween(start, end),
		TimeStrategy: rundown.LockDuration,
		TimerType:    rundown.TimerCountDown,
		EndAction:    rundown.EndNone,
		TimeWarning:  2 * minute,
		TimeDanger:   minute,
	}
}

// morning is a three-event playlist from 09:00 to 10:30.
func morning() Playlist {
	a := ev("a", 9*hour, 9*hour+30*minute)
	b := ev("b", 9*hour+30*minute, 10*hour)
	b.IsPublic = true
	b.ParentID = "block"
	c := ev("c", 10*hour, 10*hour+30*minute)
	return Playlist{
		Events: []rundown.Event{a, b, c},
		Blocks: map[string]rundown.Group{"block": {ID: "block", Entries: []string{"b"}}},
	}
}

func newMachine(t *testing.T, at int64) (*Machine, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClockAt(at)
	return NewMachine(clock), clock
}

func assertTimerInvariant(t *testing.T, s State) {
	t.Helper()
	running := s.Timer.Playback.Running()
	assert.Equal(t, running, s.Timer.Current != nil, "current")
	assert.Equal(t, running, s.Timer.Duration != nil, "duration")
	assert.Equal(t, running, s.Timer.Elapsed != nil, "elapsed")
	assert.Equal(t, running, s.Timer.ExpectedFinish != nil, "expectedFinish")
}

func TestMachine_InitialState(t *testing.T) {
	m, _ := newMachine(t, 0)
	s := m.State()

	assert.Nil(t, s.EventNow)
	assert.Equal(t, PlaybackStop, s.Timer.Playback)
	assert.Equal(t, ModeManual, s.Mode)
	assert.Zero(t, s.Runtime.Offset)
	assertTimerInvariant(t, s)
}

func TestMachine_Load(t *testing.T) {
	m, _ := newMachine(t, 8*hour)
	pl := morning()

	require.True(t, m.Load(&pl.Events[1], pl))
	s := m.State()

	assert.Equal(t, "b", s.EventNow.ID)
	assert.Equal(t, "c", s.EventNext.ID)
	assert.Equal(t, "b", s.PublicEventNow.ID)
	assert.Nil(t, s.PublicEventNext)
	assert.Equal(t, "block", s.CurrentBlock.ID)
	assert.Equal(t, PlaybackArmed, s.Timer.Playback)
	require.NotNil(t, s.Runtime.SelectedEventIndex)
	assert.Equal(t, 1, *s.Runtime.SelectedEventIndex)
	assert.Equal(t, 3, s.Runtime.NumEvents)
	assert.Equal(t, 9*hour+30*minute, *s.Runtime.PlannedStart)
	assert.Equal(t, 10*hour+30*minute, *s.Runtime.PlannedEnd)
	assert.Nil(t, s.Runtime.ActualStart)
	assertTimerInvariant(t, s)

	assert.False(t, m.Load(nil, pl))
}

func TestMachine_StartFixesOffset(t *testing.T) {
	m, clock := newMachine(t, 9*hour+2*minute)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))

	require.True(t, m.Start())
	s := m.State()

	assert.Equal(t, PlaybackPlay, s.Timer.Playback)
	assert.Equal(t, *s.Runtime.PlannedStart-clock.NowMsOfDay(), s.Runtime.Offset)
	assert.Equal(t, -2*minute, s.Runtime.Offset, "two minutes late")
	assert.Equal(t, 9*hour+2*minute, *s.Runtime.ActualStart)
	assert.Equal(t, 10*hour+32*minute, *s.Runtime.ExpectedEnd)
	assert.Equal(t, 30*minute, *s.Timer.Current)
	assertTimerInvariant(t, s)

	assert.False(t, m.Start(), "already playing")
}

func TestMachine_StartWithNothingLoaded(t *testing.T) {
	m, _ := newMachine(t, 0)
	assert.False(t, m.Start())
}

func TestMachine_PauseAndResume(t *testing.T) {
	m, clock := newMachine(t, 9*hour)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())

	clock.Advance(5 * time.Minute)
	require.True(t, m.Pause())
	s := m.State()
	assert.Equal(t, PlaybackPause, s.Timer.Playback)
	assert.Equal(t, 25*minute, *s.Timer.Current)
	assertTimerInvariant(t, s)

	clock.Advance(10 * time.Minute)
	m.Tick()
	assert.Equal(t, 25*minute, *m.State().Timer.Current, "frozen while paused")
	assert.False(t, m.Pause(), "not playing")

	require.True(t, m.Start())
	clock.Advance(time.Minute)
	m.Tick()
	s = m.State()
	assert.Equal(t, 24*minute, *s.Timer.Current)
	assert.Equal(t, 6*minute, *s.Timer.Elapsed)
	assert.Zero(t, s.Runtime.Offset, "resume keeps the first-start offset")
}

func TestMachine_StopResetsEverything(t *testing.T) {
	m, clock := newMachine(t, 9*hour+5*minute)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())
	clock.Advance(time.Minute)
	require.True(t, m.Pause())

	require.True(t, m.Stop())
	s := m.State()

	assert.Nil(t, s.EventNow)
	assert.Nil(t, s.EventNext)
	assert.Equal(t, PlaybackStop, s.Timer.Playback)
	assert.Zero(t, s.Runtime.Offset)
	assert.Nil(t, s.Runtime.ActualStart)
	assert.Nil(t, s.Runtime.ExpectedEnd)
	assert.Nil(t, s.Timer.StartedAt)
	assertTimerInvariant(t, s)

	assert.True(t, m.Stop(), "stop always succeeds")
}

func TestMachine_AddTime(t *testing.T) {
	m, _ := newMachine(t, 9*hour)
	pl := morning()

	assert.False(t, m.AddTime(minute), "nothing loaded")

	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())
	require.True(t, m.AddTime(5*minute))
	s := m.State()

	assert.Equal(t, 5*minute, s.Timer.AddedTime)
	assert.Equal(t, -5*minute, s.Runtime.Offset)
	assert.Equal(t, 35*minute, *s.Timer.Current)
	assert.Equal(t, 10*hour+35*minute, *s.Runtime.ExpectedEnd)
	assert.Equal(t, PlaybackPlay, s.Timer.Playback)

	assert.False(t, m.AddTime(MaxAddTime+1))
	assert.False(t, m.AddTime(-MaxAddTime-1))
	assert.True(t, m.AddTime(-MaxAddTime))
}

func TestMachine_AddTimeBeforeStart(t *testing.T) {
	m, _ := newMachine(t, 9*hour)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))

	require.True(t, m.AddTime(2*minute))
	require.True(t, m.Start())

	assert.Equal(t, -2*minute, m.State().Runtime.Offset)
}

func TestMachine_TickReportsFinishOnce(t *testing.T) {
	m, clock := newMachine(t, 9*hour)
	pl := morning()
	pl.Events[0].EndAction = rundown.EndLoadNext
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())

	clock.Advance(29 * time.Minute)
	res := m.Tick()
	assert.False(t, res.Finished)
	assert.Equal(t, PhaseDanger, m.State().Timer.Phase)

	clock.Advance(time.Minute)
	res = m.Tick()
	assert.True(t, res.Finished)
	assert.Equal(t, "a", res.EventID)
	assert.Equal(t, rundown.EndLoadNext, res.EndAction)
	assert.NotNil(t, m.State().Timer.FinishedAt)

	clock.Advance(time.Second)
	res = m.Tick()
	assert.False(t, res.Finished)
	assert.Equal(t, PhaseOvertime, m.State().Timer.Phase)
}

func TestMachine_Phases(t *testing.T) {
	e := ev("x", 0, 10*minute)
	assert.Equal(t, PhaseDefault, phaseFor(&e, 5*minute))
	assert.Equal(t, PhaseWarning, phaseFor(&e, 2*minute))
	assert.Equal(t, PhaseDanger, phaseFor(&e, minute))
	assert.Equal(t, PhaseOvertime, phaseFor(&e, -1))
	e.TimerType = rundown.TimerNone
	assert.Equal(t, PhaseNone, phaseFor(&e, 5*minute))
}

func TestMachine_Navigation(t *testing.T) {
	m, _ := newMachine(t, 9*hour)
	pl := morning()
	m.Refresh(pl)

	assert.False(t, m.LoadPrevious())
	require.True(t, m.LoadNext())
	assert.Equal(t, "a", m.State().EventNow.ID)
	require.True(t, m.LoadNext())
	require.True(t, m.LoadNext())
	assert.Equal(t, "c", m.State().EventNow.ID)
	assert.False(t, m.LoadNext())
	require.True(t, m.LoadPrevious())
	assert.Equal(t, "b", m.State().EventNow.ID)

	require.True(t, m.Start())
	require.True(t, m.Reload())
	assert.Equal(t, PlaybackArmed, m.State().Timer.Playback)
}

func TestMachine_RefreshKeepsTimer(t *testing.T) {
	m, clock := newMachine(t, 9*hour)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())
	clock.Advance(10 * time.Minute)

	edited := morning()
	edited.Events[0].Title = "Opening"
	edited.Events[0].Duration = 40 * minute
	edited.Events = append(edited.Events[:1], edited.Events[2:]...)

	assert.False(t, m.Refresh(edited))
	s := m.State()
	assert.Equal(t, "Opening", s.EventNow.Title)
	assert.Equal(t, "c", s.EventNext.ID)
	assert.Equal(t, 30*minute, *s.Timer.Current)
	assert.Equal(t, PlaybackPlay, s.Timer.Playback)
	assert.Equal(t, 2, s.Runtime.NumEvents)
}

func TestMachine_RefreshStopsWhenEventRemoved(t *testing.T) {
	m, _ := newMachine(t, 9*hour)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())

	edited := morning()
	edited.Events = edited.Events[1:]

	assert.True(t, m.Refresh(edited))
	assert.Nil(t, m.State().EventNow)
	assert.Equal(t, PlaybackStop, m.State().Timer.Playback)
}

func TestMachine_RollStartsLiveEvent(t *testing.T) {
	m, _ := newMachine(t, 9*hour+40*minute)
	pl := morning()

	res, ok := m.Roll(pl, false)
	require.True(t, ok)
	assert.Equal(t, "b", res.EventID)
	assert.True(t, res.DidStart)

	s := m.State()
	assert.Equal(t, ModeRoll, s.Mode)
	assert.Equal(t, RollRunning, s.RollPhase)
	assert.Equal(t, PlaybackPlay, s.Timer.Playback)
	assert.Equal(t, 10*minute, *s.Timer.Elapsed, "elapsed follows the schedule")
	assert.Equal(t, 20*minute, *s.Timer.Current)
	assert.Zero(t, s.Runtime.Offset)
	assertTimerInvariant(t, s)

	assert.False(t, m.Pause(), "roll cannot be paused")
}

func TestMachine_RollPendingCountsDown(t *testing.T) {
	m, clock := newMachine(t, 8*hour+50*minute)
	pl := morning()

	res, ok := m.Roll(pl, false)
	require.True(t, ok)
	assert.Equal(t, "a", res.EventID)
	assert.False(t, res.DidStart)

	s := m.State()
	assert.Equal(t, RollPending, s.RollPhase)
	assert.Equal(t, PlaybackArmed, s.Timer.Playback)
	assert.Equal(t, PhasePending, s.Timer.Phase)
	assert.Nil(t, s.EventNow)
	assert.Equal(t, "a", s.EventNext.ID)
	require.NotNil(t, s.Timer.SecondaryTimer)
	assert.Equal(t, 10*minute, *s.Timer.SecondaryTimer)
	assertTimerInvariant(t, s)

	clock.Advance(10 * time.Minute)
	tick := m.Tick()
	assert.True(t, tick.RollChanged)
	s = m.State()
	assert.Equal(t, "a", s.EventNow.ID)
	assert.Equal(t, RollRunning, s.RollPhase)
	assert.Nil(t, s.Timer.SecondaryTimer)
}

func TestMachine_RollFollowsClock(t *testing.T) {
	m, clock := newMachine(t, 9*hour+29*minute)
	pl := morning()
	_, ok := m.Roll(pl, false)
	require.True(t, ok)

	clock.Advance(30 * time.Second)
	assert.False(t, m.Tick().RollChanged)
	assert.Equal(t, "a", m.State().EventNow.ID)

	clock.Advance(30 * time.Second)
	assert.True(t, m.Tick().RollChanged)
	assert.Equal(t, "b", m.State().EventNow.ID)
}

func TestMachine_RollKeepsPlayingLiveEvent(t *testing.T) {
	m, clock := newMachine(t, 9*hour+5*minute)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())
	require.True(t, m.AddTime(2*minute))
	clock.Advance(time.Minute)

	res, ok := m.Roll(pl, true)
	require.True(t, ok)
	assert.Equal(t, "a", res.EventID)
	assert.False(t, res.DidStart, "the live event is already running")

	s := m.State()
	assert.Equal(t, ModeRoll, s.Mode)
	assert.Equal(t, "a", s.EventNow.ID)
	assert.Equal(t, 2*minute, s.Timer.AddedTime)
	require.NotNil(t, s.Timer.StartedAt)
	assert.Equal(t, 9*hour+5*minute, *s.Timer.StartedAt, "started when the operator pressed start")
	assert.Equal(t, minute, *s.Timer.Elapsed)
	assertTimerInvariant(t, s)
}

func TestMachine_RollReplacesPlayingEventThatIsNotLive(t *testing.T) {
	m, _ := newMachine(t, 9*hour+40*minute)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())
	require.True(t, m.AddTime(2*minute))

	res, ok := m.Roll(pl, false)
	require.True(t, ok)
	assert.Equal(t, "b", res.EventID)
	assert.True(t, res.DidStart)
	assert.Zero(t, m.State().Timer.AddedTime)
}

func TestMachine_RollCarriesOffset(t *testing.T) {
	m, _ := newMachine(t, 9*hour+5*minute)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())
	require.Equal(t, -5*minute, m.State().Runtime.Offset)

	_, ok := m.Roll(pl, true)
	require.True(t, ok)
	assert.Equal(t, -5*minute, m.State().Runtime.Offset)

	_, ok = m.Roll(pl, false)
	require.True(t, ok)
	assert.Zero(t, m.State().Runtime.Offset)
}

func TestMachine_RollEmpty(t *testing.T) {
	m, _ := newMachine(t, 0)
	_, ok := m.Roll(Playlist{}, false)
	assert.False(t, ok)
}

func TestMachine_LoadLeavesRoll(t *testing.T) {
	m, _ := newMachine(t, 9*hour+40*minute)
	pl := morning()
	_, ok := m.Roll(pl, false)
	require.True(t, ok)

	require.True(t, m.Load(&pl.Events[2], pl))
	s := m.State()
	assert.Equal(t, ModeManual, s.Mode)
	assert.Equal(t, RollNone, s.RollPhase)
	assert.Equal(t, PlaybackArmed, s.Timer.Playback)
}

func TestMachine_MidnightElapsed(t *testing.T) {
	late := ev("late", 23*hour+50*minute, 20*minute)
	pl := Playlist{Events: []rundown.Event{late}}
	m, clock := newMachine(t, 23*hour+50*minute)
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())

	clock.Advance(15 * time.Minute)
	m.Tick()
	s := m.State()

	assert.Equal(t, 5*minute, s.Clock)
	assert.Equal(t, 15*minute, *s.Timer.Elapsed)
	assert.Equal(t, 15*minute, *s.Timer.Current)
}

func TestMachine_StateIsACopy(t *testing.T) {
	m, _ := newMachine(t, 9*hour)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))

	s := m.State()
	s.EventNow.Title = "mutated"
	*s.Runtime.PlannedStart = 0

	assert.Empty(t, m.State().EventNow.Title)
	assert.Equal(t, 9*hour, *m.State().Runtime.PlannedStart)
}

func TestMachine_RestorePointRoundTrip(t *testing.T) {
	m, clock := newMachine(t, 9*hour+minute)
	pl := morning()
	require.True(t, m.Load(&pl.Events[0], pl))
	require.True(t, m.Start())
	require.True(t, m.AddTime(minute))
	clock.Advance(4 * time.Minute)
	require.True(t, m.Pause())

	point := m.RestorePoint()
	assert.Equal(t, PlaybackPause, point.Playback)
	assert.Equal(t, "a", point.EventID)

	restored := NewMachine(clock)
	require.True(t, restored.Restore(point, pl))
	want, got := m.State(), restored.State()
	assert.Equal(t, want.Timer, got.Timer)
	assert.Equal(t, want.Runtime, got.Runtime)
	assert.Equal(t, want.EventNow.ID, got.EventNow.ID)

	assert.False(t, restored.Restore(RestorePoint{Playback: PlaybackStop}, pl))
}

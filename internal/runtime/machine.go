package runtime

import (
	"github.com/roach88/cueline/internal/roll"
	"github.com/roach88/cueline/internal/rundown"
)

// Clock is the wall clock the machine reads on every transition.
type Clock interface {
	// NowMsOfDay returns milliseconds since local midnight.
	NowMsOfDay() int64
	// NowEpochMs returns milliseconds since the Unix epoch.
	NowEpochMs() int64
}

// TickResult reports what a tick changed.
type TickResult struct {
	// Finished is set on the tick where the loaded event's timer reaches
	// zero; EndAction is the action the event asks for.
	Finished  bool
	EventID   string
	EndAction rundown.EndAction

	// RollChanged is set when roll mode moved to another event or phase.
	RollChanged bool
}

// RollResult is returned by Roll. EventID is the event now live, or the
// event being waited for while pending.
type RollResult struct {
	EventID  string
	DidStart bool
	changed  bool
}

// Machine is the playback state machine.
//
// Elapsed time is measured on the epoch clock so that pauses and midnight do
// not disturb it; everything published in State is milliseconds of day.
type Machine struct {
	clock    Clock
	state    State
	playlist Playlist

	startedEpoch int64
	pausedEpoch  *int64
	pausedTotal  int64
	rollOffset   int64
}

// NewMachine returns a machine with nothing loaded.
func NewMachine(clock Clock) *Machine {
	return &Machine{clock: clock, state: NewState()}
}

// State returns a deep copy of the current state.
func (m *Machine) State() State {
	return m.state.Clone()
}

// Playlist returns the playlist the machine last loaded from.
func (m *Machine) Playlist() Playlist {
	return m.playlist
}

func (m *Machine) now() (epoch, day int64) {
	return m.clock.NowEpochMs(), m.clock.NowMsOfDay()
}

// Load arms ev. It leaves roll mode and clears the offset. Load fails only
// when ev is nil.
func (m *Machine) Load(ev *rundown.Event, pl Playlist) bool {
	if ev == nil {
		return false
	}
	m.exitRoll()
	m.load(ev, pl)
	epoch, day := m.now()
	m.recompute(epoch, day)
	return true
}

// LoadNext arms the event after the selected one, or the first event when
// nothing is selected.
func (m *Machine) LoadNext() bool {
	i := 0
	if sel := m.state.Runtime.SelectedEventIndex; sel != nil {
		i = *sel + 1
	}
	ev, ok := m.playlist.At(i)
	if !ok {
		return false
	}
	return m.Load(&ev, m.playlist)
}

// LoadPrevious arms the event before the selected one.
func (m *Machine) LoadPrevious() bool {
	sel := m.state.Runtime.SelectedEventIndex
	if sel == nil {
		return false
	}
	ev, ok := m.playlist.At(*sel - 1)
	if !ok {
		return false
	}
	return m.Load(&ev, m.playlist)
}

// Reload arms the loaded event again from the top.
func (m *Machine) Reload() bool {
	if m.state.EventNow == nil {
		return false
	}
	ev := cloneEvent(m.state.EventNow)
	return m.Load(ev, m.playlist)
}

// Start plays the loaded event, or resumes it from pause. It fails when
// nothing is loaded or the event is already playing. The first start of a
// loaded event fixes the offset.
func (m *Machine) Start() bool {
	s := &m.state
	if s.EventNow == nil || s.Timer.Playback == PlaybackPlay {
		return false
	}
	epoch, day := m.now()
	if s.Timer.Playback == PlaybackPause && m.pausedEpoch != nil {
		m.pausedTotal += epoch - *m.pausedEpoch
		m.pausedEpoch = nil
	} else {
		m.begin(epoch, day)
		planned := day
		if s.Runtime.PlannedStart != nil {
			planned = *s.Runtime.PlannedStart
		}
		s.Runtime.Offset = startOffset(planned, day) - s.Timer.AddedTime
	}
	s.Timer.Playback = PlaybackPlay
	m.recompute(epoch, day)
	return true
}

// Pause freezes a playing timer. Roll mode cannot be paused.
func (m *Machine) Pause() bool {
	s := &m.state
	if s.Timer.Playback != PlaybackPlay || s.Mode == ModeRoll {
		return false
	}
	epoch, day := m.now()
	m.pausedEpoch = ptr(epoch)
	s.Timer.Playback = PlaybackPause
	m.recompute(epoch, day)
	return true
}

// Stop unloads everything and resets the offset. It always succeeds.
func (m *Machine) Stop() bool {
	s := &m.state
	m.exitRoll()
	m.clearTimer()
	m.resetOffset()
	s.EventNow = nil
	s.EventNext = nil
	s.PublicEventNow = nil
	s.PublicEventNext = nil
	s.CurrentBlock = nil
	s.Runtime.PlannedStart = nil
	s.Runtime.PlannedEnd = nil
	s.Runtime.SelectedEventIndex = nil
	s.Runtime.NumEvents = m.playlist.Len()
	_, s.Clock = m.now()
	return true
}

// AddTime extends (positive) or shortens (negative) the loaded event. The
// offset moves the opposite way. |delta| is capped at MaxAddTime.
func (m *Machine) AddTime(delta int64) bool {
	s := &m.state
	if s.EventNow == nil || delta == 0 || delta > MaxAddTime || delta < -MaxAddTime {
		return false
	}
	s.Timer.AddedTime += delta
	s.Runtime.Offset -= delta
	epoch, day := m.now()
	m.recompute(epoch, day)
	return true
}

// Roll switches to roll mode and follows the clock through pl. With
// carryOverOffset the current offset is kept for the rest of the roll;
// otherwise it restarts at zero. Roll fails on an empty playlist.
func (m *Machine) Roll(pl Playlist, carryOverOffset bool) (RollResult, bool) {
	if pl.Len() == 0 {
		return RollResult{}, false
	}
	m.rollOffset = 0
	if carryOverOffset {
		m.rollOffset = m.state.Runtime.Offset
	}
	// A playing event survives the switch; rollTo keeps it if the clock
	// says it is live and replaces it otherwise.
	if m.state.Mode != ModeRoll && m.state.Timer.Playback != PlaybackPlay {
		m.clearTimer()
		m.state.EventNow = nil
	}
	m.state.Mode = ModeRoll
	epoch, day := m.now()
	return m.rollTo(epoch, day, pl), true
}

// Tick advances the timer to the current clock. In manual mode it reports
// the first tick at which the loaded event runs out; in roll mode it moves
// to whichever event the clock says is live.
func (m *Machine) Tick() TickResult {
	s := &m.state
	epoch, day := m.now()
	if s.Mode == ModeRoll {
		res := m.rollTo(epoch, day, m.playlist)
		return TickResult{EventID: res.EventID, RollChanged: res.changed}
	}

	m.recompute(epoch, day)
	t := &s.Timer
	if t.Playback == PlaybackPlay && t.Current != nil && *t.Current <= 0 && t.FinishedAt == nil {
		t.FinishedAt = ptr(day)
		return TickResult{Finished: true, EventID: s.EventNow.ID, EndAction: s.EventNow.EndAction}
	}
	return TickResult{}
}

// Refresh re-reads the loaded event and its neighbours from pl after the
// rundown changed, without restarting the timer. It reports whether the
// loaded event disappeared, in which case the machine is stopped.
func (m *Machine) Refresh(pl Playlist) bool {
	s := &m.state
	m.playlist = pl
	s.Runtime.NumEvents = pl.Len()
	epoch, day := m.now()

	if s.Mode == ModeRoll {
		if pl.Len() == 0 {
			m.Stop()
			return true
		}
		m.rollTo(epoch, day, pl)
		return false
	}
	if s.EventNow == nil {
		m.recompute(epoch, day)
		return false
	}

	idx := pl.IndexOf(s.EventNow.ID)
	if idx < 0 {
		m.Stop()
		return true
	}
	s.EventNow = cloneEvent(&pl.Events[idx])
	m.selectIndex(idx)
	if s.Runtime.ActualStart == nil {
		s.Runtime.PlannedStart = ptr(s.EventNow.TimeStart)
	}
	m.recompute(epoch, day)
	return false
}

// load arms ev without touching the mode.
func (m *Machine) load(ev *rundown.Event, pl Playlist) {
	s := &m.state
	m.playlist = pl
	m.clearTimer()
	m.resetOffset()
	s.EventNow = cloneEvent(ev)
	s.Timer.Playback = PlaybackArmed
	s.Runtime.PlannedStart = ptr(ev.TimeStart)
	m.selectIndex(pl.IndexOf(ev.ID))
}

// selectIndex points the neighbour fields at position idx of the playlist.
// idx may be -1 for an event that is not in the playlist.
func (m *Machine) selectIndex(idx int) {
	s := &m.state
	pl := m.playlist
	rt := &s.Runtime
	rt.NumEvents = pl.Len()
	s.CurrentBlock = pl.block(s.EventNow)
	if idx < 0 {
		rt.SelectedEventIndex = nil
		s.EventNext = nil
		s.PublicEventNow, s.PublicEventNext = nil, nil
		if s.EventNow != nil && s.EventNow.IsPublic {
			s.PublicEventNow = cloneEvent(s.EventNow)
		}
		rt.PlannedEnd = nil
		if end, ok := pl.plannedEnd(-1); ok {
			rt.PlannedEnd = ptr(end)
		}
		return
	}
	rt.SelectedEventIndex = ptr(idx)
	s.EventNext = nil
	if next, ok := pl.At(idx + 1); ok {
		s.EventNext = cloneEvent(&next)
	}
	s.PublicEventNow, s.PublicEventNext = pl.publicAround(idx)
	rt.PlannedEnd = nil
	if end, ok := pl.plannedEnd(idx); ok {
		rt.PlannedEnd = ptr(end)
	}
}

// begin records the first start of the loaded event at the given instants.
func (m *Machine) begin(epoch, day int64) {
	s := &m.state
	m.startedEpoch = epoch
	m.pausedEpoch = nil
	m.pausedTotal = 0
	s.Timer.StartedAt = ptr(day)
	s.Timer.FinishedAt = nil
	s.Runtime.ActualStart = ptr(day)
}

func (m *Machine) clearTimer() {
	m.state.Timer = Timer{Phase: PhaseNone, Playback: PlaybackStop}
	m.startedEpoch = 0
	m.pausedEpoch = nil
	m.pausedTotal = 0
}

func (m *Machine) exitRoll() {
	m.state.Mode = ModeManual
	m.state.RollPhase = RollNone
	m.state.Timer.SecondaryTimer = nil
	m.rollOffset = 0
}

// recompute derives the timer values from the clock.
func (m *Machine) recompute(epoch, day int64) {
	s := &m.state
	t := &s.Timer
	s.Clock = day

	if !t.Playback.Running() || s.EventNow == nil {
		t.Current, t.Duration, t.Elapsed, t.ExpectedFinish = nil, nil, nil, nil
		t.Phase = PhaseNone
		if s.RollPhase == RollPending {
			t.Phase = PhasePending
		}
		m.refreshOffset()
		return
	}

	ref := epoch
	if m.pausedEpoch != nil {
		ref = *m.pausedEpoch
	}
	elapsed := max(ref-m.startedEpoch-m.pausedTotal, 0)
	duration := s.EventNow.Duration + t.AddedTime
	current := duration - elapsed

	t.Elapsed = ptr(elapsed)
	t.Duration = ptr(duration)
	t.Current = ptr(current)
	t.ExpectedFinish = ptr(wrapDay(day + current))
	if current > 0 {
		t.FinishedAt = nil
	}
	t.Phase = phaseFor(s.EventNow, current)
	m.refreshOffset()
}

func phaseFor(ev *rundown.Event, current int64) Phase {
	switch {
	case ev.TimerType == rundown.TimerNone:
		return PhaseNone
	case current < 0:
		return PhaseOvertime
	case current <= ev.TimeDanger:
		return PhaseDanger
	case current <= ev.TimeWarning:
		return PhaseWarning
	default:
		return PhaseDefault
	}
}

// rollTo moves the machine to whatever the clock says is live in pl.
func (m *Machine) rollTo(epoch, day int64, pl Playlist) RollResult {
	s := &m.state
	m.playlist = pl
	timers := roll.GetRollTimers(pl.Events, day)

	if cur := timers.CurrentEvent; cur != nil {
		if s.EventNow != nil && s.EventNow.ID == cur.ID && s.Timer.Playback == PlaybackPlay {
			s.EventNow = cloneEvent(cur)
			s.Runtime.Offset = m.rollOffset
			s.RollPhase = RollRunning
			s.Timer.SecondaryTimer = nil
			m.selectIndex(timers.NowIndex)
			m.recompute(epoch, day)
			return RollResult{EventID: cur.ID}
		}
		m.load(cur, pl)
		elapsed := daySpan(cur.TimeStart, day)
		m.begin(epoch-elapsed, cur.TimeStart)
		s.Runtime.Offset = m.rollOffset
		s.Timer.Playback = PlaybackPlay
		s.Timer.SecondaryTimer = nil
		s.RollPhase = RollRunning
		m.recompute(epoch, day)
		return RollResult{EventID: cur.ID, DidStart: true, changed: true}
	}

	next := timers.NextEvent
	if next == nil {
		m.Stop()
		return RollResult{changed: true}
	}
	changed := s.RollPhase != RollPending || s.EventNext == nil || s.EventNext.ID != next.ID
	m.clearTimer()
	m.resetOffset()
	s.Runtime.Offset = m.rollOffset
	s.EventNow = nil
	s.CurrentBlock = nil
	s.EventNext = cloneEvent(next)
	s.PublicEventNow = cloneEvent(timers.CurrentPublicEvent)
	s.PublicEventNext = cloneEvent(timers.NextPublicEvent)
	s.Timer.Playback = PlaybackArmed
	s.Timer.SecondaryTimer = clonePtr(timers.TimeToNext)
	s.RollPhase = RollPending
	s.Runtime.SelectedEventIndex = nil
	s.Runtime.NumEvents = pl.Len()
	s.Runtime.PlannedStart = ptr(next.TimeStart)
	s.Runtime.PlannedEnd = nil
	if end, ok := pl.plannedEnd(timers.NextIndex); ok {
		s.Runtime.PlannedEnd = ptr(end)
	}
	m.recompute(epoch, day)
	return RollResult{EventID: next.ID, changed: changed}
}

// daySpan is the forward distance from one time of day to another.
func daySpan(from, to int64) int64 {
	return wrapDay(to - from)
}

func wrapDay(ms int64) int64 {
	return ((ms % rundown.DayMs) + rundown.DayMs) % rundown.DayMs
}

// Package runtime holds the live show state and the playback state machine
// that is the only thing allowed to change it.
//
// The machine is not safe for concurrent use. The engine owns one Machine
// on its loop goroutine and publishes deep copies of State to readers.
package runtime

import (
	"github.com/roach88/cueline/internal/rundown"
)

// Playback is the transport state of the loaded event.
type Playback string

const (
	PlaybackStop  Playback = "stop"
	PlaybackArmed Playback = "armed"
	PlaybackPlay  Playback = "play"
	PlaybackPause Playback = "pause"
)

// Running reports whether the timer has numeric values in this state.
func (p Playback) Running() bool {
	return p == PlaybackPlay || p == PlaybackPause
}

// Mode selects between operator-driven and clock-driven playback.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeRoll   Mode = "roll"
)

// RollPhase is only meaningful while Mode is ModeRoll.
type RollPhase string

const (
	RollNone    RollPhase = "none"
	RollPending RollPhase = "pending"
	RollRunning RollPhase = "running"
)

// Phase classifies the remaining time against the event's thresholds.
type Phase string

const (
	PhaseNone     Phase = "none"
	PhaseDefault  Phase = "default"
	PhaseWarning  Phase = "warning"
	PhaseDanger   Phase = "danger"
	PhaseOvertime Phase = "overtime"
	PhasePending  Phase = "pending"
)

// Timer is the countdown of the loaded event. Current, Duration, Elapsed
// and ExpectedFinish are non-nil exactly when Playback is Play or Pause.
type Timer struct {
	Phase          Phase    `json:"phase"`
	Playback       Playback `json:"playback"`
	Current        *int64   `json:"current"`
	Duration       *int64   `json:"duration"`
	Elapsed        *int64   `json:"elapsed"`
	ExpectedFinish *int64   `json:"expectedFinish"`
	StartedAt      *int64   `json:"startedAt"`
	FinishedAt     *int64   `json:"finishedAt"`
	AddedTime      int64    `json:"addedTime"`
	SecondaryTimer *int64   `json:"secondaryTimer"`
}

// Runtime tracks the show against its plan. Offset is negative when the show
// runs late.
type Runtime struct {
	ActualStart        *int64 `json:"actualStart"`
	PlannedStart       *int64 `json:"plannedStart"`
	PlannedEnd         *int64 `json:"plannedEnd"`
	ExpectedEnd        *int64 `json:"expectedEnd"`
	Offset             int64  `json:"offset"`
	SelectedEventIndex *int   `json:"selectedEventIndex"`
	NumEvents          int    `json:"numEvents"`
}

// State is the complete live state. Readers only ever see clones.
type State struct {
	Clock           int64          `json:"clock"`
	EventNow        *rundown.Event `json:"eventNow"`
	EventNext       *rundown.Event `json:"eventNext"`
	PublicEventNow  *rundown.Event `json:"publicEventNow"`
	PublicEventNext *rundown.Event `json:"publicEventNext"`
	CurrentBlock    *rundown.Group `json:"currentBlock"`
	Timer           Timer          `json:"timer"`
	Runtime         Runtime        `json:"runtime"`
	Mode            Mode           `json:"mode"`
	RollPhase       RollPhase      `json:"rollPhase"`
}

// NewState returns the start-up state: nothing loaded, everything null.
func NewState() State {
	return State{
		Timer:     Timer{Phase: PhaseNone, Playback: PlaybackStop},
		Mode:      ModeManual,
		RollPhase: RollNone,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.EventNow = cloneEvent(s.EventNow)
	c.EventNext = cloneEvent(s.EventNext)
	c.PublicEventNow = cloneEvent(s.PublicEventNow)
	c.PublicEventNext = cloneEvent(s.PublicEventNext)
	if s.CurrentBlock != nil {
		c.CurrentBlock = rundown.Clone(s.CurrentBlock).(*rundown.Group)
	}
	c.Timer.Current = clonePtr(s.Timer.Current)
	c.Timer.Duration = clonePtr(s.Timer.Duration)
	c.Timer.Elapsed = clonePtr(s.Timer.Elapsed)
	c.Timer.ExpectedFinish = clonePtr(s.Timer.ExpectedFinish)
	c.Timer.StartedAt = clonePtr(s.Timer.StartedAt)
	c.Timer.FinishedAt = clonePtr(s.Timer.FinishedAt)
	c.Timer.SecondaryTimer = clonePtr(s.Timer.SecondaryTimer)
	c.Runtime.ActualStart = clonePtr(s.Runtime.ActualStart)
	c.Runtime.PlannedStart = clonePtr(s.Runtime.PlannedStart)
	c.Runtime.PlannedEnd = clonePtr(s.Runtime.PlannedEnd)
	c.Runtime.ExpectedEnd = clonePtr(s.Runtime.ExpectedEnd)
	c.Runtime.SelectedEventIndex = clonePtr(s.Runtime.SelectedEventIndex)
	return c
}

func cloneEvent(ev *rundown.Event) *rundown.Event {
	if ev == nil {
		return nil
	}
	return rundown.Clone(ev).(*rundown.Event)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr[T any](v T) *T {
	return &v
}

package rundown

import (
	"fmt"
	"maps"
)

// DayMs is the length of a day in milliseconds.
const DayMs int64 = 86_400_000

// EntryType is the discriminator written next to every serialized entry.
type EntryType string

const (
	TypeEvent     EntryType = "event"
	TypeGroup     EntryType = "group"
	TypeDelay     EntryType = "delay"
	TypeMilestone EntryType = "milestone"
)

// TimeStrategy selects which value survives when a linked start moves.
type TimeStrategy string

const (
	// LockDuration keeps the duration and moves the end.
	LockDuration TimeStrategy = "lock-duration"
	// LockEnd keeps the end and recomputes the duration.
	LockEnd TimeStrategy = "lock-end"
)

// TimerType controls how the playback timer presents an event.
type TimerType string

const (
	TimerCountDown TimerType = "count-down"
	TimerCountUp   TimerType = "count-up"
	TimerClock     TimerType = "clock"
	TimerNone      TimerType = "none"
)

// EndAction is applied by the tick loop when an event's timer finishes.
type EndAction string

const (
	EndNone     EndAction = "none"
	EndStop     EndAction = "stop"
	EndLoadNext EndAction = "load-next"
	EndPlayNext EndAction = "play-next"
)

// Entry is one unit of a rundown. Sealed: see package documentation.
type Entry interface {
	entry()
	EntryID() string
	Type() EntryType
}

// Event is a scheduled entry that can be loaded and played.
type Event struct {
	ID           string            `json:"id"`
	Cue          string            `json:"cue"`
	Title        string            `json:"title"`
	Note         string            `json:"note"`
	TimeStart    int64             `json:"timeStart"`
	TimeEnd      int64             `json:"timeEnd"`
	Duration     int64             `json:"duration"`
	TimeStrategy TimeStrategy      `json:"timeStrategy"`
	LinkStart    bool              `json:"linkStart"`
	Skip         bool              `json:"skip"`
	IsPublic     bool              `json:"isPublic"`
	TimerType    TimerType         `json:"timerType"`
	EndAction    EndAction         `json:"endAction"`
	TimeWarning  int64             `json:"timeWarning"`
	TimeDanger   int64             `json:"timeDanger"`
	ParentID     string            `json:"parent,omitempty"`
	Custom       map[string]string `json:"custom,omitempty"`
	Revision     int64             `json:"revision"`

	// Derived by the metadata engine.
	Delay     int64 `json:"delay"`
	Gap       int64 `json:"gap"`
	DayOffset int64 `json:"dayOffset"`
}

// Group contains a contiguous run of entries and rolls up their schedule.
type Group struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Note    string            `json:"note"`
	Entries []string          `json:"entries"`
	Custom  map[string]string `json:"custom,omitempty"`

	// Derived by the metadata engine.
	Duration      int64  `json:"duration"`
	TimeStart     *int64 `json:"timeStart"`
	TimeEnd       *int64 `json:"timeEnd"`
	IsFirstLinked bool   `json:"isFirstLinked"`
}

// Delay shifts the schedule of the entries that follow it.
type Delay struct {
	ID       string `json:"id"`
	Duration int64  `json:"duration"`
	ParentID string `json:"parent,omitempty"`
}

// Milestone marks a point in the rundown without timing.
type Milestone struct {
	ID       string            `json:"id"`
	Cue      string            `json:"cue"`
	Title    string            `json:"title"`
	Note     string            `json:"note"`
	ParentID string            `json:"parent,omitempty"`
	Custom   map[string]string `json:"custom,omitempty"`
}

func (*Event) entry()     {}
func (*Group) entry()     {}
func (*Delay) entry()     {}
func (*Milestone) entry() {}

func (e *Event) EntryID() string     { return e.ID }
func (g *Group) EntryID() string     { return g.ID }
func (d *Delay) EntryID() string     { return d.ID }
func (m *Milestone) EntryID() string { return m.ID }

func (*Event) Type() EntryType     { return TypeEvent }
func (*Group) Type() EntryType     { return TypeGroup }
func (*Delay) Type() EntryType     { return TypeDelay }
func (*Milestone) Type() EntryType { return TypeMilestone }

// IsPlayable reports whether the event takes part in playback.
func (e *Event) IsPlayable() bool {
	return !e.Skip
}

// HasSchedule reports whether the event carries a usable schedule.
func (e *Event) HasSchedule() bool {
	return e.TimeStart >= 0 && e.TimeEnd >= 0 && e.Duration >= 0 && e.TimeStart < DayMs && e.TimeEnd <= DayMs
}

// NormalizedEnd returns TimeEnd, moved to the next day when the event
// crosses midnight.
func (e *Event) NormalizedEnd() int64 {
	if e.TimeEnd > e.TimeStart {
		return e.TimeEnd
	}
	if e.TimeEnd == e.TimeStart && e.Duration == 0 {
		return e.TimeEnd
	}
	return e.TimeEnd + DayMs
}

// Clone returns a deep copy of the entry.
func Clone(e Entry) Entry {
	switch v := e.(type) {
	case *Event:
		c := *v
		c.Custom = maps.Clone(v.Custom)
		return &c
	case *Group:
		c := *v
		c.Entries = append([]string(nil), v.Entries...)
		c.Custom = maps.Clone(v.Custom)
		if v.TimeStart != nil {
			ts := *v.TimeStart
			c.TimeStart = &ts
		}
		if v.TimeEnd != nil {
			te := *v.TimeEnd
			c.TimeEnd = &te
		}
		return &c
	case *Delay:
		c := *v
		return &c
	case *Milestone:
		c := *v
		c.Custom = maps.Clone(v.Custom)
		return &c
	default:
		panic(fmt.Sprintf("rundown: unknown entry type %T", e))
	}
}

// ParentOf returns the parent group id of an entry, empty for top-level
// entries and groups.
func ParentOf(e Entry) string {
	switch v := e.(type) {
	case *Event:
		return v.ParentID
	case *Delay:
		return v.ParentID
	case *Milestone:
		return v.ParentID
	case *Group:
		return ""
	default:
		panic(fmt.Sprintf("rundown: unknown entry type %T", e))
	}
}

// CustomOf returns the custom field values of an entry, nil for delays.
func CustomOf(e Entry) map[string]string {
	switch v := e.(type) {
	case *Event:
		return v.Custom
	case *Group:
		return v.Custom
	case *Milestone:
		return v.Custom
	case *Delay:
		return nil
	default:
		panic(fmt.Sprintf("rundown: unknown entry type %T", e))
	}
}

// SetCustom replaces the custom field values of an entry. Delays ignore it.
func SetCustom(e Entry, custom map[string]string) {
	switch v := e.(type) {
	case *Event:
		v.Custom = custom
	case *Group:
		v.Custom = custom
	case *Milestone:
		v.Custom = custom
	case *Delay:
	default:
		panic(fmt.Sprintf("rundown: unknown entry type %T", e))
	}
}

// setParent updates the parent pointer of a member entry.
func setParent(e Entry, parent string) {
	switch v := e.(type) {
	case *Event:
		v.ParentID = parent
	case *Delay:
		v.ParentID = parent
	case *Milestone:
		v.ParentID = parent
	case *Group:
	default:
		panic(fmt.Sprintf("rundown: unknown entry type %T", e))
	}
}

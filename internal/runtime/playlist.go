package runtime

import (
	"github.com/roach88/cueline/internal/rundown"
)

// Playlist is the view of a rundown the machine plays from: the playable,
// scheduled events in order and the groups they belong to.
type Playlist struct {
	Events []rundown.Event
	Blocks map[string]rundown.Group
}

// NewPlaylist builds a playlist from a processed rundown and its playable
// event order.
func NewPlaylist(r rundown.Rundown, playable []string) Playlist {
	pl := Playlist{
		Events: make([]rundown.Event, 0, len(playable)),
		Blocks: map[string]rundown.Group{},
	}
	for _, id := range playable {
		ev := r.Event(id)
		if ev == nil {
			continue
		}
		pl.Events = append(pl.Events, *rundown.Clone(ev).(*rundown.Event))
		if ev.ParentID == "" {
			continue
		}
		if _, seen := pl.Blocks[ev.ParentID]; seen {
			continue
		}
		if g := r.Group(ev.ParentID); g != nil {
			pl.Blocks[g.ID] = *rundown.Clone(g).(*rundown.Group)
		}
	}
	return pl
}

// Len returns the number of playable events.
func (p Playlist) Len() int { return len(p.Events) }

// IndexOf returns the position of the event id, or -1.
func (p Playlist) IndexOf(id string) int {
	for i := range p.Events {
		if p.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// IndexOfCue returns the position of the first event with the given cue,
// or -1.
func (p Playlist) IndexOfCue(cue string) int {
	for i := range p.Events {
		if p.Events[i].Cue == cue {
			return i
		}
	}
	return -1
}

// At returns a copy of the event at i.
func (p Playlist) At(i int) (rundown.Event, bool) {
	if i < 0 || i >= len(p.Events) {
		return rundown.Event{}, false
	}
	return p.Events[i], true
}

func (p Playlist) block(ev *rundown.Event) *rundown.Group {
	if ev == nil || ev.ParentID == "" {
		return nil
	}
	g, ok := p.Blocks[ev.ParentID]
	if !ok {
		return nil
	}
	return rundown.Clone(&g).(*rundown.Group)
}

// publicAround returns the public event at or before i and the first public
// event after i.
func (p Playlist) publicAround(i int) (now, next *rundown.Event) {
	for j := i; j >= 0 && j < len(p.Events); j-- {
		if p.Events[j].IsPublic {
			now = cloneEvent(&p.Events[j])
			break
		}
	}
	for j := i + 1; j < len(p.Events); j++ {
		if p.Events[j].IsPublic {
			next = cloneEvent(&p.Events[j])
			break
		}
	}
	return now, next
}

// plannedEnd is the scheduled end of the show, measured on the day of the
// event at from.
func (p Playlist) plannedEnd(from int) (int64, bool) {
	if len(p.Events) == 0 {
		return 0, false
	}
	last := p.Events[len(p.Events)-1]
	var days int64
	if from >= 0 && from < len(p.Events) {
		days = last.DayOffset - p.Events[from].DayOffset
	}
	return last.TimeStart + last.Duration + days*rundown.DayMs, true
}

package rundown

import (
	"fmt"
	"slices"
)

// InsertEntry adds e after the entry afterID. An empty afterID inserts at
// the head of the target list. When parentID names a group, e becomes one of
// its members; otherwise e is placed at the top level. FlatOrder is rebuilt.
func InsertEntry(r *Rundown, e Entry, afterID, parentID string) error {
	id := e.EntryID()
	if id == "" {
		return fmt.Errorf("insert: entry has no id")
	}
	if _, exists := r.Entries[id]; exists {
		return fmt.Errorf("insert: entry %q already exists", id)
	}

	if parentID == "" {
		list, err := insertAfter(r.Order, id, afterID)
		if err != nil {
			return fmt.Errorf("insert %q: %w", id, err)
		}
		r.Order = list
		setParent(e, "")
	} else {
		g := r.Group(parentID)
		if g == nil {
			return fmt.Errorf("insert %q: group %q not found", id, parentID)
		}
		if e.Type() == TypeGroup {
			return fmt.Errorf("insert %q: groups cannot be nested", id)
		}
		list, err := insertAfter(g.Entries, id, afterID)
		if err != nil {
			return fmt.Errorf("insert %q: %w", id, err)
		}
		g.Entries = list
		setParent(e, parentID)
	}

	r.Entries[id] = e
	r.FlatOrder = r.BuildFlatOrder()
	return nil
}

func insertAfter(list []string, id, afterID string) ([]string, error) {
	if afterID == "" {
		return slices.Insert(slices.Clone(list), 0, id), nil
	}
	at := slices.Index(list, afterID)
	if at < 0 {
		return nil, fmt.Errorf("anchor %q not found", afterID)
	}
	return slices.Insert(slices.Clone(list), at+1, id), nil
}

// RemoveEntries deletes the given entries. Removing a group removes its
// members. Unknown ids are ignored. Returns the number of entries removed.
func RemoveEntries(r *Rundown, ids ...string) int {
	doomed := map[string]bool{}
	for _, id := range ids {
		e, ok := r.Entries[id]
		if !ok {
			continue
		}
		doomed[id] = true
		if g, isGroup := e.(*Group); isGroup {
			for _, member := range g.Entries {
				doomed[member] = true
			}
		}
	}
	if len(doomed) == 0 {
		return 0
	}

	keep := func(list []string) []string {
		return slices.DeleteFunc(slices.Clone(list), func(id string) bool { return doomed[id] })
	}
	r.Order = keep(r.Order)
	for _, e := range r.Entries {
		if g, isGroup := e.(*Group); isGroup && !doomed[g.ID] {
			g.Entries = keep(g.Entries)
		}
	}
	for id := range doomed {
		delete(r.Entries, id)
	}
	r.FlatOrder = r.BuildFlatOrder()
	return len(doomed)
}

// MoveEntry moves id so that it follows afterID within the same list (the
// top level or its group). An empty afterID moves it to the head.
func MoveEntry(r *Rundown, id, afterID string) error {
	e, ok := r.Entries[id]
	if !ok {
		return fmt.Errorf("move: entry %q not found", id)
	}
	if id == afterID {
		return nil
	}
	parent := ParentOf(e)
	list := &r.Order
	if parent != "" {
		g := r.Group(parent)
		if g == nil {
			return fmt.Errorf("move: parent %q of %q not found", parent, id)
		}
		list = &g.Entries
	}
	without := slices.DeleteFunc(slices.Clone(*list), func(s string) bool { return s == id })
	moved, err := insertAfter(without, id, afterID)
	if err != nil {
		return fmt.Errorf("move %q: %w", id, err)
	}
	*list = moved
	r.FlatOrder = r.BuildFlatOrder()
	return nil
}

// EventPatch carries optional field updates for an event. Nil fields are
// left unchanged.
type EventPatch struct {
	Cue          *string
	Title        *string
	Note         *string
	TimeStart    *int64
	TimeEnd      *int64
	Duration     *int64
	TimeStrategy *TimeStrategy
	LinkStart    *bool
	Skip         *bool
	IsPublic     *bool
	TimerType    *TimerType
	EndAction    *EndAction
	TimeWarning  *int64
	TimeDanger   *int64
	Custom       map[string]string
}

// AffectsSchedule reports whether applying the patch can change derived
// metadata (totals, gaps, orders).
func (p EventPatch) AffectsSchedule() bool {
	return p.TimeStart != nil || p.TimeEnd != nil || p.Duration != nil ||
		p.TimeStrategy != nil || p.LinkStart != nil || p.Skip != nil ||
		p.IsPublic != nil || p.Custom != nil
}

// PatchEvent applies p to the event id, keeping start, end and duration
// consistent according to the event's time strategy. The event's revision is
// incremented.
func PatchEvent(r *Rundown, id string, p EventPatch) error {
	ev := r.Event(id)
	if ev == nil {
		return fmt.Errorf("patch: event %q not found", id)
	}
	if p.Cue != nil {
		ev.Cue = *p.Cue
	}
	if p.Title != nil {
		ev.Title = *p.Title
	}
	if p.Note != nil {
		ev.Note = *p.Note
	}
	if p.TimeStrategy != nil {
		ev.TimeStrategy = *p.TimeStrategy
	}
	if p.LinkStart != nil {
		ev.LinkStart = *p.LinkStart
	}
	if p.Skip != nil {
		ev.Skip = *p.Skip
	}
	if p.IsPublic != nil {
		ev.IsPublic = *p.IsPublic
	}
	if p.TimerType != nil {
		ev.TimerType = *p.TimerType
	}
	if p.EndAction != nil {
		ev.EndAction = *p.EndAction
	}
	if p.TimeWarning != nil {
		ev.TimeWarning = *p.TimeWarning
	}
	if p.TimeDanger != nil {
		ev.TimeDanger = *p.TimeDanger
	}
	if p.Custom != nil {
		merged := make(map[string]string, len(ev.Custom)+len(p.Custom))
		for k, v := range ev.Custom {
			merged[k] = v
		}
		for k, v := range p.Custom {
			if v == "" {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		ev.Custom = merged
	}

	for _, v := range []*int64{p.TimeStart, p.TimeEnd, p.Duration} {
		if v != nil && (*v < 0 || *v > DayMs) {
			return fmt.Errorf("patch %q: time value %d out of range", id, *v)
		}
	}
	switch {
	case p.TimeStart != nil:
		ev.TimeStart = *p.TimeStart
		if p.TimeEnd != nil {
			ev.TimeEnd = *p.TimeEnd
			ev.Duration = SpanBetween(ev.TimeStart, ev.TimeEnd)
		} else if p.Duration != nil {
			ev.Duration = *p.Duration
			ev.TimeEnd = EndFrom(ev.TimeStart, ev.Duration)
		} else {
			ResolveTimes(ev)
		}
	case p.TimeEnd != nil:
		ev.TimeEnd = *p.TimeEnd
		ev.Duration = SpanBetween(ev.TimeStart, ev.TimeEnd)
	case p.Duration != nil:
		ev.Duration = *p.Duration
		ev.TimeEnd = EndFrom(ev.TimeStart, ev.Duration)
	}
	ev.Revision++
	return nil
}

// ResolveTimes recomputes the dependent value after TimeStart moved:
// lock-duration moves the end, lock-end recomputes the duration.
func ResolveTimes(ev *Event) {
	switch ev.TimeStrategy {
	case LockEnd:
		ev.Duration = SpanBetween(ev.TimeStart, ev.TimeEnd)
	default:
		ev.TimeEnd = EndFrom(ev.TimeStart, ev.Duration)
	}
}

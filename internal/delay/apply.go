// Package delay folds a delay entry into the schedule that follows it.
//
// Apply shifts the events after a delay by its signed duration, lets gaps in
// the schedule absorb positive delays, unlinks events whose visible gap to
// their predecessor would change, and finally removes the delay entry. It
// mutates the rundown it is given, so callers hand it a transaction's copy.
package delay

import (
	"fmt"
	"slices"

	"github.com/roach88/cueline/internal/rundown"
)

// Apply applies the delay entry delayID to the entries that follow it and
// removes the delay from r. A missing id or a zero duration only removes the
// entry. Apply never fails.
func Apply(delayID string, r *rundown.Rundown) {
	d, ok := r.Entries[delayID].(*rundown.Delay)
	if !ok {
		if removeFromLists(r, delayID) {
			r.FlatOrder = r.BuildFlatOrder()
			r.Revision++
		}
		return
	}

	list := r.Order
	if d.ParentID != "" {
		if g := r.Group(d.ParentID); g != nil {
			list = g.Entries
		}
	}
	if at := slices.Index(list, delayID); at >= 0 && d.Duration != 0 {
		w := walker{r: r, inGroup: d.ParentID != ""}
		w.walk(list[at+1:], d.Duration)
	}

	removeFromLists(r, delayID)
	delete(r.Entries, delayID)
	r.FlatOrder = r.BuildFlatOrder()
	r.Revision++
}

// walker carries the propagation state along one list of entries.
type walker struct {
	r       *rundown.Rundown
	inGroup bool
}

// walk shifts the events in ids by delay. prevShift is the shift applied to
// the previous event; the event before the delay never moves.
func (w walker) walk(ids []string, delay int64) {
	var prevShift int64
	for i, id := range ids {
		if delay == 0 {
			return
		}
		switch e := w.r.Entries[id].(type) {
		case *rundown.Event:
			if delay > 0 && e.Gap > 0 {
				delay -= min(delay, e.Gap)
			}
			shift := shiftEvent(e, delay)
			mutated := shift != 0
			if e.LinkStart && shift != prevShift {
				e.LinkStart = false
				mutated = true
			}
			if mutated {
				e.Revision++
			}
			prevShift = shift
		case *rundown.Group:
			// Groups only appear at the top level. A group directly after the
			// delay takes it into its members; any other group ends the walk.
			if i == 0 && !w.inGroup {
				inner := walker{r: w.r, inGroup: true}
				inner.walk(e.Entries, delay)
			}
			return
		case *rundown.Delay, *rundown.Milestone:
		case nil:
			// Dangling id; the metadata pass drops it.
		default:
			panic(fmt.Sprintf("delay: unknown entry type %T", e))
		}
	}
}

// shiftEvent moves ev by delay and returns how far its start actually moved.
// Negative delays clamp the start at midnight and never let the end fall
// below the event's own duration.
func shiftEvent(ev *rundown.Event, delay int64) int64 {
	if delay == 0 {
		return 0
	}
	start := max(ev.TimeStart+delay, 0)
	end := max(ev.TimeEnd+delay, start+ev.Duration)
	if start >= rundown.DayMs {
		start %= rundown.DayMs
	}
	if end > rundown.DayMs {
		end %= rundown.DayMs
	}
	shift := start - ev.TimeStart
	ev.TimeStart = start
	ev.TimeEnd = end
	ev.Duration = rundown.SpanBetween(start, end)
	return shift
}

// removeFromLists drops id from the top-level order and from every group.
// It reports whether anything was removed.
func removeFromLists(r *rundown.Rundown, id string) bool {
	removed := false
	drop := func(list []string) []string {
		if !slices.Contains(list, id) {
			return list
		}
		removed = true
		return slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == id })
	}
	r.Order = drop(r.Order)
	for _, e := range r.Entries {
		if g, ok := e.(*rundown.Group); ok {
			g.Entries = drop(g.Entries)
		}
	}
	if _, ok := r.Entries[id]; ok {
		removed = true
	}
	return removed
}

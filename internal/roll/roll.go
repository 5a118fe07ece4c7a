// Package roll works out which event is live from the wall clock alone.
//
// In roll mode nobody presses start: the event whose scheduled window
// contains the current time is "now", and the following one is "next".
// Windows that cross midnight are handled by normalising their end into the
// following day.
package roll

import (
	"github.com/roach88/cueline/internal/rundown"
)

// None marks an index that does not resolve to an event.
const None = -1

// Timers is the result of a roll scan. Indexes refer to the slice passed to
// GetRollTimers; events are copies.
type Timers struct {
	NowIndex        int
	NowID           string
	PublicIndex     int
	NextIndex       int
	PublicNextIndex int

	// TimeToNext is the time until NextEvent starts. It is negative when the
	// next event overlaps the current one and has already begun. Nil when
	// there is no next event.
	TimeToNext *int64

	CurrentEvent       *rundown.Event
	CurrentPublicEvent *rundown.Event
	NextEvent          *rundown.Event
	NextPublicEvent    *rundown.Event
}

// GetRollTimers scans events, which must be playable and sorted by schedule,
// for the event live at now (milliseconds from midnight) and the one after it.
//
// When several windows contain now, the event that started most recently
// wins; identical starts keep the earlier event. With no live event, next is
// the first event starting after now, or the first event of the following day
// once now is past the whole list.
func GetRollTimers(events []rundown.Event, now int64) Timers {
	t := Timers{
		NowIndex:        None,
		PublicIndex:     None,
		NextIndex:       None,
		PublicNextIndex: None,
	}

	all := scan(events, now, func(*rundown.Event) bool { return true })
	public := scan(events, now, func(ev *rundown.Event) bool { return ev.IsPublic })

	t.NowIndex = all.current
	t.NextIndex = all.next
	t.PublicIndex = public.current
	t.PublicNextIndex = public.next
	if all.next != None {
		ttn := all.toNext
		t.TimeToNext = &ttn
	}

	t.CurrentEvent = at(events, all.current)
	t.NextEvent = at(events, all.next)
	t.CurrentPublicEvent = at(events, public.current)
	t.NextPublicEvent = at(events, public.next)
	if t.CurrentEvent != nil {
		t.NowID = t.CurrentEvent.ID
	}
	return t
}

type result struct {
	current int
	next    int
	toNext  int64
}

func scan(events []rundown.Event, now int64, keep func(*rundown.Event) bool) result {
	res := result{current: None, next: None}

	var bestStart int64
	for i := range events {
		ev := &events[i]
		if !keep(ev) {
			continue
		}
		start, live := window(ev, now)
		if !live {
			continue
		}
		if res.current == None || start > bestStart {
			res.current = i
			bestStart = start
		}
	}

	if res.current != None {
		for i := res.current + 1; i < len(events); i++ {
			if keep(&events[i]) {
				res.next = i
				res.toNext = events[i].TimeStart - now
				return res
			}
		}
		return res
	}

	for i := range events {
		if keep(&events[i]) && events[i].TimeStart > now {
			res.next = i
			res.toNext = events[i].TimeStart - now
			return res
		}
	}
	for i := range events {
		if keep(&events[i]) {
			res.next = i
			res.toNext = rundown.DayMs - now + events[i].TimeStart
			return res
		}
	}
	return res
}

// window reports whether now falls in the event's [start, normalisedEnd)
// window and returns the start it was matched against. An event that began
// yesterday and runs past midnight matches with a start of TimeStart-DayMs.
func window(ev *rundown.Event, now int64) (int64, bool) {
	end := ev.NormalizedEnd()
	if ev.TimeStart <= now && now < end {
		return ev.TimeStart, true
	}
	if end > rundown.DayMs && now < end-rundown.DayMs {
		return ev.TimeStart - rundown.DayMs, true
	}
	return 0, false
}

func at(events []rundown.Event, i int) *rundown.Event {
	if i == None {
		return nil
	}
	ev := events[i]
	return &ev
}

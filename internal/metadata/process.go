package metadata

import (
	"fmt"
	"slices"

	"github.com/roach88/cueline/internal/rundown"
)

// Metadata is derived from a rundown; it is never edited by hand.
type Metadata struct {
	TotalDelay           int64               `json:"totalDelay"`
	TotalDuration        int64               `json:"totalDuration"`
	TotalDays            int64               `json:"totalDays"`
	FirstStart           *int64              `json:"firstStart"`
	LastEnd              *int64              `json:"lastEnd"`
	PlayableEventOrder   []string            `json:"playableEventOrder"`
	TimedEventOrder      []string            `json:"timedEventOrder"`
	FlatEntryOrder       []string            `json:"flatEntryOrder"`
	AssignedCustomFields map[string][]string `json:"assignedCustomFields"`
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	c := m
	if m.FirstStart != nil {
		v := *m.FirstStart
		c.FirstStart = &v
	}
	if m.LastEnd != nil {
		v := *m.LastEnd
		c.LastEnd = &v
	}
	c.PlayableEventOrder = slices.Clone(m.PlayableEventOrder)
	c.TimedEventOrder = slices.Clone(m.TimedEventOrder)
	c.FlatEntryOrder = slices.Clone(m.FlatEntryOrder)
	c.AssignedCustomFields = make(map[string][]string, len(m.AssignedCustomFields))
	for k, v := range m.AssignedCustomFields {
		c.AssignedCustomFields[k] = slices.Clone(v)
	}
	return c
}

// Result is the output of Process: normalised entries and orders plus the
// derived metadata.
type Result struct {
	Entries   map[string]rundown.Entry
	Order     []string
	FlatOrder []string
	Metadata  Metadata
}

// processor carries the walk state of a single Process call.
type processor struct {
	entries   map[string]rundown.Entry
	changelog rundown.Changelog

	prev *rundown.Event // previous playable event with a schedule
	days int64

	md Metadata
}

// Process walks r and derives its metadata. r is cloned first; the caller's
// rundown is left untouched.
func Process(r rundown.Rundown, defs rundown.CustomFields, changelog rundown.Changelog) Result {
	work := r.Clone()
	p := &processor{
		entries:   work.Entries,
		changelog: changelog,
		md: Metadata{
			PlayableEventOrder:   []string{},
			TimedEventOrder:      []string{},
			AssignedCustomFields: map[string][]string{},
		},
	}

	order := p.normaliseList(work.Order, false)
	work.Order = order

	var delay int64
	for _, id := range order {
		switch e := p.entries[id].(type) {
		case *rundown.Event:
			p.event(e, delay)
		case *rundown.Delay:
			delay += e.Duration
		case *rundown.Milestone:
			p.custom(e)
		case *rundown.Group:
			delay = 0
			p.group(e)
		default:
			panic(fmt.Sprintf("metadata: unknown entry type %T", e))
		}
	}

	work.FlatOrder = work.BuildFlatOrder()
	p.md.FlatEntryOrder = slices.Clone(work.FlatOrder)
	p.totals()
	for key := range defs {
		if _, used := p.md.AssignedCustomFields[key]; !used {
			p.md.AssignedCustomFields[key] = []string{}
		}
	}

	return Result{
		Entries:   work.Entries,
		Order:     work.Order,
		FlatOrder: work.FlatOrder,
		Metadata:  p.md,
	}
}

// normaliseList drops ids that do not resolve and repeated ids. Inside a
// group, nested groups are dropped as well.
func (p *processor) normaliseList(list []string, inGroup bool) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, id := range list {
		e, ok := p.entries[id]
		if !ok || seen[id] {
			continue
		}
		if inGroup && e.Type() == rundown.TypeGroup {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// group processes the members of g with a delay accumulator scoped to the
// group, then rolls up the group's schedule.
func (p *processor) group(g *rundown.Group) {
	p.custom(g)
	g.Entries = p.normaliseList(g.Entries, true)

	var delay int64
	var first, last *rundown.Event
	var duration int64
	for _, id := range g.Entries {
		switch e := p.entries[id].(type) {
		case *rundown.Event:
			p.event(e, delay)
			if !e.IsPlayable() || !e.HasSchedule() {
				continue
			}
			if first == nil {
				first = e
			}
			last = e
			duration += e.Duration
		case *rundown.Delay:
			delay += e.Duration
		case *rundown.Milestone:
			p.custom(e)
		case *rundown.Group:
			// Dropped by normaliseList.
		default:
			panic(fmt.Sprintf("metadata: unknown entry type %T", e))
		}
	}

	g.Duration = duration
	g.TimeStart, g.TimeEnd, g.IsFirstLinked = nil, nil, false
	if first != nil {
		start := first.TimeStart
		end := last.TimeEnd
		g.TimeStart = &start
		g.TimeEnd = &end
		g.IsFirstLinked = first.LinkStart
	}
}

// event resolves links, day offset and gap for a single event.
func (p *processor) event(ev *rundown.Event, delay int64) {
	p.custom(ev)
	ev.Delay = delay
	ev.Gap = 0

	if !ev.HasSchedule() {
		ev.DayOffset = p.days
		return
	}
	p.md.TimedEventOrder = append(p.md.TimedEventOrder, ev.ID)

	if !ev.IsPlayable() {
		ev.DayOffset = p.days
		return
	}

	if p.prev != nil {
		if ev.LinkStart {
			ev.TimeStart = p.prev.TimeEnd % rundown.DayMs
			rundown.ResolveTimes(ev)
		}
		var crossed int64
		if crossesMidnight(p.prev, ev) {
			crossed = 1
		}
		p.days += crossed
		prevEnd := p.prev.TimeStart + p.prev.Duration
		ev.Gap = ev.TimeStart + crossed*rundown.DayMs - prevEnd
	}
	ev.DayOffset = p.days
	p.prev = ev
	p.md.PlayableEventOrder = append(p.md.PlayableEventOrder, ev.ID)
}

// crossesMidnight reports whether next starts on the day after prev: it
// starts earlier in the day than prev, prev has a duration, and next does
// not start strictly after prev.
func crossesMidnight(prev, next *rundown.Event) bool {
	return prev.Duration > 0 && next.TimeStart < prev.TimeStart
}

// custom re-keys renamed custom fields and records their usage.
func (p *processor) custom(e rundown.Entry) {
	values := rundown.CustomOf(e)
	if len(values) == 0 {
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var rekeyed map[string]string
	for _, key := range keys {
		target, renamed := p.changelog.Resolve(key)
		if target == key {
			renamed = false
		}
		if renamed && rekeyed == nil {
			rekeyed = make(map[string]string, len(values))
			for k, v := range values {
				rekeyed[k] = v
			}
		}
		if renamed {
			delete(rekeyed, key)
			if _, clash := values[target]; !clash {
				rekeyed[target] = values[key]
			}
		}
		p.md.AssignedCustomFields[target] = appendUnique(p.md.AssignedCustomFields[target], e.EntryID())
	}
	if rekeyed != nil {
		rundown.SetCustom(e, rekeyed)
	}
}

func appendUnique(list []string, id string) []string {
	if len(list) > 0 && list[len(list)-1] == id {
		return list
	}
	return append(list, id)
}

// totals fills the aggregate fields from the playable events.
func (p *processor) totals() {
	order := p.md.PlayableEventOrder
	if len(order) == 0 {
		return
	}
	first := p.entries[order[0]].(*rundown.Event)
	last := p.entries[order[len(order)-1]].(*rundown.Event)

	start := first.TimeStart
	end := last.TimeEnd
	p.md.FirstStart = &start
	p.md.LastEnd = &end
	p.md.TotalDays = last.DayOffset
	p.md.TotalDelay = last.Delay
	p.md.TotalDuration = last.TimeStart + last.DayOffset*rundown.DayMs + last.Duration - first.TimeStart
}

package rundown

import (
	"fmt"
	"slices"
)

// Rundown is the authoritative, ordered tree of entries.
type Rundown struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Revision  int64            `json:"revision"`
	Order     []string         `json:"order"`
	FlatOrder []string         `json:"flatOrder"`
	Entries   map[string]Entry `json:"entries"`
}

// New creates an empty rundown.
func New(id, title string) Rundown {
	return Rundown{
		ID:        id,
		Title:     title,
		Order:     []string{},
		FlatOrder: []string{},
		Entries:   map[string]Entry{},
	}
}

// Clone returns a deep copy. Mutating the copy never affects r.
func (r Rundown) Clone() Rundown {
	c := Rundown{
		ID:        r.ID,
		Title:     r.Title,
		Revision:  r.Revision,
		Order:     slices.Clone(r.Order),
		FlatOrder: slices.Clone(r.FlatOrder),
		Entries:   make(map[string]Entry, len(r.Entries)),
	}
	if c.Order == nil {
		c.Order = []string{}
	}
	if c.FlatOrder == nil {
		c.FlatOrder = []string{}
	}
	for id, e := range r.Entries {
		c.Entries[id] = Clone(e)
	}
	return c
}

// Event returns the event with the given id, or nil.
func (r Rundown) Event(id string) *Event {
	if ev, ok := r.Entries[id].(*Event); ok {
		return ev
	}
	return nil
}

// Group returns the group with the given id, or nil.
func (r Rundown) Group(id string) *Group {
	if g, ok := r.Entries[id].(*Group); ok {
		return g
	}
	return nil
}

// BuildFlatOrder expands Order depth-first, including group members.
// Ids that do not resolve to an entry are skipped.
func (r Rundown) BuildFlatOrder() []string {
	flat := make([]string, 0, len(r.Entries))
	for _, id := range r.Order {
		e, ok := r.Entries[id]
		if !ok {
			continue
		}
		flat = append(flat, id)
		if g, isGroup := e.(*Group); isGroup {
			for _, member := range g.Entries {
				if _, exists := r.Entries[member]; exists {
					flat = append(flat, member)
				}
			}
		}
	}
	return flat
}

// Verify checks the structural invariants of the rundown: every ordered id
// resolves, FlatOrder matches Order, and group membership is mirrored by
// parent pointers.
func (r Rundown) Verify() error {
	seen := make(map[string]bool, len(r.Entries))
	for _, id := range r.Order {
		e, ok := r.Entries[id]
		if !ok {
			return fmt.Errorf("order references missing entry %q", id)
		}
		if seen[id] {
			return fmt.Errorf("order lists entry %q twice", id)
		}
		seen[id] = true
		if ParentOf(e) != "" {
			return fmt.Errorf("top-level entry %q claims parent %q", id, ParentOf(e))
		}
		g, isGroup := e.(*Group)
		if !isGroup {
			continue
		}
		for _, member := range g.Entries {
			me, ok := r.Entries[member]
			if !ok {
				return fmt.Errorf("group %q references missing entry %q", id, member)
			}
			if _, nested := me.(*Group); nested {
				return fmt.Errorf("group %q contains group %q", id, member)
			}
			if ParentOf(me) != id {
				return fmt.Errorf("entry %q listed in group %q has parent %q", member, id, ParentOf(me))
			}
			seen[member] = true
		}
	}
	if !slices.Equal(r.FlatOrder, r.BuildFlatOrder()) {
		return fmt.Errorf("flat order out of sync with order")
	}
	return nil
}

// IndexOf returns the position of id in FlatOrder, or -1.
func (r Rundown) IndexOf(id string) int {
	return slices.Index(r.FlatOrder, id)
}

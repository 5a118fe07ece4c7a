package rundown

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Default thresholds applied to events that do not declare their own.
const (
	DefaultTimeWarning int64 = 120_000
	DefaultTimeDanger  int64 = 60_000
)

// ParseError describes an entry dropped while parsing a rundown document.
type ParseError struct {
	EntryID string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.EntryID == "" {
		return "rundown: " + e.Reason
	}
	return fmt.Sprintf("rundown: entry %q: %s", e.EntryID, e.Reason)
}

// Document is the on-disk shape of a rundown. Entries may be a mapping of
// id to entry or a sequence of entries carrying their own id.
type Document struct {
	ID           string       `yaml:"id"`
	Title        string       `yaml:"title"`
	Revision     int64        `yaml:"revision"`
	Order        []string     `yaml:"order"`
	Entries      yaml.Node    `yaml:"entries"`
	CustomFields CustomFields `yaml:"customFields"`
}

// rawEntry is an entry lifted out of the document before validation.
type rawEntry struct {
	id     string
	fields map[string]any
}

// clockFields accept "HH:MM:SS" strings in documents.
var clockFields = []string{"timeStart", "timeEnd", "duration", "timeWarning", "timeDanger"}

// Parse builds a rundown from a YAML or JSON document. Entries that fail
// validation are dropped and reported through emit; the rundown itself is
// never rejected once the document decodes. emit may be nil.
func Parse(data []byte, emit func(error)) (Rundown, CustomFields, error) {
	if emit == nil {
		emit = func(error) {}
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Rundown{}, nil, fmt.Errorf("parse rundown document: %w", err)
	}
	r := ParseDocument(&doc, emit)
	return r, doc.CustomFields.Clone(), nil
}

// ParseDocument validates an already-decoded document.
func ParseDocument(doc *Document, emit func(error)) Rundown {
	r := New(doc.ID, doc.Title)
	r.Revision = doc.Revision

	// Entries reported here are not reported again when order names them.
	dropped := map[string]bool{}
	drop := func(err error) {
		var pe *ParseError
		if errors.As(err, &pe) && pe.EntryID != "" {
			dropped[pe.EntryID] = true
		}
		emit(err)
	}

	raws, docOrder := collectEntries(&doc.Entries, drop)

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a build defect.
		panic(fmt.Sprintf("rundown: compile schema: %v", err))
	}

	for _, raw := range raws {
		e, err := validateEntry(ctx, schema, raw)
		if err != nil {
			drop(&ParseError{EntryID: raw.id, Reason: err.Error()})
			continue
		}
		r.Entries[raw.id] = e
	}

	order := doc.Order
	if order == nil {
		order = docOrder
	}
	resolveStructure(&r, order, dropped, emit)
	r.FlatOrder = r.BuildFlatOrder()
	return r
}

// collectEntries extracts raw entries in document order, dropping duplicates,
// empty shapes and entries without an id.
func collectEntries(node *yaml.Node, emit func(error)) ([]rawEntry, []string) {
	var raws []rawEntry
	var order []string
	seen := map[string]bool{}

	add := func(id string, value *yaml.Node) {
		if id == "" {
			emit(&ParseError{Reason: "entry without id"})
			return
		}
		if seen[id] {
			emit(&ParseError{EntryID: id, Reason: "duplicate id"})
			return
		}
		if value == nil || value.Kind != yaml.MappingNode || len(value.Content) == 0 {
			emit(&ParseError{EntryID: id, Reason: "empty entry"})
			return
		}
		var fields map[string]any
		if err := value.Decode(&fields); err != nil {
			emit(&ParseError{EntryID: id, Reason: err.Error()})
			return
		}
		seen[id] = true
		fields["id"] = id
		raws = append(raws, rawEntry{id: id, fields: fields})
		order = append(order, id)
	}

	switch node.Kind {
	case 0:
		// No entries key.
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			add(node.Content[i].Value, node.Content[i+1])
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			add(mappingValue(item, "id"), item)
		}
	default:
		emit(&ParseError{Reason: "entries must be a mapping or a sequence"})
	}
	return raws, order
}

// mappingValue returns the scalar value of key in a mapping node.
func mappingValue(n *yaml.Node, key string) string {
	if n.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key && n.Content[i+1].Kind == yaml.ScalarNode {
			return n.Content[i+1].Value
		}
	}
	return ""
}

// validateEntry checks a raw entry against its CUE definition and decodes it.
func validateEntry(ctx *cue.Context, schema cue.Value, raw rawEntry) (Entry, error) {
	kind, _ := raw.fields["type"].(string)
	var def string
	var e Entry
	switch EntryType(kind) {
	case TypeEvent:
		def, e = "#Event", &Event{}
	case TypeGroup:
		def, e = "#Group", &Group{}
	case TypeDelay:
		def, e = "#Delay", &Delay{}
	case TypeMilestone:
		def, e = "#Milestone", &Milestone{}
	case "":
		return nil, fmt.Errorf("missing type")
	default:
		return nil, fmt.Errorf("unknown type %q", kind)
	}
	if len(raw.fields) <= 2 && EntryType(kind) != TypeDelay && EntryType(kind) != TypeGroup {
		return nil, fmt.Errorf("empty %s", kind)
	}

	for _, f := range clockFields {
		if s, ok := raw.fields[f].(string); ok {
			ms, err := ParseClock(s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
			raw.fields[f] = ms
		}
	}

	value := schema.LookupPath(cue.ParsePath(def)).Unify(ctx.Encode(raw.fields))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if err := value.Decode(e); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if ev, ok := e.(*Event); ok {
		applyEventDefaults(ev, raw.fields)
	}
	return e, nil
}

// applyEventDefaults fills values left out of the document and completes the
// schedule triangle from whichever two of start, end and duration were given.
func applyEventDefaults(ev *Event, fields map[string]any) {
	if ev.TimeStrategy == "" {
		ev.TimeStrategy = LockDuration
	}
	if ev.TimerType == "" {
		ev.TimerType = TimerCountDown
	}
	if ev.EndAction == "" {
		ev.EndAction = EndNone
	}
	if _, ok := fields["timeWarning"]; !ok {
		ev.TimeWarning = DefaultTimeWarning
	}
	if _, ok := fields["timeDanger"]; !ok {
		ev.TimeDanger = DefaultTimeDanger
	}
	_, hasEnd := fields["timeEnd"]
	_, hasDuration := fields["duration"]
	switch {
	case hasEnd && !hasDuration:
		ev.Duration = SpanBetween(ev.TimeStart, ev.TimeEnd)
	case hasDuration && !hasEnd:
		ev.TimeEnd = EndFrom(ev.TimeStart, ev.Duration)
	}
}

// SpanBetween returns the duration from start to end, wrapping midnight.
func SpanBetween(start, end int64) int64 {
	if end >= start {
		return end - start
	}
	return end + DayMs - start
}

// EndFrom returns start+duration folded into a single day.
func EndFrom(start, duration int64) int64 {
	end := start + duration
	if end > DayMs {
		end %= DayMs
	}
	return end
}

// resolveStructure fixes order, group membership and parent pointers so the
// resulting rundown satisfies Verify. Ids in dropped were already reported.
func resolveStructure(r *Rundown, order []string, dropped map[string]bool, emit func(error)) {
	claimed := map[string]string{}
	for _, id := range order {
		g, ok := r.Entries[id].(*Group)
		if !ok {
			continue
		}
		members := make([]string, 0, len(g.Entries))
		for _, member := range g.Entries {
			me, exists := r.Entries[member]
			switch {
			case !exists:
				emit(&ParseError{EntryID: g.ID, Reason: fmt.Sprintf("member %q not found", member)})
			case claimed[member] != "":
				emit(&ParseError{EntryID: member, Reason: fmt.Sprintf("already in group %q", claimed[member])})
			case me.Type() == TypeGroup:
				emit(&ParseError{EntryID: member, Reason: "groups cannot be nested"})
			default:
				claimed[member] = g.ID
				members = append(members, member)
			}
		}
		g.Entries = members
	}

	top := make([]string, 0, len(order))
	inOrder := map[string]bool{}
	for _, id := range order {
		e, exists := r.Entries[id]
		switch {
		case !exists:
			if claimed[id] == "" && !dropped[id] {
				emit(&ParseError{EntryID: id, Reason: "listed in order but not defined"})
			}
		case claimed[id] != "":
			// Group members live in their group, not the top level.
		case inOrder[id]:
			emit(&ParseError{EntryID: id, Reason: "listed in order twice"})
		default:
			inOrder[id] = true
			top = append(top, id)
			setParent(e, "")
		}
	}
	for member, parent := range claimed {
		setParent(r.Entries[member], parent)
	}

	for _, id := range sortedKeys(r.Entries) {
		if !inOrder[id] && claimed[id] == "" {
			emit(&ParseError{EntryID: id, Reason: "not reachable from order"})
			delete(r.Entries, id)
		}
	}
	r.Order = top
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

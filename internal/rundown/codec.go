package rundown

import (
	"encoding/json"
	"fmt"
)

// typed wraps an entry with its discriminator for serialization.
type typed struct {
	Type EntryType `json:"type"`
}

// MarshalEntry encodes an entry as a JSON object carrying a "type" field.
func MarshalEntry(e Entry) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal entry %s: %w", e.EntryID(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal entry %s: %w", e.EntryID(), err)
	}
	tag, err := json.Marshal(e.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}

// UnmarshalEntry decodes an entry previously written by MarshalEntry.
func UnmarshalEntry(data []byte) (Entry, error) {
	var t typed
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	var e Entry
	switch t.Type {
	case TypeEvent:
		e = &Event{}
	case TypeGroup:
		e = &Group{}
	case TypeDelay:
		e = &Delay{}
	case TypeMilestone:
		e = &Milestone{}
	case "":
		return nil, fmt.Errorf("unmarshal entry: missing type")
	default:
		return nil, fmt.Errorf("unmarshal entry: unknown type %q", t.Type)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("unmarshal %s entry: %w", t.Type, err)
	}
	return e, nil
}

// rundownJSON is the wire shape of a Rundown.
type rundownJSON struct {
	ID        string                     `json:"id"`
	Title     string                     `json:"title"`
	Revision  int64                      `json:"revision"`
	Order     []string                   `json:"order"`
	FlatOrder []string                   `json:"flatOrder"`
	Entries   map[string]json.RawMessage `json:"entries"`
}

// MarshalJSON implements json.Marshaler.
func (r Rundown) MarshalJSON() ([]byte, error) {
	out := rundownJSON{
		ID:        r.ID,
		Title:     r.Title,
		Revision:  r.Revision,
		Order:     r.Order,
		FlatOrder: r.FlatOrder,
		Entries:   make(map[string]json.RawMessage, len(r.Entries)),
	}
	if out.Order == nil {
		out.Order = []string{}
	}
	if out.FlatOrder == nil {
		out.FlatOrder = []string{}
	}
	for id, e := range r.Entries {
		data, err := MarshalEntry(e)
		if err != nil {
			return nil, err
		}
		out.Entries[id] = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. It is strict: any entry that
// fails to decode fails the whole rundown. Use Parse for untrusted input.
func (r *Rundown) UnmarshalJSON(data []byte) error {
	var in rundownJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	entries := make(map[string]Entry, len(in.Entries))
	for id, raw := range in.Entries {
		e, err := UnmarshalEntry(raw)
		if err != nil {
			return fmt.Errorf("entry %q: %w", id, err)
		}
		entries[id] = e
	}
	*r = Rundown{
		ID:        in.ID,
		Title:     in.Title,
		Revision:  in.Revision,
		Order:     in.Order,
		FlatOrder: in.FlatOrder,
		Entries:   entries,
	}
	if r.Order == nil {
		r.Order = []string{}
	}
	if r.FlatOrder == nil {
		r.FlatOrder = []string{}
	}
	return nil
}

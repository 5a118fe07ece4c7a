package rundown

import (
	"fmt"
	"maps"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CustomFieldType is the kind of value a custom field holds.
type CustomFieldType string

const (
	FieldText  CustomFieldType = "text"
	FieldImage CustomFieldType = "image"
)

// CustomField describes one user-defined column.
type CustomField struct {
	Label  string          `json:"label" yaml:"label"`
	Type   CustomFieldType `json:"type" yaml:"type"`
	Colour string          `json:"colour" yaml:"colour"`
}

// CustomFields maps field keys to their definitions.
type CustomFields map[string]CustomField

// Clone returns a copy of the definitions.
func (c CustomFields) Clone() CustomFields {
	if c == nil {
		return CustomFields{}
	}
	return maps.Clone(c)
}

// Changelog records custom field renames as old key -> new key. It
// accumulates across edits so entries written before a rename are re-keyed
// the next time the metadata engine runs.
type Changelog map[string]string

// Clone returns a copy of the changelog.
func (c Changelog) Clone() Changelog {
	if c == nil {
		return Changelog{}
	}
	return maps.Clone(c)
}

// Record notes that from was renamed to to. Earlier renames that ended at
// from now end at to, and to stops being an old name, so the changelog
// never holds chains, cycles or self-renames.
func (c Changelog) Record(from, to string) {
	if from == to {
		return
	}
	delete(c, to)
	for old, current := range c {
		if current == from {
			c[old] = to
		}
	}
	c[from] = to
}

// Resolve follows renames from key to its current name. Cycles stop at the
// first repeated key. A key that resolves to itself is not renamed.
func (c Changelog) Resolve(key string) (string, bool) {
	current, renamed := c[key]
	if !renamed {
		return key, false
	}
	seen := map[string]bool{key: true}
	for {
		next, ok := c[current]
		if !ok || seen[current] {
			return current, current != key
		}
		seen[current] = true
		current = next
	}
}

// FieldKey derives a stable key from a label: NFC normalised, trimmed,
// whitespace collapsed to underscores.
func FieldKey(label string) (string, error) {
	label = strings.TrimSpace(norm.NFC.String(label))
	if label == "" {
		return "", fmt.Errorf("custom field label is empty")
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range label {
		switch {
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			return "", fmt.Errorf("custom field label %q contains %q", label, r)
		}
	}
	return b.String(), nil
}

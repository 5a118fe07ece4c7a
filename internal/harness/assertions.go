package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s event=%s playback=%s\n",
				ev.Seq, ev.At, ev.Type, ev.Command+ev.EndAction, ev.EventID, ev.Playback)
		}
	}
	return buf.String()
}

// matches reports whether ev is a command event for command, optionally
// with the given outcome.
func matches(ev TraceEvent, command, outcome string) bool {
	if ev.Type != TraceCommand || ev.Command != command {
		return false
	}
	return outcome == "" || ev.Outcome == outcome
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a.Command, a.Outcome) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a.Command, a.Outcome),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the commands appear in order, not
// necessarily adjacent.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	var seen []string
	for _, ev := range trace {
		if ev.Type != TraceCommand {
			continue
		}
		seen = append(seen, ev.Command)
		if next < len(a.Commands) && ev.Command == a.Commands[next] {
			next++
		}
	}
	if next == len(a.Commands) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Commands, " -> "),
		Actual:   strings.Join(seen, " -> "),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		switch {
		case a.Command != "":
			if matches(ev, a.Command, a.Outcome) {
				n++
			}
		case ev.Type == a.TraceType:
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	what := a.TraceType
	if a.Command != "" {
		what = describe(a.Command, a.Outcome)
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, what),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

func assertFinalState(state map[string]any, a Assertion) error {
	if path, ok := matchSubset(state, normalise(a.Expect), ""); !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%v", a.Expect),
			Actual:   "mismatch at " + path,
		}
	}
	return nil
}

func describe(command, outcome string) string {
	if outcome == "" {
		return command
	}
	return command + " (" + outcome + ")"
}

// normalise round-trips v through JSON so numbers compare as float64 and
// maps as map[string]any, matching snapshotMap.
func normalise(v map[string]any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// matchSubset reports whether actual contains expected. Maps match when
// every expected key matches; slices must have equal length. On mismatch
// the dotted path of the first difference is returned.
func matchSubset(actual, expected any, path string) (string, bool) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return orRoot(path), false
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			av, exists := act[k]
			if !exists && exp[k] != nil {
				return join(path, k), false
			}
			if p, ok := matchSubset(av, exp[k], join(path, k)); !ok {
				return p, false
			}
		}
		return "", true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return orRoot(path), false
		}
		for i := range exp {
			if p, ok := matchSubset(act[i], exp[i], fmt.Sprintf("%s[%d]", path, i)); !ok {
				return p, false
			}
		}
		return "", true
	default:
		if reflect.DeepEqual(actual, expected) {
			return "", true
		}
		return orRoot(path), false
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func orRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cueline/internal/engine"
	"github.com/roach88/cueline/internal/rundown"
)

// Scenario is one scripted show run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rundown is the path of the rundown document, relative to the
	// scenario file.
	Rundown string `yaml:"rundown"`

	// Start is the wall-clock time of day the run begins at.
	Start string `yaml:"start"`

	// Strict makes cache consistency faults fail the step.
	Strict bool `yaml:"strict,omitempty"`

	// Flow is the ordered list of steps.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`

	startMs int64
}

// FlowStep is either a command (Do) or a clock movement (Advance or Set).
type FlowStep struct {
	// Do is a console command line, see engine.ParseLine.
	Do string `yaml:"do,omitempty"`

	// Advance moves the clock forward by a duration such as "90s".
	Advance string `yaml:"advance,omitempty"`

	// Set jumps the clock to a time of day without ticking in between.
	Set string `yaml:"set,omitempty"`

	// Expect checks the step. Nil means the step must not be rejected
	// when it is a command.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	cmd     engine.Command
	advance int64
	set     int64
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Case is "ok" or a command error code.
	Case string `yaml:"case,omitempty"`

	// State is a subset of the snapshot expected after the step.
	State map[string]any `yaml:"state,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Command is matched against the command name of trace events.
	Command string `yaml:"command,omitempty"`

	// Outcome optionally narrows trace_contains and trace_count.
	Outcome string `yaml:"outcome,omitempty"`

	// TraceType selects events by type for trace_count.
	TraceType string `yaml:"trace_type,omitempty"`

	// Commands is the expected order for trace_order.
	Commands []string `yaml:"commands,omitempty"`

	// Count is the expected number of matches for trace_count.
	Count int `yaml:"count,omitempty"`

	// Expect is the subset of the final snapshot for final_state.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown keys,
// missing fields and unparsable steps are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Rundown != "" && !filepath.IsAbs(scenario.Rundown) {
		scenario.Rundown = filepath.Join(filepath.Dir(path), scenario.Rundown)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and pre-parses every step.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Rundown == "" {
		return fmt.Errorf("rundown is required")
	}
	if _, err := os.Stat(s.Rundown); err != nil {
		return fmt.Errorf("rundown file not found: %s", s.Rundown)
	}
	if s.Start == "" {
		return fmt.Errorf("start is required")
	}
	start, err := rundown.ParseClock(s.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	s.startMs = start
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i := range s.Flow {
		if err := validateStep(i, &s.Flow[i]); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *FlowStep) error {
	set := 0
	for _, v := range []string{step.Do, step.Advance, step.Set} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("flow[%d]: exactly one of do, advance, set is required", i)
	}

	var err error
	switch {
	case step.Do != "":
		step.cmd, err = engine.ParseLine(step.Do)
	case step.Advance != "":
		step.advance, err = rundown.ParseSpan(step.Advance)
		if err == nil && step.advance <= 0 {
			err = fmt.Errorf("advance must be positive")
		}
	case step.Set != "":
		step.set, err = rundown.ParseClock(step.Set)
	}
	if err != nil {
		return fmt.Errorf("flow[%d]: %w", i, err)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Command == "" && a.TraceType == "" {
			return fmt.Errorf("assertions[%d]: command or trace_type is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

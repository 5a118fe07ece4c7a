package harness

// Trace event types.
const (
	TraceCommand = "command"
	TraceAdvance = "advance"
	TraceSet     = "set"
	TraceTick    = "tick"
)

// TraceEvent records one step, or one tick that changed playback, with a
// summary of the state after it.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`

	// At is the wall clock after the event, as HH:MM:SS.
	At string `json:"at"`

	// Command is the command name for command events.
	Command string `json:"command,omitempty"`

	// Outcome is "ok" or the error code of a rejected command.
	Outcome string `json:"outcome,omitempty"`

	// Value is the id or key a command created.
	Value string `json:"value,omitempty"`

	// EndAction is set on tick events where an event finished.
	EndAction string `json:"end_action,omitempty"`

	EventID  string `json:"event_id,omitempty"`
	Playback string `json:"playback"`
	Phase    string `json:"phase"`
	Mode     string `json:"mode"`
	Current  *int64 `json:"current,omitempty"`
	Offset   int64  `json:"offset"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the JSON form of the final engine snapshot.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/cueline/internal/metadata"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/runtime"
)

// CommandKind names an engine command.
type CommandKind string

const (
	CmdLoad         CommandKind = "load"
	CmdLoadNext     CommandKind = "load-next"
	CmdLoadPrevious CommandKind = "load-previous"
	CmdReload       CommandKind = "reload"
	CmdStart        CommandKind = "start"
	CmdPause        CommandKind = "pause"
	CmdStop         CommandKind = "stop"
	CmdRoll         CommandKind = "roll"
	CmdAddTime      CommandKind = "addtime"

	CmdAddEntry      CommandKind = "add-entry"
	CmdEditEvent     CommandKind = "edit-event"
	CmdRemoveEntries CommandKind = "remove-entries"
	CmdReorder       CommandKind = "reorder"
	CmdApplyDelay    CommandKind = "apply-delay"

	CmdCreateField CommandKind = "create-field"
	CmdRenameField CommandKind = "rename-field"
	CmdDeleteField CommandKind = "delete-field"
)

// LoadBy selects how a load target is resolved.
type LoadBy string

const (
	ByIndex LoadBy = "index"
	ByID    LoadBy = "id"
	ByCue   LoadBy = "cue"
)

// Target names the event to load.
type Target struct {
	By    LoadBy
	Index int
	Value string
}

// ParseTarget parses "index 2", "id abc" or "cue 4A".
func ParseTarget(by, value string) (Target, error) {
	switch LoadBy(strings.ToLower(by)) {
	case ByIndex:
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err != nil {
			return Target{}, fmt.Errorf("load by index: %q is not a number", value)
		}
		return Target{By: ByIndex, Index: i}, nil
	case ByID:
		return Target{By: ByID, Value: value}, nil
	case ByCue:
		return Target{By: ByCue, Value: value}, nil
	default:
		return Target{}, fmt.Errorf("load by %q: want index, id or cue", by)
	}
}

// Command is one request to the engine. Only the fields its Kind reads are
// set.
type Command struct {
	Kind CommandKind

	// CmdLoad.
	Target Target

	// CmdAddTime.
	Delta int64

	// CmdRoll.
	CarryOverOffset bool

	// CmdAddEntry: Entry is inserted after After inside Parent.
	Entry  rundown.Entry
	After  string
	Parent string

	// CmdEditEvent, CmdReorder and CmdApplyDelay use ID; CmdRemoveEntries
	// uses IDs.
	ID    string
	IDs   []string
	Patch rundown.EventPatch

	// CmdCreateField uses Field; rename and delete use FieldKey, rename also
	// Label.
	Field    rundown.CustomField
	FieldKey string
	Label    string
}

// Result is the outcome of a command. Err is a *CommandError for rejected
// commands. Value carries the id or key a command created.
type Result struct {
	Err      error
	Value    string
	Snapshot Snapshot
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Snapshot is a read-only view of the engine published after every change.
// Its slices and maps are shared between readers and must not be modified.
type Snapshot struct {
	RundownID string            `json:"rundownId"`
	Revision  int64             `json:"revision"`
	State     runtime.State     `json:"state"`
	Metadata  metadata.Metadata `json:"metadata"`
}

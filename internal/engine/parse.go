package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cueline/internal/rundown"
)

// ErrEmptyLine is returned by ParseLine for blank input.
var ErrEmptyLine = errors.New("empty command line")

// lineAliases are the short spellings accepted by ParseLine.
var lineAliases = map[string]CommandKind{
	"next":     CmdLoadNext,
	"previous": CmdLoadPrevious,
	"prev":     CmdLoadPrevious,
	"delay":    CmdApplyDelay,
	"remove":   CmdRemoveEntries,
	"add":      CmdAddEntry,
	"edit":     CmdEditEvent,
	"move":     CmdReorder,
}

// ParseLine parses one text command, as typed on the run console or written
// in a scenario:
//
//	load id|cue|index <value>
//	next | previous | reload | start | pause | stop
//	roll [carry]
//	addtime <span>
//	add event|delay|group|milestone [after=ID] [parent=ID] key=value...
//	edit <id> key=value...
//	remove <id>...
//	move <id> [after]
//	delay <id>
//	create-field <label> [text|image]
//	rename-field <key> <label>
//	delete-field <key>
//
// Values containing spaces are written in double quotes.
func ParseLine(line string) (Command, error) {
	words, err := splitLine(line)
	if err != nil {
		return Command{}, err
	}
	if len(words) == 0 {
		return Command{}, ErrEmptyLine
	}
	name := strings.ToLower(words[0])
	kind, ok := lineAliases[name]
	if !ok {
		kind = CommandKind(name)
	}
	args := words[1:]
	cmd := Command{Kind: kind}

	switch kind {
	case CmdLoadNext, CmdLoadPrevious, CmdReload, CmdStart, CmdPause, CmdStop:
		return cmd, wantArgs(kind, args, 0, 0)

	case CmdLoad:
		if err := wantArgs(kind, args, 2, 2); err != nil {
			return cmd, err
		}
		cmd.Target, err = ParseTarget(args[0], args[1])
		return cmd, err

	case CmdRoll:
		if err := wantArgs(kind, args, 0, 1); err != nil {
			return cmd, err
		}
		if len(args) == 1 {
			if args[0] != "carry" {
				return cmd, fmt.Errorf("roll: unknown option %q", args[0])
			}
			cmd.CarryOverOffset = true
		}
		return cmd, nil

	case CmdAddTime:
		if err := wantArgs(kind, args, 1, 1); err != nil {
			return cmd, err
		}
		cmd.Delta, err = rundown.ParseSpan(args[0])
		return cmd, err

	case CmdApplyDelay:
		if err := wantArgs(kind, args, 1, 1); err != nil {
			return cmd, err
		}
		cmd.ID = args[0]
		return cmd, nil

	case CmdDeleteField:
		if err := wantArgs(kind, args, 1, 1); err != nil {
			return cmd, err
		}
		cmd.FieldKey = args[0]
		return cmd, nil

	case CmdRemoveEntries:
		if len(args) == 0 {
			return cmd, fmt.Errorf("%s: want at least one id", kind)
		}
		cmd.IDs = args
		return cmd, nil

	case CmdReorder:
		if err := wantArgs(kind, args, 1, 2); err != nil {
			return cmd, err
		}
		cmd.ID = args[0]
		if len(args) == 2 {
			cmd.After = args[1]
		}
		return cmd, nil

	case CmdEditEvent:
		if len(args) < 2 {
			return cmd, fmt.Errorf("%s: want an id and at least one key=value", kind)
		}
		cmd.ID = args[0]
		cmd.Patch, err = parsePatch(args[1:])
		return cmd, err

	case CmdAddEntry:
		if len(args) == 0 {
			return cmd, fmt.Errorf("%s: want an entry type", kind)
		}
		return parseAddEntry(cmd, rundown.EntryType(args[0]), args[1:])

	case CmdCreateField:
		if err := wantArgs(kind, args, 1, 2); err != nil {
			return cmd, err
		}
		cmd.Field = rundown.CustomField{Label: args[0], Type: rundown.FieldText}
		if len(args) == 2 {
			cmd.Field.Type = rundown.CustomFieldType(args[1])
		}
		return cmd, nil

	case CmdRenameField:
		if err := wantArgs(kind, args, 2, 2); err != nil {
			return cmd, err
		}
		cmd.FieldKey, cmd.Label = args[0], args[1]
		return cmd, nil
	}
	return cmd, fmt.Errorf("unknown command %q", words[0])
}

func wantArgs(kind CommandKind, args []string, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%s: want %d argument(s), got %d", kind, lo, len(args))
		}
		return fmt.Errorf("%s: want %d to %d arguments, got %d", kind, lo, hi, len(args))
	}
	return nil
}

// splitLine splits on spaces, keeping double-quoted runs together.
func splitLine(line string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord, quoted := false, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t'):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}

func keyValues(args []string) (map[string]string, error) {
	kv := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		kv[k] = v
	}
	return kv, nil
}

func parsePatch(args []string) (rundown.EventPatch, error) {
	var p rundown.EventPatch
	kv, err := keyValues(args)
	if err != nil {
		return p, err
	}
	for k, v := range kv {
		switch k {
		case "cue":
			p.Cue = &v
		case "title":
			p.Title = &v
		case "note":
			p.Note = &v
		case "start":
			p.TimeStart, err = clockPtr(v)
		case "end":
			p.TimeEnd, err = clockPtr(v)
		case "duration":
			p.Duration, err = spanPtr(v)
		case "warning":
			p.TimeWarning, err = spanPtr(v)
		case "danger":
			p.TimeDanger, err = spanPtr(v)
		case "strategy":
			s := rundown.TimeStrategy(v)
			p.TimeStrategy = &s
		case "link":
			p.LinkStart, err = boolPtr(v)
		case "skip":
			p.Skip, err = boolPtr(v)
		case "public":
			p.IsPublic, err = boolPtr(v)
		case "timer":
			t := rundown.TimerType(v)
			p.TimerType = &t
		case "endAction":
			a := rundown.EndAction(v)
			p.EndAction = &a
		default:
			if field, ok := strings.CutPrefix(k, "custom."); ok {
				if p.Custom == nil {
					p.Custom = map[string]string{}
				}
				p.Custom[field] = v
				continue
			}
			return p, fmt.Errorf("edit: unknown field %q", k)
		}
		if err != nil {
			return p, fmt.Errorf("edit %s: %w", k, err)
		}
	}
	return p, nil
}

func parseAddEntry(cmd Command, typ rundown.EntryType, args []string) (Command, error) {
	kv, err := keyValues(args)
	if err != nil {
		return cmd, err
	}
	cmd.After, cmd.Parent = kv["after"], kv["parent"]
	delete(kv, "after")
	delete(kv, "parent")
	id := kv["id"]
	delete(kv, "id")

	switch typ {
	case rundown.TypeEvent:
		ev := &rundown.Event{ID: id}
		p, err := parsePatch(flatten(kv))
		if err != nil {
			return cmd, err
		}
		applyPatch(ev, p)
		cmd.Entry = ev
	case rundown.TypeDelay:
		d := &rundown.Delay{ID: id}
		if v, ok := kv["duration"]; ok {
			if d.Duration, err = rundown.ParseSpan(v); err != nil {
				return cmd, err
			}
		}
		cmd.Entry = d
	case rundown.TypeGroup:
		cmd.Entry = &rundown.Group{ID: id, Title: kv["title"], Note: kv["note"]}
	case rundown.TypeMilestone:
		cmd.Entry = &rundown.Milestone{ID: id, Cue: kv["cue"], Title: kv["title"], Note: kv["note"]}
	default:
		return cmd, fmt.Errorf("add: unknown entry type %q", typ)
	}
	return cmd, nil
}

func flatten(kv map[string]string) []string {
	out := make([]string, 0, len(kv))
	for k, v := range kv {
		out = append(out, k+"="+v)
	}
	return out
}

// applyPatch copies the set fields of p onto a fresh event. Times are
// reconciled later by rundown.ResolveTimes.
func applyPatch(ev *rundown.Event, p rundown.EventPatch) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&ev.Cue, p.Cue)
	set(&ev.Title, p.Title)
	set(&ev.Note, p.Note)
	if p.TimeStart != nil {
		ev.TimeStart = *p.TimeStart
	}
	if p.TimeEnd != nil {
		ev.TimeEnd = *p.TimeEnd
	}
	if p.Duration != nil {
		ev.Duration = *p.Duration
	}
	if p.TimeWarning != nil {
		ev.TimeWarning = *p.TimeWarning
	}
	if p.TimeDanger != nil {
		ev.TimeDanger = *p.TimeDanger
	}
	if p.TimeStrategy != nil {
		ev.TimeStrategy = *p.TimeStrategy
	}
	if p.LinkStart != nil {
		ev.LinkStart = *p.LinkStart
	}
	if p.Skip != nil {
		ev.Skip = *p.Skip
	}
	if p.IsPublic != nil {
		ev.IsPublic = *p.IsPublic
	}
	if p.TimerType != nil {
		ev.TimerType = *p.TimerType
	}
	if p.EndAction != nil {
		ev.EndAction = *p.EndAction
	}
	ev.Custom = p.Custom
}

func clockPtr(s string) (*int64, error) {
	v, err := rundown.ParseClock(s)
	return &v, err
}

func spanPtr(s string) (*int64, error) {
	v, err := rundown.ParseSpan(s)
	return &v, err
}

func boolPtr(s string) (*bool, error) {
	v, err := strconv.ParseBool(s)
	return &v, err
}

package engine

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/cueline/internal/cache"
	"github.com/roach88/cueline/internal/delay"
	"github.com/roach88/cueline/internal/metrics"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/runtime"
)

// Core executes commands and ticks synchronously against a cache and a
// playback machine. Engine drives it from its Run loop; the scenario harness
// drives it directly with a fake clock.
//
// Thread-safety: Core is not safe for concurrent use.
type Core struct {
	cache   *cache.Cache
	machine *runtime.Machine
	ids     rundown.IDGenerator
	logger  *slog.Logger

	// onPlayback receives a restore point after every playback transition.
	onPlayback func(runtime.RestorePoint)
}

// CoreOption configures a Core.
type CoreOption func(*Core)

// WithCoreLogger sets the logger. The default discards.
func WithCoreLogger(l *slog.Logger) CoreOption {
	return func(c *Core) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIDGenerator sets the generator for ids of new entries. The default
// generates UUIDv7s.
func WithIDGenerator(g rundown.IDGenerator) CoreOption {
	return func(c *Core) {
		if g != nil {
			c.ids = g
		}
	}
}

// NewCore creates a core over c reading time from clock.
func NewCore(c *cache.Cache, clock runtime.Clock, opts ...CoreOption) *Core {
	core := &Core{
		cache:   c,
		machine: runtime.NewMachine(clock),
		ids:     rundown.UUIDGenerator{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(core)
	}
	core.machine.Refresh(c.Playlist())
	return core
}

// Snapshot builds a read-only view of the current state.
func (c *Core) Snapshot() Snapshot {
	return Snapshot{
		RundownID: c.cache.CurrentID(),
		Revision:  c.cache.Revision(),
		State:     c.machine.State(),
		Metadata:  c.cache.GetMetadata(),
	}
}

// RestorePoint returns the playback to persist.
func (c *Core) RestorePoint() runtime.RestorePoint {
	return c.machine.RestorePoint()
}

// Restore resumes playback from p. It reports whether anything was restored.
func (c *Core) Restore(p runtime.RestorePoint) bool {
	ok := c.machine.Restore(p, c.cache.Playlist())
	if ok {
		c.logger.Info("playback restored",
			"event_id", p.EventID,
			"playback", string(p.Playback))
	}
	c.observe()
	return ok
}

// Execute runs cmd and returns its result with a fresh snapshot.
func (c *Core) Execute(cmd Command) Result {
	value, err := c.dispatch(cmd)
	outcome := "ok"
	switch {
	case IsCommandError(err):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	metrics.IncCommand(string(cmd.Kind), outcome)
	if err != nil {
		c.logger.Debug("command failed", "command", string(cmd.Kind), "error", err)
	}
	return Result{Err: err, Value: value, Snapshot: c.Snapshot()}
}

func (c *Core) dispatch(cmd Command) (string, error) {
	switch cmd.Kind {
	case CmdLoad:
		return "", c.Load(cmd.Target)
	case CmdLoadNext:
		return "", c.LoadNext()
	case CmdLoadPrevious:
		return "", c.LoadPrevious()
	case CmdReload:
		return "", c.Reload()
	case CmdStart:
		return "", c.Start()
	case CmdPause:
		return "", c.Pause()
	case CmdStop:
		return "", c.Stop()
	case CmdRoll:
		return "", c.Roll(cmd.CarryOverOffset)
	case CmdAddTime:
		return "", c.AddTime(cmd.Delta)
	case CmdAddEntry:
		return c.AddEntry(cmd.Entry, cmd.After, cmd.Parent)
	case CmdEditEvent:
		return "", c.EditEvent(cmd.ID, cmd.Patch)
	case CmdRemoveEntries:
		return "", c.RemoveEntries(cmd.IDs...)
	case CmdReorder:
		return "", c.Reorder(cmd.ID, cmd.After)
	case CmdApplyDelay:
		return "", c.ApplyDelay(cmd.ID)
	case CmdCreateField:
		return c.CreateCustomField(cmd.Field)
	case CmdRenameField:
		return c.RenameCustomField(cmd.FieldKey, cmd.Label)
	case CmdDeleteField:
		return "", c.DeleteCustomField(cmd.FieldKey)
	default:
		return "", newCommandError(cmd.Kind, ErrCodeUnknownCommand, "unknown command")
	}
}

// Load arms the event named by t.
func (c *Core) Load(t Target) error {
	pl := c.cache.Playlist()
	idx := -1
	switch t.By {
	case ByIndex:
		if t.Index < 0 || t.Index >= pl.Len() {
			return newCommandError(CmdLoad, ErrCodeOutOfRange, "index %d outside 0..%d", t.Index, pl.Len()-1)
		}
		idx = t.Index
	case ByID:
		idx = pl.IndexOf(t.Value)
	case ByCue:
		idx = pl.IndexOfCue(t.Value)
	}
	ev, ok := pl.At(idx)
	if !ok {
		return newCommandError(CmdLoad, ErrCodeNotFound, "no playable event with %s %q", t.By, t.Value)
	}
	c.machine.Load(&ev, pl)
	c.transition(CmdLoad)
	return nil
}

// LoadNext arms the event after the selected one.
func (c *Core) LoadNext() error {
	if !c.machine.LoadNext() {
		return newCommandError(CmdLoadNext, ErrCodeOutOfRange, "no event after the selected one")
	}
	c.transition(CmdLoadNext)
	return nil
}

// LoadPrevious arms the event before the selected one.
func (c *Core) LoadPrevious() error {
	if c.machine.State().EventNow == nil {
		return newCommandError(CmdLoadPrevious, ErrCodeNothingLoaded, "nothing loaded")
	}
	if !c.machine.LoadPrevious() {
		return newCommandError(CmdLoadPrevious, ErrCodeOutOfRange, "no event before the selected one")
	}
	c.transition(CmdLoadPrevious)
	return nil
}

// Reload re-arms the loaded event.
func (c *Core) Reload() error {
	if !c.machine.Reload() {
		return newCommandError(CmdReload, ErrCodeNothingLoaded, "nothing loaded")
	}
	c.transition(CmdReload)
	return nil
}

// Start plays or resumes the loaded event.
func (c *Core) Start() error {
	st := c.machine.State()
	switch {
	case st.EventNow == nil:
		return newCommandError(CmdStart, ErrCodeNothingLoaded, "nothing loaded")
	case st.Timer.Playback == runtime.PlaybackPlay:
		return newCommandError(CmdStart, ErrCodeAlreadyPlaying, "event %s is already playing", st.EventNow.ID)
	}
	c.machine.Start()
	c.transition(CmdStart)
	return nil
}

// Pause freezes the playing timer.
func (c *Core) Pause() error {
	st := c.machine.State()
	switch {
	case st.Mode == runtime.ModeRoll:
		return newCommandError(CmdPause, ErrCodeRollActive, "roll mode cannot be paused")
	case st.Timer.Playback != runtime.PlaybackPlay:
		return newCommandError(CmdPause, ErrCodeNotPlaying, "timer is %s", st.Timer.Playback)
	}
	c.machine.Pause()
	c.transition(CmdPause)
	return nil
}

// Stop unloads everything. It always succeeds.
func (c *Core) Stop() error {
	c.machine.Stop()
	c.transition(CmdStop)
	return nil
}

// Roll follows the clock through the playlist.
func (c *Core) Roll(carryOverOffset bool) error {
	res, ok := c.machine.Roll(c.cache.Playlist(), carryOverOffset)
	if !ok {
		return newCommandError(CmdRoll, ErrCodeRollEmpty, "no playable events to roll")
	}
	c.logger.Info("roll mode",
		"event_id", res.EventID,
		"started", res.DidStart)
	c.transition(CmdRoll)
	return nil
}

// AddTime extends or shortens the loaded event by delta milliseconds.
func (c *Core) AddTime(delta int64) error {
	if c.machine.State().EventNow == nil {
		return newCommandError(CmdAddTime, ErrCodeNothingLoaded, "nothing loaded")
	}
	if delta == 0 {
		return nil
	}
	if !c.machine.AddTime(delta) {
		return newCommandError(CmdAddTime, ErrCodeOutOfRange, "%d ms exceeds %d ms", delta, runtime.MaxAddTime)
	}
	c.transition(CmdAddTime)
	return nil
}

// Tick advances the machine and fires the end action of a finished event.
func (c *Core) Tick() runtime.TickResult {
	res := c.machine.Tick()
	metrics.IncTick()
	if res.Finished {
		c.endAction(res)
	}
	if res.Finished || res.RollChanged {
		c.transition("tick")
	} else {
		c.observe()
	}
	return res
}

func (c *Core) endAction(res runtime.TickResult) {
	metrics.IncEndAction(string(res.EndAction))
	c.logger.Info("event finished",
		"event_id", res.EventID,
		"end_action", string(res.EndAction))

	switch res.EndAction {
	case rundown.EndStop:
		c.machine.Stop()
	case rundown.EndLoadNext:
		c.machine.LoadNext()
	case rundown.EndPlayNext:
		if c.machine.LoadNext() {
			c.machine.Start()
		}
	}
}

// transition publishes metrics and the restore point after a playback
// change.
func (c *Core) transition(cause CommandKind) {
	c.observe()
	if c.onPlayback != nil {
		c.onPlayback(c.machine.RestorePoint())
	}
	st := c.machine.State()
	c.logger.Debug("playback",
		"cause", string(cause),
		"playback", string(st.Timer.Playback),
		"mode", string(st.Mode),
		"offset", st.Runtime.Offset)
}

func (c *Core) observe() {
	st := c.machine.State()
	metrics.SetPlayback(string(st.Timer.Playback))
	metrics.SetOffset(st.Runtime.Offset)
}

// afterCommit hands the new playlist to the machine.
func (c *Core) afterCommit() {
	if c.machine.Refresh(c.cache.Playlist()) {
		c.logger.Warn("loaded event removed, playback stopped")
		c.transition("refresh")
	}
}

// edit runs fn inside a transaction and commits it.
func (c *Core) edit(kind CommandKind, process bool, fn func(tx *cache.Transaction) error) error {
	tx, err := c.cache.CreateTransaction()
	if err != nil {
		if errors.Is(err, cache.ErrNoRundown) {
			return newCommandError(kind, ErrCodeNothingLoaded, "no rundown loaded")
		}
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.Commit(process); err != nil {
		return err
	}
	c.afterCommit()
	return nil
}

// AddEntry inserts e after the entry after, inside the group parent when
// set, and returns its id. Entries without an id get a generated one.
func (c *Core) AddEntry(e rundown.Entry, after, parent string) (string, error) {
	if e == nil {
		return "", newCommandError(CmdAddEntry, ErrCodeInvalidEdit, "no entry given")
	}
	if e.EntryID() == "" {
		setID(e, c.ids.Generate())
	}
	if ev, ok := e.(*rundown.Event); ok {
		eventDefaults(ev)
	}
	err := c.edit(CmdAddEntry, true, func(tx *cache.Transaction) error {
		if err := rundown.InsertEntry(&tx.Rundown, e, after, parent); err != nil {
			return newCommandError(CmdAddEntry, ErrCodeInvalidEdit, "%v", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return e.EntryID(), nil
}

// EditEvent patches the event id. Metadata is re-derived only when the patch
// can change it.
func (c *Core) EditEvent(id string, p rundown.EventPatch) error {
	return c.edit(CmdEditEvent, p.AffectsSchedule(), func(tx *cache.Transaction) error {
		if tx.Rundown.Event(id) == nil {
			return newCommandError(CmdEditEvent, ErrCodeNotFound, "event %q not found", id)
		}
		if err := rundown.PatchEvent(&tx.Rundown, id, p); err != nil {
			return newCommandError(CmdEditEvent, ErrCodeInvalidEdit, "%v", err)
		}
		return nil
	})
}

// RemoveEntries deletes the given entries and the members of removed groups.
func (c *Core) RemoveEntries(ids ...string) error {
	return c.edit(CmdRemoveEntries, true, func(tx *cache.Transaction) error {
		if rundown.RemoveEntries(&tx.Rundown, ids...) == 0 {
			return newCommandError(CmdRemoveEntries, ErrCodeNotFound, "none of %v found", ids)
		}
		return nil
	})
}

// Reorder moves id to follow after within its list.
func (c *Core) Reorder(id, after string) error {
	return c.edit(CmdReorder, true, func(tx *cache.Transaction) error {
		if _, ok := tx.Rundown.Entries[id]; !ok {
			return newCommandError(CmdReorder, ErrCodeNotFound, "entry %q not found", id)
		}
		if err := rundown.MoveEntry(&tx.Rundown, id, after); err != nil {
			return newCommandError(CmdReorder, ErrCodeInvalidEdit, "%v", err)
		}
		return nil
	})
}

// ApplyDelay folds the delay entry id into the schedule.
func (c *Core) ApplyDelay(id string) error {
	return c.edit(CmdApplyDelay, true, func(tx *cache.Transaction) error {
		delay.Apply(id, &tx.Rundown)
		return nil
	})
}

// CreateCustomField adds a custom-field definition and returns its key.
func (c *Core) CreateCustomField(f rundown.CustomField) (string, error) {
	key, err := c.cache.CreateCustomField(f)
	if err != nil {
		return "", fieldError(CmdCreateField, err)
	}
	c.afterCommit()
	return key, nil
}

// RenameCustomField relabels a custom field and returns its new key.
func (c *Core) RenameCustomField(key, label string) (string, error) {
	newKey, err := c.cache.RenameCustomField(key, label)
	if err != nil {
		return "", fieldError(CmdRenameField, err)
	}
	c.afterCommit()
	return newKey, nil
}

// DeleteCustomField removes a custom field and its values.
func (c *Core) DeleteCustomField(key string) error {
	if err := c.cache.DeleteCustomField(key); err != nil {
		return fieldError(CmdDeleteField, err)
	}
	c.afterCommit()
	return nil
}

func fieldError(kind CommandKind, err error) error {
	switch {
	case errors.Is(err, cache.ErrFieldNotFound):
		return newCommandError(kind, ErrCodeNotFound, "%v", err)
	default:
		return newCommandError(kind, ErrCodeInvalidEdit, "%v", err)
	}
}

func setID(e rundown.Entry, id string) {
	switch v := e.(type) {
	case *rundown.Event:
		v.ID = id
	case *rundown.Group:
		v.ID = id
	case *rundown.Delay:
		v.ID = id
	case *rundown.Milestone:
		v.ID = id
	}
}

// eventDefaults fills the fields a new event left empty.
func eventDefaults(ev *rundown.Event) {
	if ev.TimeStrategy == "" {
		ev.TimeStrategy = rundown.LockDuration
	}
	if ev.TimerType == "" {
		ev.TimerType = rundown.TimerCountDown
	}
	if ev.EndAction == "" {
		ev.EndAction = rundown.EndNone
	}
	if ev.TimeWarning == 0 && ev.TimeDanger == 0 {
		ev.TimeWarning = rundown.DefaultTimeWarning
		ev.TimeDanger = rundown.DefaultTimeDanger
	}
	rundown.ResolveTimes(ev)
}

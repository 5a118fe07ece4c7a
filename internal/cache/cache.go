package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/cueline/internal/metadata"
	"github.com/roach88/cueline/internal/metrics"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/runtime"
)

// State describes how current the cached metadata is.
type State int

const (
	StateFresh State = iota
	StateStale
	StateRebuilding
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRebuilding:
		return "rebuilding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RundownStore is the durable home of rundowns and custom-field
// definitions. *store.Store implements it.
type RundownStore interface {
	GetRundown(ctx context.Context, id string) (rundown.Rundown, error)
	SetRundown(ctx context.Context, id string, r rundown.Rundown) error
	GetCustomFields(ctx context.Context) (rundown.CustomFields, error)
	SetCustomFields(ctx context.Context, defs rundown.CustomFields) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStrict makes consistency faults fail the commit instead of being
// repaired.
func WithStrict(strict bool) Option {
	return func(c *Cache) {
		c.strict = strict
	}
}

// reloadTimeout bounds the store read used to repair a broken rundown.
const reloadTimeout = 5 * time.Second

// slot is one cached rundown with its metadata.
type slot struct {
	rundown  rundown.Rundown
	metadata metadata.Metadata
	state    State
}

// Cache is the in-memory source of truth for the loaded rundowns.
//
// Thread-safety: all methods are safe for concurrent use. Edits are still
// expected to come from a single writer; concurrent transactions resolve as
// last commit wins.
type Cache struct {
	store  RundownStore
	logger *slog.Logger
	strict bool

	mu        sync.Mutex
	slots     map[string]*slot
	currentID string
	defs      rundown.CustomFields
	changelog rundown.Changelog

	persist *persister
}

// New creates an empty cache backed by store.
func New(store RundownStore, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		slots:     map[string]*slot{},
		defs:      rundown.CustomFields{},
		changelog: rundown.Changelog{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.persist = newPersister(store, c.logger)
	return c
}

// Init makes r the current rundown with defs as the custom-field
// definitions. r is processed before it is cached; its revision is kept.
func (c *Cache) Init(r rundown.Rundown, defs rundown.CustomFields) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.defs = defs.Clone()
	s := &slot{}
	c.process(s, r.Clone())
	c.slots[r.ID] = s
	c.currentID = r.ID
	metrics.SetRevision(s.rundown.Revision)
	c.logger.Info("rundown cached",
		"rundown_id", r.ID,
		"revision", r.Revision,
		"events", len(s.metadata.PlayableEventOrder))
}

// Load fetches the rundown id and the custom-field definitions from the
// store and makes the rundown current.
func (c *Cache) Load(ctx context.Context, id string) error {
	r, err := c.store.GetRundown(ctx, id)
	if err != nil {
		return fmt.Errorf("cache: load %s: %w", id, err)
	}
	defs, err := c.store.GetCustomFields(ctx)
	if err != nil {
		return fmt.Errorf("cache: load custom fields: %w", err)
	}
	c.persist.remember(r)
	c.Init(r, defs)
	return nil
}

// Reset forgets every cached rundown, the definitions and the changelog.
// Pending writes are not cancelled.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = map[string]*slot{}
	c.currentID = ""
	c.defs = rundown.CustomFields{}
	c.changelog = rundown.Changelog{}
}

// CurrentID returns the id of the current rundown, or "".
func (c *Cache) CurrentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

// State returns the metadata state of the current rundown.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.slots[c.currentID]; s != nil {
		return s.state
	}
	return StateFresh
}

// Invalidate marks the current rundown's metadata stale. It is rebuilt on
// the next read.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.slots[c.currentID]; s != nil {
		s.state = StateStale
	}
}

// GetCurrentRundown returns a copy of the current rundown. The zero
// Rundown is returned when nothing is loaded.
func (c *Cache) GetCurrentRundown() rundown.Rundown {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.fresh()
	if s == nil {
		return rundown.Rundown{}
	}
	return s.rundown.Clone()
}

// GetMetadata returns a copy of the current rundown's metadata.
func (c *Cache) GetMetadata() metadata.Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.fresh()
	if s == nil {
		return metadata.Metadata{}
	}
	return s.metadata.Clone()
}

// Revision returns the revision of the current rundown.
func (c *Cache) Revision() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.slots[c.currentID]; s != nil {
		return s.rundown.Revision
	}
	return 0
}

// Playlist returns the playable events of the current rundown.
func (c *Cache) Playlist() runtime.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.fresh()
	if s == nil {
		return runtime.Playlist{}
	}
	return runtime.NewPlaylist(s.rundown, s.metadata.PlayableEventOrder)
}

// RemoveRundownFromCache drops the rundown id. It reports whether it was
// cached.
func (c *Cache) RemoveRundownFromCache(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remove(id)
}

// RemoveRundownsFromCache drops every listed rundown and returns how many
// were cached.
func (c *Cache) RemoveRundownsFromCache(ids []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range ids {
		if c.remove(id) {
			n++
		}
	}
	return n
}

func (c *Cache) remove(id string) bool {
	if _, ok := c.slots[id]; !ok {
		return false
	}
	delete(c.slots, id)
	if c.currentID == id {
		c.currentID = ""
	}
	return true
}

// fresh returns the current slot, rebuilding stale metadata first.
// Callers hold c.mu.
func (c *Cache) fresh() *slot {
	s := c.slots[c.currentID]
	if s != nil && s.state == StateStale {
		c.rebuild(s, "stale")
	}
	return s
}

// rebuild re-derives the metadata of s from its rundown.
func (c *Cache) rebuild(s *slot, reason string) {
	s.state = StateRebuilding
	c.process(s, s.rundown)
	metrics.IncRebuild(reason)
	c.logger.Debug("metadata rebuilt",
		"rundown_id", s.rundown.ID,
		"revision", s.rundown.Revision,
		"reason", reason)
}

// process runs the metadata engine over r and stores the normalised result
// in s.
func (c *Cache) process(s *slot, r rundown.Rundown) {
	res := metadata.Process(r, c.defs, c.changelog)
	r.Entries = res.Entries
	r.Order = res.Order
	r.FlatOrder = res.FlatOrder
	s.rundown = r
	s.metadata = res.Metadata
	s.state = StateFresh
}

// verify checks s for consistency faults.
func verify(s *slot) error {
	fault := func(reason string) error {
		return &ConsistencyError{RundownID: s.rundown.ID, Revision: s.rundown.Revision, Reason: reason}
	}
	if err := s.rundown.Verify(); err != nil {
		return fault(err.Error())
	}
	if s.state != StateFresh {
		return nil
	}
	if !slices.Equal(s.metadata.FlatEntryOrder, s.rundown.FlatOrder) {
		return fault("metadata flat order does not match rundown")
	}
	for _, id := range s.metadata.PlayableEventOrder {
		if s.rundown.Event(id) == nil {
			return fault(fmt.Sprintf("playable event %q is not an event", id))
		}
	}
	return nil
}

// repair re-derives s after a consistency fault. If the rundown itself stays
// broken, the last stored copy replaces it.
func (c *Cache) repair(s *slot) {
	c.rebuild(s, "consistency")
	if err := s.rundown.Verify(); err == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	stored, err := c.store.GetRundown(ctx, s.rundown.ID)
	if err != nil {
		c.logger.Error("reload after consistency fault failed",
			"rundown_id", s.rundown.ID,
			"error", err)
		return
	}
	rev := s.rundown.Revision
	c.process(s, stored)
	s.rundown.Revision = rev
	metrics.IncRebuild("reload")
	c.logger.Warn("rundown reloaded from store",
		"rundown_id", s.rundown.ID,
		"revision", rev)
}

// CustomFields returns a copy of the custom-field definitions.
func (c *Cache) CustomFields() rundown.CustomFields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defs.Clone()
}

// RunPersister writes committed state to the store until ctx is cancelled,
// then drains what is still pending.
func (c *Cache) RunPersister(ctx context.Context) error {
	return c.persist.run(ctx)
}

// Flush blocks until every write scheduled before the call was attempted.
// It needs RunPersister to be running.
func (c *Cache) Flush(ctx context.Context) error {
	return c.persist.flush(ctx)
}

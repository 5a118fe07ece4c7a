package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cueline/internal/rundown"
)

func TestInitProcessesRundown(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	assert.Equal(t, "show", c.CurrentID())
	assert.Equal(t, StateFresh, c.State())
	md := c.GetMetadata()
	assert.Equal(t, []string{"a", "b", "c"}, md.PlayableEventOrder)
	assert.Equal(t, int64(30*60_000), md.TotalDuration)
	assert.Equal(t, 3, c.Playlist().Len())
}

func TestEmptyCache(t *testing.T) {
	c := New(newFakeStore())

	assert.Equal(t, "", c.GetCurrentRundown().ID)
	assert.Equal(t, 0, c.Playlist().Len())
	assert.Equal(t, int64(0), c.Revision())
	_, err := c.CreateTransaction()
	assert.ErrorIs(t, err, ErrNoRundown)
}

func TestTransactionIsIsolated(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	tx, err := c.CreateTransaction()
	require.NoError(t, err)
	tx.Rundown.Title = "Edited"
	tx.Rundown.Event("a").Title = "changed"

	current := c.GetCurrentRundown()
	assert.Equal(t, "Show", current.Title)
	assert.Equal(t, "a", current.Event("a").Title)

	_, err = tx.Commit(false)
	require.NoError(t, err)
	assert.Equal(t, "Edited", c.GetCurrentRundown().Title)
}

func TestCommitBumpsRevision(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	for want := int64(1); want <= 3; want++ {
		tx, err := c.CreateTransaction()
		require.NoError(t, err)
		commit, err := tx.Commit(true)
		require.NoError(t, err)
		assert.Equal(t, want, commit.Revision)
		assert.Equal(t, want, c.Revision())
	}
}

func TestCommitTwiceFails(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	tx, err := c.CreateTransaction()
	require.NoError(t, err)
	_, err = tx.Commit(false)
	require.NoError(t, err)
	_, err = tx.Commit(false)
	assert.ErrorIs(t, err, ErrCommitted)
}

func TestLastCommitWins(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	first, err := c.CreateTransaction()
	require.NoError(t, err)
	second, err := c.CreateTransaction()
	require.NoError(t, err)

	first.Rundown.Title = "first"
	second.Rundown.Title = "second"
	_, err = first.Commit(false)
	require.NoError(t, err)
	commit, err := second.Commit(false)
	require.NoError(t, err)

	assert.Equal(t, int64(2), commit.Revision)
	assert.Equal(t, "second", c.GetCurrentRundown().Title)
}

func TestCommitWithoutProcessKeepsMetadata(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)
	before := c.GetMetadata()

	tx, err := c.CreateTransaction()
	require.NoError(t, err)
	tx.Rundown.Event("b").Duration = 20 * 60_000
	_, err = tx.Commit(false)
	require.NoError(t, err)

	assert.Equal(t, before, c.GetMetadata())
}

func TestCommitWithProcessRederives(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	tx, err := c.CreateTransaction()
	require.NoError(t, err)
	require.NoError(t, rundown.InsertEntry(&tx.Rundown, event("d", 630, 15), "c", ""))
	commit, err := tx.Commit(true)
	require.NoError(t, err)

	assert.True(t, commit.Processed)
	assert.Equal(t, []string{"a", "b", "c", "d"}, commit.Metadata.PlayableEventOrder)
	assert.Equal(t, int64(45*60_000), c.GetMetadata().TotalDuration)
}

func TestStrictConsistencyFault(t *testing.T) {
	c := New(newFakeStore(), WithStrict(true))
	c.Init(testRundown(t), nil)

	tx, err := c.CreateTransaction()
	require.NoError(t, err)
	tx.Rundown.Order = []string{"a", "c"}
	_, err = tx.Commit(false)

	require.Error(t, err)
	assert.True(t, IsConsistencyError(err))
	assert.Equal(t, int64(0), c.Revision())
	assert.Equal(t, []string{"a", "b", "c"}, c.GetCurrentRundown().Order)
}

func TestProductionConsistencyFaultRebuilds(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	tx, err := c.CreateTransaction()
	require.NoError(t, err)
	tx.Rundown.Order = []string{"a", "c"}
	commit, err := tx.Commit(false)
	require.NoError(t, err)

	assert.Equal(t, int64(1), commit.Revision)
	current := c.GetCurrentRundown()
	require.NoError(t, current.Verify())
	assert.Equal(t, []string{"a", "c"}, current.FlatOrder)
	assert.Equal(t, []string{"a", "c"}, c.GetMetadata().PlayableEventOrder)
}

func TestProductionFaultReloadsBrokenRundown(t *testing.T) {
	store := newFakeStore()
	stored := testRundown(t)
	store.rundowns["show"] = stored
	c := New(store)
	require.NoError(t, c.Load(context.Background(), "show"))

	tx, err := c.CreateTransaction()
	require.NoError(t, err)
	// A member without a parent pointer survives processing.
	tx.Rundown.Entries["g"] = &rundown.Group{ID: "g", Entries: []string{"a"}}
	tx.Rundown.Order = []string{"g", "b", "c"}
	_, err = tx.Commit(false)
	require.NoError(t, err)

	current := c.GetCurrentRundown()
	require.NoError(t, current.Verify())
	assert.Equal(t, []string{"a", "b", "c"}, current.Order)
	assert.Equal(t, int64(1), current.Revision)
}

func TestInvalidateRebuildsOnRead(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)

	c.Invalidate()
	assert.Equal(t, StateStale, c.State())
	md := c.GetMetadata()
	assert.Equal(t, StateFresh, c.State())
	assert.Len(t, md.PlayableEventOrder, 3)
}

func TestRemoveRundownFromCache(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), nil)
	other := rundown.New("other", "Other")
	c.Init(other, nil)

	assert.True(t, c.RemoveRundownFromCache("other"))
	assert.False(t, c.RemoveRundownFromCache("other"))
	assert.Equal(t, "", c.CurrentID())

	c.Init(testRundown(t), nil)
	assert.Equal(t, 1, c.RemoveRundownsFromCache([]string{"show", "missing"}))
}

func TestLoadFromStore(t *testing.T) {
	store := newFakeStore()
	store.rundowns["show"] = testRundown(t)
	store.defs = rundown.CustomFields{"Song": {Label: "Song", Type: rundown.FieldText}}
	c := New(store)

	require.NoError(t, c.Load(context.Background(), "show"))
	assert.Equal(t, "show", c.CurrentID())
	assert.Contains(t, c.CustomFields(), "Song")
	assert.Contains(t, c.GetMetadata().AssignedCustomFields, "Song")

	assert.Error(t, c.Load(context.Background(), "missing"))
}

func TestReset(t *testing.T) {
	c := New(newFakeStore())
	c.Init(testRundown(t), rundown.CustomFields{"x": {Label: "x", Type: rundown.FieldText}})

	c.Reset()
	assert.Equal(t, "", c.CurrentID())
	assert.Empty(t, c.CustomFields())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fresh", StateFresh.String())
	assert.Equal(t, "stale", StateStale.String())
	assert.Equal(t, "rebuilding", StateRebuilding.String())
}

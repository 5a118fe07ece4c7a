package cache

import (
	"fmt"
	"maps"

	"github.com/roach88/cueline/internal/metadata"
	"github.com/roach88/cueline/internal/metrics"
	"github.com/roach88/cueline/internal/rundown"
)

// Transaction is a private copy of the current rundown and the custom-field
// definitions. Edit Rundown and CustomFields freely, then Commit.
type Transaction struct {
	Rundown      rundown.Rundown
	CustomFields rundown.CustomFields

	cache *Cache
	done  bool
}

// Commit describes an applied transaction.
type Commit struct {
	RundownID string
	Revision  int64
	Processed bool
	Metadata  metadata.Metadata
}

// CreateTransaction opens a transaction on the current rundown.
func (c *Cache) CreateTransaction() (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.fresh()
	if s == nil {
		return nil, ErrNoRundown
	}
	return &Transaction{
		Rundown:      s.rundown.Clone(),
		CustomFields: c.defs.Clone(),
		cache:        c,
	}, nil
}

// Commit applies the transaction. With shouldProcess the metadata engine
// re-derives metadata and normalises entries and orders; without it the
// copy is applied as is and the existing metadata is kept. The revision is
// always the committed revision plus one.
func (tx *Transaction) Commit(shouldProcess bool) (Commit, error) {
	return tx.cache.commit(tx, shouldProcess)
}

func (c *Cache) commit(tx *Transaction, shouldProcess bool) (Commit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tx.done {
		return Commit{}, ErrCommitted
	}
	id := tx.Rundown.ID
	s, ok := c.slots[id]
	if !ok {
		return Commit{}, fmt.Errorf("commit %s: %w", id, ErrNoRundown)
	}
	tx.done = true
	prev := s.rundown.Revision

	oldDefs := c.defs
	c.defs = tx.CustomFields.Clone()

	next := &slot{metadata: s.metadata, state: s.state}
	if shouldProcess {
		c.process(next, tx.Rundown)
	} else {
		next.rundown = tx.Rundown
	}
	next.rundown.Revision = prev + 1

	if err := verify(next); err != nil {
		if c.strict {
			c.defs = oldDefs
			tx.done = false
			return Commit{}, err
		}
		c.logger.Warn("inconsistent commit repaired",
			"rundown_id", id,
			"revision", next.rundown.Revision,
			"error", err)
		next.state = StateStale
		c.repair(next)
	}

	*s = *next
	c.persist.enqueueRundown(s.rundown.Clone())
	if !maps.Equal(oldDefs, c.defs) {
		c.persist.enqueueCustomFields(c.defs.Clone())
	}

	metrics.IncCommit(shouldProcess)
	if id == c.currentID {
		metrics.SetRevision(s.rundown.Revision)
	}
	c.logger.Debug("transaction committed",
		"rundown_id", id,
		"revision", s.rundown.Revision,
		"processed", shouldProcess)

	return Commit{
		RundownID: id,
		Revision:  s.rundown.Revision,
		Processed: shouldProcess,
		Metadata:  s.metadata.Clone(),
	}, nil
}

package cache

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/roach88/cueline/internal/metrics"
	"github.com/roach88/cueline/internal/rundown"
)

// drainTimeout bounds the final drain after the persister is cancelled.
const drainTimeout = 5 * time.Second

type jobKind int

const (
	jobRundown jobKind = iota + 1
	jobCustomFields
	jobBarrier
)

// job is one pending write. Barriers carry no payload; done is closed once
// every job queued before them was handled.
type job struct {
	kind    jobKind
	id      string
	rundown rundown.Rundown
	defs    rundown.CustomFields
	done    chan struct{}
}

// persistQueue is an unbounded FIFO of jobs where a newer write replaces a
// pending write for the same target in place.
//
// Thread-safety: push may be called from any goroutine; the persister's run
// loop pops.
type persistQueue struct {
	mu     sync.Mutex
	jobs   []job
	signal chan struct{} // buffered, size 1
}

func newPersistQueue() *persistQueue {
	return &persistQueue{
		jobs:   make([]job, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// push appends j, or overwrites the payload of a pending job with the same
// kind and id.
func (q *persistQueue) push(j job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	replaced := false
	if j.kind != jobBarrier {
		for i := range q.jobs {
			if q.jobs[i].kind == j.kind && q.jobs[i].id == j.id {
				q.jobs[i] = j
				replaced = true
				break
			}
		}
	}
	if !replaced {
		q.jobs = append(q.jobs, j)
	}
	metrics.SetPersistQueueDepth(len(q.jobs))

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// tryPop removes the front job without blocking.
func (q *persistQueue) tryPop() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs[0] = job{}
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	metrics.SetPersistQueueDepth(len(q.jobs))
	return j, true
}

// wait signals that jobs may be available.
func (q *persistQueue) wait() <-chan struct{} {
	return q.signal
}

func (q *persistQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// persister writes queued jobs to the store one at a time.
type persister struct {
	store  RundownStore
	logger *slog.Logger
	queue  *persistQueue

	mu       sync.Mutex
	hashes   map[string]string
	lastDefs rundown.CustomFields
}

func newPersister(store RundownStore, logger *slog.Logger) *persister {
	return &persister{
		store:  store,
		logger: logger,
		queue:  newPersistQueue(),
		hashes: map[string]string{},
	}
}

func (p *persister) enqueueRundown(r rundown.Rundown) {
	p.queue.push(job{kind: jobRundown, id: r.ID, rundown: r})
}

func (p *persister) enqueueCustomFields(defs rundown.CustomFields) {
	p.queue.push(job{kind: jobCustomFields, defs: defs})
}

// remember records r as already stored so an unchanged commit is skipped.
func (p *persister) remember(r rundown.Rundown) {
	h, err := rundown.Hash(r)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.hashes[r.ID] = h
	p.mu.Unlock()
}

func (p *persister) run(ctx context.Context) error {
	p.logger.Debug("persister started")
	for {
		p.drain(ctx)
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			p.drain(final)
			cancel()
			p.logger.Debug("persister stopped", "pending", p.queue.len())
			return nil
		case <-p.queue.wait():
		}
	}
}

func (p *persister) drain(ctx context.Context) {
	for {
		j, ok := p.queue.tryPop()
		if !ok {
			return
		}
		p.handle(ctx, j)
	}
}

func (p *persister) handle(ctx context.Context, j job) {
	switch j.kind {
	case jobBarrier:
		close(j.done)
	case jobRundown:
		p.writeRundown(ctx, j.rundown)
	case jobCustomFields:
		p.writeCustomFields(ctx, j.defs)
	}
}

func (p *persister) writeRundown(ctx context.Context, r rundown.Rundown) {
	h, err := rundown.Hash(r)
	if err != nil {
		metrics.IncPersist("rundown", "error")
		p.logger.Error("hash rundown", "rundown_id", r.ID, "error", err)
		return
	}
	p.mu.Lock()
	unchanged := p.hashes[r.ID] == h
	p.mu.Unlock()
	if unchanged {
		metrics.IncPersist("rundown", "skipped")
		return
	}

	if err := p.store.SetRundown(ctx, r.ID, r); err != nil {
		metrics.IncPersist("rundown", "error")
		p.logger.Error("persist rundown failed",
			"rundown_id", r.ID,
			"revision", r.Revision,
			"error", err)
		return
	}
	p.mu.Lock()
	p.hashes[r.ID] = h
	p.mu.Unlock()
	metrics.IncPersist("rundown", "ok")
	p.logger.Debug("rundown persisted", "rundown_id", r.ID, "revision", r.Revision)
}

func (p *persister) writeCustomFields(ctx context.Context, defs rundown.CustomFields) {
	p.mu.Lock()
	unchanged := p.lastDefs != nil && maps.Equal(p.lastDefs, defs)
	p.mu.Unlock()
	if unchanged {
		metrics.IncPersist("custom_fields", "skipped")
		return
	}
	if err := p.store.SetCustomFields(ctx, defs); err != nil {
		metrics.IncPersist("custom_fields", "error")
		p.logger.Error("persist custom fields failed", "error", err)
		return
	}
	p.mu.Lock()
	p.lastDefs = defs
	p.mu.Unlock()
	metrics.IncPersist("custom_fields", "ok")
}

// flush waits for a barrier queued behind every pending job.
func (p *persister) flush(ctx context.Context) error {
	done := make(chan struct{})
	p.queue.push(job{kind: jobBarrier, done: done})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

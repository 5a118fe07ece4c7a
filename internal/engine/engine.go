package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cueline/internal/cache"
	"github.com/roach88/cueline/internal/runtime"
)

// DefaultTickInterval is how often the timer is advanced.
const DefaultTickInterval = time.Second

// Notifier is told about every committed edit and playback transition.
// Notify runs on the engine goroutine and must not block.
type Notifier interface {
	Notify(Snapshot)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Snapshot)

// Notify calls f(s).
func (f NotifierFunc) Notify(s Snapshot) { f(s) }

// RestoreStore persists the playback restore point. *store.Store
// implements it.
type RestoreStore interface {
	GetRestorePoint(ctx context.Context) (runtime.RestorePoint, bool, error)
	SetRestorePoint(ctx context.Context, p runtime.RestorePoint) error
}

// Engine is the single-writer loop that owns all playback and rundown
// mutation.
//
// Thread-safety model:
//   - Do(), Snapshot(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// Commands are queued and executed in arrival order between ticks. After
// each command and each tick a new Snapshot is published; readers never see
// a half-applied change.
type Engine struct {
	core     *Core
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
	queue    *commandQueue

	snapshot atomic.Pointer[Snapshot]
	notifier Notifier

	restore  RestoreStore
	writer   *restoreWriter
	coreOpts []CoreOption
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval sets the tick period. Non-positive values are ignored.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithLogger sets the logger for the engine and its core.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNotifier registers n for change notifications.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithRestoreStore restores playback from s when Run starts and writes the
// restore point back after every playback transition.
func WithRestoreStore(s RestoreStore) Option {
	return func(e *Engine) {
		e.restore = s
	}
}

// WithCoreOptions passes options through to the Core.
func WithCoreOptions(opts ...CoreOption) Option {
	return func(e *Engine) {
		e.coreOpts = append(e.coreOpts, opts...)
	}
}

// New creates an engine over c. The cache should already hold the rundown
// to play.
func New(c *cache.Cache, clock Clock, opts ...Option) *Engine {
	e := &Engine{
		clock:    clock,
		interval: DefaultTickInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:    newCommandQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	coreOpts := append([]CoreOption{WithCoreLogger(e.logger)}, e.coreOpts...)
	e.core = NewCore(c, clock, coreOpts...)
	if e.restore != nil {
		e.writer = newRestoreWriter(e.restore, e.logger)
		e.core.onPlayback = e.writer.offer
	}
	e.publish()
	return e
}

// Snapshot returns the last published state.
func (e *Engine) Snapshot() Snapshot {
	return *e.snapshot.Load()
}

// Do queues cmd and waits for its result. The returned error is ErrStopped
// or a context error; a rejected command is reported in Result.Err.
func (e *Engine) Do(ctx context.Context, cmd Command) (Result, error) {
	reply := make(chan Result, 1)
	if !e.queue.Enqueue(request{cmd: cmd, reply: reply}) {
		return Result{Err: ErrStopped}, ErrStopped
	}
	select {
	case res := <-reply:
		if errors.Is(res.Err, ErrStopped) {
			return res, ErrStopped
		}
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Stop closes the command queue; Run returns once it notices. Queued
// commands are answered with ErrStopped.
func (e *Engine) Stop() {
	e.reject(e.queue.Close())
}

// Run restores playback, then processes commands and ticks until ctx is
// cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if e.restore != nil {
		e.restoreFrom(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.writer != nil {
		g.Go(func() error { return e.writer.run(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		return e.loop(gctx)
	})
	return g.Wait()
}

func (e *Engine) loop(ctx context.Context) error {
	ticks, stop := e.clock.NewTicker(e.interval)
	defer stop()
	e.logger.Info("engine starting", "tick_interval", e.interval.String())

	for {
		if req, ok := e.queue.TryDequeue(); ok {
			e.handle(req)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.reject(e.queue.Close())
			return nil

		case _, open := <-e.queue.Wait():
			if !open && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}

		case <-ticks:
			res := e.core.Tick()
			s := e.publish()
			if res.Finished || res.RollChanged {
				e.notify(s)
			}
		}
	}
}

// handle executes one request on the loop goroutine.
func (e *Engine) handle(req request) {
	res := e.core.Execute(req.cmd)
	s := e.publish()
	if res.Err == nil {
		e.notify(s)
	}
	req.reply <- res
}

func (e *Engine) reject(left []request) {
	for _, req := range left {
		req.reply <- Result{Err: ErrStopped}
	}
}

func (e *Engine) publish() Snapshot {
	s := e.core.Snapshot()
	e.snapshot.Store(&s)
	return s
}

func (e *Engine) notify(s Snapshot) {
	if e.notifier != nil {
		e.notifier.Notify(s)
	}
}

func (e *Engine) restoreFrom(ctx context.Context) {
	p, ok, err := e.restore.GetRestorePoint(ctx)
	if err != nil {
		e.logger.Warn("read restore point", "error", err)
		return
	}
	if !ok {
		return
	}
	if e.core.Restore(p) {
		e.publish()
	}
}

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/cueline/internal/runtime"
)

// restoreTimeout bounds each restore point write.
const restoreTimeout = 5 * time.Second

// restoreWriter writes restore points off the engine goroutine. Only the
// newest pending point is kept.
type restoreWriter struct {
	store  RestoreStore
	logger *slog.Logger

	mu      sync.Mutex
	pending *runtime.RestorePoint
	signal  chan struct{} // buffered, size 1
}

func newRestoreWriter(store RestoreStore, logger *slog.Logger) *restoreWriter {
	return &restoreWriter{
		store:  store,
		logger: logger,
		signal: make(chan struct{}, 1),
	}
}

// offer replaces the pending point with p.
func (w *restoreWriter) offer(p runtime.RestorePoint) {
	w.mu.Lock()
	w.pending = &p
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *restoreWriter) take() (runtime.RestorePoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return runtime.RestorePoint{}, false
	}
	p := *w.pending
	w.pending = nil
	return p, true
}

// run writes offered points until ctx is cancelled, then writes the last
// pending one. Writes are bounded by restoreTimeout, not by ctx, so a
// shutdown never aborts a point that was already taken.
func (w *restoreWriter) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.write(ctx)
			return nil
		case <-w.signal:
			w.write(ctx)
		}
	}
}

func (w *restoreWriter) write(ctx context.Context) {
	p, ok := w.take()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	if err := w.store.SetRestorePoint(ctx, p); err != nil {
		w.logger.Error("write restore point", "event_id", p.EventID, "error", err)
		return
	}
	w.logger.Debug("restore point written",
		"event_id", p.EventID,
		"playback", string(p.Playback))
}

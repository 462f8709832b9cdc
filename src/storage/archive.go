package storage

import (
	"context"
	"sync"
	"time"

	"market-streamer/src/interfaces"
	"market-streamer/src/logger"
	"market-streamer/src/models"
)

const (
	defaultFlushInterval   = time.Second
	defaultCleanupInterval = 10 * time.Minute
)

// -----------------------------------------------------------------------------
// ArchiveWriter
// -----------------------------------------------------------------------------

// ArchiveWriter moves tick batches from the scheduler to a tick store on its
// own goroutine. Offer never blocks; a full queue drops the batch.
type ArchiveWriter struct {
	Store  interfaces.ITickStore
	Logger *logger.Logger

	batchSize       int
	retention       time.Duration
	flushInterval   time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	queue   chan []models.TickData
	pending []models.TickData

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewArchiveWriter(store interfaces.ITickStore, cfg models.MStorageConfig, log *logger.Logger) *ArchiveWriter {
	return &ArchiveWriter{
		Store:           store,
		Logger:          log,
		batchSize:       max(cfg.BatchSize, 1),
		retention:       time.Duration(cfg.RetentionHours) * time.Hour,
		flushInterval:   defaultFlushInterval,
		cleanupInterval: defaultCleanupInterval,
		now:             time.Now,
		queue:           make(chan []models.TickData, max(cfg.QueueSize, 1)),
		done:            make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Offer implements interfaces.ITickSink.
func (w *ArchiveWriter) Offer(ticks []models.TickData) bool {
	if len(ticks) == 0 {
		return true
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}

	select {
	case w.queue <- ticks:
		return true
	default:
		return false
	}
}

// Start launches the writer loop. ctx cancellation stops it after a final flush.
func (w *ArchiveWriter) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started || w.closed {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
}

// Close stops accepting batches, drains the queue and flushes what is left.
func (w *ArchiveWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	started := w.started
	close(w.queue)
	w.mu.Unlock()

	if started {
		<-w.done
	}
	w.drain()
}

// -----------------------------------------------------------------------------

func (w *ArchiveWriter) run(ctx context.Context) {
	defer close(w.done)

	flush := time.NewTicker(w.flushInterval)
	defer flush.Stop()

	var cleanup <-chan time.Time
	if w.retention > 0 {
		t := time.NewTicker(w.cleanupInterval)
		defer t.Stop()
		cleanup = t.C
	}

	for {
		select {
		case batch, ok := <-w.queue:
			if !ok {
				w.flush()
				return
			}
			w.pending = append(w.pending, batch...)
			if len(w.pending) >= w.batchSize {
				w.flush()
			}

		case <-flush.C:
			w.flush()

		case <-cleanup:
			w.Cleanup()

		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

// drain consumes whatever is queued without waiting and flushes it.
func (w *ArchiveWriter) drain() {
	for {
		select {
		case batch, ok := <-w.queue:
			if !ok {
				w.flush()
				return
			}
			w.pending = append(w.pending, batch...)
		default:
			w.flush()
			return
		}
	}
}

func (w *ArchiveWriter) flush() {
	if len(w.pending) == 0 {
		return
	}
	if err := w.Store.SaveTicks(w.pending); err != nil {
		w.Logger.Error("Failed to archive %d ticks: %v", len(w.pending), err)
	}
	w.pending = w.pending[:0]
}

// Cleanup deletes ticks older than the retention window.
func (w *ArchiveWriter) Cleanup() {
	if w.retention <= 0 {
		return
	}
	removed, err := w.Store.CleanupOlderThan(w.now().Add(-w.retention))
	if err != nil {
		w.Logger.Error("Archive cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		w.Logger.Info("Archive cleanup removed %d ticks", removed)
	}
}

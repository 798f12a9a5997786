package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops the async handler. The sync path returns a
// no-op so callers can always defer Close.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler decouples log emission from log writing. Handle never
// blocks the request path: records queue onto a channel drained by a
// small worker pool, and overflow is counted rather than waited on.
type AsyncHandler struct {
	inner   slog.Handler
	queue   chan slog.Record
	workers *sync.WaitGroup
	dropped *atomic.Int64
}

func NewAsyncHandler(inner slog.Handler, queueSize, workers int) *AsyncHandler {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	h := &AsyncHandler{
		inner:   inner,
		queue:   make(chan slog.Record, queueSize),
		workers: &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	for range workers {
		h.workers.Add(1)
		go func() {
			defer h.workers.Done()
			for rec := range h.queue {
				_ = h.inner.Handle(context.Background(), rec)
			}
		}()
	}
	return h
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- rec:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs and WithGroup wrap the inner handler but share the queue,
// workers and drop counter, so derived loggers drain through the same pool.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(h.inner.WithAttrs(attrs))
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return h.derive(h.inner.WithGroup(name))
}

func (h *AsyncHandler) derive(inner slog.Handler) slog.Handler {
	return &AsyncHandler{inner: inner, queue: h.queue, workers: h.workers, dropped: h.dropped}
}

// DroppedCount reports how many records were discarded because the
// queue was full.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and blocks until the queue is drained.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.workers.Wait()
}

package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/splashlab/splashboard/internal/event"
	"github.com/splashlab/splashboard/internal/ratelimit"
)

// DefaultQueueSize bounds the persistence queue.
const DefaultQueueSize = 1024

// InteractionStore is the durable event store the writer appends to.
type InteractionStore interface {
	InsertInteraction(ctx context.Context, in *event.Interaction) error
}

// persistJob is one unit of background work: persist the interaction and,
// for non-bonus throws, re-assert the device cooldown.
type persistJob struct {
	interaction    *event.Interaction
	recordCooldown bool
}

// Writer drains a bounded queue of persistence jobs on a single goroutine.
// The ingestion path never waits on it; failures are logged and swallowed.
type Writer struct {
	queue    chan persistJob
	store    InteractionStore
	limiter  ratelimit.Limiter
	cooldown time.Duration
	logger   *slog.Logger
	stopped  chan struct{}
}

// NewWriter creates a background writer with a queue of the given size.
func NewWriter(store InteractionStore, limiter ratelimit.Limiter, cooldown time.Duration, queueSize int, logger *slog.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		queue:    make(chan persistJob, queueSize),
		store:    store,
		limiter:  limiter,
		cooldown: cooldown,
		logger:   logger,
		stopped:  make(chan struct{}),
	}
}

// Enqueue submits a job without blocking. Returns false when the queue is
// full and the job was dropped.
func (w *Writer) Enqueue(job persistJob) bool {
	select {
	case w.queue <- job:
		return true
	default:
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is
// still queued (best-effort). Should be called in a goroutine: go w.Run(ctx)
func (w *Writer) Run(ctx context.Context) {
	defer close(w.stopped)

	for {
		select {
		case job := <-w.queue:
			w.process(ctx, job)
		case <-ctx.Done():
			w.flush()
			return
		}
	}
}

// Wait blocks until Run has returned.
func (w *Writer) Wait() {
	<-w.stopped
}

// flush drains the remaining queue after cancellation. Uses a background
// context: shutdown should not abandon records already acknowledged.
func (w *Writer) flush() {
	for {
		select {
		case job := <-w.queue:
			w.process(context.Background(), job)
		default:
			return
		}
	}
}

func (w *Writer) process(ctx context.Context, job persistJob) {
	if err := w.store.InsertInteraction(ctx, job.interaction); err != nil {
		w.logger.Error("background persistence failed",
			"interaction_id", job.interaction.ID, "error", err)
	}

	if job.recordCooldown && w.limiter.Available(ctx) {
		if err := w.limiter.Record(ctx, job.interaction.DeviceHash, w.cooldown); err != nil {
			w.logger.Warn("cooldown record failed",
				"device_hash", job.interaction.DeviceHash, "error", err)
		}
	}
}

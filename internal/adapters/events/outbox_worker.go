package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/ports"
)

// OutboxWorker relays outbox rows to the publisher. Rows are claimed with a lease so
// several workers can share the table; a failed publish is retried on a later tick until
// maxRetries, then dead-lettered.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
	now        func() time.Time
}

// OutboxWorkerConfig tunes the relay loop. Zero values fall back to defaults.
type OutboxWorkerConfig struct {
	Interval   time.Duration
	BatchSize  int
	ClaimTTL   time.Duration
	MaxRetries int
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, cfg OutboxWorkerConfig) *OutboxWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger.With("module", "events.outbox_worker", "layer", "adapter"),
		outbox:     outbox,
		publisher:  publisher,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		claimTTL:   cfg.ClaimTTL,
		maxRetries: cfg.MaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run drains the outbox once immediately and then on every tick until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"operation", "outbox_process_once", "outcome", "failure", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type batchResult struct {
	published    int
	failed       int
	deadLettered int
}

func (w *OutboxWorker) processOnce(ctx context.Context) (batchResult, error) {
	var res batchResult
	lease := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, lease, w.now().Add(w.claimTTL))
	if err != nil {
		return res, err
	}
	for _, rec := range records {
		w.relay(ctx, rec, lease, &res)
	}
	if len(records) > 0 {
		w.logger.InfoContext(ctx, "outbox batch processed",
			"operation", "outbox_process_once",
			"outcome", "success",
			"batch_size", len(records),
			"published_count", res.published,
			"failed_count", res.failed,
			"dead_lettered_count", res.deadLettered,
		)
	}
	return res, nil
}

// relay publishes one claimed row and records the result against the lease. A row whose
// retry budget is already spent is dead-lettered without another publish attempt.
func (w *OutboxWorker) relay(ctx context.Context, rec ports.OutboxRecord, lease string, res *batchResult) {
	now := w.now()
	if rec.RetryCount >= w.maxRetries {
		res.deadLettered++
		w.mark(ctx, rec, "mark_dead_lettered",
			w.outbox.MarkDeadLettered(ctx, rec.OutboxID, lease, "retry threshold reached before publish", now))
		return
	}

	pubErr := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
	if pubErr == nil {
		res.published++
		w.mark(ctx, rec, "mark_published", w.outbox.MarkPublished(ctx, rec.OutboxID, lease, now))
		return
	}

	res.failed++
	attempts := rec.RetryCount + 1
	log := w.logger.With(
		"operation", "publish_event",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"retry_count", attempts,
		"error", pubErr,
	)
	if attempts < w.maxRetries {
		log.WarnContext(ctx, "outbox publish failed; retry scheduled")
		w.mark(ctx, rec, "mark_failed", w.outbox.MarkFailed(ctx, rec.OutboxID, lease, pubErr.Error(), now))
		return
	}
	res.deadLettered++
	log.ErrorContext(ctx, "outbox event dead-lettered")
	w.mark(ctx, rec, "mark_dead_lettered", w.outbox.MarkDeadLettered(ctx, rec.OutboxID, lease, pubErr.Error(), now))
}

// mark logs a failed bookkeeping write. The lease expires on its own, so the row comes
// back in a later batch.
func (w *OutboxWorker) mark(ctx context.Context, rec ports.OutboxRecord, operation string, err error) {
	if err != nil {
		w.logger.WarnContext(ctx, "outbox bookkeeping failed",
			"operation", operation, "outcome", "failure", "outbox_id", rec.OutboxID, "error", err)
	}
}

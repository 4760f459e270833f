package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultExpirySchedule runs the unpaid-order sweep every ten minutes.
const DefaultExpirySchedule = "@every 10m"

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// OrderExpirer cancels PENDING orders that were never paid.
type OrderExpirer interface {
	ExpireUnpaidOrders(ctx context.Context, batchSize int) (int, error)
}

// OrderExpiryJob runs OrderExpirer on a cron schedule.
type OrderExpiryJob struct {
	logger    *slog.Logger
	expirer   OrderExpirer
	schedule  string
	batchSize int
}

func NewOrderExpiryJob(logger *slog.Logger, expirer OrderExpirer, schedule string, batchSize int) *OrderExpiryJob {
	if schedule == "" {
		schedule = DefaultExpirySchedule
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OrderExpiryJob{
		logger:    logger,
		expirer:   expirer,
		schedule:  schedule,
		batchSize: batchSize,
	}
}

// Run blocks until ctx is cancelled, then waits for a sweep in progress to finish.
func (j *OrderExpiryJob) Run(ctx context.Context) error {
	sched := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := sched.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("order expiry schedule %q: %w", j.schedule, err)
	}
	j.logger.InfoContext(ctx, "order expiry job started",
		"module", "events.order_expiry_job",
		"layer", "adapter",
		"operation", "start",
		"outcome", "success",
		"schedule", j.schedule,
	)
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	return ctx.Err()
}

// RunOnce performs a single sweep and reports how many orders were cancelled.
func (j *OrderExpiryJob) RunOnce(ctx context.Context) int {
	n, err := j.expirer.ExpireUnpaidOrders(ctx, j.batchSize)
	if err != nil {
		j.logger.ErrorContext(ctx, "order expiry sweep failed",
			"module", "events.order_expiry_job",
			"layer", "adapter",
			"operation", "expire_unpaid_orders",
			"outcome", "failure",
			"expired_count", n,
			"error", err,
		)
		return n
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "order expiry sweep completed",
			"module", "events.order_expiry_job",
			"layer", "adapter",
			"operation", "expire_unpaid_orders",
			"outcome", "success",
			"expired_count", n,
		)
	}
	return n
}

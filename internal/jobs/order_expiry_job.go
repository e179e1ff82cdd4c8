package jobs

import (
	"context"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

type ExpiryHandler interface {
	Handle(ctx context.Context, cmd commands.ExpireOrdersCommand) (commands.ExpiryResult, error)
}

// OrderExpiryJob cancels unpaid orders and rejects orders the restaurant never
// accepted.
type OrderExpiryJob struct {
	handler  ExpiryHandler
	cmd      commands.ExpireOrdersCommand
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewOrderExpiryJob(
	handler ExpiryHandler,
	cmd commands.ExpireOrdersCommand,
	schedule string,
	logger *slog.Logger,
) *OrderExpiryJob {
	return &OrderExpiryJob{
		handler:  handler,
		cmd:      cmd,
		schedule: schedule,
		cron:     newCron(),
		logger:   logger.With("component", "order_expiry_job"),
	}
}

func (j *OrderExpiryJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(ctx) }); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.InfoContext(ctx, "Order expiry job started", "schedule", j.schedule)
	return nil
}

// Run performs one pass.
func (j *OrderExpiryJob) Run(ctx context.Context) {
	result, err := j.handler.Handle(ctx, j.cmd)
	if err != nil {
		j.logger.ErrorContext(ctx, "Order expiry failed", "error", err)
		return
	}
	if result.Cancelled > 0 || result.Rejected > 0 || result.Failed > 0 {
		j.logger.InfoContext(ctx, "Stale orders expired",
			"cancelled", result.Cancelled, "rejected", result.Rejected, "failed", result.Failed)
	}
}

func (j *OrderExpiryJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Order expiry job stopped")
}

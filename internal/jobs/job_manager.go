package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// Default schedules, in cron syntax with a leading seconds field.
const (
	DefaultRedispatchSchedule = "*/15 * * * * *"
	DefaultRetrySchedule      = "*/30 * * * * *"
	DefaultExpirySchedule     = "0 * * * * *"
)

// Config carries the schedules and the prepared commands of every job.
type Config struct {
	RedispatchSchedule string
	RetrySchedule      string
	ExpirySchedule     string

	Redispatch commands.RedispatchEventsCommand
	Retry      commands.RetryCollaboratorFailuresCommand
	Expire     commands.ExpireOrdersCommand
}

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	redispatchJob *EventRedispatchJob
	retryJob      *FailureRetryJob
	expiryJob     *OrderExpiryJob
	cancel        context.CancelFunc
}

// NewJobManager creates a new job manager with all required jobs. Empty schedules
// fall back to the defaults.
func NewJobManager(
	cfg Config,
	redispatchHandler RedispatchHandler,
	retryHandler RetryHandler,
	expiryHandler ExpiryHandler,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		redispatchJob: NewEventRedispatchJob(redispatchHandler, cfg.Redispatch,
			orDefault(cfg.RedispatchSchedule, DefaultRedispatchSchedule), logger),
		retryJob: NewFailureRetryJob(retryHandler, cfg.Retry,
			orDefault(cfg.RetrySchedule, DefaultRetrySchedule), logger),
		expiryJob: NewOrderExpiryJob(expiryHandler, cfg.Expire,
			orDefault(cfg.ExpirySchedule, DefaultExpirySchedule), logger),
	}
}

// StartAll starts all scheduled jobs. Runs in progress see their context cancelled by
// StopAll. If a job fails to start, the ones already started are stopped.
func (jm *JobManager) StartAll(ctx context.Context) error {
	ctx, jm.cancel = context.WithCancel(ctx)

	if err := jm.redispatchJob.Start(ctx); err != nil {
		jm.cancel()
		return fmt.Errorf("failed to start event redispatch job: %w", err)
	}

	if err := jm.retryJob.Start(ctx); err != nil {
		jm.cancel()
		jm.redispatchJob.Stop()
		return fmt.Errorf("failed to start failure retry job: %w", err)
	}

	if err := jm.expiryJob.Start(ctx); err != nil {
		jm.cancel()
		jm.redispatchJob.Stop()
		jm.retryJob.Stop()
		return fmt.Errorf("failed to start order expiry job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs and waits for running passes to return.
func (jm *JobManager) StopAll() {
	if jm.cancel != nil {
		jm.cancel()
	}
	jm.expiryJob.Stop()
	jm.retryJob.Stop()
	jm.redispatchJob.Stop()
}

// newCron skips a tick while the previous pass of the same job is still running.
func newCron() *cron.Cron {
	return cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
}

func orDefault(schedule, fallback string) string {
	if schedule == "" {
		return fallback
	}
	return schedule
}

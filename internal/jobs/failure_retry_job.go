package jobs

import (
	"context"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

type RetryHandler interface {
	Handle(ctx context.Context, cmd commands.RetryCollaboratorFailuresCommand) (commands.RetryResult, error)
}

// FailureRetryJob replays collaborator calls that failed after their transition
// committed: kitchen tickets, refunds, courier notifications and credits.
type FailureRetryJob struct {
	handler  RetryHandler
	cmd      commands.RetryCollaboratorFailuresCommand
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewFailureRetryJob(
	handler RetryHandler,
	cmd commands.RetryCollaboratorFailuresCommand,
	schedule string,
	logger *slog.Logger,
) *FailureRetryJob {
	return &FailureRetryJob{
		handler:  handler,
		cmd:      cmd,
		schedule: schedule,
		cron:     newCron(),
		logger:   logger.With("component", "failure_retry_job"),
	}
}

func (j *FailureRetryJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(ctx) }); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.InfoContext(ctx, "Failure retry job started", "schedule", j.schedule)
	return nil
}

// Run performs one pass.
func (j *FailureRetryJob) Run(ctx context.Context) {
	result, err := j.handler.Handle(ctx, j.cmd)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failure retry failed", "error", err)
		return
	}
	if result.Resolved > 0 || result.Failed > 0 {
		j.logger.InfoContext(ctx, "Collaborator failures retried",
			"resolved", result.Resolved, "still_failing", result.Failed)
	}
}

func (j *FailureRetryJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Failure retry job stopped")
}

package jobs

import (
	"context"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

type RedispatchHandler interface {
	Handle(ctx context.Context, cmd commands.RedispatchEventsCommand) (int, error)
}

// EventRedispatchJob hands events that missed the in-process queue, or that have
// parked deliveries, back to the dispatcher.
type EventRedispatchJob struct {
	handler  RedispatchHandler
	cmd      commands.RedispatchEventsCommand
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewEventRedispatchJob(
	handler RedispatchHandler,
	cmd commands.RedispatchEventsCommand,
	schedule string,
	logger *slog.Logger,
) *EventRedispatchJob {
	return &EventRedispatchJob{
		handler:  handler,
		cmd:      cmd,
		schedule: schedule,
		cron:     newCron(),
		logger:   logger.With("component", "event_redispatch_job"),
	}
}

func (j *EventRedispatchJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(ctx) }); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.InfoContext(ctx, "Event redispatch job started", "schedule", j.schedule)
	return nil
}

// Run performs one pass.
func (j *EventRedispatchJob) Run(ctx context.Context) {
	n, err := j.handler.Handle(ctx, j.cmd)
	if err != nil {
		j.logger.ErrorContext(ctx, "Event redispatch failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "Events redispatched", "count", n)
	}
}

func (j *EventRedispatchJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Event redispatch job stopped")
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/ports"
)

// RetryResult counts what one retry run did.
type RetryResult struct {
	Resolved int
	Failed   int
}

// RetryCollaboratorFailuresCommandHandler replays side effects that failed after their
// transition committed. Collaborators are idempotent per order, so a replay of a call
// that actually succeeded is harmless.
type RetryCollaboratorFailuresCommandHandler struct {
	failures   ports.FailureRepository
	uowFactory OrderUoWFactory
	effects    *SideEffects
	logger     *slog.Logger
	now        func() time.Time
}

func NewRetryCollaboratorFailuresCommandHandler(
	failures ports.FailureRepository,
	uowFactory OrderUoWFactory,
	effects *SideEffects,
	logger *slog.Logger,
) *RetryCollaboratorFailuresCommandHandler {
	return &RetryCollaboratorFailuresCommandHandler{
		failures:   failures,
		uowFactory: uowFactory,
		effects:    effects,
		logger:     logger.With("component", "collaborator_retry"),
		now:        time.Now,
	}
}

func (h *RetryCollaboratorFailuresCommandHandler) Handle(
	ctx context.Context,
	cmd RetryCollaboratorFailuresCommand,
) (RetryResult, error) {
	var result RetryResult
	if err := cmd.Validate(); err != nil {
		return result, err
	}

	pending, err := h.failures.GetUnresolved(ctx, cmd.MaxAttempts(), cmd.BatchSize())
	if err != nil {
		return result, fmt.Errorf("load collaborator failures: %w", err)
	}

	for _, f := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if err = h.retry(ctx, f); err != nil {
			result.Failed++
			h.logger.WarnContext(ctx, "collaborator retry failed",
				"failure_id", f.ID.String(),
				"order_id", f.OrderID.String(),
				"event_id", f.EventID.String(),
				"collaborator", f.Collaborator,
				"attempt", f.Attempts+1,
				"error", err,
			)
			if recErr := h.failures.RecordAttempt(ctx, f.ID, err.Error()); recErr != nil {
				return result, recErr
			}
			continue
		}

		if err = h.failures.MarkResolved(ctx, f.ID, h.now().UTC()); err != nil {
			return result, err
		}
		result.Resolved++
		h.logger.InfoContext(ctx, "collaborator failure resolved",
			"failure_id", f.ID.String(), "order_id", f.OrderID.String(), "collaborator", f.Collaborator)
	}
	return result, nil
}

func (h *RetryCollaboratorFailuresCommandHandler) retry(ctx context.Context, f ports.CollaboratorFailure) error {
	e, err := h.uowFactory.Create().EventRepository().Get(ctx, f.EventID)
	if err != nil {
		return err
	}
	return h.effects.Retry(ctx, f, e)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/order"
)

// ExpiryResult counts what one expiry run did.
type ExpiryResult struct {
	Cancelled int
	Rejected  int
	Failed    int
}

// ExpireOrdersCommandHandler moves stale orders to a terminal status as the SYSTEM
// actor, through the orchestrator, so refunds and events follow the normal path.
type ExpireOrdersCommandHandler struct {
	uowFactory  OrderUoWFactory
	transitions *RequestTransitionCommandHandler
	logger      *slog.Logger
	now         func() time.Time
}

func NewExpireOrdersCommandHandler(
	uowFactory OrderUoWFactory,
	transitions *RequestTransitionCommandHandler,
	logger *slog.Logger,
) *ExpireOrdersCommandHandler {
	return &ExpireOrdersCommandHandler{
		uowFactory:  uowFactory,
		transitions: transitions,
		logger:      logger.With("component", "order_expiry"),
		now:         time.Now,
	}
}

// Handle expires one batch of each kind. Orders that changed in the meantime are
// skipped; they are no longer stale.
func (h *ExpireOrdersCommandHandler) Handle(ctx context.Context, cmd ExpireOrdersCommand) (ExpiryResult, error) {
	var result ExpiryResult
	if err := cmd.Validate(); err != nil {
		return result, err
	}

	now := h.now()
	cancelled, failed, err := h.expire(ctx, order.Pending, now.Add(-cmd.PaymentTimeout()), order.Cancelled,
		"payment not received in time", cmd.BatchSize())
	if err != nil {
		return result, err
	}
	result.Cancelled, result.Failed = cancelled, failed

	// NEW is the internal-channel twin of PLACED and waits on the restaurant the same way.
	for _, status := range []order.Status{order.Placed, order.New} {
		rejected, failed, err := h.expire(ctx, status, now.Add(-cmd.AcceptanceTimeout()), order.Rejected,
			"not accepted in time", cmd.BatchSize())
		if err != nil {
			return result, err
		}
		result.Rejected += rejected
		result.Failed += failed
	}

	return result, nil
}

func (h *ExpireOrdersCommandHandler) expire(
	ctx context.Context,
	status order.Status,
	olderThan time.Time,
	target order.Status,
	note string,
	limit int,
) (int, int, error) {
	stale, err := h.uowFactory.Create().OrderRepository().GetStale(ctx, status, olderThan, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("load stale %s orders: %w", status, err)
	}

	var done, failed int
	for _, o := range stale {
		if ctx.Err() != nil {
			return done, failed, ctx.Err()
		}

		cmd, err := NewRequestTransitionCommand(o.ID(), target, order.SystemActor(), note, nil)
		if err != nil {
			return done, failed, err
		}
		if _, err = h.transitions.Handle(ctx, cmd); err != nil {
			var ite *order.InvalidTransitionError
			if errors.As(err, &ite) || errors.Is(err, ErrConflict) {
				h.logger.DebugContext(ctx, "order moved on before expiry",
					"order_id", o.ID().String(), "error", err)
				continue
			}
			failed++
			h.logger.ErrorContext(ctx, "failed to expire order",
				"order_id", o.ID().String(), "target", target.String(), "error", err)
			continue
		}

		done++
		h.logger.InfoContext(ctx, "order expired",
			"order_id", o.ID().String(), "from", status.String(), "to", target.String())
	}
	return done, failed, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
)

// RequestTransitionCommandHandler is the lifecycle orchestrator. Every actor (customer
// app, kitchen, couriers, payment webhook, background jobs) changes order status
// through it.
//
// For one request it:
//   - loads the order and short-circuits an exact replay of the last transition
//   - validates state, channel, payment and actor capability
//   - confirms payment capture before PENDING -> PLACED
//   - writes the order (compare-and-swap on version), its history entry and the
//     lifecycle event in one transaction
//   - on a lost race reloads and re-validates once, then gives up with ErrConflict
//   - runs the synchronous side effects (kitchen ticket, refund, courier credit)
//     after commit; their failures are recorded for retry and never returned
//   - hands the event to the dispatcher without waiting for subscribers
//
// Example:
//
//	handler := NewRequestTransitionCommandHandler(uowFactory, payments, effects, dispatcher, logger)
//	cmd, _ := NewRequestTransitionCommand(orderID, order.Ready, kitchen, "", nil)
//
//	updated, err := handler.Handle(ctx, cmd)
//	var ite *order.InvalidTransitionError
//	switch {
//	case errors.As(err, &ite):
//	    // ite.Rule and ite.Reason explain the rejection
//	case errors.Is(err, ErrConflict):
//	    // another actor changed the order; retry
//	case err != nil:
//	    return err
//	}
type RequestTransitionCommandHandler struct {
	uowFactory OrderUoWFactory
	policy     services.TransitionPolicy
	payments   ports.PaymentGateway
	effects    *SideEffects
	dispatcher ports.EventDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewRequestTransitionCommandHandler wires the orchestrator.
func NewRequestTransitionCommandHandler(
	uowFactory OrderUoWFactory,
	payments ports.PaymentGateway,
	effects *SideEffects,
	dispatcher ports.EventDispatcher,
	logger *slog.Logger,
) *RequestTransitionCommandHandler {
	return &RequestTransitionCommandHandler{
		uowFactory: uowFactory,
		policy:     services.NewTransitionPolicy(),
		payments:   payments,
		effects:    effects,
		dispatcher: dispatcher,
		logger:     logger.With("component", "lifecycle_orchestrator"),
		now:        time.Now,
	}
}

// Handle applies the requested transition and returns the order as persisted.
func (h *RequestTransitionCommandHandler) Handle(ctx context.Context, cmd RequestTransitionCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		o, e, err := h.attempt(ctx, cmd)
		if errors.Is(err, errs.ErrVersionIsInvalid) {
			if attempt < maxAttempts {
				h.logger.DebugContext(ctx, "version conflict, re-validating",
					"order_id", cmd.OrderID().String(), "target", cmd.Target().String())
				continue
			}
			return nil, fmt.Errorf("%w: order %s: %w", ErrConflict, cmd.OrderID(), err)
		}
		if err != nil {
			return nil, err
		}
		if e == nil {
			return o, nil
		}

		h.logger.InfoContext(ctx, "order transitioned",
			"order_id", o.ID().String(),
			"event_id", e.ID().String(),
			"from", e.Snapshot().PreviousStatus,
			"to", o.Status().String(),
			"actor", cmd.Actor().String(),
		)

		o = h.effects.Run(ctx, o, e)
		if !h.dispatcher.Enqueue(e) {
			h.logger.WarnContext(ctx, "dispatch queue full, event left for redispatch",
				"order_id", o.ID().String(), "event_id", e.ID().String())
		}
		return o, nil
	}
}

// attempt runs one load-validate-persist cycle. A nil event means nothing was written.
func (h *RequestTransitionCommandHandler) attempt(
	ctx context.Context,
	cmd RequestTransitionCommand,
) (*order.Order, *event.LifecycleEvent, error) {
	o, err := h.uowFactory.Create().OrderRepository().Get(ctx, cmd.OrderID())
	if err != nil {
		return nil, nil, err
	}

	if o.IsReplayOf(cmd.Target(), cmd.Actor()) {
		return o, nil, nil
	}
	if o.Status() == cmd.Target() {
		return nil, nil, order.NewInvalidTransitionError(order.RuleState, o.Status(), cmd.Target(),
			fmt.Sprintf("order is already in status %s", o.Status()))
	}

	in, err := h.policy.Authorize(o, services.TransitionRequest{
		Target:    cmd.Target(),
		Actor:     cmd.Actor(),
		Note:      cmd.Notes(),
		CourierID: cmd.CourierID(),
		At:        h.now(),
	})
	if err != nil {
		return nil, nil, err
	}

	if needsCapture(o, in.Target) {
		if err = h.capture(ctx, o); err != nil {
			return nil, nil, err
		}
	}

	tr, err := o.ApplyTransition(in)
	if err != nil {
		return nil, nil, err
	}
	e, err := event.FromTransition(o, tr)
	if err != nil {
		return nil, nil, err
	}

	if err = persist(ctx, h.uowFactory, o, e); err != nil {
		return nil, nil, err
	}
	return o, e, nil
}

// capture confirms payment with the gateway. A decline is persisted as FAILED and
// rejects the transition; a gateway error aborts without writing anything.
func (h *RequestTransitionCommandHandler) capture(ctx context.Context, o *order.Order) error {
	result, err := h.payments.ConfirmCapture(ctx, o.ID())
	if err != nil {
		return fmt.Errorf("%w: payment capture for order %s: %w", ports.ErrCollaboratorFailure, o.ID(), err)
	}

	if result.Approved {
		return o.CompletePayment()
	}

	if err = o.FailPayment(); err != nil {
		return err
	}
	if err = persist(ctx, h.uowFactory, o, nil); err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "payment capture declined",
		"order_id", o.ID().String(), "reason", result.Reason)

	return order.NewInvalidTransitionError(order.RulePayment, o.Status(), order.Placed,
		fmt.Sprintf("payment capture declined: %s", result.Reason))
}

func needsCapture(o *order.Order, target order.Status) bool {
	return o.Status() == order.Pending && target == order.Placed && o.PaymentStatus() != order.PaymentCompleted
}

// persist writes the order and, when present, its event in one transaction and marks
// the aggregate persisted at the new version.
func persist(ctx context.Context, factory OrderUoWFactory, o *order.Order, e *event.LifecycleEvent) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.OrderRepository().Update(ctx, o); err != nil {
		return err
	}
	if e != nil {
		if err := uow.EventRepository().Add(ctx, e); err != nil {
			return err
		}
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}

	o.MarkPersisted(o.Version() + 1)
	return nil
}

package commands

import (
	"context"
	"errors"
	"log/slog"

	"orderflow/internal/core/domain/model/order"
)

// ConfirmPaymentCommandHandler applies a payment gateway webhook.
//
// A captured payment completes the payment and moves a PENDING order to PLACED as the
// SYSTEM actor. A declined payment marks the payment FAILED and leaves the order PENDING
// until the customer cancels or the expiry job cancels it.
//
// A capture that lands after the order was cancelled or rejected, typically by the
// expiry job, is refunded straight away.
//
// Gateways retry webhooks, so both paths are idempotent: completing a completed payment
// is a no-op, a refunded payment stays refunded and the PLACED request is recognised as
// a replay.
type ConfirmPaymentCommandHandler struct {
	payments    *paymentUpdater
	transitions *RequestTransitionCommandHandler
	effects     *SideEffects
	logger      *slog.Logger
}

func NewConfirmPaymentCommandHandler(
	uowFactory OrderUoWFactory,
	transitions *RequestTransitionCommandHandler,
	effects *SideEffects,
	logger *slog.Logger,
) *ConfirmPaymentCommandHandler {
	return &ConfirmPaymentCommandHandler{
		payments:    newPaymentUpdater(uowFactory),
		transitions: transitions,
		effects:     effects,
		logger:      logger.With("component", "payment_webhook"),
	}
}

func (h *ConfirmPaymentCommandHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if !cmd.Captured() {
		o, err := h.payments.update(ctx, cmd.OrderID(), (*order.Order).FailPayment)
		if err != nil {
			return nil, err
		}
		h.logger.InfoContext(ctx, "payment declined",
			"order_id", o.ID().String(), "reason", cmd.Reason())
		return o, nil
	}

	o, err := h.payments.update(ctx, cmd.OrderID(), completeUnlessRefunded)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "payment captured", "order_id", o.ID().String())

	if o.NeedsRefund() {
		return h.effects.RefundLateCapture(ctx, o)
	}
	if o.Status() != order.Pending {
		return o, nil
	}

	transition, err := NewRequestTransitionCommand(o.ID(), order.Placed, order.SystemActor(), "payment captured", nil)
	if err != nil {
		return nil, err
	}
	placed, err := h.transitions.Handle(ctx, transition)
	if errors.Is(err, order.ErrInvalidTransition) {
		// cancelled between the capture and the PLACED request
		current, loadErr := h.payments.load(ctx, o.ID())
		if loadErr == nil && current.NeedsRefund() {
			return h.effects.RefundLateCapture(ctx, current)
		}
	}
	return placed, err
}

// completeUnlessRefunded lets a redelivered capture webhook pass once the late-capture
// refund has gone through.
func completeUnlessRefunded(o *order.Order) error {
	if o.PaymentStatus() == order.PaymentRefunded {
		return nil
	}
	return o.CompletePayment()
}

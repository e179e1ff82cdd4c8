package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
)

// Collaborator names used in failure records.
const (
	CollaboratorKitchenTicket = "kitchen_ticket"
	CollaboratorRefund        = "payment_refund"
	CollaboratorCourierCredit = "courier_credit"
)

// DefaultCollaboratorTimeout bounds a single synchronous collaborator call.
const DefaultCollaboratorTimeout = 5 * time.Second

// SideEffects runs the collaborator calls that follow a committed transition:
//
//	order.accepted                        -> kitchen ticket
//	order.cancelled / order.rejected      -> refund, when payment was captured
//	order.delivered on a DELIVERY order   -> courier wallet credit
//
// A failing call never undoes the transition. It is logged and stored as a
// CollaboratorFailure so the retry job can replay it.
type SideEffects struct {
	uowFactory OrderUoWFactory
	kitchen    ports.KitchenTicketSink
	payments   ports.PaymentGateway
	couriers   ports.CourierAssignment
	fees       services.DeliveryFeeCalculator
	failures   ports.FailureRepository
	orders     *paymentUpdater
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewSideEffects creates the side-effect runner.
func NewSideEffects(
	uowFactory OrderUoWFactory,
	kitchen ports.KitchenTicketSink,
	payments ports.PaymentGateway,
	couriers ports.CourierAssignment,
	failures ports.FailureRepository,
	timeout time.Duration,
	logger *slog.Logger,
) *SideEffects {
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &SideEffects{
		uowFactory: uowFactory,
		kitchen:    kitchen,
		payments:   payments,
		couriers:   couriers,
		fees:       services.NewDeliveryFeeCalculator(),
		failures:   failures,
		orders:     newPaymentUpdater(uowFactory),
		timeout:    timeout,
		logger:     logger.With("component", "side_effects"),
		now:        time.Now,
	}
}

// Applicable lists the collaborators to call for e on o.
func (s *SideEffects) Applicable(o *order.Order, e *event.LifecycleEvent) []string {
	switch e.Type() { //nolint:exhaustive // other events have no synchronous side effects
	case event.OrderAccepted:
		return []string{CollaboratorKitchenTicket}
	case event.OrderCancelled, event.OrderRejected:
		if o.PaymentStatus() == order.PaymentCompleted {
			return []string{CollaboratorRefund}
		}
	case event.OrderDelivered:
		if o.Channel() == order.ChannelDelivery {
			return []string{CollaboratorCourierCredit}
		}
	}
	return nil
}

// Run executes every applicable side effect and returns the freshest copy of the order.
func (s *SideEffects) Run(ctx context.Context, o *order.Order, e *event.LifecycleEvent) *order.Order {
	for _, collaborator := range s.Applicable(o, e) {
		updated, err := s.execute(ctx, collaborator, o, e)
		if err != nil {
			s.recordFailure(ctx, collaborator, o, e, err)
			continue
		}
		if updated != nil {
			o = updated
		}
	}
	return o
}

// RefundLateCapture refunds money captured after o was already cancelled or rejected.
// The refund is attributed to the exit event, so a failed call is recorded and
// retried like the refund a cancellation triggers itself.
func (s *SideEffects) RefundLateCapture(ctx context.Context, o *order.Order) (*order.Order, error) {
	if !o.NeedsRefund() {
		return o, nil
	}

	events, err := s.uowFactory.Create().EventRepository().GetByOrder(ctx, o.ID())
	if err != nil {
		return nil, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if t := events[i].Type(); t == event.OrderCancelled || t == event.OrderRejected {
			s.logger.WarnContext(ctx, "payment captured after the order was closed",
				"order_id", o.ID().String(), "status", o.Status().String())
			return s.Run(ctx, o, events[i]), nil
		}
	}
	return nil, fmt.Errorf("order %s is %s but has no exit event", o.ID(), o.Status())
}

// Retry replays a recorded failure against the current order state.
func (s *SideEffects) Retry(ctx context.Context, f ports.CollaboratorFailure, e *event.LifecycleEvent) error {
	o, err := s.orders.load(ctx, f.OrderID)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, f.Collaborator, o, e)
	return err
}

func (s *SideEffects) execute(
	ctx context.Context,
	collaborator string,
	o *order.Order,
	e *event.LifecycleEvent,
) (*order.Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch collaborator {
	case CollaboratorKitchenTicket:
		ticketID, err := s.kitchen.Create(callCtx, e.Snapshot())
		if err != nil {
			return nil, wrapCollaborator(collaborator, err)
		}
		s.logger.InfoContext(ctx, "kitchen ticket created", "order_id", o.ID().String(), "ticket_id", ticketID)
		return nil, nil

	case CollaboratorRefund:
		if o.PaymentStatus() == order.PaymentRefunded {
			return nil, nil
		}
		refundID, err := s.payments.Refund(callCtx, o.ID(), o.Totals().Total())
		if err != nil {
			return nil, wrapCollaborator(collaborator, err)
		}
		s.logger.InfoContext(ctx, "payment refunded",
			"order_id", o.ID().String(), "refund_id", refundID, "amount", o.Totals().Total().String())
		return s.orders.update(ctx, o.ID(), (*order.Order).RefundPayment)

	case CollaboratorCourierCredit:
		courierID := o.CourierID()
		if courierID == nil {
			return nil, fmt.Errorf("%s: order %s has no courier", collaborator, o.ID())
		}
		fee := s.fees.CourierFee(o.Totals().Total())
		if err := s.couriers.Credit(callCtx, *courierID, o.ID(), fee); err != nil {
			return nil, wrapCollaborator(collaborator, err)
		}
		s.logger.InfoContext(ctx, "courier credited",
			"order_id", o.ID().String(), "courier_id", courierID.String(), "amount", fee.String())
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown collaborator %q", collaborator)
	}
}

func (s *SideEffects) recordFailure(
	ctx context.Context,
	collaborator string,
	o *order.Order,
	e *event.LifecycleEvent,
	cause error,
) {
	s.logger.ErrorContext(ctx, "collaborator call failed",
		"order_id", o.ID().String(),
		"event_id", e.ID().String(),
		"collaborator", collaborator,
		"error", cause,
	)

	failure := ports.CollaboratorFailure{
		ID:           kernel.NewUUID(),
		OrderID:      o.ID(),
		EventID:      e.ID(),
		Collaborator: collaborator,
		Error:        cause.Error(),
		Attempts:     1,
		CreatedAt:    s.now().UTC(),
	}
	// Detach from the request context so a cancelled caller cannot lose the record.
	if err := s.failures.Add(context.WithoutCancel(ctx), failure); err != nil {
		s.logger.ErrorContext(ctx, "failed to record collaborator failure",
			"order_id", o.ID().String(), "event_id", e.ID().String(), "collaborator", collaborator, "error", err)
	}
}

func wrapCollaborator(name string, err error) error {
	if errors.Is(err, ports.ErrCollaboratorFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ports.ErrCollaboratorFailure, name, err)
}

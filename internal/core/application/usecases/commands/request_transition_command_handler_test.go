package commands_test

import (
	"errors"
	"sync"
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewRequestTransitionCommand(t *testing.T) {
	kitchen := newActor(t, order.RoleKitchen)

	t.Run("valid", func(t *testing.T) {
		cmd, err := commands.NewRequestTransitionCommand(kernel.NewUUID(), order.Accepted, kitchen, "10 min", nil)

		require.NoError(t, err)
		require.NoError(t, cmd.Validate())
		assert.Equal(t, order.Accepted, cmd.Target())
		assert.Equal(t, "10 min", cmd.Notes())
	})

	t.Run("invalid fields are joined", func(t *testing.T) {
		long := make([]byte, commands.MaxNotesLength+1)

		_, err := commands.NewRequestTransitionCommand(kernel.UUID{}, order.Unknown, order.Actor{}, string(long), nil)

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
		require.ErrorIs(t, err, order.ErrActorIsNotConstructed)
		assert.Contains(t, err.Error(), "request transition")
	})

	t.Run("zero value is rejected by the handler", func(t *testing.T) {
		h := newHarness()

		_, err := h.handler.Handle(t.Context(), commands.RequestTransitionCommand{})

		require.ErrorIs(t, err, commands.ErrRequestTransitionCommandIsNotConstructed)
	})
}

func TestRequestTransition_AcceptCreatesKitchenTicket(t *testing.T) {
	// Given
	h := newHarness()
	customer := newActor(t, order.RoleCustomer)
	o := newTestOrder(t, order.ChannelPickup, order.PaymentCash, customer)
	h.store.seed(t, o)

	h.kitchen.On("Create", mock.Anything, mock.MatchedBy(func(s event.Snapshot) bool {
		return s.OrderID == o.ID().String() && s.Status == "ACCEPTED"
	})).Return("ticket-1", nil).Once()
	h.acceptEvents()

	// When
	updated, err := h.request(t, o.ID(), order.Accepted, newActor(t, order.RoleKitchen), nil)

	// Then
	require.NoError(t, err)
	assert.Equal(t, order.Accepted, updated.Status())
	assert.Equal(t, int64(2), updated.Version())
	assert.Equal(t, []event.Type{event.OrderAccepted}, h.store.eventTypes())
	assert.Equal(t, order.Accepted, h.store.load(t, o.ID()).Status())
	h.kitchen.AssertExpectations(t)
	h.dispatcher.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestRequestTransition_IdempotentReplay(t *testing.T) {
	h := newHarness()
	customer := newActor(t, order.RoleCustomer)
	kitchen := newActor(t, order.RoleKitchen)
	o := newTestOrder(t, order.ChannelDineIn, order.PaymentCash, customer)
	h.store.seed(t, o)
	h.kitchen.On("Create", mock.Anything, mock.Anything).Return("ticket-1", nil).Once()
	h.acceptEvents()

	first, err := h.request(t, o.ID(), order.Accepted, kitchen, nil)
	require.NoError(t, err)

	t.Run("same actor gets the current order back", func(t *testing.T) {
		again, err := h.request(t, o.ID(), order.Accepted, kitchen, nil)

		require.NoError(t, err)
		assert.Equal(t, first.Version(), again.Version())
		assert.Len(t, again.History(), len(first.History()))
		assert.Len(t, h.store.eventTypes(), 1)
		h.dispatcher.AssertNumberOfCalls(t, "Enqueue", 1)
		h.kitchen.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("another actor is told the order is already there", func(t *testing.T) {
		_, err := h.request(t, o.ID(), order.Accepted, newActor(t, order.RoleKitchen), nil)

		var ite *order.InvalidTransitionError
		require.ErrorAs(t, err, &ite)
		assert.Equal(t, order.RuleState, ite.Rule)
		assert.Equal(t, "order is already in status ACCEPTED", ite.Reason)
	})
}

func TestRequestTransition_RejectedRequestsLeaveNoTrace(t *testing.T) {
	tests := []struct {
		name   string
		target order.Status
		role   order.Role
		rule   order.Rule
	}{
		{name: "skipping steps", target: order.Ready, role: order.RoleKitchen, rule: order.RuleState},
		{name: "courier cannot reject", target: order.Rejected, role: order.RoleCourier, rule: order.RuleCapability},
		{name: "customer cannot accept", target: order.Accepted, role: order.RoleCustomer, rule: order.RuleCapability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			customer := newActor(t, order.RoleCustomer)
			o := newTestOrder(t, order.ChannelDineIn, order.PaymentCash, customer)
			h.store.seed(t, o)

			_, err := h.request(t, o.ID(), tt.target, newActor(t, tt.role), nil)

			var ite *order.InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			require.ErrorIs(t, err, order.ErrInvalidTransition)
			assert.Equal(t, tt.rule, ite.Rule)

			stored := h.store.load(t, o.ID())
			assert.Equal(t, order.Placed, stored.Status())
			assert.Equal(t, int64(1), stored.Version())
			assert.Empty(t, h.store.eventTypes())
			h.dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything)
		})
	}
}

func TestRequestTransition_UnknownOrder(t *testing.T) {
	h := newHarness()

	_, err := h.request(t, kernel.NewUUID(), order.Accepted, newActor(t, order.RoleKitchen), nil)

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestRequestTransition_VersionConflict(t *testing.T) {
	t.Run("one lost race is retried transparently", func(t *testing.T) {
		h := newHarness()
		o := newTestOrder(t, order.ChannelPickup, order.PaymentCash, newActor(t, order.RoleCustomer))
		h.store.seed(t, o)
		h.store.failUpdates = 1
		h.kitchen.On("Create", mock.Anything, mock.Anything).Return("ticket-1", nil)
		h.acceptEvents()

		updated, err := h.request(t, o.ID(), order.Accepted, newActor(t, order.RoleKitchen), nil)

		require.NoError(t, err)
		assert.Equal(t, order.Accepted, updated.Status())
		assert.Len(t, h.store.eventTypes(), 1)
	})

	t.Run("a second lost race is a conflict", func(t *testing.T) {
		h := newHarness()
		o := newTestOrder(t, order.ChannelPickup, order.PaymentCash, newActor(t, order.RoleCustomer))
		h.store.seed(t, o)
		h.store.failUpdates = 2

		_, err := h.request(t, o.ID(), order.Accepted, newActor(t, order.RoleKitchen), nil)

		require.ErrorIs(t, err, commands.ErrConflict)
		require.ErrorIs(t, err, errs.ErrVersionIsInvalid)
		assert.Equal(t, order.Placed, h.store.load(t, o.ID()).Status())
		assert.Empty(t, h.store.eventTypes())
		h.kitchen.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRequestTransition_ConcurrentRequestsOneWins(t *testing.T) {
	h := newHarness()
	o := newTestOrder(t, order.ChannelPickup, order.PaymentCash, newActor(t, order.RoleCustomer))
	h.store.seed(t, o)
	h.kitchen.On("Create", mock.Anything, mock.Anything).Return("ticket-1", nil)
	h.acceptEvents()

	targets := []order.Status{order.Accepted, order.Rejected}
	actors := []order.Actor{newActor(t, order.RoleKitchen), newActor(t, order.RoleKitchen)}
	results := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd, err := commands.NewRequestTransitionCommand(o.ID(), target, actors[i], "", nil)
			if err != nil {
				results[i] = err
				return
			}
			_, results[i] = h.handler.Handle(t.Context(), cmd)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var ite *order.InvalidTransitionError
		assert.True(t, errors.As(err, &ite) || errors.Is(err, commands.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, h.store.eventTypes(), 1)

	stored := h.store.load(t, o.ID())
	assert.Equal(t, int64(2), stored.Version())
	assert.Len(t, stored.History(), 2)
}

func TestRequestTransition_PaymentCapture(t *testing.T) {
	t.Run("approved capture places the order", func(t *testing.T) {
		h := newHarness()
		o := newTestOrder(t, order.ChannelDelivery, order.PaymentOnline, newActor(t, order.RoleCustomer))
		require.Equal(t, order.Pending, o.Status())
		h.store.seed(t, o)
		h.payments.On("ConfirmCapture", mock.Anything, o.ID()).Return(ports.CaptureResult{Approved: true}, nil).Once()
		h.acceptEvents()

		updated, err := h.request(t, o.ID(), order.Placed, order.SystemActor(), nil)

		require.NoError(t, err)
		assert.Equal(t, order.Placed, updated.Status())
		assert.Equal(t, order.PaymentCompleted, updated.PaymentStatus())
		assert.Equal(t, []event.Type{event.OrderPlaced}, h.store.eventTypes())
		h.payments.AssertExpectations(t)
	})

	t.Run("declined capture fails the payment and keeps the order pending", func(t *testing.T) {
		h := newHarness()
		o := newTestOrder(t, order.ChannelDelivery, order.PaymentOnline, newActor(t, order.RoleCustomer))
		h.store.seed(t, o)
		h.payments.On("ConfirmCapture", mock.Anything, o.ID()).
			Return(ports.CaptureResult{Approved: false, Reason: "insufficient funds"}, nil).Once()

		_, err := h.request(t, o.ID(), order.Placed, order.SystemActor(), nil)

		var ite *order.InvalidTransitionError
		require.ErrorAs(t, err, &ite)
		assert.Equal(t, order.RulePayment, ite.Rule)
		assert.Equal(t, "payment capture declined: insufficient funds", ite.Reason)

		stored := h.store.load(t, o.ID())
		assert.Equal(t, order.Pending, stored.Status())
		assert.Equal(t, order.PaymentFailed, stored.PaymentStatus())
		assert.Empty(t, h.store.eventTypes())

		_, err = h.request(t, o.ID(), order.Placed, order.SystemActor(), nil)
		require.ErrorAs(t, err, &ite)
		assert.Contains(t, ite.Reason, "FAILED")
		h.payments.AssertNumberOfCalls(t, "ConfirmCapture", 1)
	})

	t.Run("gateway error persists nothing", func(t *testing.T) {
		h := newHarness()
		o := newTestOrder(t, order.ChannelPickup, order.PaymentOnline, newActor(t, order.RoleCustomer))
		h.store.seed(t, o)
		h.payments.On("ConfirmCapture", mock.Anything, o.ID()).
			Return(ports.CaptureResult{}, errors.New("gateway timeout")).Once()

		_, err := h.request(t, o.ID(), order.Placed, order.SystemActor(), nil)

		require.ErrorIs(t, err, ports.ErrCollaboratorFailure)
		stored := h.store.load(t, o.ID())
		assert.Equal(t, int64(1), stored.Version())
		assert.Equal(t, order.PaymentPending, stored.PaymentStatus())
	})
}

func TestRequestTransition_FullDeliveryEmitsOneEventPerStep(t *testing.T) {
	// Given
	h := newHarness()
	customer := newActor(t, order.RoleCustomer)
	kitchen := newActor(t, order.RoleKitchen)
	courier := newActor(t, order.RoleCourier)
	o := newTestOrder(t, order.ChannelDelivery, order.PaymentOnline, customer)
	h.store.seed(t, o)

	h.payments.On("ConfirmCapture", mock.Anything, o.ID()).Return(ports.CaptureResult{Approved: true}, nil).Once()
	h.kitchen.On("Create", mock.Anything, mock.Anything).Return("ticket-1", nil).Once()
	// total is 30.00, so the courier earns 5.00 + 4.50
	h.couriers.On("Credit", mock.Anything, courier.ID(), o.ID(), moneyEq("9.50")).Return(nil).Once()
	h.acceptEvents()

	steps := []struct {
		target order.Status
		actor  order.Actor
	}{
		{order.Placed, order.SystemActor()},
		{order.Accepted, kitchen},
		{order.Preparing, kitchen},
		{order.Ready, kitchen},
		{order.CourierAssigned, courier},
		{order.OnDelivery, courier},
		{order.Delivered, courier},
	}

	// When
	for _, step := range steps {
		_, err := h.request(t, o.ID(), step.target, step.actor, nil)
		require.NoError(t, err, "step %s", step.target)
	}

	// Then
	assert.Equal(t, []event.Type{
		event.OrderPlaced,
		event.OrderAccepted,
		event.OrderPreparing,
		event.OrderReady,
		event.OrderCourierAssigned,
		event.OrderOnDelivery,
		event.OrderDelivered,
	}, h.store.eventTypes())

	stored := h.store.load(t, o.ID())
	assert.Equal(t, order.Delivered, stored.Status())
	assert.Len(t, stored.History(), len(steps)+1)
	require.NotNil(t, stored.CourierID())
	assert.True(t, stored.CourierID().IsEqual(courier.ID()))
	h.couriers.AssertExpectations(t)
	h.kitchen.AssertExpectations(t)
	h.failures.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestRequestTransition_RefundFailureDoesNotUndoCancellation(t *testing.T) {
	// Given a paid pickup order
	h := newHarness()
	customer := newActor(t, order.RoleCustomer)
	o := newTestOrder(t, order.ChannelPickup, order.PaymentOnline, customer)
	h.store.seed(t, o)
	h.payments.On("ConfirmCapture", mock.Anything, o.ID()).Return(ports.CaptureResult{Approved: true}, nil).Once()
	h.acceptEvents()
	_, err := h.request(t, o.ID(), order.Placed, order.SystemActor(), nil)
	require.NoError(t, err)

	h.payments.On("Refund", mock.Anything, o.ID(), moneyEq("30.00")).
		Return("", errors.New("gateway down")).Once()
	h.failures.On("Add", mock.Anything, mock.MatchedBy(func(f ports.CollaboratorFailure) bool {
		return f.OrderID.IsEqual(o.ID()) &&
			f.Collaborator == commands.CollaboratorRefund &&
			f.Attempts == 1 &&
			f.Error != ""
	})).Return(nil).Once()

	// When the customer cancels
	updated, err := h.request(t, o.ID(), order.Cancelled, customer, nil)

	// Then
	require.NoError(t, err)
	assert.Equal(t, order.Cancelled, updated.Status())
	assert.Equal(t, order.PaymentCompleted, updated.PaymentStatus())
	assert.True(t, updated.CancelledBy().IsEqual(customer.ID()))

	stored := h.store.load(t, o.ID())
	assert.Equal(t, order.Cancelled, stored.Status())
	assert.Equal(t, []event.Type{event.OrderPlaced, event.OrderCancelled}, h.store.eventTypes())
	h.failures.AssertExpectations(t)
	h.dispatcher.AssertNumberOfCalls(t, "Enqueue", 2)
}

func TestRequestTransition_SuccessfulRefundMarksPaymentRefunded(t *testing.T) {
	h := newHarness()
	customer := newActor(t, order.RoleCustomer)
	o := newTestOrder(t, order.ChannelPickup, order.PaymentOnline, customer)
	h.store.seed(t, o)
	h.payments.On("ConfirmCapture", mock.Anything, o.ID()).Return(ports.CaptureResult{Approved: true}, nil).Once()
	h.payments.On("Refund", mock.Anything, o.ID(), moneyEq("30.00")).Return("refund-1", nil).Once()
	h.acceptEvents()

	_, err := h.request(t, o.ID(), order.Placed, order.SystemActor(), nil)
	require.NoError(t, err)
	updated, err := h.request(t, o.ID(), order.Rejected, newActor(t, order.RoleKitchen), nil)

	require.NoError(t, err)
	assert.Equal(t, order.Rejected, updated.Status())
	assert.Equal(t, order.PaymentRefunded, updated.PaymentStatus())
	assert.Equal(t, order.PaymentRefunded, h.store.load(t, o.ID()).PaymentStatus())
	assert.Equal(t, int64(4), updated.Version())
	h.payments.AssertExpectations(t)
}

func TestRequestTransition_FullQueueStillSucceeds(t *testing.T) {
	h := newHarness()
	o := newTestOrder(t, order.ChannelDineIn, order.PaymentCash, newActor(t, order.RoleCustomer))
	h.store.seed(t, o)
	h.kitchen.On("Create", mock.Anything, mock.Anything).Return("ticket-1", nil)
	h.dispatcher.On("Enqueue", mock.Anything).Return(false).Once()

	updated, err := h.request(t, o.ID(), order.Accepted, newActor(t, order.RoleWaiter), nil)

	require.NoError(t, err)
	assert.Equal(t, order.Accepted, updated.Status())
	assert.Len(t, h.store.eventTypes(), 1)
}

package services_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 18, 30, 0, 0, time.UTC)

func newActor(t *testing.T, role order.Role) order.Actor {
	t.Helper()
	a, err := order.NewActor(kernel.NewUUID(), role)
	require.NoError(t, err)
	return a
}

func newOrder(t *testing.T, channel order.Channel, customer order.Actor) *order.Order {
	t.Helper()
	price := kernel.MustMoney("15.00")
	item, err := order.NewItem(kernel.NewUUID(), "Burger", 1, price)
	require.NoError(t, err)
	o, err := order.NewOrder(order.Draft{
		ID:            kernel.NewUUID(),
		Number:        order.NewNumber(now),
		RestaurantID:  kernel.NewUUID(),
		CustomerID:    customer.ID(),
		Channel:       channel,
		PaymentMethod: order.PaymentCash,
		Items:         []order.Item{item},
		Fees:          kernel.ZeroMoney(),
		Tax:           kernel.ZeroMoney(),
		Discount:      kernel.ZeroMoney(),
		PlacedBy:      customer,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	return o
}

// walk applies targets through the policy with the given actor.
func walk(t *testing.T, o *order.Order, a order.Actor, targets ...order.Status) {
	t.Helper()
	policy := services.NewTransitionPolicy()
	for _, target := range targets {
		in, err := policy.Authorize(o, services.TransitionRequest{Target: target, Actor: a, At: now})
		require.NoError(t, err, "authorize %s", target)
		_, err = o.ApplyTransition(in)
		require.NoError(t, err)
	}
}

func requireRule(t *testing.T, err error, rule order.Rule) {
	t.Helper()
	var ite *order.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, rule, ite.Rule, ite.Reason)
}

func TestTransitionPolicy_KitchenOnlyStates(t *testing.T) {
	policy := services.NewTransitionPolicy()
	customer := newActor(t, order.RoleCustomer)
	o := newOrder(t, order.ChannelPickup, customer)
	walk(t, o, newActor(t, order.RoleWaiter), order.Accepted)

	for _, role := range []order.Role{order.RoleWaiter, order.RoleAdmin, order.RoleCourier, order.RoleCustomer, order.RoleSystem} {
		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Preparing, Actor: newActor(t, role), At: now})
		requireRule(t, err, order.RuleCapability)
	}

	_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Preparing, Actor: newActor(t, order.RoleKitchen), At: now})
	require.NoError(t, err)
}

func TestTransitionPolicy_CourierAssignment(t *testing.T) {
	policy := services.NewTransitionPolicy()
	customer := newActor(t, order.RoleCustomer)
	kitchen := newActor(t, order.RoleKitchen)

	t.Run("courier assigns themselves", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)
		walk(t, o, kitchen, order.Accepted, order.Preparing, order.Ready)
		courier := newActor(t, order.RoleCourier)

		in, err := policy.Authorize(o, services.TransitionRequest{Target: order.CourierAssigned, Actor: courier, At: now})

		require.NoError(t, err)
		require.NotNil(t, in.CourierID)
		assert.True(t, in.CourierID.IsEqual(courier.ID()))
	})

	t.Run("courier cannot assign someone else", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)
		walk(t, o, kitchen, order.Accepted, order.Preparing, order.Ready)
		other := kernel.NewUUID()

		_, err := policy.Authorize(o, services.TransitionRequest{
			Target: order.CourierAssigned, Actor: newActor(t, order.RoleCourier), CourierID: &other, At: now,
		})

		requireRule(t, err, order.RuleCapability)
	})

	t.Run("admin must name a courier", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)
		walk(t, o, kitchen, order.Accepted, order.Preparing, order.Ready)
		admin := newActor(t, order.RoleAdmin)

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.CourierAssigned, Actor: admin, At: now})
		requireRule(t, err, order.RuleInput)

		courierID := kernel.NewUUID()
		in, err := policy.Authorize(o, services.TransitionRequest{
			Target: order.CourierAssigned, Actor: admin, CourierID: &courierID, At: now,
		})
		require.NoError(t, err)
		assert.True(t, in.CourierID.IsEqual(courierID))
	})

	t.Run("only the assigned courier moves the order on", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)
		walk(t, o, kitchen, order.Accepted, order.Preparing, order.Ready)
		courier := newActor(t, order.RoleCourier)
		walk(t, o, courier, order.CourierAssigned)

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.OnDelivery, Actor: newActor(t, order.RoleCourier), At: now})
		requireRule(t, err, order.RuleCapability)

		_, err = policy.Authorize(o, services.TransitionRequest{Target: order.OnDelivery, Actor: newActor(t, order.RoleAdmin), At: now})
		requireRule(t, err, order.RuleCapability)

		walk(t, o, courier, order.OnDelivery, order.Delivered)
		assert.Equal(t, order.Delivered, o.Status())
	})
}

func TestTransitionPolicy_Cancellation(t *testing.T) {
	policy := services.NewTransitionPolicy()
	customer := newActor(t, order.RoleCustomer)
	kitchen := newActor(t, order.RoleKitchen)

	t.Run("owner may cancel before preparation", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Cancelled, Actor: customer, At: now})

		require.NoError(t, err)
	})

	t.Run("another customer may not cancel", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)

		_, err := policy.Authorize(o, services.TransitionRequest{
			Target: order.Cancelled, Actor: newActor(t, order.RoleCustomer), At: now,
		})

		requireRule(t, err, order.RuleCapability)
	})

	t.Run("preparation requires elevated authority", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)
		walk(t, o, kitchen, order.Accepted, order.Preparing)

		for _, a := range []order.Actor{customer, kitchen, newActor(t, order.RoleWaiter)} {
			_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Cancelled, Actor: a, At: now})
			requireRule(t, err, order.RuleCapability)
		}

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Cancelled, Actor: newActor(t, order.RoleAdmin), At: now})
		require.NoError(t, err)
	})

	t.Run("state rules are checked before capability", func(t *testing.T) {
		o := newOrder(t, order.ChannelDelivery, customer)
		walk(t, o, kitchen, order.Accepted, order.Preparing, order.Ready)

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Cancelled, Actor: newActor(t, order.RoleAdmin), At: now})

		requireRule(t, err, order.RuleState)
	})
}

func TestTransitionPolicy_PlacementAndCompletion(t *testing.T) {
	policy := services.NewTransitionPolicy()
	customer := newActor(t, order.RoleCustomer)

	t.Run("customers cannot accept their own orders", func(t *testing.T) {
		o := newOrder(t, order.ChannelDineIn, customer)

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Accepted, Actor: customer, At: now})

		requireRule(t, err, order.RuleCapability)
	})

	t.Run("waiter closes a dine-in order", func(t *testing.T) {
		o := newOrder(t, order.ChannelDineIn, customer)
		walk(t, o, newActor(t, order.RoleKitchen), order.Accepted, order.Preparing, order.Ready)

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Completed, Actor: newActor(t, order.RoleWaiter), At: now})
		require.NoError(t, err)

		_, err = policy.Authorize(o, services.TransitionRequest{Target: order.Completed, Actor: customer, At: now})
		requireRule(t, err, order.RuleCapability)
	})

	t.Run("zero actor is an input error", func(t *testing.T) {
		o := newOrder(t, order.ChannelDineIn, customer)

		_, err := policy.Authorize(o, services.TransitionRequest{Target: order.Accepted, At: now})

		requireRule(t, err, order.RuleInput)
	})
}

package order_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func money(t *testing.T, s string) kernel.Money {
	t.Helper()
	m, err := kernel.MoneyFromString(s)
	require.NoError(t, err)
	return m
}

func actor(t *testing.T, role order.Role) order.Actor {
	t.Helper()
	a, err := order.NewActor(kernel.NewUUID(), role)
	require.NoError(t, err)
	return a
}

func item(t *testing.T, name string, quantity int, price string) order.Item {
	t.Helper()
	i, err := order.NewItem(kernel.NewUUID(), name, quantity, money(t, price))
	require.NoError(t, err)
	return i
}

func draft(t *testing.T, channel order.Channel, method order.PaymentMethod) order.Draft {
	t.Helper()
	return order.Draft{
		ID:            kernel.NewUUID(),
		Number:        order.NewNumber(baseTime),
		RestaurantID:  kernel.NewUUID(),
		CustomerID:    kernel.NewUUID(),
		Channel:       channel,
		PaymentMethod: method,
		Items:         []order.Item{item(t, "Margherita", 2, "9.50"), item(t, "Lemonade", 1, "3.00")},
		Fees:          money(t, "2.50"),
		Tax:           money(t, "1.75"),
		Discount:      money(t, "1.00"),
		PlacedBy:      actor(t, order.RoleCustomer),
		CreatedAt:     baseTime,
	}
}

func newOrder(t *testing.T, channel order.Channel, method order.PaymentMethod) *order.Order {
	t.Helper()
	o, err := order.NewOrder(draft(t, channel, method))
	require.NoError(t, err)
	return o
}

// advance walks o through targets, one minute apart, using an actor suitable for each.
func advance(t *testing.T, o *order.Order, targets ...order.Status) {
	t.Helper()
	for i, target := range targets {
		in := order.TransitionInput{
			Target: target,
			Actor:  order.SystemActor(),
			At:     baseTime.Add(time.Duration(i+1) * time.Minute),
		}
		if target == order.CourierAssigned {
			courierID := kernel.NewUUID()
			in.CourierID = &courierID
		}
		_, err := o.ApplyTransition(in)
		require.NoError(t, err, "transition to %s", target)
	}
}

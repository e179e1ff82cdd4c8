package http_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPlacer struct{ mock.Mock }

func (m *MockPlacer) Handle(ctx context.Context, cmd commands.PlaceOrderCommand) (*order.Order, error) {
	args := m.Called(ctx, cmd)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

type MockTransitions struct{ mock.Mock }

func (m *MockTransitions) Handle(ctx context.Context, cmd commands.RequestTransitionCommand) (*order.Order, error) {
	args := m.Called(ctx, cmd)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

type MockConfirmer struct{ mock.Mock }

func (m *MockConfirmer) Handle(ctx context.Context, cmd commands.ConfirmPaymentCommand) (*order.Order, error) {
	args := m.Called(ctx, cmd)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

type MockOrderReader struct{ mock.Mock }

func (m *MockOrderReader) Handle(ctx context.Context, query queries.GetOrderQuery) (*queries.GetOrderQueryResponse, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).(*queries.GetOrderQueryResponse)
	return resp, args.Error(1)
}

type MockActiveReader struct{ mock.Mock }

func (m *MockActiveReader) Handle(
	ctx context.Context,
	query queries.GetActiveOrdersQuery,
) ([]queries.GetActiveOrdersQueryResponse, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).([]queries.GetActiveOrdersQueryResponse)
	return resp, args.Error(1)
}

type MockWalletReader struct{ mock.Mock }

func (m *MockWalletReader) Handle(
	ctx context.Context,
	query queries.GetCourierWalletQuery,
) (*queries.GetCourierWalletQueryResponse, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).(*queries.GetCourierWalletQueryResponse)
	return resp, args.Error(1)
}

type MockPaymentRecorder struct{ mock.Mock }

func (m *MockPaymentRecorder) RecordCapture(ctx context.Context, orderID kernel.UUID, captured bool, reason string) error {
	args := m.Called(ctx, orderID, captured, reason)
	return args.Error(0)
}

type MockHub struct{ mock.Mock }

func (m *MockHub) Serve(ctx context.Context, conn *websocket.Conn, topic string) {
	m.Called(ctx, conn, topic)
}

// newOrder builds a cash pickup order placed by customer.
func newOrder(t *testing.T, customer order.Actor) *order.Order {
	t.Helper()
	item, err := order.NewItem(kernel.NewUUID(), "Pad thai", 2, kernel.MustMoney("6.00"))
	require.NoError(t, err)
	o, err := order.NewOrder(order.Draft{
		ID:            kernel.NewUUID(),
		Number:        order.NewNumber(time.Now()),
		RestaurantID:  kernel.NewUUID(),
		CustomerID:    customer.ID(),
		Channel:       order.ChannelPickup,
		PaymentMethod: order.PaymentCash,
		Items:         []order.Item{item},
		Fees:          kernel.ZeroMoney(),
		Tax:           kernel.ZeroMoney(),
		Discount:      kernel.ZeroMoney(),
		PlacedBy:      customer,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
	return o
}

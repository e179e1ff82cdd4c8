package commands_test

import (
	"context"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) GetActive(ctx context.Context, restaurantID *kernel.UUID, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, restaurantID, limit)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

func (m *MockOrderRepository) GetStale(
	ctx context.Context,
	status order.Status,
	olderThan time.Time,
	limit int,
) ([]*order.Order, error) {
	args := m.Called(ctx, status, olderThan, limit)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

type MockEventRepository struct{ mock.Mock }

func (m *MockEventRepository) Add(ctx context.Context, e *event.LifecycleEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventRepository) Get(ctx context.Context, id kernel.UUID) (*event.LifecycleEvent, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*event.LifecycleEvent)
	return e, args.Error(1)
}

func (m *MockEventRepository) GetByOrder(ctx context.Context, orderID kernel.UUID) ([]*event.LifecycleEvent, error) {
	args := m.Called(ctx, orderID)
	events, _ := args.Get(0).([]*event.LifecycleEvent)
	return events, args.Error(1)
}

func (m *MockEventRepository) GetUndispatched(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*event.LifecycleEvent, error) {
	args := m.Called(ctx, olderThan, limit)
	events, _ := args.Get(0).([]*event.LifecycleEvent)
	return events, args.Error(1)
}

func (m *MockEventRepository) MarkDispatched(ctx context.Context, id kernel.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

func (m *MockOrderUoW) EventRepository() ports.EventRepository {
	args := m.Called()
	return args.Get(0).(ports.EventRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockCatalogLookup struct{ mock.Mock }

func (m *MockCatalogLookup) GetItem(ctx context.Context, productID kernel.UUID) (ports.CatalogItem, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(ports.CatalogItem), args.Error(1)
}

type MockPaymentGateway struct{ mock.Mock }

func (m *MockPaymentGateway) ConfirmCapture(ctx context.Context, orderID kernel.UUID) (ports.CaptureResult, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(ports.CaptureResult), args.Error(1)
}

func (m *MockPaymentGateway) Refund(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (string, error) {
	args := m.Called(ctx, orderID, amount)
	return args.String(0), args.Error(1)
}

type MockKitchenTicketSink struct{ mock.Mock }

func (m *MockKitchenTicketSink) Create(ctx context.Context, snapshot event.Snapshot) (string, error) {
	args := m.Called(ctx, snapshot)
	return args.String(0), args.Error(1)
}

type MockCourierAssignment struct{ mock.Mock }

func (m *MockCourierAssignment) NotifyAvailable(ctx context.Context, orderID kernel.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockCourierAssignment) Credit(ctx context.Context, courierID, orderID kernel.UUID, amount kernel.Money) error {
	args := m.Called(ctx, courierID, orderID, amount)
	return args.Error(0)
}

type MockFailureRepository struct{ mock.Mock }

func (m *MockFailureRepository) Add(ctx context.Context, f ports.CollaboratorFailure) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFailureRepository) GetUnresolved(
	ctx context.Context,
	maxAttempts int,
	limit int,
) ([]ports.CollaboratorFailure, error) {
	args := m.Called(ctx, maxAttempts, limit)
	failures, _ := args.Get(0).([]ports.CollaboratorFailure)
	return failures, args.Error(1)
}

func (m *MockFailureRepository) RecordAttempt(ctx context.Context, id kernel.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *MockFailureRepository) MarkResolved(ctx context.Context, id kernel.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockEventDispatcher struct{ mock.Mock }

func (m *MockEventDispatcher) Enqueue(e *event.LifecycleEvent) bool {
	args := m.Called(e)
	return args.Bool(0)
}

type MockDeliveryLog struct{ mock.Mock }

func (m *MockDeliveryLog) Get(ctx context.Context, eventID kernel.UUID) (map[string]ports.Delivery, error) {
	args := m.Called(ctx, eventID)
	deliveries, _ := args.Get(0).(map[string]ports.Delivery)
	return deliveries, args.Error(1)
}

func (m *MockDeliveryLog) Record(ctx context.Context, d ports.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeliveryLog) ParkedEventIDs(ctx context.Context, limit int) ([]kernel.UUID, error) {
	args := m.Called(ctx, limit)
	ids, _ := args.Get(0).([]kernel.UUID)
	return ids, args.Error(1)
}

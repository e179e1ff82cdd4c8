package commands_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory order store with compare-and-swap semantics. Orders are
// copied in and out so that handlers never share an aggregate with the store.
type memStore struct {
	mu     sync.Mutex
	orders map[kernel.UUID]*order.Order
	events []*event.LifecycleEvent

	// failUpdates makes the next n Update calls lose the version race.
	failUpdates int
}

func newMemStore() *memStore {
	return &memStore{orders: map[kernel.UUID]*order.Order{}}
}

func (s *memStore) Create() commands.OrderUoW {
	return &memUoW{store: s}
}

// seed stores o as version 1.
func (s *memStore) seed(t *testing.T, o *order.Order) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := cloneOrder(o, 1)
	require.NoError(t, err)
	s.orders[o.ID()] = stored
}

func (s *memStore) load(t *testing.T, id kernel.UUID) *order.Order {
	t.Helper()
	o, err := s.Create().OrderRepository().Get(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (s *memStore) eventTypes() []event.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]event.Type, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.Type())
	}
	return types
}

func cloneOrder(o *order.Order, version int64) (*order.Order, error) {
	return order.RestoreOrder(order.RestoreParams{
		ID:                 o.ID(),
		Number:             o.Number(),
		RestaurantID:       o.RestaurantID(),
		CustomerID:         o.CustomerID(),
		CourierID:          o.CourierID(),
		Channel:            o.Channel(),
		PaymentMethod:      o.PaymentMethod(),
		PaymentStatus:      o.PaymentStatus(),
		Status:             o.Status(),
		Items:              o.Items(),
		Totals:             o.Totals(),
		CreatedAt:          o.CreatedAt(),
		Timeline:           o.Timeline(),
		CancellationReason: o.CancellationReason(),
		CancelledBy:        o.CancelledBy(),
		History:            o.History(),
		Version:            version,
	})
}

type stagedOrder struct {
	order    *order.Order
	expected int64
}

type memUoW struct {
	store  *memStore
	inTx   bool
	orders []stagedOrder
	events []*event.LifecycleEvent
}

func (u *memUoW) Begin(_ context.Context) error {
	u.inTx = true
	return nil
}

func (u *memUoW) Commit(_ context.Context) error {
	if !u.inTx {
		return errors.New("no transaction")
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for _, staged := range u.orders {
		if current, ok := u.store.orders[staged.order.ID()]; ok && current.Version() != staged.expected {
			u.inTx = false
			return errs.NewVersionIsInvalidError("order", staged.expected)
		}
	}
	for _, staged := range u.orders {
		u.store.orders[staged.order.ID()] = staged.order
	}
	u.store.events = append(u.store.events, u.events...)
	u.inTx = false
	return nil
}

func (u *memUoW) Rollback(_ context.Context) error {
	u.inTx = false
	u.orders, u.events = nil, nil
	return nil
}

func (u *memUoW) OrderRepository() ports.OrderRepository {
	return &memOrderRepo{uow: u}
}

func (u *memUoW) EventRepository() ports.EventRepository {
	return &memEventRepo{uow: u}
}

type memOrderRepo struct {
	uow *memUoW
}

func (r *memOrderRepo) Add(_ context.Context, o *order.Order) error {
	stored, err := cloneOrder(o, 1)
	if err != nil {
		return err
	}
	r.uow.orders = append(r.uow.orders, stagedOrder{order: stored})
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, o *order.Order) error {
	s := r.uow.store
	s.mu.Lock()
	current, ok := s.orders[o.ID()]
	inject := s.failUpdates > 0
	if inject {
		s.failUpdates--
	}
	s.mu.Unlock()

	if !ok {
		return errs.NewObjectNotFoundError("order", o.ID())
	}
	if inject || current.Version() != o.Version() {
		return errs.NewVersionIsInvalidError("order", o.Version())
	}

	stored, err := cloneOrder(o, o.Version()+1)
	if err != nil {
		return err
	}
	r.uow.orders = append(r.uow.orders, stagedOrder{order: stored, expected: o.Version()})
	return nil
}

func (r *memOrderRepo) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id)
	}
	return cloneOrder(o, o.Version())
}

func (r *memOrderRepo) GetActive(_ context.Context, _ *kernel.UUID, _ int) ([]*order.Order, error) {
	return nil, errors.New("not used")
}

func (r *memOrderRepo) GetStale(
	_ context.Context,
	status order.Status,
	olderThan time.Time,
	limit int,
) ([]*order.Order, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*order.Order
	for _, o := range s.orders {
		if o.Status() != status || len(stale) >= limit {
			continue
		}
		if !o.LastHistoryEntry().At().Before(olderThan) {
			continue
		}
		c, err := cloneOrder(o, o.Version())
		if err != nil {
			return nil, err
		}
		stale = append(stale, c)
	}
	return stale, nil
}

type memEventRepo struct {
	uow *memUoW
}

func (r *memEventRepo) Add(_ context.Context, e *event.LifecycleEvent) error {
	r.uow.events = append(r.uow.events, e)
	return nil
}

func (r *memEventRepo) Get(_ context.Context, id kernel.UUID) (*event.LifecycleEvent, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID().IsEqual(id) {
			return e, nil
		}
	}
	return nil, errs.NewObjectNotFoundError("event", id)
}

func (r *memEventRepo) GetByOrder(_ context.Context, orderID kernel.UUID) ([]*event.LifecycleEvent, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []*event.LifecycleEvent
	for _, e := range s.events {
		if e.OrderID().IsEqual(orderID) {
			events = append(events, e)
		}
	}
	return events, nil
}

func (r *memEventRepo) GetUndispatched(_ context.Context, _ time.Time, _ int) ([]*event.LifecycleEvent, error) {
	return nil, errors.New("not used")
}

func (r *memEventRepo) MarkDispatched(_ context.Context, _ kernel.UUID, _ time.Time) error {
	return errors.New("not used")
}

// fixtures

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newActor(t *testing.T, role order.Role) order.Actor {
	t.Helper()
	a, err := order.NewActor(kernel.NewUUID(), role)
	require.NoError(t, err)
	return a
}

func newTestOrder(t *testing.T, channel order.Channel, method order.PaymentMethod, customer order.Actor) *order.Order {
	t.Helper()
	return newTestOrderAt(t, channel, method, customer, baseTime)
}

func newTestOrderAt(
	t *testing.T,
	channel order.Channel,
	method order.PaymentMethod,
	customer order.Actor,
	createdAt time.Time,
) *order.Order {
	t.Helper()
	price := kernel.MustMoney("12.00")
	item, err := order.NewItem(kernel.NewUUID(), "Ramen", 2, price)
	require.NoError(t, err)

	o, err := order.NewOrder(order.Draft{
		ID:            kernel.NewUUID(),
		Number:        order.NewNumber(baseTime),
		RestaurantID:  kernel.NewUUID(),
		CustomerID:    customer.ID(),
		Channel:       channel,
		PaymentMethod: method,
		Items:         []order.Item{item},
		Fees:          kernel.MustMoney("5.00"),
		Tax:           kernel.MustMoney("1.00"),
		Discount:      kernel.ZeroMoney(),
		PlacedBy:      customer,
		CreatedAt:     createdAt,
	})
	require.NoError(t, err)
	return o
}

// harness wires the orchestrator to the in-memory store and mocked collaborators.
type harness struct {
	store      *memStore
	payments   *MockPaymentGateway
	kitchen    *MockKitchenTicketSink
	couriers   *MockCourierAssignment
	failures   *MockFailureRepository
	dispatcher *MockEventDispatcher
	effects    *commands.SideEffects
	handler    *commands.RequestTransitionCommandHandler
}

func newHarness() *harness {
	h := &harness{
		store:      newMemStore(),
		payments:   new(MockPaymentGateway),
		kitchen:    new(MockKitchenTicketSink),
		couriers:   new(MockCourierAssignment),
		failures:   new(MockFailureRepository),
		dispatcher: new(MockEventDispatcher),
	}
	h.effects = commands.NewSideEffects(h.store, h.kitchen, h.payments, h.couriers, h.failures, time.Second, discardLogger())
	h.handler = commands.NewRequestTransitionCommandHandler(h.store, h.payments, h.effects, h.dispatcher, discardLogger())
	return h
}

func moneyEq(amount string) any {
	expected := kernel.MustMoney(amount)
	return mock.MatchedBy(func(m kernel.Money) bool { return m.IsEqual(expected) })
}

func (h *harness) acceptEvents() {
	h.dispatcher.On("Enqueue", mock.AnythingOfType("*event.LifecycleEvent")).Return(true)
}

func (h *harness) request(
	t *testing.T,
	orderID kernel.UUID,
	target order.Status,
	actor order.Actor,
	courierID *kernel.UUID,
) (*order.Order, error) {
	t.Helper()
	cmd, err := commands.NewRequestTransitionCommand(orderID, target, actor, "", courierID)
	require.NoError(t, err)
	return h.handler.Handle(t.Context(), cmd)
}

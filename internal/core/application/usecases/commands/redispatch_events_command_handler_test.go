package commands_test

import (
	"errors"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func restoredEvent(t *testing.T) *event.LifecycleEvent {
	t.Helper()
	e, err := event.Restore(kernel.NewUUID(), kernel.NewUUID(), event.OrderReady, event.Snapshot{Status: "READY"}, baseTime)
	require.NoError(t, err)
	return e
}

func TestRedispatchEventsCommandHandler_Handle(t *testing.T) {
	// Given
	ctx := t.Context()
	undispatched := restoredEvent(t)
	parked := restoredEvent(t)

	events := new(MockEventRepository)
	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	deliveries := new(MockDeliveryLog)
	dispatcher := new(MockEventDispatcher)

	factory.On("Create").Return(uow).Once()
	uow.On("EventRepository").Return(events).Once()
	events.On("GetUndispatched", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]*event.LifecycleEvent{undispatched}, nil).Once()
	deliveries.On("ParkedEventIDs", ctx, 50).Return([]kernel.UUID{undispatched.ID(), parked.ID()}, nil).Once()
	events.On("Get", ctx, parked.ID()).Return(parked, nil).Once()
	dispatcher.On("Enqueue", undispatched).Return(true).Once()
	dispatcher.On("Enqueue", parked).Return(true).Once()

	handler := commands.NewRedispatchEventsCommandHandler(factory, deliveries, dispatcher, discardLogger())
	cmd, err := commands.NewRedispatchEventsCommand(time.Minute, 50)
	require.NoError(t, err)

	// When
	count, err := handler.Handle(ctx, cmd)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	events.AssertExpectations(t)
	deliveries.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestRedispatchEventsCommandHandler_StopsWhenQueueIsFull(t *testing.T) {
	ctx := t.Context()
	first, second := restoredEvent(t), restoredEvent(t)

	events := new(MockEventRepository)
	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	deliveries := new(MockDeliveryLog)
	dispatcher := new(MockEventDispatcher)

	factory.On("Create").Return(uow)
	uow.On("EventRepository").Return(events)
	events.On("GetUndispatched", ctx, mock.Anything, 10).Return([]*event.LifecycleEvent{first, second}, nil)
	deliveries.On("ParkedEventIDs", ctx, 10).Return(nil, nil)
	dispatcher.On("Enqueue", first).Return(false).Once()

	handler := commands.NewRedispatchEventsCommandHandler(factory, deliveries, dispatcher, discardLogger())
	cmd, err := commands.NewRedispatchEventsCommand(0, 10)
	require.NoError(t, err)

	count, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Zero(t, count)
	dispatcher.AssertNotCalled(t, "Enqueue", second)
}

func TestRedispatchEventsCommandHandler_LoadError(t *testing.T) {
	ctx := t.Context()
	events := new(MockEventRepository)
	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow)
	uow.On("EventRepository").Return(events)
	events.On("GetUndispatched", ctx, mock.Anything, 10).Return(nil, errors.New("db down"))

	handler := commands.NewRedispatchEventsCommandHandler(factory, new(MockDeliveryLog), new(MockEventDispatcher), discardLogger())
	cmd, err := commands.NewRedispatchEventsCommand(0, 10)
	require.NoError(t, err)

	_, err = handler.Handle(ctx, cmd)

	require.ErrorContains(t, err, "load undispatched events")
}

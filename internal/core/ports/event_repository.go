package ports

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
)

// EventRepository stores lifecycle events. Events are written in the same transaction
// as the order change that produced them and are never updated except for the
// dispatched marker.
type EventRepository interface {
	// Add inserts the event with an empty dispatched marker.
	Add(ctx context.Context, e *event.LifecycleEvent) error

	// Get retrieves an event by id.
	Get(ctx context.Context, id kernel.UUID) (*event.LifecycleEvent, error)

	// GetByOrder returns every event of an order in occurrence order.
	GetByOrder(ctx context.Context, orderID kernel.UUID) ([]*event.LifecycleEvent, error)

	// GetUndispatched returns events not yet marked dispatched that occurred before
	// olderThan, oldest first.
	GetUndispatched(ctx context.Context, olderThan time.Time, limit int) ([]*event.LifecycleEvent, error)

	// MarkDispatched records that every subscriber has either received or parked the event.
	MarkDispatched(ctx context.Context, id kernel.UUID, at time.Time) error
}

// DeliveryStatus is the outcome of delivering one event to one subscriber.
type DeliveryStatus string

const (
	// DeliveryDelivered means the subscriber handled the event.
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	// DeliveryParked means the retry budget ran out; the redispatch job will try again.
	DeliveryParked DeliveryStatus = "PARKED"
)

// Delivery is one row of the delivery log.
type Delivery struct {
	EventID    kernel.UUID
	Subscriber string
	Status     DeliveryStatus
	Attempts   int
	LastError  string
	UpdatedAt  time.Time
}

// DeliveryLog is the dispatcher's idempotency bookkeeping, keyed by (event id, subscriber).
type DeliveryLog interface {
	// Get returns the deliveries recorded for an event, keyed by subscriber name.
	Get(ctx context.Context, eventID kernel.UUID) (map[string]Delivery, error)

	// Record upserts the outcome for (d.EventID, d.Subscriber).
	Record(ctx context.Context, d Delivery) error

	// ParkedEventIDs returns events with at least one parked delivery.
	ParkedEventIDs(ctx context.Context, limit int) ([]kernel.UUID, error)
}

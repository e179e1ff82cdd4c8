package event

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// ErrEventIsNotConstructed is returned when a zero-value LifecycleEvent is used.
var ErrEventIsNotConstructed = errors.New("lifecycle event must be created via FromTransition or Restore")

// Type names what happened to the order, e.g. "order.accepted".
type Type string

const (
	OrderPlaced          Type = "order.placed"
	OrderAccepted        Type = "order.accepted"
	OrderRejected        Type = "order.rejected"
	OrderPreparing       Type = "order.preparing"
	OrderReady           Type = "order.ready"
	OrderCourierAssigned Type = "order.courier_assigned"
	OrderOnDelivery      Type = "order.on_delivery"
	OrderDelivered       Type = "order.delivered"
	OrderCompleted       Type = "order.completed"
	OrderCancelled       Type = "order.cancelled"
)

func getStatusTypes() map[order.Status]Type {
	return map[order.Status]Type{
		order.Placed:          OrderPlaced,
		order.New:             OrderPlaced,
		order.Accepted:        OrderAccepted,
		order.Rejected:        OrderRejected,
		order.Preparing:       OrderPreparing,
		order.Ready:           OrderReady,
		order.CourierAssigned: OrderCourierAssigned,
		order.OnDelivery:      OrderOnDelivery,
		order.Delivered:       OrderDelivered,
		order.Completed:       OrderCompleted,
		order.Cancelled:       OrderCancelled,
	}
}

// TypeForStatus maps the status a transition entered to its event type.
// PENDING is never entered by a transition and has no event.
func TypeForStatus(s order.Status) (Type, error) {
	t, ok := getStatusTypes()[s]
	if !ok {
		return "", errs.NewValueIsInvalidErrorWithCause("event type", fmt.Errorf("no event for status %s", s))
	}
	return t, nil
}

// Validate rejects unknown event types.
func (t Type) Validate() error {
	for _, known := range getStatusTypes() {
		if known == t {
			return nil
		}
	}
	return errs.NewValueIsInvalidErrorWithCause("event type", fmt.Errorf("%q is not a known event type", string(t)))
}

func (t Type) String() string {
	return string(t)
}

// LifecycleEvent is the immutable record of one applied transition. Its id is the
// idempotency key for dispatch: subscribers see each id at least once and dedupe on it.
type LifecycleEvent struct {
	id         kernel.UUID
	orderID    kernel.UUID
	eventType  Type
	snapshot   Snapshot
	occurredAt time.Time

	isConstructed bool
}

// FromTransition builds the event for a transition that was just applied to o.
func FromTransition(o *order.Order, tr order.Transition) (*LifecycleEvent, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	eventType, err := TypeForStatus(tr.To)
	if err != nil {
		return nil, err
	}

	return &LifecycleEvent{
		id:            kernel.NewUUID(),
		orderID:       o.ID(),
		eventType:     eventType,
		snapshot:      NewSnapshot(o, tr),
		occurredAt:    tr.Entry.At(),
		isConstructed: true,
	}, nil
}

// FromPlacement builds the order.placed event for an order created directly in PLACED
// (cash or dine-in). The snapshot has no previous status.
func FromPlacement(o *order.Order) (*LifecycleEvent, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.Status() != order.Placed || len(o.History()) != 1 {
		return nil, errs.NewValueIsInvalidErrorWithCause(
			"placement event", fmt.Errorf("order %s is not freshly placed", o.ID()))
	}

	entry := o.LastHistoryEntry()
	snapshot := NewSnapshot(o, order.Transition{To: order.Placed, Entry: entry})
	snapshot.PreviousStatus = ""

	return &LifecycleEvent{
		id:            kernel.NewUUID(),
		orderID:       o.ID(),
		eventType:     OrderPlaced,
		snapshot:      snapshot,
		occurredAt:    entry.At(),
		isConstructed: true,
	}, nil
}

// Restore rebuilds a persisted event.
func Restore(id, orderID kernel.UUID, eventType Type, snapshot Snapshot, occurredAt time.Time) (*LifecycleEvent, error) {
	var atErr error
	if occurredAt.IsZero() {
		atErr = errs.NewValueIsRequiredError("occurred at")
	}
	if err := errors.Join(id.Validate(), orderID.Validate(), eventType.Validate(), atErr); err != nil {
		return nil, err
	}
	return &LifecycleEvent{
		id:            id,
		orderID:       orderID,
		eventType:     eventType,
		snapshot:      snapshot,
		occurredAt:    occurredAt.UTC(),
		isConstructed: true,
	}, nil
}

// Validate ensures the event was built by FromTransition or Restore.
func (e *LifecycleEvent) Validate() error {
	if e == nil || !e.isConstructed {
		return ErrEventIsNotConstructed
	}
	return nil
}

func (e *LifecycleEvent) ID() kernel.UUID {
	return e.id
}

func (e *LifecycleEvent) OrderID() kernel.UUID {
	return e.orderID
}

func (e *LifecycleEvent) Type() Type {
	return e.eventType
}

// Snapshot returns the order fields subscribers need, frozen at transition time.
func (e *LifecycleEvent) Snapshot() Snapshot {
	return e.snapshot.clone()
}

func (e *LifecycleEvent) OccurredAt() time.Time {
	return e.occurredAt
}

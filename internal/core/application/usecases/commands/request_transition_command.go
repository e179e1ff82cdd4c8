package commands

import (
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// MaxNotesLength bounds the free-text note stored on a history entry.
const MaxNotesLength = 500

var ErrRequestTransitionCommandIsNotConstructed = errors.New(
	"RequestTransitionCommand must be created via NewRequestTransitionCommand constructor",
)

// RequestTransitionCommand asks to move one order to a target status on behalf of an actor.
//
// Example:
//
//	cmd, err := NewRequestTransitionCommand(orderID, order.Accepted, kitchen, "10 min", nil)
//	if err != nil {
//	    return fmt.Errorf("invalid transition request: %w", err)
//	}
//	updated, err := handler.Handle(ctx, cmd)
type RequestTransitionCommand struct { //nolint:recvcheck //using for validation
	orderID   kernel.UUID
	target    order.Status
	actor     order.Actor
	notes     string
	courierID *kernel.UUID

	guard guard.ConstructorGuard
}

// NewRequestTransitionCommand validates the request shape. Whether the transition is
// allowed is decided by the handler against the current order state.
func NewRequestTransitionCommand(
	orderID kernel.UUID,
	target order.Status,
	actor order.Actor,
	notes string,
	courierID *kernel.UUID,
) (RequestTransitionCommand, error) {
	cmd := RequestTransitionCommand{
		orderID:   orderID,
		target:    target,
		actor:     actor,
		notes:     notes,
		courierID: courierID,
		guard:     guard.NewConstructorGuard(),
	}

	var notesErr, courierErr error
	if len(notes) > MaxNotesLength {
		notesErr = errs.NewValueIsOutOfRangeError("notes length", len(notes), 0, MaxNotesLength)
	}
	if courierID != nil {
		courierErr = courierID.Validate()
	}

	if err := errors.Join(
		orderID.Validate(),
		target.Validate(),
		actor.Validate(),
		notesErr,
		courierErr,
	); err != nil {
		return RequestTransitionCommand{}, fmt.Errorf("request transition: %w", err)
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c RequestTransitionCommand) Validate() error {
	return c.guard.Validate(ErrRequestTransitionCommandIsNotConstructed)
}

func (c RequestTransitionCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c RequestTransitionCommand) Target() order.Status {
	return c.target
}

func (c RequestTransitionCommand) Actor() order.Actor {
	return c.actor
}

func (c RequestTransitionCommand) Notes() string {
	return c.notes
}

// CourierID is the courier to assign; only meaningful for COURIER_ASSIGNED.
func (c RequestTransitionCommand) CourierID() *kernel.UUID {
	return c.courierID
}

package order

import (
	"fmt"
	"slices"

	"orderflow/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// The consumer-facing vocabulary (PENDING, PLACED) and the kitchen/delivery
// vocabulary (NEW, ACCEPTED, ...) are unified into one machine. NEW is kept as an
// entry state equivalent to PLACED for orders arriving from internal channels.
//
// State transitions:
//
//	PENDING ──> PLACED ──┬──> ACCEPTED ──> PREPARING ──> READY ──┬──> COURIER_ASSIGNED ──> ON_DELIVERY ──> DELIVERED
//	   │        NEW ─────┤        │             │                 └──> COMPLETED (pickup, dine-in)
//	   │          │      └──> REJECTED          │
//	   └──────────┴────────────┴────────────────┴──> CANCELLED
//
// DELIVERED, COMPLETED, CANCELLED and REJECTED are terminal.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Pending is a delivery or pickup order awaiting payment confirmation.
	Pending

	// Placed is a paid (or cash / dine-in) order waiting for the restaurant.
	Placed

	// New is the internal-channel equivalent of Placed.
	New

	// Accepted means the restaurant took the order; a kitchen ticket exists.
	Accepted

	// Preparing means the kitchen started cooking.
	Preparing

	// Ready means the food is ready for handover.
	Ready

	// CourierAssigned means a courier committed to deliver the order.
	CourierAssigned

	// OnDelivery means the courier picked the order up.
	OnDelivery

	// Delivered is the terminal state of a delivery order.
	Delivered

	// Completed is the terminal state of pickup and dine-in orders.
	Completed

	// Cancelled is terminal; a refund follows when payment was completed.
	Cancelled

	// Rejected is terminal; the restaurant declined the order.
	Rejected
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:         "UNKNOWN",
		Pending:         "PENDING",
		Placed:          "PLACED",
		New:             "NEW",
		Accepted:        "ACCEPTED",
		Preparing:       "PREPARING",
		Ready:           "READY",
		CourierAssigned: "COURIER_ASSIGNED",
		OnDelivery:      "ON_DELIVERY",
		Delivered:       "DELIVERED",
		Completed:       "COMPLETED",
		Cancelled:       "CANCELLED",
		Rejected:        "REJECTED",
	}
}

// getTransitionTable is the single source of truth for legal status changes.
// A status that maps to an empty slice is terminal.
func getTransitionTable() map[Status][]Status {
	return map[Status][]Status{
		Pending:         {Placed, Cancelled},
		Placed:          {Accepted, Rejected, Cancelled},
		New:             {Accepted, Rejected, Cancelled},
		Accepted:        {Preparing, Cancelled},
		Preparing:       {Ready, Cancelled},
		Ready:           {CourierAssigned, Completed},
		CourierAssigned: {OnDelivery},
		OnDelivery:      {Delivered},
		Delivered:       {},
		Completed:       {},
		Cancelled:       {},
		Rejected:        {},
	}
}

// AllStatuses returns every valid status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		Pending, Placed, New, Accepted, Preparing, Ready,
		CourierAssigned, OnDelivery, Delivered, Completed, Cancelled, Rejected,
	}
}

// StatusFromString parses the persisted / wire name of a status.
func StatusFromString(s string) (Status, error) {
	for status, name := range getStatusStrings() {
		if status != Unknown && name == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is one of the known states.
func (s Status) Validate() error {
	if _, ok := getTransitionTable()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire name of the status, "UNKNOWN" for invalid values.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "UNKNOWN"
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	next, ok := getTransitionTable()[s]
	return ok && len(next) == 0
}

// AllowedTransitions returns a copy of the statuses reachable from s in one step.
func (s Status) AllowedTransitions() []Status {
	return slices.Clone(getTransitionTable()[s])
}

// CanTransitionTo reports whether the adjacency table contains s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	return slices.Contains(getTransitionTable()[s], target)
}

// CanBeCancelled reports whether CANCELLED is reachable from s.
func (s Status) CanBeCancelled() bool {
	return s.CanTransitionTo(Cancelled)
}

// requiresSettledPayment reports whether entering s needs a payment that has not failed.
// Exit states (CANCELLED, REJECTED) and PENDING itself carry no payment precondition.
func (s Status) requiresSettledPayment() bool {
	switch s { //nolint:exhaustive // only exit states and PENDING are exempt
	case Pending, Cancelled, Rejected, Unknown:
		return false
	default:
		return true
	}
}

// deliveryOnly reports whether s exists only on the delivery channel.
func (s Status) deliveryOnly() bool {
	return s == CourierAssigned || s == OnDelivery || s == Delivered
}

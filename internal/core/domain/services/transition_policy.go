package services

import (
	"fmt"
	"slices"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// TransitionRequest is what an actor asks for, before it is checked.
type TransitionRequest struct {
	Target    order.Status
	Actor     order.Actor
	Note      string
	CourierID *kernel.UUID
	At        time.Time
}

// TransitionPolicy is the full transition validator: the order's own state, channel and
// payment rules followed by the actor-capability layer.
//
// Capability rules:
//   - PLACED: SYSTEM or ADMIN (payment confirmation)
//   - ACCEPTED, REJECTED: KITCHEN, WAITER, ADMIN or SYSTEM
//   - PREPARING, READY: KITCHEN only
//   - COURIER_ASSIGNED: a COURIER assigning themselves, or ADMIN/SYSTEM naming a courier
//   - ON_DELIVERY, DELIVERED: only the courier assigned to the order
//   - COMPLETED: WAITER, KITCHEN, ADMIN or SYSTEM
//   - CANCELLED: the owning CUSTOMER, KITCHEN, WAITER, ADMIN or SYSTEM until the kitchen
//     starts cooking; from PREPARING only ADMIN or SYSTEM
//
// Example usage:
//
//	policy := services.NewTransitionPolicy()
//	in, err := policy.Authorize(o, services.TransitionRequest{
//	    Target: order.Preparing,
//	    Actor:  kitchen,
//	    At:     time.Now(),
//	})
//	if err != nil {
//	    // *order.InvalidTransitionError naming the violated rule
//	    return err
//	}
//	tr, err := o.ApplyTransition(in)
type TransitionPolicy struct{}

// NewTransitionPolicy creates a TransitionPolicy.
func NewTransitionPolicy() TransitionPolicy {
	return TransitionPolicy{}
}

// Authorize validates req against o and returns the input to apply. For courier
// self-assignment the courier id is resolved from the actor.
func (p TransitionPolicy) Authorize(o *order.Order, req TransitionRequest) (order.TransitionInput, error) {
	if err := o.Validate(); err != nil {
		return order.TransitionInput{}, err
	}
	if err := req.Actor.Validate(); err != nil {
		return order.TransitionInput{}, order.NewInvalidTransitionError(order.RuleInput, o.Status(), req.Target, err.Error())
	}
	if err := o.CheckTransition(req.Target); err != nil {
		return order.TransitionInput{}, err
	}

	courierID, err := p.checkCapability(o, req)
	if err != nil {
		return order.TransitionInput{}, err
	}

	return order.TransitionInput{
		Target:    req.Target,
		Actor:     req.Actor,
		Note:      req.Note,
		At:        req.At,
		CourierID: courierID,
	}, nil
}

func (p TransitionPolicy) checkCapability(o *order.Order, req TransitionRequest) (*kernel.UUID, error) {
	actor := req.Actor
	deny := func(reason string, args ...any) error {
		return order.NewInvalidTransitionError(order.RuleCapability, o.Status(), req.Target, fmt.Sprintf(reason, args...))
	}
	requireRole := func(what string, roles ...order.Role) error {
		if slices.Contains(roles, actor.Role()) {
			return nil
		}
		return deny("%s may not %s", actor.Role(), what)
	}

	switch req.Target { //nolint:exhaustive // Pending, New and Unknown are rejected by the state rules
	case order.Placed:
		return nil, requireRole("confirm placement", order.RoleSystem, order.RoleAdmin)

	case order.Accepted:
		return nil, requireRole("accept orders",
			order.RoleKitchen, order.RoleWaiter, order.RoleAdmin, order.RoleSystem)

	case order.Rejected:
		return nil, requireRole("reject orders",
			order.RoleKitchen, order.RoleWaiter, order.RoleAdmin, order.RoleSystem)

	case order.Preparing, order.Ready:
		if actor.Is(order.RoleKitchen) {
			return nil, nil
		}
		return nil, deny("only kitchen staff may move an order to %s", req.Target)

	case order.CourierAssigned:
		return p.resolveCourier(o, req, deny)

	case order.OnDelivery, order.Delivered:
		assigned := o.CourierID()
		if actor.Is(order.RoleCourier) && assigned != nil && assigned.IsEqual(actor.ID()) {
			return nil, nil
		}
		return nil, deny("only the assigned courier may move an order to %s", req.Target)

	case order.Completed:
		return nil, requireRole("complete orders",
			order.RoleWaiter, order.RoleKitchen, order.RoleAdmin, order.RoleSystem)

	case order.Cancelled:
		return nil, p.checkCancel(o, actor, deny)

	default:
		return nil, deny("%s cannot be requested", req.Target)
	}
}

// resolveCourier returns the courier to assign.
func (p TransitionPolicy) resolveCourier(
	o *order.Order,
	req TransitionRequest,
	deny func(string, ...any) error,
) (*kernel.UUID, error) {
	actor := req.Actor
	switch actor.Role() { //nolint:exhaustive // other roles are denied
	case order.RoleCourier:
		if req.CourierID != nil && !req.CourierID.IsEqual(actor.ID()) {
			return nil, deny("a courier may only assign themselves")
		}
		id := actor.ID()
		return &id, nil
	case order.RoleAdmin, order.RoleSystem:
		if req.CourierID == nil {
			return nil, order.NewInvalidTransitionError(order.RuleInput, o.Status(), req.Target, "courier id is required")
		}
		return req.CourierID, nil
	default:
		return nil, deny("%s may not assign couriers", actor.Role())
	}
}

func (p TransitionPolicy) checkCancel(o *order.Order, actor order.Actor, deny func(string, ...any) error) error {
	if actor.Is(order.RoleAdmin) || actor.Is(order.RoleSystem) {
		return nil
	}
	if o.Status() == order.Preparing {
		return deny("cancelling an order in preparation requires ADMIN")
	}
	switch actor.Role() { //nolint:exhaustive // other roles are denied
	case order.RoleKitchen, order.RoleWaiter:
		return nil
	case order.RoleCustomer:
		if actor.ID().IsEqual(o.CustomerID()) {
			return nil
		}
		return deny("customers may only cancel their own orders")
	default:
		return deny("%s may not cancel orders", actor.Role())
	}
}

package commands

import (
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// MaxOrderLines bounds the number of lines on one order.
const MaxOrderLines = 100

var ErrPlaceOrderCommandIsNotConstructed = errors.New(
	"PlaceOrderCommand must be created via NewPlaceOrderCommand constructor",
)

// OrderLine is one requested product. Names and prices come from the catalog.
type OrderLine struct {
	ProductID kernel.UUID
	Quantity  int
}

// PlaceOrderCommand represents a request to place a new order.
//
// Example:
//
//	cmd, err := NewPlaceOrderCommand(restaurantID, customer, customer.ID(),
//	    order.ChannelDelivery, order.PaymentOnline,
//	    []OrderLine{{ProductID: ramenID, Quantity: 2}}, kernel.ZeroMoney())
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//	o, err := handler.Handle(ctx, cmd)
type PlaceOrderCommand struct { //nolint:recvcheck //using for validation
	restaurantID  kernel.UUID
	placedBy      order.Actor
	customerID    kernel.UUID
	channel       order.Channel
	paymentMethod order.PaymentMethod
	lines         []OrderLine
	discount      kernel.Money

	guard guard.ConstructorGuard
}

// NewPlaceOrderCommand validates the request shape. A customer may only place orders
// for themselves; staff may place on behalf of any customer.
func NewPlaceOrderCommand(
	restaurantID kernel.UUID,
	placedBy order.Actor,
	customerID kernel.UUID,
	channel order.Channel,
	paymentMethod order.PaymentMethod,
	lines []OrderLine,
	discount kernel.Money,
) (PlaceOrderCommand, error) {
	cmd := PlaceOrderCommand{
		restaurantID:  restaurantID,
		placedBy:      placedBy,
		customerID:    customerID,
		channel:       channel,
		paymentMethod: paymentMethod,
		discount:      discount,
		guard:         guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		restaurantID.Validate(),
		placedBy.Validate(),
		customerID.Validate(),
		channel.Validate(),
		order.ValidatePaymentMethod(paymentMethod),
		discount.Validate(),
		cmd.setLines(lines),
		cmd.checkPlacer(),
	); err != nil {
		return PlaceOrderCommand{}, fmt.Errorf("place order: %w", err)
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c PlaceOrderCommand) Validate() error {
	return c.guard.Validate(ErrPlaceOrderCommandIsNotConstructed)
}

func (c PlaceOrderCommand) RestaurantID() kernel.UUID {
	return c.restaurantID
}

func (c PlaceOrderCommand) PlacedBy() order.Actor {
	return c.placedBy
}

func (c PlaceOrderCommand) CustomerID() kernel.UUID {
	return c.customerID
}

func (c PlaceOrderCommand) Channel() order.Channel {
	return c.channel
}

func (c PlaceOrderCommand) PaymentMethod() order.PaymentMethod {
	return c.paymentMethod
}

// Lines returns a copy of the requested lines.
func (c PlaceOrderCommand) Lines() []OrderLine {
	return append([]OrderLine(nil), c.lines...)
}

func (c PlaceOrderCommand) Discount() kernel.Money {
	return c.discount
}

func (c *PlaceOrderCommand) setLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return errs.NewValueIsRequiredError("lines")
	}
	if len(lines) > MaxOrderLines {
		return errs.NewValueIsOutOfRangeError("lines", len(lines), 1, MaxOrderLines)
	}

	var lineErrs []error
	for i, line := range lines {
		if err := line.ProductID.Validate(); err != nil {
			lineErrs = append(lineErrs, fmt.Errorf("line %d: %w", i, err))
		}
		if line.Quantity < 1 {
			lineErrs = append(lineErrs, fmt.Errorf("line %d: %w", i,
				errs.NewValueIsOutOfRangeError("quantity", line.Quantity, 1, "unbounded")))
		}
	}
	if err := errors.Join(lineErrs...); err != nil {
		return err
	}

	c.lines = append([]OrderLine(nil), lines...)
	return nil
}

func (c *PlaceOrderCommand) checkPlacer() error {
	switch c.placedBy.Role() {
	case order.RoleCustomer:
		if !c.placedBy.ID().IsEqual(c.customerID) {
			return errs.NewValueIsInvalidErrorWithCause("customer id",
				errors.New("customers may only place their own orders"))
		}
		return nil
	case order.RoleWaiter, order.RoleAdmin, order.RoleSystem:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("placed by",
			fmt.Errorf("role %s cannot place orders", c.placedBy.Role()))
	}
}

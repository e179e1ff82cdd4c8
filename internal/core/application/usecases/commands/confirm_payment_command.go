package commands

import (
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// MaxPaymentReasonLength bounds the decline reason copied from the gateway.
const MaxPaymentReasonLength = 255

var ErrConfirmPaymentCommandIsNotConstructed = errors.New(
	"ConfirmPaymentCommand must be created via NewConfirmPaymentCommand constructor",
)

// ConfirmPaymentCommand carries the payment gateway's verdict for an order.
type ConfirmPaymentCommand struct { //nolint:recvcheck //using for validation
	orderID  kernel.UUID
	captured bool
	reason   string

	guard guard.ConstructorGuard
}

func NewConfirmPaymentCommand(orderID kernel.UUID, captured bool, reason string) (ConfirmPaymentCommand, error) {
	var reasonErr error
	if len(reason) > MaxPaymentReasonLength {
		reasonErr = errs.NewValueIsOutOfRangeError("reason length", len(reason), 0, MaxPaymentReasonLength)
	}
	if err := errors.Join(orderID.Validate(), reasonErr); err != nil {
		return ConfirmPaymentCommand{}, fmt.Errorf("confirm payment: %w", err)
	}

	return ConfirmPaymentCommand{
		orderID:  orderID,
		captured: captured,
		reason:   reason,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ConfirmPaymentCommand) Validate() error {
	return c.guard.Validate(ErrConfirmPaymentCommandIsNotConstructed)
}

func (c ConfirmPaymentCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c ConfirmPaymentCommand) Captured() bool {
	return c.captured
}

func (c ConfirmPaymentCommand) Reason() string {
	return c.reason
}

package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// PaymentStatus is the small state machine running beside the order status:
//
//	PENDING ──┬──> COMPLETED ──> REFUNDED
//	          └──> FAILED
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// PaymentMethod tells whether the order is paid up front or on handover.
type PaymentMethod string

const (
	// PaymentOnline orders start in PENDING until the gateway confirms capture.
	PaymentOnline PaymentMethod = "ONLINE"
	// PaymentCash orders (cash on delivery, dine-in bill) start in PLACED.
	PaymentCash PaymentMethod = "CASH"
)

// PaymentStatusFromString parses a persisted payment status.
func PaymentStatusFromString(s string) (PaymentStatus, error) {
	p := PaymentStatus(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate rejects unknown payment statuses.
func (p PaymentStatus) Validate() error {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause(
			"payment status", fmt.Errorf("%q is not a valid payment status", string(p)))
	}
}

func (p PaymentStatus) String() string {
	return string(p)
}

// Complete moves PENDING to COMPLETED. Completing twice is a no-op so duplicate
// gateway webhooks stay harmless.
func (p PaymentStatus) Complete() (PaymentStatus, error) {
	if p == PaymentPending || p == PaymentCompleted {
		return PaymentCompleted, nil
	}
	return "", p.transitionError(PaymentCompleted)
}

// Fail moves PENDING to FAILED.
func (p PaymentStatus) Fail() (PaymentStatus, error) {
	if p == PaymentPending || p == PaymentFailed {
		return PaymentFailed, nil
	}
	return "", p.transitionError(PaymentFailed)
}

// Refund moves COMPLETED to REFUNDED.
func (p PaymentStatus) Refund() (PaymentStatus, error) {
	if p == PaymentCompleted || p == PaymentRefunded {
		return PaymentRefunded, nil
	}
	return "", p.transitionError(PaymentRefunded)
}

func (p PaymentStatus) transitionError(target PaymentStatus) error {
	return errs.NewValueIsInvalidErrorWithCause(
		"payment status",
		fmt.Errorf("%s cannot move to %s", p, target),
	)
}

// ValidatePaymentMethod rejects unknown payment methods.
func ValidatePaymentMethod(m PaymentMethod) error {
	if m == PaymentOnline || m == PaymentCash {
		return nil
	}
	return errs.NewValueIsInvalidErrorWithCause(
		"payment method", fmt.Errorf("%q is not a valid payment method", string(m)))
}

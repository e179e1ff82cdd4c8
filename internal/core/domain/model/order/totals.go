package order

import (
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// ErrTotalsAreNotConstructed is returned when a zero-value Totals is used.
var ErrTotalsAreNotConstructed = errors.New("totals must be created via NewTotals or RestoreTotals")

// Totals holds the monetary summary of an order.
//
// Invariant: total = subtotal + fees + tax - discount, every field non-negative.
type Totals struct {
	subtotal kernel.Money
	fees     kernel.Money
	tax      kernel.Money
	discount kernel.Money
	total    kernel.Money
	guard    guard.ConstructorGuard
}

// NewTotals computes the total. A discount larger than subtotal + fees + tax is rejected.
func NewTotals(subtotal, fees, tax, discount kernel.Money) (Totals, error) {
	if err := errors.Join(subtotal.Validate(), fees.Validate(), tax.Validate(), discount.Validate()); err != nil {
		return Totals{}, err
	}

	gross := subtotal.Add(fees).Add(tax)
	total, err := gross.Sub(discount)
	if err != nil {
		return Totals{}, errs.NewValueIsInvalidErrorWithCause(
			"discount", fmt.Errorf("%s exceeds %s", discount, gross))
	}

	return Totals{
		subtotal: subtotal,
		fees:     fees,
		tax:      tax,
		discount: discount,
		total:    total,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// RestoreTotals rebuilds persisted totals and checks the stored total still adds up.
func RestoreTotals(subtotal, fees, tax, discount, total kernel.Money) (Totals, error) {
	t, err := NewTotals(subtotal, fees, tax, discount)
	if err != nil {
		return Totals{}, err
	}
	if !t.total.IsEqual(total) {
		return Totals{}, errs.NewValueIsInvalidErrorWithCause(
			"total", fmt.Errorf("stored %s, computed %s", total, t.total))
	}
	return t, nil
}

// Validate returns ErrTotalsAreNotConstructed for the zero value.
func (t Totals) Validate() error {
	return t.guard.Validate(ErrTotalsAreNotConstructed)
}

func (t Totals) Subtotal() kernel.Money {
	return t.subtotal
}

func (t Totals) Fees() kernel.Money {
	return t.fees
}

func (t Totals) Tax() kernel.Money {
	return t.tax
}

func (t Totals) Discount() kernel.Money {
	return t.discount
}

func (t Totals) Total() kernel.Money {
	return t.total
}

package order

import (
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// ErrItemIsNotConstructed is returned when a zero-value Item is used.
var ErrItemIsNotConstructed = errors.New("item must be created via NewItem")

// Item is one order line. The unit price is captured when the order is placed and is
// never re-read from the catalog afterwards.
type Item struct {
	productID kernel.UUID
	name      string
	quantity  int
	unitPrice kernel.Money
	guard     guard.ConstructorGuard
}

// NewItem validates a line: quantity must be at least 1 and the price constructed.
func NewItem(productID kernel.UUID, name string, quantity int, unitPrice kernel.Money) (Item, error) {
	var nameErr, quantityErr error
	if strings.TrimSpace(name) == "" {
		nameErr = errs.NewValueIsRequiredError("item name")
	}
	if quantity < 1 {
		quantityErr = errs.NewValueIsInvalidErrorWithCause(
			"quantity", fmt.Errorf("%d is less than 1", quantity))
	}

	if err := errors.Join(productID.Validate(), nameErr, quantityErr, unitPrice.Validate()); err != nil {
		return Item{}, err
	}

	return Item{
		productID: productID,
		name:      name,
		quantity:  quantity,
		unitPrice: unitPrice,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate returns ErrItemIsNotConstructed for the zero value.
func (i Item) Validate() error {
	return i.guard.Validate(ErrItemIsNotConstructed)
}

func (i Item) ProductID() kernel.UUID {
	return i.productID
}

func (i Item) Name() string {
	return i.name
}

func (i Item) Quantity() int {
	return i.quantity
}

func (i Item) UnitPrice() kernel.Money {
	return i.unitPrice
}

// LineTotal returns quantity x unit price.
func (i Item) LineTotal() kernel.Money {
	return i.unitPrice.MulInt(i.quantity)
}

package queries

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var (
	ErrGetOrderQueryIsNotConstructed = errors.New(
		"GetOrderQuery must be created via NewGetOrderQuery constructor",
	)
)

// GetOrderQuery retrieves one order with its items and full status history.
//
// Example:
//
//	query, err := NewGetOrderQuery(orderID)
//	if err != nil {
//	    return err
//	}
//	view, err := handler.Handle(ctx, query)
type GetOrderQuery struct {
	orderID kernel.UUID
	guard   guard.ConstructorGuard
}

// NewGetOrderQuery validates the order id.
func NewGetOrderQuery(orderID kernel.UUID) (GetOrderQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderQuery{}, err
	}
	return GetOrderQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrderQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderQueryIsNotConstructed)
}

func (q GetOrderQuery) OrderID() kernel.UUID {
	return q.orderID
}

// GetOrderQueryResponse is the read model of a single order. Enumerations are
// returned as their wire names.
type GetOrderQueryResponse struct {
	ID                 kernel.UUID
	Number             string
	RestaurantID       kernel.UUID
	CustomerID         kernel.UUID
	CourierID          *kernel.UUID
	Channel            string
	PaymentMethod      string
	PaymentStatus      string
	Status             string
	Subtotal           kernel.Money
	Fees               kernel.Money
	Tax                kernel.Money
	Discount           kernel.Money
	Total              kernel.Money
	CreatedAt          time.Time
	CancellationReason string
	Version            int64
	Items              []OrderItemResponse
	History            []HistoryEntryResponse
}

type OrderItemResponse struct {
	ProductID kernel.UUID
	Name      string
	Quantity  int
	UnitPrice kernel.Money
}

// HistoryEntryResponse is one status change, oldest first in GetOrderQueryResponse.History.
type HistoryEntryResponse struct {
	Sequence  int
	Status    string
	ActorID   kernel.UUID
	ActorRole string
	Note      string
	At        time.Time
}

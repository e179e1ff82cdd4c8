package queries

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	DefaultWalletTransactionsLimit = 20
	MaxWalletTransactionsLimit     = 200
)

var (
	ErrGetCourierWalletQueryIsNotConstructed = errors.New(
		"GetCourierWalletQuery must be created via NewGetCourierWalletQuery constructor",
	)
)

// GetCourierWalletQuery reads a courier's balance and latest ledger lines.
type GetCourierWalletQuery struct {
	courierID kernel.UUID
	limit     int
	guard     guard.ConstructorGuard
}

// NewGetCourierWalletQuery creates the query. A zero limit means
// DefaultWalletTransactionsLimit.
func NewGetCourierWalletQuery(courierID kernel.UUID, limit int) (GetCourierWalletQuery, error) {
	if err := courierID.Validate(); err != nil {
		return GetCourierWalletQuery{}, err
	}
	if limit == 0 {
		limit = DefaultWalletTransactionsLimit
	}
	if limit < 1 || limit > MaxWalletTransactionsLimit {
		return GetCourierWalletQuery{}, errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxWalletTransactionsLimit)
	}
	return GetCourierWalletQuery{courierID: courierID, limit: limit, guard: guard.NewConstructorGuard()}, nil
}

func (q GetCourierWalletQuery) Validate() error {
	return q.guard.Validate(ErrGetCourierWalletQueryIsNotConstructed)
}

func (q GetCourierWalletQuery) CourierID() kernel.UUID {
	return q.courierID
}

func (q GetCourierWalletQuery) Limit() int {
	return q.limit
}

type GetCourierWalletQueryResponse struct {
	CourierID    kernel.UUID
	Balance      kernel.Money
	TotalEarned  kernel.Money
	UpdatedAt    time.Time
	Transactions []WalletTransactionResponse
}

// WalletTransactionResponse is one ledger line, newest first in the response.
type WalletTransactionResponse struct {
	ID           kernel.UUID
	OrderID      *kernel.UUID
	Type         string
	Amount       kernel.Money
	BalanceAfter kernel.Money
	Description  string
	CreatedAt    time.Time
}

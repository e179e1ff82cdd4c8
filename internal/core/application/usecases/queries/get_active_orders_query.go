package queries

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	DefaultActiveOrdersLimit = 100
	MaxActiveOrdersLimit     = 500
)

var (
	ErrGetActiveOrdersQueryIsNotConstructed = errors.New(
		"GetActiveOrdersQuery must be created via NewGetActiveOrdersQuery constructor",
	)
)

// GetActiveOrdersQuery lists orders that are not in a terminal status, oldest first,
// optionally for one restaurant. It backs the restaurant dashboard.
type GetActiveOrdersQuery struct {
	restaurantID *kernel.UUID
	limit        int
	guard        guard.ConstructorGuard
}

// NewGetActiveOrdersQuery creates the query. A zero limit means DefaultActiveOrdersLimit.
func NewGetActiveOrdersQuery(restaurantID *kernel.UUID, limit int) (GetActiveOrdersQuery, error) {
	if restaurantID != nil {
		if err := restaurantID.Validate(); err != nil {
			return GetActiveOrdersQuery{}, err
		}
	}
	if limit == 0 {
		limit = DefaultActiveOrdersLimit
	}
	if limit < 1 || limit > MaxActiveOrdersLimit {
		return GetActiveOrdersQuery{}, errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxActiveOrdersLimit)
	}
	return GetActiveOrdersQuery{
		restaurantID: restaurantID,
		limit:        limit,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

func (q GetActiveOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetActiveOrdersQueryIsNotConstructed)
}

func (q GetActiveOrdersQuery) RestaurantID() *kernel.UUID {
	return q.restaurantID
}

func (q GetActiveOrdersQuery) Limit() int {
	return q.limit
}

// GetActiveOrdersQueryResponse is one dashboard row.
type GetActiveOrdersQueryResponse struct {
	ID              kernel.UUID
	Number          string
	RestaurantID    kernel.UUID
	Channel         string
	Status          string
	PaymentStatus   string
	Total           kernel.Money
	CreatedAt       time.Time
	StatusChangedAt time.Time
}

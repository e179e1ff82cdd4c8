package ports

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
type OrderRepository interface {
	// Add persists a new order with its items and initial history at version 1.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update is a compare-and-swap on aggregate.Version(): the row is written with
	// version+1 only if storage still holds aggregate.Version(). Pending history entries
	// are appended in the same statement batch. A lost race returns
	// *errs.VersionIsInvalidError; a missing row returns *errs.ObjectNotFoundError.
	//
	// The caller invokes aggregate.MarkPersisted(aggregate.Version()+1) after commit.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves the order with items and full history.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetActive returns non-terminal orders, oldest first. A nil restaurantID means all
	// restaurants.
	GetActive(ctx context.Context, restaurantID *kernel.UUID, limit int) ([]*order.Order, error)

	// GetStale returns orders that have been sitting in status since before olderThan.
	GetStale(ctx context.Context, status order.Status, olderThan time.Time, limit int) ([]*order.Order, error)
}

// ErrOrderNumberTaken is returned by Add when the human-readable order number collides
// with an existing order.
var ErrOrderNumberTaken = errors.New("order number is already taken")

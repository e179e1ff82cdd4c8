package orderrepo

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolation is the SQLSTATE postgres reports for a duplicate key.
const uniqueViolation = "23505"

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM order repository. db is either the root
// connection or the transaction of the enclosing unit of work.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Add inserts the order, its items and its initial history at version 1.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	dto.Version = 1
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if isDuplicateKey(err) {
			return ports.ErrOrderNumberTaken
		}
		return err
	}
	return nil
}

// Update writes the mutable columns only if the stored version still matches, then
// appends the pending history rows.
func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND version = ?", dto.ID, aggregate.Version()).
		Updates(map[string]any{
			"courier_id":          dto.CourierID,
			"payment_status":      dto.PaymentStatus,
			"status":              dto.Status,
			"status_changed_at":   dto.StatusChangedAt,
			"timeline":            dto.Timeline,
			"cancellation_reason": dto.CancellationReason,
			"cancelled_by":        dto.CancelledBy,
			"version":             aggregate.Version() + 1,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&OrderDTO{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errs.NewObjectNotFoundError("order", aggregate.ID().String())
		}
		return errs.NewVersionIsInvalidError("order", aggregate.Version())
	}

	pending := historyFromDomain(dto.ID, aggregate.PendingHistory())
	if len(pending) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&pending).Error
}

// Get retrieves an order with items and history.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.withChildren(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetActive retrieves non-terminal orders, oldest first.
func (r *GormOrderRepository) GetActive(
	ctx context.Context,
	restaurantID *kernel.UUID,
	limit int,
) ([]*order.Order, error) {
	query := r.withChildren(ctx).Where("status NOT IN ?", terminalStatusNames())
	if restaurantID != nil {
		query = query.Where("restaurant_id = ?", restaurantID.Bytes())
	}

	var dtos []OrderDTO
	if err := query.Order("created_at").Limit(limit).Find(&dtos).Error; err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

// GetStale retrieves orders that entered status before olderThan, oldest first.
func (r *GormOrderRepository) GetStale(
	ctx context.Context,
	status order.Status,
	olderThan time.Time,
	limit int,
) ([]*order.Order, error) {
	var dtos []OrderDTO
	err := r.withChildren(ctx).
		Where("status = ? AND status_changed_at < ?", status.String(), olderThan.UTC()).
		Order("status_changed_at").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

func (r *GormOrderRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") })
}

func toDomainList(dtos []OrderDTO) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func terminalStatusNames() []string {
	var names []string
	for _, s := range order.AllStatuses() {
		if s.IsTerminal() {
			names = append(names, s.String())
		}
	}
	return names
}

// isDuplicateKey recognises a unique violation whether or not the connection was
// opened with TranslateError.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ ports.OrderRepository = (*GormOrderRepository)(nil)

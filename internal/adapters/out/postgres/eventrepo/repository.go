// Package eventrepo persists lifecycle events. Rows are written in the transaction of
// the order change that produced them; only dispatched_at is updated afterwards.
package eventrepo

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventDTO is the lifecycle_events row. The snapshot is stored as JSON exactly as
// subscribers receive it.
type EventDTO struct {
	ID           uuid.UUID                          `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID                          `gorm:"type:uuid;index;not null"`
	Type         string                             `gorm:"size:40;not null"`
	Snapshot     datatypes.JSONType[event.Snapshot] `gorm:"not null"`
	OccurredAt   time.Time                          `gorm:"index;not null"`
	DispatchedAt *time.Time                         `gorm:"index"`
}

func (EventDTO) TableName() string {
	return "lifecycle_events"
}

func fromDomain(e *event.LifecycleEvent) EventDTO {
	return EventDTO{
		ID:         e.ID().Bytes(),
		OrderID:    e.OrderID().Bytes(),
		Type:       e.Type().String(),
		Snapshot:   datatypes.NewJSONType(e.Snapshot()),
		OccurredAt: e.OccurredAt().UTC(),
	}
}

func toDomain(dto EventDTO) (*event.LifecycleEvent, error) {
	id, err := kernel.UUIDFrom(dto.ID)
	if err != nil {
		return nil, err
	}
	orderID, err := kernel.UUIDFrom(dto.OrderID)
	if err != nil {
		return nil, err
	}
	return event.Restore(id, orderID, event.Type(dto.Type), dto.Snapshot.Data(), dto.OccurredAt)
}

// GormEventRepository implements ports.EventRepository using GORM.
type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Add(ctx context.Context, e *event.LifecycleEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	dto := fromDomain(e)
	return r.db.WithContext(ctx).Create(&dto).Error
}

func (r *GormEventRepository) Get(ctx context.Context, id kernel.UUID) (*event.LifecycleEvent, error) {
	var dto EventDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("event", id.String())
		}
		return nil, err
	}
	return toDomain(dto)
}

func (r *GormEventRepository) GetByOrder(ctx context.Context, orderID kernel.UUID) ([]*event.LifecycleEvent, error) {
	var dtos []EventDTO
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID.Bytes()).
		Order("occurred_at, id").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

func (r *GormEventRepository) GetUndispatched(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*event.LifecycleEvent, error) {
	var dtos []EventDTO
	err := r.db.WithContext(ctx).
		Where("dispatched_at IS NULL AND occurred_at < ?", olderThan.UTC()).
		Order("occurred_at").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

// MarkDispatched sets dispatched_at once; later calls leave the first timestamp.
func (r *GormEventRepository) MarkDispatched(ctx context.Context, id kernel.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&EventDTO{}).
		Where("id = ? AND dispatched_at IS NULL", id.Bytes()).
		Update("dispatched_at", at.UTC()).Error
}

func toDomainList(dtos []EventDTO) ([]*event.LifecycleEvent, error) {
	events := make([]*event.LifecycleEvent, 0, len(dtos))
	for _, dto := range dtos {
		e, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

var _ ports.EventRepository = (*GormEventRepository)(nil)

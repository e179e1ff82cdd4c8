// Package deliveryrepo stores the dispatcher's per-subscriber delivery log.
package deliveryrepo

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryDTO is one (event, subscriber) outcome.
type DeliveryDTO struct {
	EventID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Subscriber string    `gorm:"size:64;primaryKey"`
	Status     string    `gorm:"size:16;index;not null"`
	Attempts   int       `gorm:"not null"`
	LastError  string    `gorm:"type:text"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (DeliveryDTO) TableName() string {
	return "event_deliveries"
}

// GormDeliveryLog implements ports.DeliveryLog. Records are upserts, so a retried
// delivery overwrites the outcome of the previous attempt.
type GormDeliveryLog struct {
	db *gorm.DB
}

func NewGormDeliveryLog(db *gorm.DB) *GormDeliveryLog {
	return &GormDeliveryLog{db: db}
}

func (l *GormDeliveryLog) Get(ctx context.Context, eventID kernel.UUID) (map[string]ports.Delivery, error) {
	var dtos []DeliveryDTO
	if err := l.db.WithContext(ctx).Where("event_id = ?", eventID.Bytes()).Find(&dtos).Error; err != nil {
		return nil, err
	}

	deliveries := make(map[string]ports.Delivery, len(dtos))
	for _, dto := range dtos {
		deliveries[dto.Subscriber] = ports.Delivery{
			EventID:    eventID,
			Subscriber: dto.Subscriber,
			Status:     ports.DeliveryStatus(dto.Status),
			Attempts:   dto.Attempts,
			LastError:  dto.LastError,
			UpdatedAt:  dto.UpdatedAt,
		}
	}
	return deliveries, nil
}

func (l *GormDeliveryLog) Record(ctx context.Context, d ports.Delivery) error {
	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	dto := DeliveryDTO{
		EventID:    d.EventID.Bytes(),
		Subscriber: d.Subscriber,
		Status:     string(d.Status),
		Attempts:   d.Attempts,
		LastError:  d.LastError,
		UpdatedAt:  updatedAt.UTC(),
	}
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "subscriber"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "attempts", "last_error", "updated_at"}),
		}).
		Create(&dto).Error
}

func (l *GormDeliveryLog) ParkedEventIDs(ctx context.Context, limit int) ([]kernel.UUID, error) {
	var raw []uuid.UUID
	err := l.db.WithContext(ctx).
		Model(&DeliveryDTO{}).
		Distinct("event_id").
		Where("status = ?", string(ports.DeliveryParked)).
		Limit(limit).
		Pluck("event_id", &raw).Error
	if err != nil {
		return nil, err
	}

	ids := make([]kernel.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := kernel.UUIDFrom(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var _ ports.DeliveryLog = (*GormDeliveryLog)(nil)

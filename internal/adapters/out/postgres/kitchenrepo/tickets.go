// Package kitchenrepo keeps the kitchen tickets created when a restaurant accepts an
// order.
package kitchenrepo

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketDTO struct {
	OrderID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	TicketID     string    `gorm:"size:48;uniqueIndex;not null"`
	RestaurantID uuid.UUID `gorm:"type:uuid;index;not null"`
	OrderNumber  string    `gorm:"size:40;not null"`
	Items        datatypes.JSONType[[]event.SnapshotItem]
	Note         string    `gorm:"size:500"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (TicketDTO) TableName() string {
	return "kitchen_tickets"
}

type GormTicketSink struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormTicketSink(db *gorm.DB) *GormTicketSink {
	return &GormTicketSink{db: db, now: time.Now}
}

// Create opens a ticket for the order in the snapshot. A second call for the same
// order returns the existing ticket id.
func (s *GormTicketSink) Create(ctx context.Context, snapshot event.Snapshot) (string, error) {
	orderID, err := kernel.UUIDFromString(snapshot.OrderID)
	if err != nil {
		return "", err
	}
	restaurantID, err := kernel.UUIDFromString(snapshot.RestaurantID)
	if err != nil {
		return "", err
	}

	dto := TicketDTO{
		OrderID:      orderID.Bytes(),
		TicketID:     "KT-" + snapshot.OrderNumber,
		RestaurantID: restaurantID.Bytes(),
		OrderNumber:  snapshot.OrderNumber,
		Items:        datatypes.NewJSONType(snapshot.Items),
		Note:         snapshot.Note,
		CreatedAt:    s.now().UTC(),
	}
	if err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dto).Error; err != nil {
		return "", err
	}

	var stored TicketDTO
	if err = s.db.WithContext(ctx).Select("ticket_id").First(&stored, "order_id = ?", orderID.Bytes()).Error; err != nil {
		return "", err
	}
	return stored.TicketID, nil
}

var _ ports.KitchenTicketSink = (*GormTicketSink)(nil)

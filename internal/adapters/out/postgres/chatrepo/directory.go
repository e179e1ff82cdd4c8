// Package chatrepo maps customers to the Telegram chats they linked.
package chatrepo

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatDTO struct {
	CustomerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID     int64     `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (ChatDTO) TableName() string {
	return "customer_chats"
}

type GormChatDirectory struct {
	db *gorm.DB
}

func NewGormChatDirectory(db *gorm.DB) *GormChatDirectory {
	return &GormChatDirectory{db: db}
}

// ChatID returns the chat linked to customerID; ok is false when there is none.
func (d *GormChatDirectory) ChatID(ctx context.Context, customerID kernel.UUID) (int64, bool, error) {
	var dto ChatDTO
	err := d.db.WithContext(ctx).First(&dto, "customer_id = ?", customerID.Bytes()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return dto.ChatID, true, nil
}

// Link stores or replaces the chat of a customer.
func (d *GormChatDirectory) Link(ctx context.Context, customerID kernel.UUID, chatID int64) error {
	if err := customerID.Validate(); err != nil {
		return err
	}
	dto := ChatDTO{CustomerID: customerID.Bytes(), ChatID: chatID, UpdatedAt: time.Now().UTC()}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chat_id", "updated_at"}),
	}).Create(&dto).Error
}

// Package paymentrepo is a payment gateway backed by the local ledger. Webhooks from
// the provider are written to payment_intents; capture checks and refunds read and
// write the same tables.
package paymentrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoPaymentOnRecord means the provider has not reported on the order yet.
var ErrNoPaymentOnRecord = errors.New("no payment on record")

// Intent statuses.
const (
	IntentCaptured = "CAPTURED"
	IntentDeclined = "DECLINED"
)

type IntentDTO struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status    string    `gorm:"size:16;not null"`
	Reason    string    `gorm:"size:255"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (IntentDTO) TableName() string {
	return "payment_intents"
}

// RefundDTO holds at most one refund per order.
type RefundDTO struct {
	OrderID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RefundID  string          `gorm:"size:40;uniqueIndex;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (RefundDTO) TableName() string {
	return "payment_refunds"
}

// Models lists the ledger tables for migration.
func Models() []any {
	return []any{&IntentDTO{}, &RefundDTO{}}
}

type GormPaymentLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormPaymentLedger(db *gorm.DB) *GormPaymentLedger {
	return &GormPaymentLedger{db: db, now: time.Now}
}

// RecordCapture stores the provider's verdict. A later verdict replaces an earlier one.
func (l *GormPaymentLedger) RecordCapture(ctx context.Context, orderID kernel.UUID, captured bool, reason string) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	status := IntentDeclined
	if captured {
		status = IntentCaptured
		reason = ""
	}

	dto := IntentDTO{OrderID: orderID.Bytes(), Status: status, Reason: reason, UpdatedAt: l.now().UTC()}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "reason", "updated_at"}),
	}).Create(&dto).Error
}

// ConfirmCapture answers from the recorded verdict. Without one it returns
// ErrNoPaymentOnRecord rather than a decline, so an early request does not fail the
// payment for good.
func (l *GormPaymentLedger) ConfirmCapture(ctx context.Context, orderID kernel.UUID) (ports.CaptureResult, error) {
	var dto IntentDTO
	err := l.db.WithContext(ctx).First(&dto, "order_id = ?", orderID.Bytes()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.CaptureResult{}, fmt.Errorf("%w for order %s", ErrNoPaymentOnRecord, orderID)
	}
	if err != nil {
		return ports.CaptureResult{}, err
	}

	if dto.Status == IntentCaptured {
		return ports.CaptureResult{Approved: true}, nil
	}
	return ports.CaptureResult{Approved: false, Reason: dto.Reason}, nil
}

// Refund records one refund per order and returns its id. Later calls return the
// id of the first refund whatever the amount.
func (l *GormPaymentLedger) Refund(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (string, error) {
	if err := orderID.Validate(); err != nil {
		return "", err
	}

	dto := RefundDTO{
		OrderID:   orderID.Bytes(),
		RefundID:  "RF-" + uuid.NewString(),
		Amount:    amount.Amount(),
		CreatedAt: l.now().UTC(),
	}
	if err := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dto).Error; err != nil {
		return "", err
	}

	var stored RefundDTO
	if err := l.db.WithContext(ctx).First(&stored, "order_id = ?", orderID.Bytes()).Error; err != nil {
		return "", err
	}
	return stored.RefundID, nil
}

var _ ports.PaymentGateway = (*GormPaymentLedger)(nil)

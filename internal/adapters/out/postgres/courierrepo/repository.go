package courierrepo

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWalletRepository stores courier wallets using GORM.
type GormWalletRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormWalletRepository creates a wallet repository on db, which may be a transaction.
func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db, now: time.Now}
}

// InTransaction runs fn with a repository bound to a fresh transaction. Wallet rows
// read inside fn through Get are locked until the transaction ends.
func (r *GormWalletRepository) InTransaction(ctx context.Context, fn func(repo *GormWalletRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormWalletRepository{db: tx, now: r.now})
	})
}

// Add saves a new wallet together with its pending transactions.
func (r *GormWalletRepository) Add(ctx context.Context, w *courier.Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}

	dto := fromDomain(w, r.now())
	dto.Transactions = transactionsFromDomain(w.PendingTransactions())
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	w.MarkPersisted()
	return nil
}

// Update writes the balances and appends the pending transactions.
func (r *GormWalletRepository) Update(ctx context.Context, w *courier.Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}

	dto := fromDomain(w, r.now())
	result := r.db.WithContext(ctx).Model(&WalletDTO{}).
		Where("courier_id = ?", dto.CourierID).
		Updates(map[string]any{
			"balance":      dto.Balance,
			"total_earned": dto.TotalEarned,
			"updated_at":   dto.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("courier wallet", w.CourierID().String())
	}

	if txs := transactionsFromDomain(w.PendingTransactions()); len(txs) > 0 {
		if err := r.db.WithContext(ctx).Create(&txs).Error; err != nil {
			return err
		}
	}

	w.MarkPersisted()
	return nil
}

// Get loads a wallet and locks its row for the rest of the transaction. orderIDs are
// the orders the caller is about to credit; the wallet learns which of them already
// have a delivery fee.
func (r *GormWalletRepository) Get(ctx context.Context, courierID kernel.UUID, orderIDs ...kernel.UUID) (*courier.Wallet, error) {
	if err := courierID.Validate(); err != nil {
		return nil, err
	}

	var dto WalletDTO
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&dto, "courier_id = ?", courierID.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("courier wallet", courierID.String())
		}
		return nil, err
	}

	var credited []uuid.UUID
	if len(orderIDs) > 0 {
		raw := make([]uuid.UUID, 0, len(orderIDs))
		for _, id := range orderIDs {
			raw = append(raw, id.Bytes())
		}
		if err = r.db.WithContext(ctx).Model(&TransactionDTO{}).
			Where("courier_id = ? AND type = ? AND order_id IN ?",
				dto.CourierID, courier.TransactionDeliveryFee.String(), raw).
			Pluck("order_id", &credited).Error; err != nil {
			return nil, err
		}
	}

	return toDomain(dto, credited)
}

// Transactions returns the newest ledger lines of a courier, newest first.
func (r *GormWalletRepository) Transactions(ctx context.Context, courierID kernel.UUID, limit int) ([]courier.Transaction, error) {
	if err := courierID.Validate(); err != nil {
		return nil, err
	}

	var dtos []TransactionDTO
	if err := r.db.WithContext(ctx).
		Where("courier_id = ?", courierID.Bytes()).
		Order("created_at DESC").
		Limit(limit).
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	txs := make([]courier.Transaction, 0, len(dtos))
	for _, dto := range dtos {
		tx, err := transactionToDomain(dto)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Package courierrepo persists courier wallets and their ledger. A wallet is stored as
// one courier_wallets row plus append-only courier_wallet_transactions rows.
package courierrepo

import (
	"time"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletDTO is the courier_wallets row.
type WalletDTO struct {
	CourierID    uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Balance      decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	TotalEarned  decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	UpdatedAt    time.Time        `gorm:"not null"`
	Transactions []TransactionDTO `gorm:"foreignKey:CourierID;references:CourierID;constraint:OnDelete:CASCADE"`
}

func (WalletDTO) TableName() string {
	return "courier_wallets"
}

// TransactionDTO is one ledger line. The unique index on (order_id, type) makes a
// second delivery fee for the same order fail even if two writers race.
type TransactionDTO struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CourierID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	OrderID       *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_wallet_tx_order_type"`
	Type          string          `gorm:"size:24;not null;uniqueIndex:idx_wallet_tx_order_type"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Description   string          `gorm:"size:255"`
	CreatedAt     time.Time       `gorm:"index;not null"`
}

func (TransactionDTO) TableName() string {
	return "courier_wallet_transactions"
}

// Models lists the wallet tables for migration.
func Models() []any {
	return []any{&WalletDTO{}, &TransactionDTO{}}
}

func fromDomain(w *courier.Wallet, now time.Time) WalletDTO {
	return WalletDTO{
		CourierID:   w.CourierID().Bytes(),
		Balance:     w.Balance().Amount(),
		TotalEarned: w.TotalEarned().Amount(),
		UpdatedAt:   now.UTC(),
	}
}

func transactionsFromDomain(txs []courier.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		var orderID *uuid.UUID
		if tx.OrderID() != nil {
			raw := tx.OrderID().Bytes()
			orderID = &raw
		}
		dtos = append(dtos, TransactionDTO{
			ID:            tx.ID().Bytes(),
			CourierID:     tx.CourierID().Bytes(),
			OrderID:       orderID,
			Type:          tx.Type().String(),
			Amount:        tx.Amount().Amount(),
			BalanceBefore: tx.BalanceBefore().Amount(),
			BalanceAfter:  tx.BalanceAfter().Amount(),
			Description:   tx.Description(),
			CreatedAt:     tx.CreatedAt(),
		})
	}
	return dtos
}

func toDomain(dto WalletDTO, credited []uuid.UUID) (*courier.Wallet, error) {
	courierID, err := kernel.UUIDFromBytes(dto.CourierID[:])
	if err != nil {
		return nil, err
	}
	balance, err := kernel.NewMoney(dto.Balance)
	if err != nil {
		return nil, err
	}
	earned, err := kernel.NewMoney(dto.TotalEarned)
	if err != nil {
		return nil, err
	}

	orders := make([]kernel.UUID, 0, len(credited))
	for _, raw := range credited {
		id, idErr := kernel.UUIDFromBytes(raw[:])
		if idErr != nil {
			return nil, idErr
		}
		orders = append(orders, id)
	}

	return courier.RestoreWallet(courierID, balance, earned, orders)
}

func transactionToDomain(dto TransactionDTO) (courier.Transaction, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return courier.Transaction{}, err
	}
	courierID, err := kernel.UUIDFromBytes(dto.CourierID[:])
	if err != nil {
		return courier.Transaction{}, err
	}
	var orderID *kernel.UUID
	if dto.OrderID != nil {
		oID, orderErr := kernel.UUIDFromBytes((*dto.OrderID)[:])
		if orderErr != nil {
			return courier.Transaction{}, orderErr
		}
		orderID = &oID
	}
	amount, err := kernel.NewMoney(dto.Amount)
	if err != nil {
		return courier.Transaction{}, err
	}
	before, err := kernel.NewMoney(dto.BalanceBefore)
	if err != nil {
		return courier.Transaction{}, err
	}
	after, err := kernel.NewMoney(dto.BalanceAfter)
	if err != nil {
		return courier.Transaction{}, err
	}

	return courier.RestoreTransaction(id, courierID, orderID, courier.TransactionType(dto.Type),
		amount, before, after, dto.Description, dto.CreatedAt)
}

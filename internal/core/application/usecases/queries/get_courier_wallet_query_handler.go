package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GetCourierWalletQueryHandler struct {
	db *gorm.DB
}

func NewGetCourierWalletQueryHandler(db *gorm.DB) GetCourierWalletQueryHandler {
	return GetCourierWalletQueryHandler{db: db}
}

// Handle returns errs.ObjectNotFoundError for a courier that was never credited.
func (h GetCourierWalletQueryHandler) Handle(
	ctx context.Context,
	query GetCourierWalletQuery,
) (*GetCourierWalletQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	row := h.db.WithContext(ctx).Raw(`
		SELECT balance, total_earned, updated_at
		FROM courier_wallets
		WHERE courier_id = ?
	`, query.CourierID().Bytes()).Row()

	var (
		balance, totalEarned decimal.Decimal
		updatedAt            time.Time
	)
	err := row.Scan(&balance, &totalEarned, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewObjectNotFoundError("courier wallet", query.CourierID().String())
	}
	if err != nil {
		return nil, err
	}

	amounts, err := moneyList(balance, totalEarned)
	if err != nil {
		return nil, err
	}
	resp := &GetCourierWalletQueryResponse{
		CourierID:   query.CourierID(),
		Balance:     amounts[0],
		TotalEarned: amounts[1],
		UpdatedAt:   updatedAt.UTC(),
	}
	if resp.Transactions, err = h.loadTransactions(ctx, query); err != nil {
		return nil, err
	}
	return resp, nil
}

func (h GetCourierWalletQueryHandler) loadTransactions(
	ctx context.Context,
	query GetCourierWalletQuery,
) ([]WalletTransactionResponse, error) {
	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT id, order_id, type, amount, balance_after, description, created_at
		FROM courier_wallet_transactions
		WHERE courier_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, query.CourierID().Bytes(), query.Limit()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]WalletTransactionResponse, 0)
	for rows.Next() {
		var (
			tx                   WalletTransactionResponse
			id                   uuid.UUID
			orderID              uuid.NullUUID
			amount, balanceAfter decimal.Decimal
			description          sql.NullString
			createdAt            time.Time
		)
		if err = rows.Scan(&id, &orderID, &tx.Type, &amount, &balanceAfter, &description, &createdAt); err != nil {
			return nil, err
		}
		if tx.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		if orderID.Valid {
			oid, oidErr := kernel.UUIDFromBytes(orderID.UUID[:])
			if oidErr != nil {
				return nil, oidErr
			}
			tx.OrderID = &oid
		}
		amounts, mErr := moneyList(amount, balanceAfter)
		if mErr != nil {
			return nil, mErr
		}
		tx.Amount, tx.BalanceAfter = amounts[0], amounts[1]
		tx.Description = description.String
		tx.CreatedAt = createdAt.UTC()
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

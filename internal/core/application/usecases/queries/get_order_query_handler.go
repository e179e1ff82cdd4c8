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

// GetOrderQueryHandler reads an order straight from the tables, without rebuilding
// the aggregate.
type GetOrderQueryHandler struct {
	db *gorm.DB
}

func NewGetOrderQueryHandler(db *gorm.DB) GetOrderQueryHandler {
	return GetOrderQueryHandler{db: db}
}

// Handle returns errs.ObjectNotFoundError when the order does not exist.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*GetOrderQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	resp, err := h.loadOrder(ctx, query.OrderID())
	if err != nil {
		return nil, err
	}
	if resp.Items, err = h.loadItems(ctx, query.OrderID()); err != nil {
		return nil, err
	}
	if resp.History, err = h.loadHistory(ctx, query.OrderID()); err != nil {
		return nil, err
	}
	return resp, nil
}

func (h GetOrderQueryHandler) loadOrder(ctx context.Context, orderID kernel.UUID) (*GetOrderQueryResponse, error) {
	row := h.db.WithContext(ctx).Raw(`
		SELECT
			id, number, restaurant_id, customer_id, courier_id,
			channel, payment_method, payment_status, status,
			subtotal, fees, tax, discount, total,
			created_at, cancellation_reason, version
		FROM orders
		WHERE id = ?
	`, orderID.Bytes()).Row()

	var (
		id, restaurantID, customerID  uuid.UUID
		courierID                     uuid.NullUUID
		subtotal, fees, tax, discount decimal.Decimal
		total                         decimal.Decimal
		createdAt                     time.Time
		cancellationReason            sql.NullString
		resp                          GetOrderQueryResponse
	)
	err := row.Scan(
		&id, &resp.Number, &restaurantID, &customerID, &courierID,
		&resp.Channel, &resp.PaymentMethod, &resp.PaymentStatus, &resp.Status,
		&subtotal, &fees, &tax, &discount, &total,
		&createdAt, &cancellationReason, &resp.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewObjectNotFoundError("order", orderID.String())
	}
	if err != nil {
		return nil, err
	}

	if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
		return nil, err
	}
	if resp.RestaurantID, err = kernel.UUIDFromBytes(restaurantID[:]); err != nil {
		return nil, err
	}
	if resp.CustomerID, err = kernel.UUIDFromBytes(customerID[:]); err != nil {
		return nil, err
	}
	if courierID.Valid {
		cid, cidErr := kernel.UUIDFromBytes(courierID.UUID[:])
		if cidErr != nil {
			return nil, cidErr
		}
		resp.CourierID = &cid
	}

	amounts, err := moneyList(subtotal, fees, tax, discount, total)
	if err != nil {
		return nil, err
	}
	resp.Subtotal, resp.Fees, resp.Tax, resp.Discount, resp.Total = amounts[0], amounts[1], amounts[2], amounts[3], amounts[4]
	resp.CreatedAt = createdAt.UTC()
	resp.CancellationReason = cancellationReason.String
	return &resp, nil
}

func (h GetOrderQueryHandler) loadItems(ctx context.Context, orderID kernel.UUID) ([]OrderItemResponse, error) {
	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT product_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = ?
		ORDER BY position
	`, orderID.Bytes()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]OrderItemResponse, 0)
	for rows.Next() {
		var (
			item      OrderItemResponse
			productID uuid.UUID
			unitPrice decimal.Decimal
		)
		if err = rows.Scan(&productID, &item.Name, &item.Quantity, &unitPrice); err != nil {
			return nil, err
		}
		if item.ProductID, err = kernel.UUIDFromBytes(productID[:]); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = kernel.NewMoney(unitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (h GetOrderQueryHandler) loadHistory(ctx context.Context, orderID kernel.UUID) ([]HistoryEntryResponse, error) {
	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT sequence, status, actor_id, actor_role, note, at
		FROM order_status_history
		WHERE order_id = ?
		ORDER BY sequence
	`, orderID.Bytes()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]HistoryEntryResponse, 0)
	for rows.Next() {
		var (
			entry   HistoryEntryResponse
			actorID uuid.UUID
			note    sql.NullString
			at      time.Time
		)
		if err = rows.Scan(&entry.Sequence, &entry.Status, &actorID, &entry.ActorRole, &note, &at); err != nil {
			return nil, err
		}
		if entry.ActorID, err = kernel.UUIDFromBytes(actorID[:]); err != nil {
			return nil, err
		}
		entry.Note = note.String
		entry.At = at.UTC()
		history = append(history, entry)
	}
	return history, rows.Err()
}

func moneyList(amounts ...decimal.Decimal) ([]kernel.Money, error) {
	out := make([]kernel.Money, 0, len(amounts))
	for _, amount := range amounts {
		m, err := kernel.NewMoney(amount)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

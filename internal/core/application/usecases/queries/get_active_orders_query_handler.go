package queries

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetActiveOrdersQueryHandler lists non-terminal orders for the dashboard.
type GetActiveOrdersQueryHandler struct {
	db *gorm.DB
}

func NewGetActiveOrdersQueryHandler(db *gorm.DB) GetActiveOrdersQueryHandler {
	return GetActiveOrdersQueryHandler{db: db}
}

// Handle returns active orders, oldest first.
func (h GetActiveOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetActiveOrdersQuery,
) ([]GetActiveOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	sqlText := `
		SELECT
			id, number, restaurant_id, channel, status,
			payment_status, total, created_at, status_changed_at
		FROM orders
		WHERE status NOT IN ?`
	args := []any{terminalStatuses()}
	if rid := query.RestaurantID(); rid != nil {
		sqlText += ` AND restaurant_id = ?`
		args = append(args, rid.Bytes())
	}
	sqlText += ` ORDER BY created_at LIMIT ?`
	args = append(args, query.Limit())

	rows, err := h.db.WithContext(ctx).Raw(sqlText, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]GetActiveOrdersQueryResponse, 0)
	for rows.Next() {
		var (
			resp                       GetActiveOrdersQueryResponse
			id, restaurantID           uuid.UUID
			total                      decimal.Decimal
			createdAt, statusChangedAt time.Time
		)
		err = rows.Scan(
			&id, &resp.Number, &restaurantID, &resp.Channel, &resp.Status,
			&resp.PaymentStatus, &total, &createdAt, &statusChangedAt,
		)
		if err != nil {
			return nil, err
		}

		if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		if resp.RestaurantID, err = kernel.UUIDFromBytes(restaurantID[:]); err != nil {
			return nil, err
		}
		if resp.Total, err = kernel.NewMoney(total); err != nil {
			return nil, err
		}
		resp.CreatedAt = createdAt.UTC()
		resp.StatusChangedAt = statusChangedAt.UTC()
		orders = append(orders, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func terminalStatuses() []string {
	var names []string
	for _, s := range order.AllStatuses() {
		if s.IsTerminal() {
			names = append(names, s.String())
		}
	}
	return names
}

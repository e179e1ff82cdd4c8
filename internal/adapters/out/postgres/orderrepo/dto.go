// Package orderrepo provides data transfer objects and mapping functions for order persistence.
// An order is stored across three tables: the order row itself, its item lines and its
// append-only status history.
package orderrepo

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderDTO is the orders row. Money columns are numeric(12,2); status, channel and
// payment fields hold their wire names so the table reads well in psql.
type OrderDTO struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Number        string     `gorm:"size:40;uniqueIndex;not null"`
	RestaurantID  uuid.UUID  `gorm:"type:uuid;index;not null"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	CourierID     *uuid.UUID `gorm:"type:uuid;index"`
	Channel       string     `gorm:"size:16;not null"`
	PaymentMethod string     `gorm:"size:16;not null"`
	PaymentStatus string     `gorm:"size:16;not null"`
	Status        string     `gorm:"size:24;index;not null"`

	Subtotal decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Fees     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Tax      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Discount decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"not null"`
	// StatusChangedAt mirrors the last history entry so expiry can filter on one column.
	StatusChangedAt    time.Time `gorm:"index;not null"`
	Timeline           datatypes.JSONType[map[string]time.Time]
	CancellationReason string     `gorm:"size:255"`
	CancelledBy        *uuid.UUID `gorm:"type:uuid"`
	Version            int64      `gorm:"not null"`

	Items   []OrderItemDTO     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []StatusHistoryDTO `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// OrderItemDTO is one order line with the price copied at placement.
type OrderItemDTO struct {
	OrderID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Position  int             `gorm:"primaryKey;autoIncrement:false"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Name      string          `gorm:"size:200;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

func (OrderItemDTO) TableName() string {
	return "order_items"
}

// StatusHistoryDTO is one row of the append-only status history.
type StatusHistoryDTO struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence  int       `gorm:"primaryKey;autoIncrement:false"`
	Status    string    `gorm:"size:24;not null"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null"`
	ActorRole string    `gorm:"size:16;not null"`
	Note      string    `gorm:"size:500"`
	At        time.Time `gorm:"not null"`
}

func (StatusHistoryDTO) TableName() string {
	return "order_status_history"
}

// Models lists every table of the order aggregate, for AutoMigrate.
func Models() []any {
	return []any{&OrderDTO{}, &OrderItemDTO{}, &StatusHistoryDTO{}}
}

func optionalUUID(id *kernel.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}

func optionalKernelUUID(id *uuid.UUID) (*kernel.UUID, error) {
	if id == nil {
		return nil, nil
	}
	k, err := kernel.UUIDFrom(*id)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func timelineFromDomain(timeline map[order.Status]time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(timeline))
	for s, at := range timeline {
		out[s.String()] = at.UTC()
	}
	return out
}

func historyFromDomain(orderID uuid.UUID, entries []order.HistoryEntry) []StatusHistoryDTO {
	dtos := make([]StatusHistoryDTO, 0, len(entries))
	for _, h := range entries {
		dtos = append(dtos, StatusHistoryDTO{
			OrderID:   orderID,
			Sequence:  h.Sequence(),
			Status:    h.Status().String(),
			ActorID:   h.Actor().ID().Bytes(),
			ActorRole: h.Actor().Role().String(),
			Note:      h.Note(),
			At:        h.At().UTC(),
		})
	}
	return dtos
}

// fromDomain converts an order aggregate to its row with items and full history.
func fromDomain(o *order.Order) OrderDTO {
	id := o.ID().Bytes()
	totals := o.Totals()

	items := make([]OrderItemDTO, 0, len(o.Items()))
	for i, item := range o.Items() {
		items = append(items, OrderItemDTO{
			OrderID:   id,
			Position:  i,
			ProductID: item.ProductID().Bytes(),
			Name:      item.Name(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice().Amount(),
		})
	}

	return OrderDTO{
		ID:                 id,
		Number:             o.Number(),
		RestaurantID:       o.RestaurantID().Bytes(),
		CustomerID:         o.CustomerID().Bytes(),
		CourierID:          optionalUUID(o.CourierID()),
		Channel:            o.Channel().String(),
		PaymentMethod:      string(o.PaymentMethod()),
		PaymentStatus:      o.PaymentStatus().String(),
		Status:             o.Status().String(),
		Subtotal:           totals.Subtotal().Amount(),
		Fees:               totals.Fees().Amount(),
		Tax:                totals.Tax().Amount(),
		Discount:           totals.Discount().Amount(),
		Total:              totals.Total().Amount(),
		CreatedAt:          o.CreatedAt().UTC(),
		StatusChangedAt:    o.LastHistoryEntry().At().UTC(),
		Timeline:           datatypes.NewJSONType(timelineFromDomain(o.Timeline())),
		CancellationReason: o.CancellationReason(),
		CancelledBy:        optionalUUID(o.CancelledBy()),
		Version:            o.Version(),
		Items:              items,
		History:            historyFromDomain(id, o.History()),
	}
}

// toDomain rebuilds the aggregate through RestoreOrder so a corrupted row is rejected.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFrom(dto.ID)
	if err != nil {
		return nil, err
	}
	restaurantID, err := kernel.UUIDFrom(dto.RestaurantID)
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.UUIDFrom(dto.CustomerID)
	if err != nil {
		return nil, err
	}
	courierID, err := optionalKernelUUID(dto.CourierID)
	if err != nil {
		return nil, err
	}
	cancelledBy, err := optionalKernelUUID(dto.CancelledBy)
	if err != nil {
		return nil, err
	}

	channel, err := order.ChannelFromString(dto.Channel)
	if err != nil {
		return nil, err
	}
	paymentStatus, err := order.PaymentStatusFromString(dto.PaymentStatus)
	if err != nil {
		return nil, err
	}
	status, err := order.StatusFromString(dto.Status)
	if err != nil {
		return nil, err
	}

	items, err := itemsToDomain(dto.Items)
	if err != nil {
		return nil, err
	}
	totals, err := totalsToDomain(dto)
	if err != nil {
		return nil, err
	}
	timeline, err := timelineToDomain(dto.Timeline.Data())
	if err != nil {
		return nil, err
	}
	history, err := historyToDomain(dto.History)
	if err != nil {
		return nil, err
	}

	return order.RestoreOrder(order.RestoreParams{
		ID:                 id,
		Number:             dto.Number,
		RestaurantID:       restaurantID,
		CustomerID:         customerID,
		CourierID:          courierID,
		Channel:            channel,
		PaymentMethod:      order.PaymentMethod(dto.PaymentMethod),
		PaymentStatus:      paymentStatus,
		Status:             status,
		Items:              items,
		Totals:             totals,
		CreatedAt:          dto.CreatedAt,
		Timeline:           timeline,
		CancellationReason: dto.CancellationReason,
		CancelledBy:        cancelledBy,
		History:            history,
		Version:            dto.Version,
	})
}

func itemsToDomain(dtos []OrderItemDTO) ([]order.Item, error) {
	items := make([]order.Item, 0, len(dtos))
	for _, dto := range dtos {
		productID, err := kernel.UUIDFrom(dto.ProductID)
		if err != nil {
			return nil, err
		}
		price, err := kernel.NewMoney(dto.UnitPrice)
		if err != nil {
			return nil, err
		}
		item, err := order.NewItem(productID, dto.Name, dto.Quantity, price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func totalsToDomain(dto OrderDTO) (order.Totals, error) {
	amounts := []decimal.Decimal{dto.Subtotal, dto.Fees, dto.Tax, dto.Discount, dto.Total}
	money := make([]kernel.Money, len(amounts))
	var errList []error
	for i, amount := range amounts {
		m, err := kernel.NewMoney(amount)
		errList = append(errList, err)
		money[i] = m
	}
	if err := errors.Join(errList...); err != nil {
		return order.Totals{}, err
	}
	return order.RestoreTotals(money[0], money[1], money[2], money[3], money[4])
}

func timelineToDomain(raw map[string]time.Time) (map[order.Status]time.Time, error) {
	timeline := make(map[order.Status]time.Time, len(raw))
	for name, at := range raw {
		s, err := order.StatusFromString(name)
		if err != nil {
			return nil, err
		}
		timeline[s] = at
	}
	return timeline, nil
}

func historyToDomain(dtos []StatusHistoryDTO) ([]order.HistoryEntry, error) {
	history := make([]order.HistoryEntry, 0, len(dtos))
	for _, dto := range dtos {
		status, err := order.StatusFromString(dto.Status)
		if err != nil {
			return nil, err
		}
		actor, err := actorToDomain(dto.ActorID, dto.ActorRole)
		if err != nil {
			return nil, err
		}
		entry, err := order.RestoreHistoryEntry(dto.Sequence, status, actor, dto.Note, dto.At)
		if err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, nil
}

func actorToDomain(rawID uuid.UUID, rawRole string) (order.Actor, error) {
	id, err := kernel.UUIDFrom(rawID)
	if err != nil {
		return order.Actor{}, err
	}
	role, err := order.RoleFromString(rawRole)
	if err != nil {
		return order.Actor{}, err
	}
	return order.NewActor(id, role)
}

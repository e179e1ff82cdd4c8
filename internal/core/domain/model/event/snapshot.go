package event

import (
	"slices"

	"orderflow/internal/core/domain/model/order"
)

// Snapshot is the part of the order a subscriber may rely on. It is serialised into
// the lifecycle_events table and into broadcast messages, so it uses wire types only.
type Snapshot struct {
	OrderID        string         `json:"orderId"`
	OrderNumber    string         `json:"orderNumber"`
	RestaurantID   string         `json:"restaurantId"`
	CustomerID     string         `json:"customerId"`
	CourierID      string         `json:"courierId,omitempty"`
	Channel        string         `json:"channel"`
	PreviousStatus string         `json:"previousStatus"`
	Status         string         `json:"status"`
	PaymentStatus  string         `json:"paymentStatus"`
	Total          string         `json:"total"`
	ActorID        string         `json:"actorId"`
	ActorRole      string         `json:"actorRole"`
	Note           string         `json:"note,omitempty"`
	Items          []SnapshotItem `json:"items"`
}

// SnapshotItem is one order line inside a Snapshot.
type SnapshotItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// NewSnapshot captures o right after tr was applied.
func NewSnapshot(o *order.Order, tr order.Transition) Snapshot {
	s := Snapshot{
		OrderID:        o.ID().String(),
		OrderNumber:    o.Number(),
		RestaurantID:   o.RestaurantID().String(),
		CustomerID:     o.CustomerID().String(),
		Channel:        o.Channel().String(),
		PreviousStatus: tr.From.String(),
		Status:         tr.To.String(),
		PaymentStatus:  o.PaymentStatus().String(),
		Total:          o.Totals().Total().String(),
		ActorID:        tr.Entry.Actor().ID().String(),
		ActorRole:      tr.Entry.Actor().Role().String(),
		Note:           tr.Entry.Note(),
	}
	if courierID := o.CourierID(); courierID != nil {
		s.CourierID = courierID.String()
	}
	for _, item := range o.Items() {
		s.Items = append(s.Items, SnapshotItem{
			ProductID: item.ProductID().String(),
			Name:      item.Name(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice().String(),
		})
	}
	return s
}

func (s Snapshot) clone() Snapshot {
	s.Items = slices.Clone(s.Items)
	return s
}

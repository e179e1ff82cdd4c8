// Package subscribers holds the dispatcher subscribers: customer notifications, the
// real-time feeds for restaurants, customers and kitchens, the courier pool announcer
// and the audit log.
package subscribers

import (
	"encoding/json"
	"time"

	"orderflow/internal/core/domain/model/event"
)

// Message is the JSON envelope pushed to real-time subscribers.
type Message struct {
	Event      string         `json:"event"`
	EventID    string         `json:"eventId"`
	OrderID    string         `json:"orderId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       event.Snapshot `json:"data"`
}

// NewMessage wraps e in the broadcast envelope.
func NewMessage(e *event.LifecycleEvent) Message {
	return Message{
		Event:      e.Type().String(),
		EventID:    e.ID().String(),
		OrderID:    e.OrderID().String(),
		OccurredAt: e.OccurredAt(),
		Data:       e.Snapshot(),
	}
}

func encode(e *event.LifecycleEvent) ([]byte, error) {
	return json.Marshal(NewMessage(e))
}

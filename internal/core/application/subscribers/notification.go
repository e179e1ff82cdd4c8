package subscribers

import (
	"context"
	"fmt"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
)

const NotificationName = "notification"

// Notification tells the customer about every status change of their order.
type Notification struct {
	sender ports.NotificationSender
}

func NewNotification(sender ports.NotificationSender) *Notification {
	return &Notification{sender: sender}
}

func (n *Notification) Name() string { return NotificationName }

func (n *Notification) Handle(ctx context.Context, e *event.LifecycleEvent) error {
	snapshot := e.Snapshot()
	customerID, err := kernel.UUIDFromString(snapshot.CustomerID)
	if err != nil {
		return fmt.Errorf("event %s: customer id: %w", e.ID(), err)
	}
	return n.sender.Send(ctx, customerID, e.Type(), snapshot)
}

package ports

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
)

// ErrCollaboratorFailure wraps every error returned by an external collaborator.
var ErrCollaboratorFailure = errors.New("collaborator failure")

// CatalogItem is what placement needs to know about a product.
type CatalogItem struct {
	ProductID kernel.UUID
	Name      string
	UnitPrice kernel.Money
	Available bool
}

// CatalogLookup resolves products at placement time only. Prices are copied onto the
// order and never looked up again.
type CatalogLookup interface {
	GetItem(ctx context.Context, productID kernel.UUID) (CatalogItem, error)
}

// CaptureResult is the gateway's answer to a capture confirmation.
type CaptureResult struct {
	Approved bool
	Reason   string
}

// PaymentGateway is the black-box payment provider.
type PaymentGateway interface {
	// ConfirmCapture asks whether the authorised payment of an order was captured.
	// A declined capture is a result, not an error.
	ConfirmCapture(ctx context.Context, orderID kernel.UUID) (CaptureResult, error)

	// Refund returns amount to the customer. Repeated calls for one order return the
	// same refund id.
	Refund(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (string, error)
}

// KitchenTicketSink creates a ticket on the kitchen side when an order is accepted.
// Creating a ticket twice for one order returns the existing ticket id.
type KitchenTicketSink interface {
	Create(ctx context.Context, snapshot event.Snapshot) (string, error)
}

// CourierAssignment is the courier pool and wallet.
type CourierAssignment interface {
	// NotifyAvailable announces a ready delivery order to idle couriers.
	NotifyAvailable(ctx context.Context, orderID kernel.UUID) error

	// Credit pays the courier for a delivered order, at most once per order.
	Credit(ctx context.Context, courierID, orderID kernel.UUID, amount kernel.Money) error
}

// NotificationSender delivers customer-facing messages (Telegram, SMS, push).
type NotificationSender interface {
	Send(ctx context.Context, customerID kernel.UUID, eventType event.Type, payload event.Snapshot) error
}

// RealtimeBroadcaster publishes to topic subscribers such as "restaurant:<id>",
// "customer:<id>", "kitchen:<id>" and "couriers".
type RealtimeBroadcaster interface {
	Publish(ctx context.Context, topic string, message []byte) error
}

// EventDispatcher accepts freshly persisted events for asynchronous fan-out.
type EventDispatcher interface {
	// Enqueue hands the event over without blocking. It reports false when the event
	// could not be queued; it stays undispatched in storage and is picked up later.
	Enqueue(e *event.LifecycleEvent) bool
}

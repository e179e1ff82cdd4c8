// Package servers holds the HTTP contract of the service: the OpenAPI document, its
// request and response types and the echo glue that binds parameters and dispatches to
// a ServerInterface. The layout follows oapi-codegen's echo server output so the
// package can be regenerated from openapi.yaml.
package servers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Defines values for PaymentWebhookStatus.
const (
	CAPTURED PaymentWebhookStatus = "CAPTURED"
	DECLINED PaymentWebhookStatus = "DECLINED"
)

// Error defines model for Error.
type Error struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Reason  *string `json:"reason,omitempty"`

	// Rule The transition rule that rejected the request.
	Rule *string `json:"rule,omitempty"`
}

// PlaceOrderRequest defines model for PlaceOrderRequest.
type PlaceOrderRequest struct {
	Channel string `json:"channel"`

	// CustomerId Required when staff place an order for a customer.
	CustomerId    *openapi_types.UUID `json:"customerId,omitempty"`
	Discount      *string             `json:"discount,omitempty"`
	Items         []OrderLine         `json:"items"`
	PaymentMethod string              `json:"paymentMethod"`
	RestaurantId  openapi_types.UUID  `json:"restaurantId"`
}

// OrderLine defines model for OrderLine.
type OrderLine struct {
	ProductId openapi_types.UUID `json:"productId"`
	Quantity  int                `json:"quantity"`
}

// TransitionRequest defines model for TransitionRequest.
type TransitionRequest struct {
	CourierId    *openapi_types.UUID `json:"courierId,omitempty"`
	Notes        *string             `json:"notes,omitempty"`
	TargetStatus string              `json:"targetStatus"`
}

// PaymentWebhookStatus defines model for PaymentWebhook.Status.
type PaymentWebhookStatus string

// PaymentWebhook defines model for PaymentWebhook.
type PaymentWebhook struct {
	OrderId openapi_types.UUID   `json:"orderId"`
	Reason  *string              `json:"reason,omitempty"`
	Status  PaymentWebhookStatus `json:"status"`
}

// Order defines model for Order.
type Order struct {
	CancellationReason *string             `json:"cancellationReason,omitempty"`
	Channel            string              `json:"channel"`
	CourierId          *openapi_types.UUID `json:"courierId,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	CustomerId         openapi_types.UUID  `json:"customerId"`
	Discount           string              `json:"discount"`
	Fees               string              `json:"fees"`
	History            []HistoryEntry      `json:"history"`
	Id                 openapi_types.UUID  `json:"id"`
	Items              []OrderItem         `json:"items"`
	Number             string              `json:"number"`
	PaymentMethod      string              `json:"paymentMethod"`
	PaymentStatus      string              `json:"paymentStatus"`
	RestaurantId       openapi_types.UUID  `json:"restaurantId"`
	Status             string              `json:"status"`
	Subtotal           string              `json:"subtotal"`
	Tax                string              `json:"tax"`
	Total              string              `json:"total"`
	Version            int64               `json:"version"`
}

// OrderItem defines model for OrderItem.
type OrderItem struct {
	Name      string             `json:"name"`
	ProductId openapi_types.UUID `json:"productId"`
	Quantity  int                `json:"quantity"`
	UnitPrice string             `json:"unitPrice"`
}

// HistoryEntry defines model for HistoryEntry.
type HistoryEntry struct {
	ActorId   openapi_types.UUID `json:"actorId"`
	ActorRole string             `json:"actorRole"`
	At        time.Time          `json:"at"`
	Note      *string            `json:"note,omitempty"`
	Sequence  int                `json:"sequence"`
	Status    string             `json:"status"`
}

// ActiveOrder defines model for ActiveOrder.
type ActiveOrder struct {
	Channel         string             `json:"channel"`
	CreatedAt       time.Time          `json:"createdAt"`
	Id              openapi_types.UUID `json:"id"`
	Number          string             `json:"number"`
	PaymentStatus   string             `json:"paymentStatus"`
	RestaurantId    openapi_types.UUID `json:"restaurantId"`
	Status          string             `json:"status"`
	StatusChangedAt time.Time          `json:"statusChangedAt"`
	Total           string             `json:"total"`
}

// Wallet defines model for Wallet.
type Wallet struct {
	Balance      string              `json:"balance"`
	CourierId    openapi_types.UUID  `json:"courierId"`
	TotalEarned  string              `json:"totalEarned"`
	Transactions []WalletTransaction `json:"transactions"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// WalletTransaction defines model for WalletTransaction.
type WalletTransaction struct {
	Amount       string              `json:"amount"`
	BalanceAfter string              `json:"balanceAfter"`
	CreatedAt    time.Time           `json:"createdAt"`
	Description  *string             `json:"description,omitempty"`
	Id           openapi_types.UUID  `json:"id"`
	OrderId      *openapi_types.UUID `json:"orderId,omitempty"`
	Type         string              `json:"type"`
}

// GetActiveOrdersParams defines parameters for GetActiveOrders.
type GetActiveOrdersParams struct {
	RestaurantId *openapi_types.UUID `form:"restaurantId,omitempty" json:"restaurantId,omitempty"`
	Limit        *int                `form:"limit,omitempty" json:"limit,omitempty"`
}

// GetCourierWalletParams defines parameters for GetCourierWallet.
type GetCourierWalletParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// SubscribeParams defines parameters for Subscribe.
type SubscribeParams struct {
	Topic string `form:"topic" json:"topic"`

	// Token Bearer token for clients that cannot set headers on a websocket.
	Token *string `form:"token,omitempty" json:"token,omitempty"`
}

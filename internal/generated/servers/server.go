package servers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Place an order
	// (POST /api/v1/orders)
	PlaceOrder(ctx echo.Context) error
	// List orders that are not in a terminal status
	// (GET /api/v1/orders/active)
	GetActiveOrders(ctx echo.Context, params GetActiveOrdersParams) error
	// Get an order with its status history
	// (GET /api/v1/orders/{orderId})
	GetOrder(ctx echo.Context, orderId openapi_types.UUID) error
	// Move an order to a new status
	// (POST /api/v1/orders/{orderId}/transitions)
	RequestTransition(ctx echo.Context, orderId openapi_types.UUID) error
	// Receive a capture verdict from the payment provider
	// (POST /api/v1/payments/webhook)
	PaymentWebhook(ctx echo.Context) error
	// Get a courier's balance and latest earnings
	// (GET /api/v1/couriers/{courierId}/wallet)
	GetCourierWallet(ctx echo.Context, courierId openapi_types.UUID, params GetCourierWalletParams) error
	// Open a websocket that receives lifecycle messages for one topic
	// (GET /api/v1/subscriptions)
	Subscribe(ctx echo.Context, params SubscribeParams) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// PlaceOrder converts echo context to params.
func (w *ServerInterfaceWrapper) PlaceOrder(ctx echo.Context) error {
	return w.Handler.PlaceOrder(ctx)
}

// GetActiveOrders converts echo context to params.
func (w *ServerInterfaceWrapper) GetActiveOrders(ctx echo.Context) error {
	var err error

	var params GetActiveOrdersParams

	err = runtime.BindQueryParameter("form", true, false, "restaurantId", ctx.QueryParams(), &params.RestaurantId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter restaurantId: %s", err))
	}

	err = runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter limit: %s", err))
	}

	return w.Handler.GetActiveOrders(ctx, params)
}

// GetOrder converts echo context to params.
func (w *ServerInterfaceWrapper) GetOrder(ctx echo.Context) error {
	var err error
	var orderId openapi_types.UUID

	err = runtime.BindStyledParameterWithOptions("simple", "orderId", ctx.Param("orderId"), &orderId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter orderId: %s", err))
	}

	return w.Handler.GetOrder(ctx, orderId)
}

// RequestTransition converts echo context to params.
func (w *ServerInterfaceWrapper) RequestTransition(ctx echo.Context) error {
	var err error
	var orderId openapi_types.UUID

	err = runtime.BindStyledParameterWithOptions("simple", "orderId", ctx.Param("orderId"), &orderId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter orderId: %s", err))
	}

	return w.Handler.RequestTransition(ctx, orderId)
}

// PaymentWebhook converts echo context to params.
func (w *ServerInterfaceWrapper) PaymentWebhook(ctx echo.Context) error {
	return w.Handler.PaymentWebhook(ctx)
}

// GetCourierWallet converts echo context to params.
func (w *ServerInterfaceWrapper) GetCourierWallet(ctx echo.Context) error {
	var err error
	var courierId openapi_types.UUID

	err = runtime.BindStyledParameterWithOptions("simple", "courierId", ctx.Param("courierId"), &courierId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter courierId: %s", err))
	}

	var params GetCourierWalletParams

	err = runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter limit: %s", err))
	}

	return w.Handler.GetCourierWallet(ctx, courierId, params)
}

// Subscribe converts echo context to params.
func (w *ServerInterfaceWrapper) Subscribe(ctx echo.Context) error {
	var err error

	var params SubscribeParams

	err = runtime.BindQueryParameter("form", true, true, "topic", ctx.QueryParams(), &params.Topic)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter topic: %s", err))
	}

	err = runtime.BindQueryParameter("form", true, false, "token", ctx.QueryParams(), &params.Token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter token: %s", err))
	}

	return w.Handler.Subscribe(ctx, params)
}

// EchoRouter is the subset of echo.Echo and echo.Group the handlers are registered on.
type EchoRouter interface {
	CONNECT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	HEAD(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	OPTIONS(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	TRACE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers the handlers under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.POST(baseURL+"/api/v1/orders", wrapper.PlaceOrder)
	router.GET(baseURL+"/api/v1/orders/active", wrapper.GetActiveOrders)
	router.GET(baseURL+"/api/v1/orders/:orderId", wrapper.GetOrder)
	router.POST(baseURL+"/api/v1/orders/:orderId/transitions", wrapper.RequestTransition)
	router.POST(baseURL+"/api/v1/payments/webhook", wrapper.PaymentWebhook)
	router.GET(baseURL+"/api/v1/couriers/:courierId/wallet", wrapper.GetCourierWallet)
	router.GET(baseURL+"/api/v1/subscriptions", wrapper.Subscribe)
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/generated/servers"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Use case ports of the transport. The command and query handlers satisfy them.
type (
	OrderPlacer interface {
		Handle(ctx context.Context, cmd commands.PlaceOrderCommand) (*order.Order, error)
	}

	TransitionRequester interface {
		Handle(ctx context.Context, cmd commands.RequestTransitionCommand) (*order.Order, error)
	}

	PaymentConfirmer interface {
		Handle(ctx context.Context, cmd commands.ConfirmPaymentCommand) (*order.Order, error)
	}

	OrderReader interface {
		Handle(ctx context.Context, query queries.GetOrderQuery) (*queries.GetOrderQueryResponse, error)
	}

	ActiveOrdersReader interface {
		Handle(ctx context.Context, query queries.GetActiveOrdersQuery) ([]queries.GetActiveOrdersQueryResponse, error)
	}

	WalletReader interface {
		Handle(ctx context.Context, query queries.GetCourierWalletQuery) (*queries.GetCourierWalletQueryResponse, error)
	}

	// PaymentRecorder stores the provider's verdict so later capture confirmations
	// can answer from it.
	PaymentRecorder interface {
		RecordCapture(ctx context.Context, orderID kernel.UUID, captured bool, reason string) error
	}

	// SubscriptionHub streams topic messages to a websocket until ctx ends or the
	// client leaves.
	SubscriptionHub interface {
		Serve(ctx context.Context, conn *websocket.Conn, topic string)
	}
)

// Handlers bundles the use cases the server dispatches to.
type Handlers struct {
	PlaceOrder        OrderPlacer
	RequestTransition TransitionRequester
	ConfirmPayment    PaymentConfirmer
	GetOrder          OrderReader
	GetActiveOrders   ActiveOrdersReader
	GetCourierWallet  WalletReader
}

// Server implements servers.ServerInterface.
type Server struct {
	handlers Handlers
	payments PaymentRecorder
	hub      SubscriptionHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewServer(handlers Handlers, payments PaymentRecorder, hub SubscriptionHub, logger *slog.Logger) *Server {
	return &Server{
		handlers: handlers,
		payments: payments,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "http"),
	}
}

// PlaceOrder handles POST /api/v1/orders. A customer places for themselves; staff
// name the customer in the body.
func (s *Server) PlaceOrder(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}

	var req servers.PlaceOrderRequest
	if err = ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	customerID := actor.ID()
	if req.CustomerId != nil {
		if customerID, err = kernel.UUIDFrom(*req.CustomerId); err != nil {
			return err
		}
	}
	restaurantID, err := kernel.UUIDFrom(req.RestaurantId)
	if err != nil {
		return err
	}
	channel, err := order.ChannelFromString(req.Channel)
	if err != nil {
		return err
	}
	discount := kernel.ZeroMoney()
	if req.Discount != nil {
		if discount, err = kernel.MoneyFromString(*req.Discount); err != nil {
			return err
		}
	}
	lines := make([]commands.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		productID, idErr := kernel.UUIDFrom(item.ProductId)
		if idErr != nil {
			return idErr
		}
		lines = append(lines, commands.OrderLine{ProductID: productID, Quantity: item.Quantity})
	}

	cmd, err := commands.NewPlaceOrderCommand(restaurantID, actor, customerID, channel,
		order.PaymentMethod(req.PaymentMethod), lines, discount)
	if err != nil {
		return err
	}

	o, err := s.handlers.PlaceOrder.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, orderFromAggregate(o))
}

// GetActiveOrders handles GET /api/v1/orders/active.
func (s *Server) GetActiveOrders(ctx echo.Context, params servers.GetActiveOrdersParams) error {
	var restaurantID *kernel.UUID
	if params.RestaurantId != nil {
		id, err := kernel.UUIDFrom(*params.RestaurantId)
		if err != nil {
			return err
		}
		restaurantID = &id
	}
	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}

	query, err := queries.NewGetActiveOrdersQuery(restaurantID, limit)
	if err != nil {
		return err
	}
	orders, err := s.handlers.GetActiveOrders.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}

	response := make([]servers.ActiveOrder, len(orders))
	for i, o := range orders {
		response[i] = activeOrderFromQuery(o)
	}
	return ctx.JSON(http.StatusOK, response)
}

// GetOrder handles GET /api/v1/orders/{orderId}.
func (s *Server) GetOrder(ctx echo.Context, orderId openapi_types.UUID) error {
	id, err := kernel.UUIDFrom(orderId)
	if err != nil {
		return err
	}
	query, err := queries.NewGetOrderQuery(id)
	if err != nil {
		return err
	}

	o, err := s.handlers.GetOrder.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, orderFromQuery(o))
}

// RequestTransition handles POST /api/v1/orders/{orderId}/transitions.
func (s *Server) RequestTransition(ctx echo.Context, orderId openapi_types.UUID) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}

	var req servers.TransitionRequest
	if err = ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	id, err := kernel.UUIDFrom(orderId)
	if err != nil {
		return err
	}
	target, err := order.StatusFromString(req.TargetStatus)
	if err != nil {
		return err
	}
	var courierID *kernel.UUID
	if req.CourierId != nil {
		cid, cidErr := kernel.UUIDFrom(*req.CourierId)
		if cidErr != nil {
			return cidErr
		}
		courierID = &cid
	}

	cmd, err := commands.NewRequestTransitionCommand(id, target, actor, deref(req.Notes), courierID)
	if err != nil {
		return err
	}
	o, err := s.handlers.RequestTransition.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, orderFromAggregate(o))
}

// PaymentWebhook handles POST /api/v1/payments/webhook. The verdict is recorded before
// it is applied, so a retried webhook or a later capture check sees the same answer.
func (s *Server) PaymentWebhook(ctx echo.Context) error {
	var req servers.PaymentWebhook
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	id, err := kernel.UUIDFrom(req.OrderId)
	if err != nil {
		return err
	}
	captured := req.Status == servers.CAPTURED
	cmd, err := commands.NewConfirmPaymentCommand(id, captured, deref(req.Reason))
	if err != nil {
		return err
	}

	if err = s.payments.RecordCapture(ctx.Request().Context(), id, captured, deref(req.Reason)); err != nil {
		return err
	}
	o, err := s.handlers.ConfirmPayment.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, orderFromAggregate(o))
}

// GetCourierWallet handles GET /api/v1/couriers/{courierId}/wallet. Couriers see their
// own wallet; admins see any.
func (s *Server) GetCourierWallet(ctx echo.Context, courierId openapi_types.UUID, params servers.GetCourierWalletParams) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := kernel.UUIDFrom(courierId)
	if err != nil {
		return err
	}
	if !actor.Is(order.RoleAdmin) && !(actor.Is(order.RoleCourier) && actor.ID().IsEqual(id)) {
		return echo.NewHTTPError(http.StatusForbidden, "wallet belongs to another courier")
	}

	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	query, err := queries.NewGetCourierWalletQuery(id, limit)
	if err != nil {
		return err
	}
	wallet, err := s.handlers.GetCourierWallet.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, walletFromQuery(wallet))
}

// Subscribe handles GET /api/v1/subscriptions and keeps the websocket open until the
// client leaves or the server shuts down.
func (s *Server) Subscribe(ctx echo.Context, params servers.SubscribeParams) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	topic, err := ports.ParseTopic(params.Topic)
	if err != nil {
		return err
	}
	if !mayListen(actor, topic) {
		return echo.NewHTTPError(http.StatusForbidden, "topic is not available to this actor")
	}

	conn, err := s.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already wrote the response
		s.logger.WarnContext(ctx.Request().Context(), "websocket upgrade failed", "error", err)
		return nil
	}
	s.logger.DebugContext(ctx.Request().Context(), "subscription opened",
		"topic", topic, "actor", actor.String())
	s.hub.Serve(ctx.Request().Context(), conn, topic)
	return nil
}

// mayListen keeps customers on their own topic and couriers on the courier pool.
// Restaurant staff may follow any restaurant or kitchen topic.
func mayListen(actor order.Actor, topic string) bool {
	switch actor.Role() {
	case order.RoleCustomer:
		return topic == ports.CustomerTopic(actor.ID().String())
	case order.RoleCourier:
		return topic == ports.TopicCouriers
	case order.RoleAdmin:
		return true
	default:
		return topic != ports.TopicCouriers && !strings.HasPrefix(topic, ports.CustomerTopic(""))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ servers.ServerInterface = (*Server)(nil)

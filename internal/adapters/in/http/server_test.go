package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpin "orderflow/internal/adapters/in/http"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/generated/servers"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite
	placer      *MockPlacer
	transitions *MockTransitions
	confirmer   *MockConfirmer
	orders      *MockOrderReader
	active      *MockActiveReader
	wallets     *MockWalletReader
	payments    *MockPaymentRecorder
	hub         *MockHub
	router      *echo.Echo
}

func (suite *ServerTestSuite) SetupTest() {
	suite.placer = &MockPlacer{}
	suite.transitions = &MockTransitions{}
	suite.confirmer = &MockConfirmer{}
	suite.orders = &MockOrderReader{}
	suite.active = &MockActiveReader{}
	suite.wallets = &MockWalletReader{}
	suite.payments = &MockPaymentRecorder{}
	suite.hub = &MockHub{}

	logger := slog.New(slog.DiscardHandler)
	server := httpin.NewServer(httpin.Handlers{
		PlaceOrder:        suite.placer,
		RequestTransition: suite.transitions,
		ConfirmPayment:    suite.confirmer,
		GetOrder:          suite.orders,
		GetActiveOrders:   suite.active,
		GetCourierWallet:  suite.wallets,
	}, suite.payments, suite.hub, logger)

	router, err := httpin.NewRouter(server, httpin.RouterConfig{}, logger)
	suite.Require().NoError(err)
	suite.router = router
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.placer.AssertExpectations(suite.T())
	suite.transitions.AssertExpectations(suite.T())
	suite.confirmer.AssertExpectations(suite.T())
	suite.payments.AssertExpectations(suite.T())
}

func (suite *ServerTestSuite) actor(role order.Role) order.Actor {
	a, err := order.NewActor(kernel.NewUUID(), role)
	suite.Require().NoError(err)
	return a
}

func (suite *ServerTestSuite) do(method, target, body string, actor *order.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if actor != nil {
		req.Header.Set(httpin.HeaderActorID, actor.ID().String())
		req.Header.Set(httpin.HeaderActorRole, string(actor.Role()))
	}
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	return rec
}

func (suite *ServerTestSuite) decodeError(rec *httptest.ResponseRecorder) servers.Error {
	var body servers.Error
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (suite *ServerTestSuite) TestPlaceOrder_CustomerPlacesForThemselves() {
	customer := suite.actor(order.RoleCustomer)
	placed := newOrder(suite.T(), customer)
	productID := kernel.NewUUID()
	suite.placer.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.PlaceOrderCommand) bool {
		return cmd.CustomerID().IsEqual(customer.ID()) &&
			cmd.Channel() == order.ChannelPickup &&
			len(cmd.Lines()) == 1 && cmd.Lines()[0].ProductID.IsEqual(productID) &&
			cmd.Discount().String() == "1.50"
	})).Return(placed, nil).Once()

	body := fmt.Sprintf(`{"restaurantId":%q,"channel":"PICKUP","paymentMethod":"CASH","discount":"1.50",
		"items":[{"productId":%q,"quantity":2}]}`, kernel.NewUUID(), productID)
	rec := suite.do(http.MethodPost, "/api/v1/orders", body, &customer)

	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp servers.Order
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	suite.Equal(placed.ID().Bytes(), resp.Id)
	suite.Equal("PLACED", resp.Status)
	suite.Equal("12.00", resp.Total)
	suite.Len(resp.History, 1)
}

func (suite *ServerTestSuite) TestPlaceOrder_RequiresCredentials() {
	body := fmt.Sprintf(`{"restaurantId":%q,"channel":"PICKUP","paymentMethod":"CASH",
		"items":[{"productId":%q,"quantity":1}]}`, kernel.NewUUID(), kernel.NewUUID())

	rec := suite.do(http.MethodPost, "/api/v1/orders", body, nil)

	suite.Equal(http.StatusUnauthorized, rec.Code)
}

func (suite *ServerTestSuite) TestPlaceOrder_BodyFailsSchema() {
	customer := suite.actor(order.RoleCustomer)
	body := fmt.Sprintf(`{"restaurantId":%q,"channel":"DRIVE_THRU","paymentMethod":"CASH","items":[]}`,
		kernel.NewUUID())

	rec := suite.do(http.MethodPost, "/api/v1/orders", body, &customer)

	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.placer.AssertNotCalled(suite.T(), "Handle", mock.Anything, mock.Anything)
}

func (suite *ServerTestSuite) TestRequestTransition_ErrorMapping() {
	kitchen := suite.actor(order.RoleKitchen)
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid transition", order.NewInvalidTransitionError(order.RuleState, order.Placed, order.Ready, "no edge"),
			http.StatusUnprocessableEntity},
		{"not found", errs.NewObjectNotFoundError("order", "x"), http.StatusNotFound},
		{"conflict", commands.ErrConflict, http.StatusConflict},
		{"collaborator", fmt.Errorf("%w: gateway down", ports.ErrCollaboratorFailure), http.StatusBadGateway},
		{"unexpected", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			orderID := kernel.NewUUID()
			suite.transitions.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.RequestTransitionCommand) bool {
				return cmd.OrderID().IsEqual(orderID)
			})).Return(nil, tt.err).Once()

			rec := suite.do(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/transitions",
				`{"targetStatus":"READY","notes":"rush"}`, &kitchen)

			suite.Equal(tt.status, rec.Code)
		})
	}
}

func (suite *ServerTestSuite) TestRequestTransition_InvalidTransitionCarriesRule() {
	kitchen := suite.actor(order.RoleKitchen)
	suite.transitions.On("Handle", mock.Anything, mock.Anything).
		Return(nil, order.NewInvalidTransitionError(order.RuleState, order.Placed, order.Ready, "no edge")).Once()

	rec := suite.do(http.MethodPost, "/api/v1/orders/"+kernel.NewUUID().String()+"/transitions",
		`{"targetStatus":"READY"}`, &kitchen)

	suite.Require().Equal(http.StatusUnprocessableEntity, rec.Code)
	body := suite.decodeError(rec)
	suite.Require().NotNil(body.Rule)
	suite.Equal(string(order.RuleState), *body.Rule)
	suite.Equal("no edge", *body.Reason)
}

func (suite *ServerTestSuite) TestRequestTransition_UnknownStatusIsRejectedBySchema() {
	kitchen := suite.actor(order.RoleKitchen)

	rec := suite.do(http.MethodPost, "/api/v1/orders/"+kernel.NewUUID().String()+"/transitions",
		`{"targetStatus":"EATEN"}`, &kitchen)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestGetOrder_MalformedID() {
	rec := suite.do(http.MethodGet, "/api/v1/orders/not-a-uuid", "", nil)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestGetOrder_ReturnsHistory() {
	orderID := kernel.NewUUID()
	actorID := kernel.NewUUID()
	suite.orders.On("Handle", mock.Anything, mock.Anything).Return(&queries.GetOrderQueryResponse{
		ID:           orderID,
		Number:       "ORD-1",
		RestaurantID: kernel.NewUUID(),
		CustomerID:   actorID,
		Channel:      "PICKUP",
		Status:       "ACCEPTED",
		Total:        kernel.MustMoney("9.90"),
		History: []queries.HistoryEntryResponse{
			{Sequence: 1, Status: "PLACED", ActorID: actorID, ActorRole: "CUSTOMER", At: time.Now()},
			{Sequence: 2, Status: "ACCEPTED", ActorID: actorID, ActorRole: "KITCHEN", Note: "10 min", At: time.Now()},
		},
	}, nil).Once()

	rec := suite.do(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", nil)

	suite.Require().Equal(http.StatusOK, rec.Code)
	var resp servers.Order
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	suite.Equal("9.90", resp.Total)
	suite.Require().Len(resp.History, 2)
	suite.Nil(resp.History[0].Note)
	suite.Equal("10 min", *resp.History[1].Note)
}

func (suite *ServerTestSuite) TestGetActiveOrders_PassesFilter() {
	restaurantID := kernel.NewUUID()
	suite.active.On("Handle", mock.Anything, mock.MatchedBy(func(q queries.GetActiveOrdersQuery) bool {
		return q.RestaurantID() != nil && q.RestaurantID().IsEqual(restaurantID) && q.Limit() == 5
	})).Return([]queries.GetActiveOrdersQueryResponse{{ID: kernel.NewUUID(), Status: "PLACED"}}, nil).Once()

	rec := suite.do(http.MethodGet, "/api/v1/orders/active?restaurantId="+restaurantID.String()+"&limit=5", "", nil)

	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp []servers.ActiveOrder
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	suite.Len(resp, 1)
}

func (suite *ServerTestSuite) TestPaymentWebhook_RecordsBeforeConfirming() {
	customer := suite.actor(order.RoleCustomer)
	o := newOrder(suite.T(), customer)
	record := suite.payments.On("RecordCapture", mock.Anything, o.ID(), false, "card expired").Return(nil).Once()
	confirm := suite.confirmer.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.ConfirmPaymentCommand) bool {
		return cmd.OrderID().IsEqual(o.ID()) && !cmd.Captured() && cmd.Reason() == "card expired"
	})).Return(o, nil).Once()
	mock.InOrder(record, confirm)

	body := fmt.Sprintf(`{"orderId":%q,"status":"DECLINED","reason":"card expired"}`, o.ID())
	rec := suite.do(http.MethodPost, "/api/v1/payments/webhook", body, nil)

	suite.Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (suite *ServerTestSuite) TestGetCourierWallet_OnlyOwnWallet() {
	courier := suite.actor(order.RoleCourier)

	rec := suite.do(http.MethodGet, "/api/v1/couriers/"+kernel.NewUUID().String()+"/wallet", "", &courier)
	suite.Equal(http.StatusForbidden, rec.Code)

	suite.wallets.On("Handle", mock.Anything, mock.Anything).Return(&queries.GetCourierWalletQueryResponse{
		CourierID:   courier.ID(),
		Balance:     kernel.MustMoney("20.50"),
		TotalEarned: kernel.MustMoney("20.50"),
	}, nil).Once()
	rec = suite.do(http.MethodGet, "/api/v1/couriers/"+courier.ID().String()+"/wallet", "", &courier)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var resp servers.Wallet
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	suite.Equal("20.50", resp.Balance)
	suite.NotNil(resp.Transactions)
}

func (suite *ServerTestSuite) TestSubscribe_RejectsForeignCustomerTopic() {
	customer := suite.actor(order.RoleCustomer)

	rec := suite.do(http.MethodGet, "/api/v1/subscriptions?topic="+ports.CustomerTopic(kernel.NewUUID().String()), "", &customer)

	suite.Equal(http.StatusForbidden, rec.Code)
}

func (suite *ServerTestSuite) TestSubscribe_MalformedTopic() {
	admin := suite.actor(order.RoleAdmin)

	rec := suite.do(http.MethodGet, "/api/v1/subscriptions?topic=restaurant:nope", "", &admin)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestHeaderActorCannotClaimSystem() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/active", nil)
	req.Header.Set(httpin.HeaderActorID, kernel.NewUUID().String())
	req.Header.Set(httpin.HeaderActorRole, "SYSTEM")
	rec := httptest.NewRecorder()

	suite.router.ServeHTTP(rec, req)

	suite.Equal(http.StatusUnauthorized, rec.Code)
}

func (suite *ServerTestSuite) TestHealth() {
	rec := suite.do(http.MethodGet, "/health", "", nil)

	suite.Equal(http.StatusOK, rec.Code)
	suite.Equal("Healthy", rec.Body.String())
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestHealth_ReportsUnhealthyDependency(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	server := httpin.NewServer(httpin.Handlers{}, nil, nil, logger)
	router, err := httpin.NewRouter(server, httpin.RouterConfig{
		Health: func(ctx context.Context) error { return fmt.Errorf("connection refused") },
	}, logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

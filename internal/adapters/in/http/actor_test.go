package http_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpin "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/realtime"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func jwtRouter(t *testing.T, wallets httpin.WalletReader, hub httpin.SubscriptionHub) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	server := httpin.NewServer(httpin.Handlers{GetCourierWallet: wallets}, nil, hub, logger)
	router, err := httpin.NewRouter(server, httpin.RouterConfig{JWTSecret: testSecret}, logger)
	require.NoError(t, err)
	return router
}

func token(t *testing.T, secret string, actor order.Actor, expiresIn time.Duration) string {
	t.Helper()
	signed, err := httpin.NewActorResolver(secret).IssueToken(actor, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
	require.NoError(t, err)
	return signed
}

func TestActorResolver_BearerToken(t *testing.T) {
	courier, err := order.NewActor(kernel.NewUUID(), order.RoleCourier)
	require.NoError(t, err)
	wallets := &MockWalletReader{}
	wallets.On("Handle", mock.Anything, mock.MatchedBy(func(q queries.GetCourierWalletQuery) bool {
		return q.CourierID().IsEqual(courier.ID())
	})).Return(&queries.GetCourierWalletQueryResponse{
		CourierID:   courier.ID(),
		Balance:     kernel.ZeroMoney(),
		TotalEarned: kernel.ZeroMoney(),
	}, nil)
	router := jwtRouter(t, wallets, nil)
	target := "/api/v1/couriers/" + courier.ID().String() + "/wallet"

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + token(t, testSecret, courier, time.Hour), http.StatusOK},
		{"expired token", "Bearer " + token(t, testSecret, courier, -time.Hour), http.StatusUnauthorized},
		{"foreign signature", "Bearer " + token(t, "other-secret", courier, time.Hour), http.StatusUnauthorized},
		{"not a bearer token", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		{"no credentials", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestActorResolver_IgnoresHeadersWhenSecretIsSet(t *testing.T) {
	router := jwtRouter(t, &MockWalletReader{}, nil)
	courierID := kernel.NewUUID()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/couriers/"+courierID.String()+"/wallet", nil)
	req.Header.Set(httpin.HeaderActorID, courierID.String())
	req.Header.Set(httpin.HeaderActorRole, "COURIER")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscribe_StreamsTopicMessages(t *testing.T) {
	hub := realtime.NewHub(8, slog.New(slog.DiscardHandler))
	t.Cleanup(hub.Close)
	srv := httptest.NewServer(jwtRouter(t, nil, hub))
	t.Cleanup(srv.Close)

	customer, err := order.NewActor(kernel.NewUUID(), order.RoleCustomer)
	require.NoError(t, err)
	topic := ports.CustomerTopic(customer.ID().String())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/subscriptions?topic=" + topic +
		"&token=" + token(t, testSecret, customer, time.Hour)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.Subscribers(topic) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), topic, []byte(`{"event":"order.ready"}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"order.ready"}`, string(msg))
}

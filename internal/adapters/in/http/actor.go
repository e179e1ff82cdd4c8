package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	actorKey = "actor"

	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

// Claims are the JWT claims the service reads: the subject is the actor id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ActorResolver identifies the caller of a request. With a secret it only trusts HS256
// bearer tokens (from the Authorization header, or the token query parameter for
// websocket clients); without one it reads the X-Actor-Id and X-Actor-Role headers.
type ActorResolver struct {
	secret []byte
}

func NewActorResolver(secret string) ActorResolver {
	return ActorResolver{secret: []byte(secret)}
}

// Middleware stores the resolved actor on the echo context. Requests without any
// credentials pass through anonymous; handlers that need an actor reject them.
func (r ActorResolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok, err := r.resolve(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
			}
			if ok {
				c.Set(actorKey, actor)
			}
			return next(c)
		}
	}
}

func (r ActorResolver) resolve(req *http.Request) (order.Actor, bool, error) {
	if len(r.secret) == 0 {
		id := req.Header.Get(HeaderActorID)
		role := req.Header.Get(HeaderActorRole)
		if id == "" && role == "" {
			return order.Actor{}, false, nil
		}
		actor, err := newExternalActor(id, role)
		return actor, err == nil, err
	}

	token := req.URL.Query().Get("token")
	if header := req.Header.Get(echo.HeaderAuthorization); header != "" {
		var found bool
		if token, found = strings.CutPrefix(header, "Bearer "); !found {
			return order.Actor{}, false, errors.New("authorization header must carry a bearer token")
		}
	}
	if token == "" {
		return order.Actor{}, false, nil
	}

	actor, err := r.parseToken(token)
	return actor, err == nil, err
}

func (r ActorResolver) parseToken(raw string) (order.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return order.Actor{}, fmt.Errorf("invalid token: %w", err)
	}
	return newExternalActor(claims.Subject, claims.Role)
}

// IssueToken signs claims for an actor. Used by tests and local tooling.
func (r ActorResolver) IssueToken(actor order.Actor, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = actor.ID().String()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             string(actor.Role()),
		RegisteredClaims: claims,
	}).SignedString(r.secret)
}

// newExternalActor refuses the SYSTEM role, which only background work may use.
func newExternalActor(id, role string) (order.Actor, error) {
	actorID, err := kernel.UUIDFromString(id)
	if err != nil {
		return order.Actor{}, fmt.Errorf("actor id: %w", err)
	}
	actorRole, err := order.RoleFromString(role)
	if err != nil {
		return order.Actor{}, fmt.Errorf("actor role: %w", err)
	}
	if actorRole == order.RoleSystem {
		return order.Actor{}, errors.New("the SYSTEM role is reserved")
	}
	return order.NewActor(actorID, actorRole)
}

func actorFrom(c echo.Context) (order.Actor, error) {
	actor, ok := c.Get(actorKey).(order.Actor)
	if !ok {
		return order.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "credentials are required")
	}
	return actor, nil
}

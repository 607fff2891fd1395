package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the already-authenticated caller attached to every request. The
// workflow core trusts it: credential verification happened at the middleware.
type Actor struct {
	ID             uuid.UUID
	Role           string
	OrganizationID *uuid.UUID
}

// IsAdmin reports whether the actor bypasses organization scoping.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the authenticated actor. The second return value
// is false when no auth middleware ran for the request.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// Middleware validates the bearer token and places the actor into the request
// context.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			actor := Actor{ID: userID, Role: claims.Role}
			if claims.OrganizationID != "" {
				orgID, err := uuid.Parse(claims.OrganizationID)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token organization")
				}
				actor.OrganizationID = &orgID
			}

			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}

// DevMiddleware admits unauthenticated requests as an admin actor. Development
// only; runServer refuses to install it outside ENV=development.
func DevMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := ActorFromContext(c.Request().Context()); !ok {
				actor := Actor{ID: uuid.Nil, Role: RoleAdmin}
				c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			}
			return next(c)
		}
	}
}

package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// authFromContext returns the identity injected by the auth middleware, or
// nil for anonymous requests.
func authFromContext(c echo.Context) *domain.AuthContext {
	return domain.AuthFromContext(c.Request().Context())
}

// requireAuth fails fast when the route was reached without an identity,
// which only happens if the route is missing its middleware.
func requireAuth(c echo.Context) (*domain.AuthContext, error) {
	auth := authFromContext(c)
	if auth == nil || auth.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return auth, nil
}

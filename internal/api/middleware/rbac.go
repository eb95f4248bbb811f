package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// RequireRole admits callers whose granted roles reach role through the
// hierarchy. It must run after Auth.
func RequireRole(hierarchy domain.RoleHierarchy, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := domain.AuthFromContext(c.Request().Context())
			if auth == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !hierarchy.Implies(auth.Roles, role) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

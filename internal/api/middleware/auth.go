package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
	"github.com/gary-backend/auth-service/internal/pkg/metrics"
)

// Auth validates the bearer token and attaches the resolved identity to the
// request context. Requests without a valid token are rejected with 401.
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return authenticate(tokens, true)
}

// OptionalAuth is Auth for routes that also serve anonymous callers: a
// missing or invalid token leaves the request unauthenticated.
func OptionalAuth(tokens ports.TokenService) echo.MiddlewareFunc {
	return authenticate(tokens, false)
}

func authenticate(tokens ports.TokenService, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
				}
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
				}
				return next(c)
			}

			auth, err := tokens.Validate(parts[1])
			metrics.TokenValidationsTotal.WithLabelValues(validationResult(err)).Inc()
			if err != nil {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, tokenErrorMessage(err))
				}
				return next(c)
			}

			auth.RemoteAddr = c.RealIP()
			req := c.Request()
			c.SetRequest(req.WithContext(domain.ContextWithAuth(req.Context(), auth)))

			return next(c)
		}
	}
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed"
	default:
		return "invalid"
	}
}

func tokenErrorMessage(err error) string {
	if errors.Is(err, domain.ErrTokenExpired) {
		return "token expired"
	}
	return "invalid token"
}

package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/gary-backend/auth-service/docs"
	"github.com/gary-backend/auth-service/internal/api/handler"
	"github.com/gary-backend/auth-service/internal/api/middleware"
	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
)

// RateLimit bounds requests per client IP on the credential endpoints.
type RateLimit struct {
	Rate  float64 // requests per second
	Burst int
}

// Dependencies is everything the HTTP layer needs.
type Dependencies struct {
	Auth      ports.AuthService
	Tokens    ports.TokenService
	Hierarchy domain.RoleHierarchy
	AdminRole string
	Health    map[string]handler.Pinger
	RateLimit RateLimit
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(middleware.Metrics())

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	adminHandler := handler.NewAdminHandler(deps.Auth)
	healthHandler := handler.NewHealthHandler(deps.Health)
	requireAuth := middleware.Auth(deps.Tokens)
	optionalAuth := middleware.OptionalAuth(deps.Tokens)
	limiter := rateLimiter(deps.RateLimit)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login, limiter)
	auth.POST("/signup", authHandler.Signup)
	auth.PUT("/password/change", authHandler.ChangePassword, requireAuth)
	auth.POST("/password/reset", authHandler.RequestReset, limiter)
	auth.PUT("/password/reset", authHandler.ConfirmReset)
	auth.GET("/info", authHandler.Info, optionalAuth)

	// --- Admin routes ---
	adminRole := deps.AdminRole
	if adminRole == "" {
		adminRole = "ROLE_ADMIN"
	}
	admin := e.Group("/admin", requireAuth, middleware.RequireRole(deps.Hierarchy, adminRole))
	admin.PUT("/users/:username/status", adminHandler.SetStatus)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func rateLimiter(cfg RateLimit) echo.MiddlewareFunc {
	if cfg.Rate <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.Rate),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
	})
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

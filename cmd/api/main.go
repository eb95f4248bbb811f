// @title						Auth Service API
// @version					1.0
// @description				Login, signup, password change and reset, and identity introspection.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gary-backend/auth-service/internal/api"
	"github.com/gary-backend/auth-service/internal/api/handler"
	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/service"
	mongodb "github.com/gary-backend/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/gary-backend/auth-service/internal/infrastructure/db/redis"
	"github.com/gary-backend/auth-service/internal/infrastructure/queue"
	"github.com/gary-backend/auth-service/internal/pkg/config"
	"github.com/gary-backend/auth-service/pkg/logger"
)

const serviceName = "auth-service"

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Credential store ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
		Timeout:  cfg.Store.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	users := mongodb.NewUserRepository(db, cfg.Store.Timeout)
	resets := mongodb.NewResetTokenRepository(db, cfg.Store.Timeout)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	// --- Reset notifications ---
	redisClient, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Store.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}()

	dispatcher := queue.NewDispatcher(
		cfg.Reset.Workers,
		redisdb.NewStreamNotifier(redisClient, cfg.Reset.Stream),
		log,
	)

	// --- Core services ---
	hierarchy, err := domain.ParseRoleHierarchy(cfg.Roles.Hierarchy)
	if err != nil {
		return err
	}

	tokens, err := service.NewTokenService(cfg.Token.Secret,
		service.WithIssuer(cfg.Token.Issuer),
		service.WithClockSkew(cfg.Token.ClockSkew),
		service.WithDefaultTTL(cfg.Token.TTL),
	)
	if err != nil {
		return err
	}

	retry := service.RetryPolicy{Attempts: cfg.Store.Retries, Backoff: cfg.Store.RetryBackoff}
	authService := service.NewAuthService(service.AuthDependencies{
		Users:      users,
		Hasher:     service.NewPasswordHasher(cfg.Password.BcryptCost),
		Tokens:     tokens,
		Resets:     service.NewResetTokenService(users, resets, cfg.Reset.TTL, retry),
		Hierarchy:  hierarchy,
		Dispatcher: dispatcher,
		Throttle:   redisdb.NewResetThrottle(redisClient),
	}, service.AuthPolicy{
		TokenTTL:      cfg.Token.TTL,
		DefaultRole:   cfg.Roles.DefaultRole,
		SignupRoles:   cfg.Roles.SignupRoles,
		ResetThrottle: cfg.Reset.Throttle,
		Retry:         retry,
	}, log)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Auth:      authService,
		Tokens:    tokens,
		Hierarchy: hierarchy,
		AdminRole: cfg.Roles.AdminRole,
		Health: map[string]handler.Pinger{
			"mongo": mongodb.Pinger{Client: mongoClient},
			"redis": redisdb.Pinger{Client: redisClient},
		},
		RateLimit: api.RateLimit{Rate: cfg.RateLimit.Rate, Burst: cfg.RateLimit.Burst},
		Log:       log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

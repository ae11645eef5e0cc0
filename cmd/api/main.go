// Package main is the entry point for the HR dashboard auth API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrdesk/hr-auth/internal/api"
	"github.com/hrdesk/hr-auth/internal/core/ports"
	"github.com/hrdesk/hr-auth/internal/core/service"
	mongostore "github.com/hrdesk/hr-auth/internal/infrastructure/db/mongo"
	redisstore "github.com/hrdesk/hr-auth/internal/infrastructure/db/redis"
	"github.com/hrdesk/hr-auth/internal/infrastructure/http/handlers"
	"github.com/hrdesk/hr-auth/internal/infrastructure/queue"
	"github.com/hrdesk/hr-auth/internal/pkg/config"
	"github.com/hrdesk/hr-auth/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title HR Dashboard Auth API
// @version 1.0
// @description Registration, login and session verification for the HR dashboard.
// @host localhost:5000
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Service: "hr-auth"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "hr-auth",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.UsesDevSecret() {
		log.Warn().Msg("signing tokens with the development JWT secret")
	}

	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	users := mongostore.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	readiness := handlers.NewReadinessHandler().Require("mongodb", mongostore.Pinger(db))

	var limiter ports.RateLimiter
	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
	} else {
		defer rdb.Close()
		limiter = redisstore.NewThrottle(rdb, cfg.Throttle.Limit, cfg.Throttle.Window)
		readiness.Optional("redis", redisstore.Pinger(rdb))
	}

	// --- Services ---
	// The pool outlives ctx so requests still draining after a signal can
	// finish hashing; drain stops it once the server is done.
	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	pool := queue.NewPool(cfg.Hashing.Workers, logger.Component("hash-pool"))
	pool.Start(poolCtx)

	hasher, err := service.NewBcryptHasher(cfg.Hashing.Cost, pool)
	if err != nil {
		return err
	}
	tokens, err := service.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(users, hasher, tokens, logger.Component("auth"))

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Log:            log,
		AuthService:    authService,
		Tokens:         tokens,
		Limiter:        limiter,
		Readiness:      readiness,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.ProxyRanges(),
		Swagger:        cfg.IsDevelopment(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Int("hash_workers", pool.Workers()).Msg("starting auth service")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	return drain(e, pool, stopPool)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drain stops accepting requests, waits for in-flight ones, and only then
// stops the hashing pool.
func drain(srv shutdowner, pool *queue.Pool, stopPool context.CancelFunc) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	stopPool()
	pool.Wait()
	return err
}

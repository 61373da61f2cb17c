package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anonto42/nano-midea/social/internal/app"
	"github.com/anonto42/nano-midea/social/internal/events"
	"github.com/anonto42/nano-midea/social/internal/handlers"
	"github.com/anonto42/nano-midea/social/internal/middleware"
	"github.com/anonto42/nano-midea/social/internal/router"
	"github.com/anonto42/nano-midea/social/pkg/config"
	"github.com/anonto42/nano-midea/social/pkg/firebase"
	"github.com/anonto42/nano-midea/social/pkg/logger"
	"github.com/anonto42/nano-midea/social/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.Logging)
	log.LogStartup("social", map[string]any{
		"port":      cfg.Port,
		"env":       cfg.Env,
		"auth_mode": cfg.AuthMode,
		"driver":    cfg.DatabaseDriver,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, application, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close stores", "error", err)
		}
	}()

	auth, err := authMiddleware(ctx, cfg)
	if err != nil {
		return err
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	router.SetupMiddleware(e, log)
	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"sql": handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.SQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"mongo": handlers.PingFunc(func(ctx context.Context) error { return db.Mongo.Ping(ctx, nil) }),
		"redis": handlers.PingFunc(func(ctx context.Context) error { return db.Redis.Ping(ctx).Err() }),
	})
	router.SetupRoutes(e, application.Services(), health, auth, log)

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("background worker stopped", "worker", name, "error", err)
				stop()
			}
		}()
	}

	for _, c := range []struct {
		stream string
		handle events.Handler
	}{
		{cfg.Events.IdentityStream, application.Projector.IdentityHandler()},
		{cfg.Events.FriendshipStream, application.Projector.FriendshipHandler()},
	} {
		stream := events.NewRedisStream(db.Redis, events.RedisStreamConfig{
			Stream:   c.stream,
			Group:    cfg.Events.Group,
			Consumer: cfg.Events.Consumer,
			Block:    cfg.Events.BlockTimeout,
		})
		consumer := events.NewConsumer(stream, c.handle, cfg.Events.MaxDeliveries, cfg.Events.RetryDelay, log)
		background(c.stream, consumer.Run)
	}

	if cfg.Repair.Interval > 0 {
		background("repair", func(ctx context.Context) error {
			application.Repairer.Run(ctx, cfg.Repair.Interval)
			return nil
		})
	}

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.LogShutdown("signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	wg.Wait()
	return nil
}

func authMiddleware(ctx context.Context, cfg *config.Config) (echo.MiddlewareFunc, error) {
	switch cfg.AuthMode {
	case config.AuthModeFirebase:
		fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		return middleware.FirebaseAuthMiddleware(fb.AuthClient), nil
	default:
		return middleware.JWTAuthMiddleware(cfg.JWTSecret), nil
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/crewbase/crewbase/internal/app"
	"github.com/crewbase/crewbase/internal/audit"
	"github.com/crewbase/crewbase/internal/membership"
	"github.com/crewbase/crewbase/internal/observability"
	"github.com/crewbase/crewbase/internal/permissions"
	"github.com/crewbase/crewbase/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	registry, roleDefaults, err := permissions.LoadConfigFile(cfg.PermissionsConfig)
	if err != nil {
		logger.Error("load permissions config", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("permission registry loaded",
		slog.Int("kinds", registry.Len()),
		slog.Int("roles", len(roleDefaults.Roles())))

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	directory := membership.NewClient(cfg.DirectoryURL, cfg.DirectoryTimeout)
	overrideRepo := permissions.NewRepository(dbpool)
	publisher := audit.NewPublisher(asynqClient)
	permissionService := permissions.NewService(registry, roleDefaults, overrideRepo, directory, publisher, logger)

	metrics := observability.NewMetrics()
	permissionsHandler := permissions.NewHandler(logger, permissionService, metrics)

	feed := audit.NewFeed(redisClient, cfg.AuditFeedLimit, cfg.AuditFeedTTL)
	auditHandler := audit.NewHandler(logger, feed)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		PermissionsHandler: permissionsHandler,
		AuditHandler:       auditHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

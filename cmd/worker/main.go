package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/crewbase/crewbase/internal/app"
	"github.com/crewbase/crewbase/internal/audit"
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

	feed := audit.NewFeed(redisClient, cfg.AuditFeedLimit, cfg.AuditFeedTTL)
	recorder := audit.NewRecorder(dbpool, feed, logger)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			audit.QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(audit.TaskTypeOverrideChanged, recorder.HandleOverrideChangedTask)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting audit worker")
		errCh <- srv.Run(mux)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		srv.Shutdown()
	case err := <-errCh:
		if err != nil {
			logger.Error("audit worker", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

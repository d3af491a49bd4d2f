package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"freelanceDesk/internal/api"
	"freelanceDesk/internal/auth"
	"freelanceDesk/internal/config"
	"freelanceDesk/internal/database"
	"freelanceDesk/internal/docgen"
	"freelanceDesk/internal/realtime"
	"freelanceDesk/internal/storage"
	"freelanceDesk/internal/store"
)

func main() {
	cfg := config.MustLoad()
	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}
	logger.Info("store ready", slog.String("driver", cfg.Store.Driver))

	deps := api.Dependencies{
		Store:          st,
		Keys:           auth.NewKeyRing(cfg.Webhook.APIKeyHashes),
		RateLimit:      cfg.Webhook.RateLimit,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		Logger:         logger,
	}
	if deps.Keys.Len() == 0 {
		logger.Warn("no webhook api keys configured, webhook endpoint will reject requests")
	}

	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("close redis client failed", slog.Any("error", err))
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}

		deps.RateCounter = redisClient

		queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Error("close asynq client failed", slog.Any("error", err))
			}
		}()
		deps.Queue = queue

		relay := realtime.NewRedisRelay(redisClient, logger)
		hub := realtime.NewHub(logger, realtime.WithRelay(relay))
		if err := relay.Start(ctx, hub.Deliver); err != nil {
			log.Fatalf("start realtime relay: %v", err)
		}
		deps.Hub = hub
		logger.Info("redis ready", slog.String("addr", cfg.Redis.Addr()))
	} else {
		deps.Hub = realtime.NewHub(logger)
		logger.Warn("redis not configured, realtime rooms stay process-local and webhook tasks are not queued")
	}

	var archive docgen.ObjectStorage
	if cfg.MinIO.Enabled() {
		storageClient, err := storage.NewClient(ctx, cfg.MinIO)
		if err != nil {
			log.Fatalf("init storage client: %v", err)
		}
		archive = storageClient
		logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))
	}
	deps.Documents = docgen.NewService(st, archive, logger)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		return store.NewMemoryStore(), nil
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}

func newLogger(app config.AppConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(app.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

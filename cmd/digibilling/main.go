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
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/digibilling/digibilling/cmd/digibilling/cli"
	"github.com/digibilling/digibilling/internal/app"
	"github.com/digibilling/digibilling/internal/backend"
	"github.com/digibilling/digibilling/internal/observability"
	"github.com/digibilling/digibilling/internal/platform/cache"
	"github.com/digibilling/digibilling/internal/platform/db"
	"github.com/digibilling/digibilling/internal/purchases"
	"github.com/digibilling/digibilling/internal/reference"
	"github.com/digibilling/digibilling/internal/shared"
	"github.com/digibilling/digibilling/jobs"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "totals" {
		opts, err := cli.ParseTotalsFlags(os.Args[2:], os.Stderr)
		if err != nil {
			os.Exit(1)
		}
		os.Exit(cli.TotalsCommand(opts))
	}

	_ = godotenv.Load()
	app.RefreshTestMode()
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

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, reference cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	adapter := purchases.NewBackendAdapter(backendClient)

	referenceCache := reference.NewCache(redisClient, cfg.ReferenceCacheTTL)
	referenceSource := reference.NewCachedSource(adapter, referenceCache, logger)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	purchaseService := purchases.NewService(
		referenceSource,
		adapter,
		idempotencyStore,
		auditLogger,
		jobClient,
		metrics,
		logger,
	)
	purchaseHandler := purchases.NewHandler(logger, purchaseService)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		PurchasesHandler: purchaseHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
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

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

	"github.com/atlas-wms/atlas-wms/internal/app"
	"github.com/atlas-wms/atlas-wms/internal/catalog"
	"github.com/atlas-wms/atlas-wms/internal/export"
	"github.com/atlas-wms/atlas-wms/internal/ledger"
	"github.com/atlas-wms/atlas-wms/internal/notify"
	"github.com/atlas-wms/atlas-wms/internal/observability"
	"github.com/atlas-wms/atlas-wms/internal/platform/db"
	"github.com/atlas-wms/atlas-wms/internal/purchase"
	"github.com/atlas-wms/atlas-wms/internal/sales"
	"github.com/atlas-wms/atlas-wms/internal/shared"
	"github.com/atlas-wms/atlas-wms/jobs"
	"github.com/atlas-wms/atlas-wms/report"
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

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()
	notifier := notify.NewNotifier(jobClient, logger, cfg.AdminEmail)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogCache := catalog.NewCache(redisClient, 10*time.Minute)
	catalogService := catalog.NewService(catalogRepo, catalogCache, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	purchaseRepo := purchase.NewRepository(dbpool)
	purchaseService := purchase.NewService(purchaseRepo, catalogRepo, ledgerService, notifier, auditLogger)
	purchaseHandler := purchase.NewHandler(logger, purchaseService)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, catalogRepo, ledgerService, notifier, auditLogger)
	salesHandler := sales.NewHandler(logger, salesService)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}
	exportService := export.NewService(salesService, pdfClient)
	exportHandler := export.NewHandler(logger, exportService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		CatalogHandler:  catalogHandler,
		LedgerHandler:   ledgerHandler,
		PurchaseHandler: purchaseHandler,
		SalesHandler:    salesHandler,
		ExportHandler:   exportHandler,
		Metrics:         metrics,
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

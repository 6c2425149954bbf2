package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/crossbooks/crossbooks/internal/app"
	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/fulfillment"
	"github.com/crossbooks/crossbooks/internal/intercompany"
	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/observability"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/platform/cache"
	"github.com/crossbooks/crossbooks/internal/platform/db"
	"github.com/crossbooks/crossbooks/internal/shared"
	"github.com/crossbooks/crossbooks/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The intercompany cache degrades to direct queries without redis.
		logger.Warn("redis unavailable, cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	validate := validator.New()
	auditLogger := shared.NewAuditLogger(pool)

	companyStore := company.NewStore(pool)
	companyHandler := company.NewHandler(logger, companyStore)

	ledgerService := ledger.NewService(ledger.NewRepository(pool), auditLogger).WithMetrics(metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, validate)

	ordersService := orders.NewService(orders.NewRepository(pool))
	ordersHandler := orders.NewHandler(logger, ordersService, validate)

	billingReader := billing.NewStore(pool)
	billingService := billing.NewService(billing.NewTxRunner(pool), billingReader, auditLogger)
	billingHandler := billing.NewHandler(logger, billingService, validate)

	fulfillmentService := fulfillment.NewService(orders.NewStore(pool), billingReader)
	fulfillmentHandler := fulfillment.NewHandler(logger, fulfillmentService)

	icService := intercompany.NewService(intercompany.ServiceConfig{
		Tx:             intercompany.NewTxRunner(pool),
		Transactions:   intercompany.NewStore(pool),
		Companies:      companyStore,
		Orders:         orders.NewStore(pool),
		Billing:        billingReader,
		Cache:          intercompany.NewCache(redisClient, cfg.CacheTTL),
		Audit:          auditLogger,
		Metrics:        metrics,
		Idempotency:    shared.NewIdempotencyStore(pool),
		InvoiceTimeout: cfg.IntercompanyInvoiceTimeout,
	})
	icHandler := intercompany.NewHandler(logger, icService, validate)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		CompanyHandler:      companyHandler,
		LedgerHandler:       ledgerHandler,
		OrdersHandler:       ordersHandler,
		BillingHandler:      billingHandler,
		FulfillmentHandler:  fulfillmentHandler,
		IntercompanyHandler: icHandler,
		JobsHandler:         jobsHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
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
		logger.Error("http shutdown", slog.Any("error", err))
	}
}

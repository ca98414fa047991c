package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/josh-kwaku/payment-aggregator/internal/config"
	"github.com/josh-kwaku/payment-aggregator/internal/events"
	"github.com/josh-kwaku/payment-aggregator/internal/handler"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
	"github.com/josh-kwaku/payment-aggregator/internal/middleware"
	"github.com/josh-kwaku/payment-aggregator/internal/provider"
	"github.com/josh-kwaku/payment-aggregator/internal/repository"
	"github.com/josh-kwaku/payment-aggregator/internal/service"
	"github.com/josh-kwaku/payment-aggregator/internal/service/aggregator"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("payment api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init("payment-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := repository.MigrateUp(ctx, pool, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	adapters, err := provider.BuildEnabled(cfg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}
	registry, err := aggregator.NewRegistry(adapters...)
	if err != nil {
		return fmt.Errorf("register providers: %w", err)
	}
	gateway := aggregator.NewService(registry, aggregator.Options{
		Preference:       cfg.Preference(),
		FailureThreshold: cfg.HealthFailureThreshold,
		RequestDeadline:  cfg.PaymentRequestDeadline,
		Clock:            clockz.RealClock,
	})
	logger.Info("payment providers registered", "providers", registry.Keys(), "preference", cfg.Preference())

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	orders := repository.NewOrderRepository(pool)
	attempts := repository.NewPaymentAttemptRepository(pool)
	webhookEvents := repository.NewWebhookEventRepository(pool)
	idempotency := repository.NewIdempotencyRepository(pool)

	checkout := service.NewCheckoutService(gateway, orders, attempts, publisher)
	webhooks := service.NewWebhookService(gateway, webhookEvents, attempts, orders, publisher)
	reconciler := service.NewReconciler(gateway, attempts, orders, publisher, logger, clockz.RealClock, service.ReconcilerConfig{
		Interval:  cfg.ReconcileInterval,
		After:     cfg.ReconcileAfter,
		BatchSize: cfg.ReconcileBatchSize,
		Workers:   cfg.ReconcileWorkers,
	})
	probe := aggregator.NewHealthProbe(registry, gateway.Tracker(), logger, cfg.HealthProbeInterval)

	var workers sync.WaitGroup
	for _, start := range []func(context.Context){probe.Start, reconciler.Start, cleanIdempotency(idempotency, logger, clockz.RealClock)} {
		workers.Add(1)
		go func() {
			defer workers.Done()
			start(ctx)
		}()
	}

	paymentHandler := handler.NewPaymentHandler(checkout, gateway)
	webhookHandler := handler.NewWebhookHandler(webhooks)
	checkoutHandler := handler.NewCheckoutHandler(checkout)
	healthHandler := handler.NewHealthHandler(repository.NewDB(pool), version)

	requireBuyer := middleware.Auth(cfg.JWTSecret)
	replay := middleware.Idempotency(idempotency)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)
	mux.HandleFunc("GET /api/v1/payments/health", paymentHandler.Health)
	mux.HandleFunc("POST /api/v1/payments/{provider}/init", paymentHandler.Initialize)
	mux.HandleFunc("POST /api/v1/payments/{provider}/webhook", webhookHandler.Receive)
	mux.HandleFunc("GET /api/v1/payments/{provider}/transactions/{transactionId}", paymentHandler.Verify)
	mux.Handle("POST /api/v1/checkout/{provider}/session",
		middleware.Chain(http.HandlerFunc(checkoutHandler.CreateSession), requireBuyer, replay))

	root := middleware.Chain(mux, middleware.Tracing, middleware.Logging(logger), middleware.Recovery)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(root, "payment-api"),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.PaymentRequestDeadline + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	stop()
	workers.Wait()
	logger.Info("server stopped")
	return nil
}

func cleanIdempotency(repo *repository.IdempotencyRepository, logger *slog.Logger, clock clockz.Clock) func(context.Context) {
	return func(ctx context.Context) {
		ticker := clock.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				n, err := repo.CleanExpired(ctx)
				if err != nil {
					logger.Error("idempotency cleanup failed", "error", err)
					continue
				}
				logger.Info("expired idempotency entries removed", "count", n)
			}
		}
	}
}

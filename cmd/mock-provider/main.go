package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/zoobzio/clockz"

	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

type config struct {
	Port   int    `env:"PORT" envDefault:"8081"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	// FailProviders answer every call with 503, e.g. "WEBIRR,AMOLE".
	FailProviders []string      `env:"MOCK_FAIL_PROVIDERS" envSeparator:","`
	Latency       time.Duration `env:"MOCK_LATENCY"`
	// WebhookDelay > 0 makes the mock call the merchant back with a signed
	// SUCCESS webhook after initialization.
	WebhookDelay time.Duration `env:"MOCK_WEBHOOK_DELAY"`

	WeBirrSecret   string `env:"WEBIRR_WEBHOOK_SECRET"`
	TelebirrSecret string `env:"TELEBIRR_WEBHOOK_SECRET"`
	CBEBirrSecret  string `env:"CBE_BIRR_WEBHOOK_SECRET"`
	AmoleSecret    string `env:"AMOLE_WEBHOOK_SECRET"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("mock-provider", "info", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := newMockServer(cfg, logger, clockz.RealClock, http.DefaultClient)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mock.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock provider started", "addr", addr, "failing", cfg.FailProviders, "latency", cfg.Latency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

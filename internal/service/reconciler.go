package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/events"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

type ReconcilerConfig struct {
	Interval time.Duration
	// After is how long an attempt may stay PENDING before the provider is
	// asked directly.
	After     time.Duration
	BatchSize int
	Workers   int
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.After <= 0 {
		c.After = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	return c
}

// Reconciler settles attempts whose webhook never arrived by calling the
// provider's status endpoint.
type Reconciler struct {
	gateway   PaymentGateway
	attempts  attemptRepository
	orders    orderRepository
	publisher events.Publisher
	logger    *slog.Logger
	clock     clockz.Clock
	cfg       ReconcilerConfig
}

func NewReconciler(
	gateway PaymentGateway,
	attempts attemptRepository,
	orders orderRepository,
	publisher events.Publisher,
	logger *slog.Logger,
	clock clockz.Clock,
	cfg ReconcilerConfig,
) *Reconciler {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Reconciler{
		gateway:   gateway,
		attempts:  attempts,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		clock:     clock,
		cfg:       cfg.withDefaults(),
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("payment reconciler started", "interval", r.cfg.Interval, "after", r.cfg.After)

	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("payment reconciler stopped")
			return
		case <-ticker.C():
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("reconciliation pass failed", "error", err)
			}
		}
	}
}

// RunOnce verifies one batch of stale attempts and returns how many reached
// a terminal status.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.cfg.After)
	stale, err := r.attempts.ListStalePending(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("RunOnce: list stale attempts: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var settled atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, attempt := range stale {
		g.Go(func() error {
			ok, err := r.reconcile(gctx, attempt)
			if err != nil {
				r.logger.Error("failed to reconcile payment attempt",
					"provider", attempt.Provider,
					"transaction_id", attempt.TransactionID,
					"error", err,
				)
				return nil
			}
			if ok {
				settled.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(settled.Load())
	r.logger.Info("reconciliation pass finished", "checked", len(stale), "settled", n)
	return n, nil
}

func (r *Reconciler) reconcile(ctx context.Context, attempt domain.PaymentAttempt) (bool, error) {
	result := r.gateway.VerifyPayment(ctx, attempt.Provider, map[string]any{
		"transactionId": attempt.TransactionID,
	})
	if !result.Verified || !result.Status.IsTerminal() {
		return false, nil
	}

	ctx = logging.WithLogger(ctx, r.logger.With(
		"provider", attempt.Provider,
		"transaction_id", attempt.TransactionID,
	))

	updated, err := r.attempts.UpdateStatus(ctx, attempt.Provider, attempt.TransactionID, result.Status)
	if errors.Is(err, domain.ErrNotFound) {
		// a webhook settled it first
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reconcile: update attempt: %w", err)
	}

	if result.Status == domain.PaymentStatusSuccess {
		markPaid(ctx, r.orders, updated)
	}
	publish(ctx, r.publisher, events.PaymentEvent{
		Type:          events.EventPaymentReconciled,
		Provider:      attempt.Provider,
		OrderID:       attempt.OrderID,
		TransactionID: attempt.TransactionID,
		Status:        result.Status,
		AmountMinor:   attempt.AmountMinor,
		Currency:      attempt.Currency,
		OccurredAt:    r.clock.Now().UTC(),
	})
	logging.FromContext(ctx).Info("payment attempt reconciled", "status", result.Status)
	return true, nil
}

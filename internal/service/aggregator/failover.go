package aggregator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
	"github.com/josh-kwaku/payment-aggregator/internal/provider"
)

const DefaultRequestDeadline = 90 * time.Second

var errDeadlineExhausted = errors.New("request deadline exceeded before attempt")

type Failover struct {
	registry *Registry
	health   *HealthTracker
	router   *Router
	deadline time.Duration
}

func NewFailover(registry *Registry, health *HealthTracker, router *Router, deadline time.Duration) *Failover {
	if deadline <= 0 {
		deadline = DefaultRequestDeadline
	}
	return &Failover{registry: registry, health: health, router: router, deadline: deadline}
}

// InitializeWithFailover tries healthy providers one at a time, re-running
// selection over the providers not yet tried after every failure.
//
// It returns domain.ErrNoProviderAvailable when nothing was healthy to begin
// with and *domain.AllProvidersFailedError once every candidate has failed.
// Cancellation of ctx stops the chain without touching provider health.
func (f *Failover) InitializeWithFailover(ctx context.Context, req domain.InitRequest, preference []domain.ProviderKey) (*domain.InitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("InitializeWithFailover: %w", err)
	}

	log := logging.FromContext(ctx)
	chainCtx, cancel := context.WithTimeout(ctx, f.deadline)
	defer cancel()

	tried := make(map[domain.ProviderKey]bool, len(preference))
	var failures []domain.AttemptFailure

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("InitializeWithFailover: %w", err)
		}

		candidates := untried(preference, tried)
		key, err := f.router.Select(candidates)
		if err != nil {
			if len(failures) == 0 {
				return nil, fmt.Errorf("InitializeWithFailover: %w", domain.ErrNoProviderAvailable)
			}
			return nil, &domain.AllProvidersFailedError{Failures: failures}
		}

		if chainCtx.Err() != nil {
			for _, c := range candidates {
				if !f.health.IsHealthy(c) {
					continue
				}
				failures = append(failures, domain.AttemptFailure{
					Provider: c,
					Err:      domain.NewProviderError(c, domain.KindTimeout, "not attempted", errDeadlineExhausted),
				})
			}
			log.Warn("payment request deadline exceeded", "order_id", req.OrderID, "deadline", f.deadline)
			return nil, &domain.AllProvidersFailedError{Failures: failures}
		}

		tried[key] = true
		adapter, err := f.registry.Get(key)
		if err != nil {
			failures = append(failures, domain.AttemptFailure{Provider: key, Err: err})
			continue
		}

		start := f.health.clock.Now()
		result, err := initialize(chainCtx, adapter, req)
		elapsed := f.health.clock.Now().Sub(start)

		if err == nil {
			f.health.RecordOutcome(key, Outcome{Success: true, ResponseTime: elapsed, Sampled: true})
			log.Info("payment provider selected",
				"provider", key,
				"order_id", req.OrderID,
				"attempts", len(failures)+1,
				"duration_ms", elapsed.Milliseconds(),
			)
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("InitializeWithFailover: %w", ctxErr)
		}

		f.health.RecordOutcome(key, Outcome{Success: false})
		failures = append(failures, domain.AttemptFailure{Provider: key, Err: err})
		log.Warn("payment provider failed, trying next",
			"provider", key,
			"order_id", req.OrderID,
			"error", err,
		)
	}
}

func untried(preference []domain.ProviderKey, tried map[domain.ProviderKey]bool) []domain.ProviderKey {
	out := make([]domain.ProviderKey, 0, len(preference))
	for _, k := range preference {
		if !tried[k] {
			out = append(out, k)
		}
	}
	return out
}

// initialize calls the adapter and reports a panic as INIT_FAILED so the
// caller can move on to the next provider.
func initialize(ctx context.Context, adapter provider.Adapter, req domain.InitRequest) (result *domain.InitResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.FromContext(ctx).Error("payment adapter panicked",
				"provider", adapter.Key(),
				"order_id", req.OrderID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result = nil
			err = domain.NewProviderError(adapter.Key(), domain.KindInitFailed, "adapter panic", fmt.Errorf("%v", rec))
		}
	}()
	return adapter.InitializePayment(ctx, req)
}

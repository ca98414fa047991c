package aggregator

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
	"github.com/josh-kwaku/payment-aggregator/internal/provider"
)

type Options struct {
	Preference       []domain.ProviderKey
	FailureThreshold int
	RequestDeadline  time.Duration
	Clock            clockz.Clock
}

// Service is the single entry point the rest of the application uses to
// reach payment providers.
type Service struct {
	registry   *Registry
	health     *HealthTracker
	router     *Router
	failover   *Failover
	preference []domain.ProviderKey
}

func NewService(registry *Registry, opts Options) *Service {
	preference := opts.Preference
	if len(preference) == 0 {
		preference = domain.DefaultPreferenceOrder
	}

	health := NewHealthTracker(registry.Keys(), opts.FailureThreshold, opts.Clock)
	router := NewRouter(health)

	return &Service{
		registry:   registry,
		health:     health,
		router:     router,
		failover:   NewFailover(registry, health, router, opts.RequestDeadline),
		preference: slices.Clone(preference),
	}
}

func (s *Service) InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	return s.failover.InitializeWithFailover(ctx, req, s.preference)
}

// InitializeWithProvider calls exactly one adapter. Health is still recorded.
func (s *Service) InitializeWithProvider(ctx context.Context, key domain.ProviderKey, req domain.InitRequest) (*domain.InitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("InitializeWithProvider: %w", err)
	}
	adapter, err := s.registry.Get(key)
	if err != nil {
		return nil, fmt.Errorf("InitializeWithProvider: %w", err)
	}

	start := s.health.clock.Now()
	result, err := initialize(ctx, adapter, req)
	elapsed := s.health.clock.Now().Sub(start)

	if err != nil {
		if ctx.Err() == nil {
			s.health.RecordOutcome(key, Outcome{Success: false})
		}
		logging.FromContext(ctx).Warn("pinned payment provider failed", "provider", key, "order_id", req.OrderID, "error", err)
		return nil, err
	}
	s.health.RecordOutcome(key, Outcome{Success: true, ResponseTime: elapsed, Sampled: true})
	return result, nil
}

func (s *Service) ByKey(key domain.ProviderKey) (provider.Adapter, error) {
	return s.registry.Get(key)
}

// HandleWebhook returns adapter errors untouched.
func (s *Service) HandleWebhook(ctx context.Context, key domain.ProviderKey, payload map[string]any) (*domain.WebhookResult, error) {
	adapter, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}
	return adapter.HandleWebhook(ctx, payload)
}

func (s *Service) VerifyPayment(ctx context.Context, key domain.ProviderKey, payload map[string]any) domain.VerificationResult {
	adapter, err := s.registry.Get(key)
	if err != nil {
		return domain.VerificationResult{
			Provider: key,
			Status:   domain.PaymentStatusUnknown,
			Error:    err.Error(),
		}
	}
	return adapter.VerifyPayment(ctx, payload)
}

func (s *Service) Health() []domain.ProviderHealth {
	return s.health.Snapshot()
}

func (s *Service) Tracker() *HealthTracker { return s.health }

func (s *Service) Registry() *Registry { return s.registry }

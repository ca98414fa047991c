package service

import (
	"context"
	"time"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

// PaymentGateway is satisfied by *aggregator.Service.
type PaymentGateway interface {
	InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error)
	InitializeWithProvider(ctx context.Context, key domain.ProviderKey, req domain.InitRequest) (*domain.InitResult, error)
	HandleWebhook(ctx context.Context, key domain.ProviderKey, payload map[string]any) (*domain.WebhookResult, error)
	VerifyPayment(ctx context.Context, key domain.ProviderKey, payload map[string]any) domain.VerificationResult
}

type orderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	MarkPaid(ctx context.Context, id string, amountMinor int64, currency string) error
}

type attemptRepository interface {
	Create(ctx context.Context, a *domain.PaymentAttempt) error
	UpdateStatus(ctx context.Context, provider domain.ProviderKey, transactionID string, status domain.PaymentStatus) (*domain.PaymentAttempt, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.PaymentAttempt, error)
}

type webhookEventRepository interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/events"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

type WebhookOutcome struct {
	Result *domain.WebhookResult
	// Duplicate is set when this exact status was already stored for the
	// transaction. Nothing else was changed.
	Duplicate bool
}

type WebhookService struct {
	gateway   PaymentGateway
	webhooks  webhookEventRepository
	attempts  attemptRepository
	orders    orderRepository
	publisher events.Publisher
}

func NewWebhookService(gateway PaymentGateway, webhooks webhookEventRepository, attempts attemptRepository, orders orderRepository, publisher events.Publisher) *WebhookService {
	return &WebhookService{
		gateway:   gateway,
		webhooks:  webhooks,
		attempts:  attempts,
		orders:    orders,
		publisher: publisher,
	}
}

// Process verifies and normalizes a provider callback, stores it once and
// applies the status to the matching attempt and order. raw is the body as
// received and is stored for audit.
func (s *WebhookService) Process(ctx context.Context, key domain.ProviderKey, payload map[string]any, raw []byte) (*WebhookOutcome, error) {
	result, err := s.gateway.HandleWebhook(ctx, key, payload)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx).With(
		"provider", key,
		"transaction_id", result.TransactionID,
		"status", result.Status,
	)

	if !json.Valid(raw) {
		raw, _ = json.Marshal(payload)
	}
	event := &domain.WebhookEvent{
		ID:            uuid.New(),
		Provider:      result.Provider,
		TransactionID: result.TransactionID,
		OrderID:       result.OrderID,
		Status:        result.Status,
		AmountMinor:   result.AmountMinor,
		Currency:      result.Currency,
		Payload:       raw,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.webhooks.Create(ctx, event); err != nil {
		if errors.Is(err, domain.ErrDuplicateWebhook) {
			log.Info("duplicate webhook received")
			return &WebhookOutcome{Result: result, Duplicate: true}, nil
		}
		return nil, fmt.Errorf("Process: store event: %w", err)
	}

	var attempt *domain.PaymentAttempt
	if result.Status != domain.PaymentStatusUnknown {
		attempt, err = s.attempts.UpdateStatus(ctx, result.Provider, result.TransactionID, result.Status)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Info("no open payment attempt for webhook")
		case err != nil:
			return nil, fmt.Errorf("Process: update attempt: %w", err)
		}
	}
	if result.Status == domain.PaymentStatusSuccess && attempt != nil {
		if settlesAttempt(result, attempt) {
			markPaid(ctx, s.orders, attempt)
		} else {
			log.Warn("webhook amount does not match payment attempt",
				"order_id", attempt.OrderID,
				"attempt_amount_minor", attempt.AmountMinor,
				"attempt_currency", attempt.Currency,
				"webhook_amount_minor", result.AmountMinor,
				"webhook_currency", result.Currency,
			)
		}
	}

	orderID := result.OrderID
	if attempt != nil {
		orderID = attempt.OrderID
	}
	publish(ctx, s.publisher, events.PaymentEvent{
		Type:          events.EventPaymentWebhook,
		Provider:      result.Provider,
		OrderID:       orderID,
		TransactionID: result.TransactionID,
		Status:        result.Status,
		AmountMinor:   result.AmountMinor,
		Currency:      result.Currency,
		OccurredAt:    event.CreatedAt,
	})

	log.Info("webhook processed", "webhook_event_id", event.ID)
	return &WebhookOutcome{Result: result}, nil
}

// settlesAttempt reports whether the webhook paid what the attempt asked for.
// Providers that omit the amount or currency defer to the attempt.
func settlesAttempt(result *domain.WebhookResult, attempt *domain.PaymentAttempt) bool {
	if result.AmountMinor != 0 && result.AmountMinor != attempt.AmountMinor {
		return false
	}
	return result.Currency == "" || strings.EqualFold(result.Currency, attempt.Currency)
}

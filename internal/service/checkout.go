package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/events"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

// CheckoutRequest leaves Provider empty to let the router choose.
type CheckoutRequest struct {
	Provider  domain.ProviderKey
	OrderID   string
	ReturnURL string
	CancelURL string
}

type CheckoutService struct {
	gateway   PaymentGateway
	orders    orderRepository
	attempts  attemptRepository
	publisher events.Publisher
}

func NewCheckoutService(gateway PaymentGateway, orders orderRepository, attempts attemptRepository, publisher events.Publisher) *CheckoutService {
	return &CheckoutService{
		gateway:   gateway,
		orders:    orders,
		attempts:  attempts,
		publisher: publisher,
	}
}

// CreateSession opens a provider checkout for an order the user owns.
// Amount and currency always come from the stored order.
func (s *CheckoutService) CreateSession(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*domain.InitResult, error) {
	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("CreateSession: %w", err)
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("CreateSession: order %s: %w", req.OrderID, domain.ErrNotFound)
	}
	if !order.IsPayable() {
		return nil, fmt.Errorf("CreateSession: order %s is %s: %w", order.ID, order.Status, domain.ErrOrderNotPayable)
	}

	ctx = logging.With(ctx, "order_id", order.ID, "user_id", userID)
	result, err := s.Initialize(ctx, req.Provider, domain.InitRequest{
		OrderID:     order.ID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("CreateSession: %w", err)
	}
	return result, nil
}

// Initialize routes the request (or pins it when provider is set), records
// the attempt and publishes payment.initialized.
func (s *CheckoutService) Initialize(ctx context.Context, provider domain.ProviderKey, req domain.InitRequest) (*domain.InitResult, error) {
	var (
		result *domain.InitResult
		err    error
	)
	if provider == "" {
		result, err = s.gateway.InitializePayment(ctx, req)
	} else {
		result, err = s.gateway.InitializeWithProvider(ctx, provider, req)
	}
	if err != nil {
		return nil, err
	}

	s.recordAttempt(ctx, result)
	publish(ctx, s.publisher, events.PaymentEvent{
		Type:          events.EventPaymentInitialized,
		Provider:      result.Provider,
		OrderID:       result.OrderID,
		TransactionID: result.TransactionID,
		Status:        domain.PaymentStatusPending,
		AmountMinor:   result.AmountMinor,
		Currency:      result.Currency,
		OccurredAt:    result.InitializedAt,
	})
	return result, nil
}

// recordAttempt failures are logged only: the provider session already
// exists and the customer can still pay through it.
func (s *CheckoutService) recordAttempt(ctx context.Context, result *domain.InitResult) {
	log := logging.FromContext(ctx)

	extra, err := json.Marshal(result.Extra)
	if err != nil || result.Extra == nil {
		extra = []byte("{}")
	}

	now := time.Now().UTC()
	attempt := &domain.PaymentAttempt{
		ID:            uuid.New(),
		OrderID:       result.OrderID,
		Provider:      result.Provider,
		TransactionID: result.TransactionID,
		PaymentURL:    result.PaymentURL,
		AmountMinor:   result.AmountMinor,
		Currency:      result.Currency,
		Status:        domain.PaymentStatusPending,
		Extra:         extra,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		log.Error("failed to record payment attempt",
			"provider", result.Provider,
			"transaction_id", result.TransactionID,
			"error", err,
		)
		return
	}
	log.Info("payment attempt recorded", "attempt_id", attempt.ID, "provider", result.Provider, "transaction_id", result.TransactionID)
}

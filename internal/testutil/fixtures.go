package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/repository"
)

var BuyerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// SeedOrder inserts a payable order owned by BuyerID.
func SeedOrder(t *testing.T, db *sql.DB, id string, amountMinor int64, currency string) *domain.Order {
	t.Helper()

	order := &domain.Order{
		ID:          id,
		UserID:      BuyerID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      domain.OrderStatusCreated,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repository.NewOrderRepository(db).Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

// SeedAttempt inserts a PENDING attempt created at createdAt.
func SeedAttempt(t *testing.T, db *sql.DB, orderID string, provider domain.ProviderKey, txID string, createdAt time.Time) *domain.PaymentAttempt {
	t.Helper()

	attempt := &domain.PaymentAttempt{
		ID:            uuid.New(),
		OrderID:       orderID,
		Provider:      provider,
		TransactionID: txID,
		PaymentURL:    "https://pay.test/" + txID,
		AmountMinor:   50000,
		Currency:      "ETB",
		Status:        domain.PaymentStatusPending,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := repository.NewPaymentAttemptRepository(db).Create(context.Background(), attempt); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	return attempt
}

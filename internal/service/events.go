package service

import (
	"context"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/events"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

// publish never fails the caller; a lost event is logged and the payment
// state in Postgres stays authoritative.
func publish(ctx context.Context, p events.Publisher, event events.PaymentEvent) {
	if err := p.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Error("failed to publish payment event",
			"event_type", event.Type,
			"order_id", event.OrderID,
			"transaction_id", event.TransactionID,
			"error", err,
		)
	}
}

// markPaid settles the order a successful attempt belongs to. The order
// only moves when the attempt's amount and currency equal the order's.
func markPaid(ctx context.Context, orders orderRepository, attempt *domain.PaymentAttempt) {
	if attempt == nil || attempt.OrderID == "" {
		return
	}
	if err := orders.MarkPaid(ctx, attempt.OrderID, attempt.AmountMinor, attempt.Currency); err != nil {
		logging.FromContext(ctx).Warn("order not moved to paid",
			"order_id", attempt.OrderID,
			"amount_minor", attempt.AmountMinor,
			"currency", attempt.Currency,
			"reason", err,
		)
	}
}

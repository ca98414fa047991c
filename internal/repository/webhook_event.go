package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

const webhookEventColumns = `id, provider, transaction_id, order_id, status,
	amount_minor, currency, payload, created_at`

type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Create returns domain.ErrDuplicateWebhook when the same provider already
// reported this status for this transaction.
func (r *WebhookEventRepository) Create(ctx context.Context, event *domain.WebhookEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (
			id, provider, transaction_id, order_id, status,
			amount_minor, currency, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.Provider, event.TransactionID, event.OrderID, event.Status,
		event.AmountMinor, event.Currency, []byte(event.Payload), event.CreatedAt,
	)
	if isDuplicateKey(err) {
		return fmt.Errorf("Create: %w", domain.ErrDuplicateWebhook)
	}
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *WebhookEventRepository) ListByTransaction(ctx context.Context, provider domain.ProviderKey, transactionID string) ([]domain.WebhookEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+webhookEventColumns+` FROM webhook_events
		WHERE provider = $1 AND transaction_id = $2 ORDER BY created_at`,
		provider, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByTransaction: %w", err)
	}
	defer rows.Close()

	var events []domain.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByTransaction: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByTransaction: rows: %w", err)
	}
	return events, nil
}

func scanWebhookEvent(s scanner) (*domain.WebhookEvent, error) {
	var e domain.WebhookEvent
	var payload []byte
	err := s.Scan(
		&e.ID, &e.Provider, &e.TransactionID, &e.OrderID, &e.Status,
		&e.AmountMinor, &e.Currency, &payload, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

const paymentAttemptColumns = `id, order_id, provider, transaction_id, payment_url,
	amount_minor, currency, status, extra, created_at, updated_at`

type PaymentAttemptRepository struct {
	db *sql.DB
}

func NewPaymentAttemptRepository(db *sql.DB) *PaymentAttemptRepository {
	return &PaymentAttemptRepository{db: db}
}

func (r *PaymentAttemptRepository) Create(ctx context.Context, a *domain.PaymentAttempt) error {
	extra := a.Extra
	if len(extra) == 0 {
		extra = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_attempts (
			id, order_id, provider, transaction_id, payment_url,
			amount_minor, currency, status, extra, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.OrderID, a.Provider, a.TransactionID, a.PaymentURL,
		a.AmountMinor, a.Currency, a.Status, []byte(extra), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentAttemptRepository) GetByTransaction(ctx context.Context, provider domain.ProviderKey, transactionID string) (*domain.PaymentAttempt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentAttemptColumns+` FROM payment_attempts
		WHERE provider = $1 AND transaction_id = $2`,
		provider, transactionID,
	)
	a, err := scanPaymentAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetByTransaction: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByTransaction: %w", err)
	}
	return a, nil
}

// ListStalePending returns PENDING attempts created before cutoff, oldest first.
func (r *PaymentAttemptRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.PaymentAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentAttemptColumns+` FROM payment_attempts
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at LIMIT $3`,
		domain.PaymentStatusPending, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListStalePending: %w", err)
	}
	defer rows.Close()

	var attempts []domain.PaymentAttempt
	for rows.Next() {
		a, err := scanPaymentAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("ListStalePending: scan: %w", err)
		}
		attempts = append(attempts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStalePending: rows: %w", err)
	}
	return attempts, nil
}

// UpdateStatus only moves attempts that are not yet terminal, so a late
// PENDING webhook cannot overwrite a SUCCESS. It returns the updated attempt.
func (r *PaymentAttemptRepository) UpdateStatus(ctx context.Context, provider domain.ProviderKey, transactionID string, status domain.PaymentStatus) (*domain.PaymentAttempt, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE payment_attempts SET status = $1, updated_at = now()
		WHERE provider = $2 AND transaction_id = $3
		AND status NOT IN ($4, $5, $6)
		RETURNING `+paymentAttemptColumns,
		status, provider, transactionID,
		domain.PaymentStatusSuccess, domain.PaymentStatusFailed, domain.PaymentStatusCancelled,
	)
	a, err := scanPaymentAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateStatus: %w", err)
	}
	return a, nil
}

func scanPaymentAttempt(s scanner) (*domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	var extra []byte
	err := s.Scan(
		&a.ID, &a.OrderID, &a.Provider, &a.TransactionID, &a.PaymentURL,
		&a.AmountMinor, &a.Currency, &a.Status, &extra, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Extra = extra
	return &a, nil
}

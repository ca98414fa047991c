package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID          string
	UserID      uuid.UUID
	AmountMinor int64
	Currency    string
	Status      OrderStatus
	CreatedAt   time.Time
}

func (o *Order) IsPayable() bool {
	return o.Status == OrderStatusCreated
}

type PaymentAttempt struct {
	ID            uuid.UUID
	OrderID       string
	Provider      ProviderKey
	TransactionID string
	PaymentURL    string
	AmountMinor   int64
	Currency      string
	Status        PaymentStatus
	Extra         json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

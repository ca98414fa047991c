package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookEvent struct {
	ID            uuid.UUID
	Provider      ProviderKey
	TransactionID string
	OrderID       string
	Status        PaymentStatus
	AmountMinor   int64
	Currency      string
	Payload       json.RawMessage
	CreatedAt     time.Time
}

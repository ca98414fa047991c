package domain

import (
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusUnknown   PaymentStatus = "UNKNOWN"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// Extra carries provider-specific fields (qrCode, ussdCode, reference, ...)
// next to the strongly typed canonical ones.
type Extra map[string]any

type InitRequest struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	ReturnURL   string
	CancelURL   string
}

func (r InitRequest) Validate() error {
	if r.OrderID == "" {
		return fmt.Errorf("order id required: %w", ErrInvalidRequest)
	}
	if r.AmountMinor < 0 {
		return fmt.Errorf("amount must not be negative: %w", ErrInvalidRequest)
	}
	if !isCurrencyCode(r.Currency) {
		return fmt.Errorf("currency %q is not a 3-letter code: %w", r.Currency, ErrInvalidRequest)
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

type InitResult struct {
	Provider      ProviderKey `json:"provider"`
	TransactionID string      `json:"transactionId"`
	PaymentURL    string      `json:"paymentUrl,omitempty"`
	AmountMinor   int64       `json:"amountMinor"`
	Currency      string      `json:"currency"`
	OrderID       string      `json:"orderId"`
	InitializedAt time.Time   `json:"initializedAt"`
	Extra         Extra       `json:"providerExtra,omitempty"`
}

type WebhookResult struct {
	Provider      ProviderKey   `json:"provider"`
	TransactionID string        `json:"transactionId"`
	OrderID       string        `json:"orderId"`
	AmountMinor   int64         `json:"amountMinor"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	TimestampRaw  string        `json:"timestamp"`
	Verified      bool          `json:"verified"`
	Extra         Extra         `json:"providerExtra,omitempty"`
}

type VerificationResult struct {
	Provider      ProviderKey   `json:"provider"`
	TransactionID string        `json:"transactionId"`
	Status        PaymentStatus `json:"status"`
	Verified      bool          `json:"verified"`
	Error         string        `json:"error,omitempty"`
	Extra         Extra         `json:"providerExtra,omitempty"`
}

type ProviderHealth struct {
	Provider            ProviderKey `json:"provider"`
	Healthy             bool        `json:"healthy"`
	ConsecutiveFailures int         `json:"consecutiveFailures"`
	LastCheckedAt       time.Time   `json:"lastCheckedAt"`
	LastResponseTimeMs  int64       `json:"lastResponseTimeMs"`
	// Sampled is false until a response time has been measured.
	Sampled bool `json:"sampled"`
}

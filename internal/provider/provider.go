// Package provider holds one adapter per payment provider. An adapter maps
// the internal initialize/webhook/verify contract onto the provider's wire
// format and back. Adapters never retry; failover belongs to the caller.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

type Adapter interface {
	Key() domain.ProviderKey
	InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error)
	HandleWebhook(ctx context.Context, payload map[string]any) (*domain.WebhookResult, error)
	// VerifyPayment is a best-effort status poll. Failures are reported in the
	// result as UNKNOWN/unverified, never as an error.
	VerifyPayment(ctx context.Context, payload map[string]any) domain.VerificationResult
}

// Prober is implemented by adapters that expose a cheap liveness check.
type Prober interface {
	Ping(ctx context.Context) error
}

var (
	ErrProbeUnsupported   = errors.New("provider has no liveness probe configured")
	ErrMissingCredentials = errors.New("missing provider credentials")
)

type statusTable struct {
	known    map[string]domain.PaymentStatus
	fallback domain.PaymentStatus
}

func (t statusTable) Map(native string) domain.PaymentStatus {
	if s, ok := t.known[strings.ToUpper(strings.TrimSpace(native))]; ok {
		return s
	}
	return t.fallback
}

func (t statusTable) Vocabulary() []string {
	vocab := make([]string, 0, len(t.known))
	for k := range t.known {
		vocab = append(vocab, k)
	}
	sort.Strings(vocab)
	return vocab
}

func requireCredentials(key domain.ProviderKey, fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%s: %s: %w", key, strings.Join(missing, ", "), ErrMissingCredentials)
}

func unverified(key domain.ProviderKey, txID string, err error) domain.VerificationResult {
	return domain.VerificationResult{
		Provider:      key,
		TransactionID: txID,
		Status:        domain.PaymentStatusUnknown,
		Verified:      false,
		Error:         err.Error(),
	}
}

func setIfPresent(extra domain.Extra, key string, v any) {
	switch val := v.(type) {
	case nil:
		return
	case string:
		if val == "" {
			return
		}
	case map[string]any:
		if len(val) == 0 {
			return
		}
	}
	extra[key] = v
}

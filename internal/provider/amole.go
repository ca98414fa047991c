package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/josh-kwaku/payment-aggregator/internal/config"
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

const (
	amoleDefaultURL     = "https://api.amole.com"
	amoleDefaultTimeout = 45 * time.Second
)

var amoleStatuses = statusTable{
	known: map[string]domain.PaymentStatus{
		"SUCCESS":   domain.PaymentStatusSuccess,
		"FAILED":    domain.PaymentStatusFailed,
		"CANCELLED": domain.PaymentStatusCancelled,
		"PENDING":   domain.PaymentStatusPending,
	},
	fallback: domain.PaymentStatusUnknown,
}

// Amole signs requests with a dedicated secret key, separate from both the
// API key and the webhook secret.
type Amole struct {
	cfg  config.ProviderConfig
	http *httpClient
}

func NewAmole(cfg config.ProviderConfig, opts ...Option) (*Amole, error) {
	err := requireCredentials(domain.ProviderAmole, map[string]string{
		"MERCHANT_ID":    cfg.MerchantID,
		"API_KEY":        cfg.APIKey,
		"SECRET_KEY":     cfg.SecretKey,
		"WEBHOOK_SECRET": cfg.WebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("NewAmole: %w", err)
	}
	return &Amole{
		cfg:  cfg,
		http: newHTTPClient(domain.ProviderAmole, cfg, amoleDefaultURL, amoleDefaultTimeout, opts),
	}, nil
}

func (a *Amole) Key() domain.ProviderKey { return domain.ProviderAmole }

// amoleSignedFields is the subset of the initiation body covered by X-Signature.
type amoleSignedFields struct {
	MerchantID string `json:"merchantId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	OrderID    string `json:"orderId"`
}

func (a *Amole) InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	initReq := newGatewayInitRequest(a.cfg, req)
	body, err := marshalBody(a.Key(), initReq)
	if err != nil {
		return nil, err
	}
	signed, err := marshalBody(a.Key(), amoleSignedFields{
		MerchantID: initReq.MerchantID,
		Amount:     initReq.Amount,
		Currency:   initReq.Currency,
		OrderID:    initReq.OrderID,
	})
	if err != nil {
		return nil, err
	}

	var resp gatewayEnvelope[gatewayInitData]
	err = a.http.do(ctx, request{
		method: http.MethodPost,
		path:   "/v1/payments/initiate",
		body:   body,
		headers: map[string]string{
			"X-API-Key":   a.cfg.APIKey,
			"X-Signature": hmacHex(a.cfg.SecretKey, signed),
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := checkGatewayInit(a.Key(), resp); err != nil {
		return nil, err
	}

	extra := domain.Extra{"timeout": sessionTimeoutSeconds}
	setIfPresent(extra, "qrCode", resp.Data.QRCode)
	setIfPresent(extra, "ussdCode", resp.Data.USSDCode)

	logging.FromContext(ctx).Info("payment initialized",
		"provider", a.Key(), "order_id", req.OrderID, "transaction_id", resp.Data.TransactionID)

	return &domain.InitResult{
		Provider:      a.Key(),
		TransactionID: resp.Data.TransactionID,
		PaymentURL:    resp.Data.PaymentURL,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		InitializedAt: a.http.now().UTC(),
		Extra:         extra,
	}, nil
}

func (a *Amole) HandleWebhook(ctx context.Context, payload map[string]any) (*domain.WebhookResult, error) {
	result, err := normalizeGatewayWebhook(a.Key(), a.cfg.WebhookSecret, amoleStatuses, payload)
	if err != nil {
		if kind, _ := domain.ProviderErrorKindOf(err); kind == domain.KindInvalidSignature {
			logging.FromContext(ctx).Warn("webhook signature rejected", "provider", a.Key())
		}
		return nil, err
	}
	setIfPresent(result.Extra, "customerPhone", payload["customerPhone"])
	setIfPresent(result.Extra, "customerName", payload["customerName"])
	return result, nil
}

func (a *Amole) VerifyPayment(ctx context.Context, payload map[string]any) domain.VerificationResult {
	txID := stringField(payload, "transactionId")
	if txID == "" {
		return unverified(a.Key(), "", fmt.Errorf("transactionId is required"))
	}

	var resp gatewayEnvelope[gatewayStatusData]
	err := a.http.do(ctx, request{
		method: http.MethodGet,
		path:   "/v1/payments/status",
		query:  url.Values{"merchantId": {a.cfg.MerchantID}, "transactionId": {txID}},
		headers: map[string]string{
			"X-API-Key":   a.cfg.APIKey,
			"X-Signature": hmacHex(a.cfg.SecretKey, []byte(a.cfg.MerchantID+":"+txID)),
		},
	}, &resp)
	if err != nil {
		return unverified(a.Key(), txID, err)
	}
	if !resp.Success {
		return unverified(a.Key(), txID, fmt.Errorf("status query rejected: %s", resp.Message))
	}

	return domain.VerificationResult{
		Provider:      a.Key(),
		TransactionID: txID,
		Status:        amoleStatuses.Map(resp.Data.Status),
		Verified:      true,
	}
}

func (a *Amole) Ping(ctx context.Context) error {
	return a.http.ping(ctx, a.cfg.HealthPath)
}

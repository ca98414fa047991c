package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/josh-kwaku/payment-aggregator/internal/config"
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

const (
	cbeBirrDefaultURL = "https://api.cbebirr.com"
	// sessionTimeoutSeconds is how long CBE Birr and Amole keep a checkout open.
	sessionTimeoutSeconds = 1800
)

var cbeBirrStatuses = statusTable{
	known: map[string]domain.PaymentStatus{
		"SUCCESS":   domain.PaymentStatusSuccess,
		"FAILED":    domain.PaymentStatusFailed,
		"CANCELLED": domain.PaymentStatusCancelled,
		"PENDING":   domain.PaymentStatusPending,
	},
	fallback: domain.PaymentStatusUnknown,
}

// CBEBirr signs every outbound body with the API key (X-Signature) and its
// webhooks with the webhook secret over canonical JSON.
type CBEBirr struct {
	cfg  config.ProviderConfig
	http *httpClient
}

func NewCBEBirr(cfg config.ProviderConfig, opts ...Option) (*CBEBirr, error) {
	err := requireCredentials(domain.ProviderCBEBirr, map[string]string{
		"MERCHANT_ID":    cfg.MerchantID,
		"API_KEY":        cfg.APIKey,
		"WEBHOOK_SECRET": cfg.WebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("NewCBEBirr: %w", err)
	}
	return &CBEBirr{
		cfg:  cfg,
		http: newHTTPClient(domain.ProviderCBEBirr, cfg, cbeBirrDefaultURL, defaultTimeout, opts),
	}, nil
}

func (a *CBEBirr) Key() domain.ProviderKey { return domain.ProviderCBEBirr }

// gatewayInitRequest is shared by CBE Birr and Amole.
type gatewayInitRequest struct {
	MerchantID  string `json:"merchantId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"orderId"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl,omitempty"`
	CancelURL   string `json:"cancelUrl,omitempty"`
	NotifyURL   string `json:"notifyUrl"`
	Timeout     int    `json:"timeout"`
}

type gatewayEnvelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type gatewayInitData struct {
	TransactionID string `json:"transactionId"`
	PaymentURL    string `json:"paymentUrl"`
	QRCode        string `json:"qrCode"`
	Reference     string `json:"reference"`
	USSDCode      string `json:"ussdCode"`
}

type gatewayStatusData struct {
	TransactionID  string         `json:"transactionId"`
	Status         string         `json:"status"`
	SettlementInfo map[string]any `json:"settlementInfo"`
}

func newGatewayInitRequest(cfg config.ProviderConfig, req domain.InitRequest) gatewayInitRequest {
	return gatewayInitRequest{
		MerchantID:  cfg.MerchantID,
		Amount:      formatMajor(req.AmountMinor),
		Currency:    req.Currency,
		OrderID:     req.OrderID,
		Description: orderDescription(req.OrderID),
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
		NotifyURL:   cfg.CallbackURL,
		Timeout:     sessionTimeoutSeconds,
	}
}

func checkGatewayInit(key domain.ProviderKey, resp gatewayEnvelope[gatewayInitData]) error {
	if !resp.Success {
		return domain.NewProviderError(key, domain.KindInitFailed, "initiation rejected: "+resp.Message, nil)
	}
	if resp.Data.PaymentURL == "" || resp.Data.TransactionID == "" {
		return domain.NewProviderError(key, domain.KindInvalidResponse, "response missing transactionId or paymentUrl", nil)
	}
	return nil
}

func (a *CBEBirr) InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	body, err := marshalBody(a.Key(), newGatewayInitRequest(a.cfg, req))
	if err != nil {
		return nil, err
	}

	var resp gatewayEnvelope[gatewayInitData]
	err = a.http.do(ctx, request{
		method: http.MethodPost,
		path:   "/v2/payments/initiate",
		body:   body,
		headers: map[string]string{
			"X-Merchant-ID": a.cfg.MerchantID,
			"X-API-Key":     a.cfg.APIKey,
			"X-Signature":   hmacHex(a.cfg.APIKey, body),
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
	setIfPresent(extra, "reference", resp.Data.Reference)

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

func (a *CBEBirr) HandleWebhook(ctx context.Context, payload map[string]any) (*domain.WebhookResult, error) {
	result, err := normalizeGatewayWebhook(a.Key(), a.cfg.WebhookSecret, cbeBirrStatuses, payload)
	if err != nil {
		if kind, _ := domain.ProviderErrorKindOf(err); kind == domain.KindInvalidSignature {
			logging.FromContext(ctx).Warn("webhook signature rejected", "provider", a.Key())
		}
		return nil, err
	}
	setIfPresent(result.Extra, "reference", payload["reference"])
	setIfPresent(result.Extra, "customerInfo", payload["customerInfo"])
	setIfPresent(result.Extra, "settlementInfo", payload["settlementInfo"])
	return result, nil
}

// normalizeGatewayWebhook covers the webhook shape CBE Birr and Amole share:
// transactionId/status required, canonical JSON signature.
func normalizeGatewayWebhook(key domain.ProviderKey, secret string, statuses statusTable, payload map[string]any) (*domain.WebhookResult, error) {
	if !VerifySignature(payload, secret, CanonicalJSON) {
		return nil, domain.NewProviderError(key, domain.KindInvalidSignature, "signature mismatch", nil)
	}
	if missing := missingFields(payload, "transactionId", "status"); len(missing) > 0 {
		return nil, domain.NewProviderError(key, domain.KindMissingFields, fmt.Sprintf("missing %v", missing), nil)
	}
	amount, err := parseMajor(payload["amount"])
	if err != nil {
		return nil, domain.NewProviderError(key, domain.KindMissingFields, "amount is not a decimal", err)
	}

	return &domain.WebhookResult{
		Provider:      key,
		TransactionID: stringField(payload, "transactionId"),
		OrderID:       stringField(payload, "orderId"),
		AmountMinor:   amount,
		Currency:      stringField(payload, "currency"),
		Status:        statuses.Map(stringField(payload, "status")),
		TimestampRaw:  stringField(payload, "timestamp"),
		Verified:      true,
		Extra:         domain.Extra{},
	}, nil
}

func (a *CBEBirr) VerifyPayment(ctx context.Context, payload map[string]any) domain.VerificationResult {
	txID := stringField(payload, "transactionId")
	if txID == "" {
		return unverified(a.Key(), "", fmt.Errorf("transactionId is required"))
	}

	var resp gatewayEnvelope[gatewayStatusData]
	err := a.http.do(ctx, request{
		method:  http.MethodGet,
		path:    "/v2/payments/status",
		query:   url.Values{"merchantId": {a.cfg.MerchantID}, "transactionId": {txID}},
		headers: map[string]string{"X-API-Key": a.cfg.APIKey},
	}, &resp)
	if err != nil {
		return unverified(a.Key(), txID, err)
	}
	if !resp.Success {
		return unverified(a.Key(), txID, fmt.Errorf("status query rejected: %s", resp.Message))
	}

	extra := domain.Extra{}
	setIfPresent(extra, "settlementInfo", resp.Data.SettlementInfo)

	return domain.VerificationResult{
		Provider:      a.Key(),
		TransactionID: txID,
		Status:        cbeBirrStatuses.Map(resp.Data.Status),
		Verified:      true,
		Extra:         extra,
	}
}

func (a *CBEBirr) Ping(ctx context.Context) error {
	return a.http.ping(ctx, a.cfg.HealthPath)
}

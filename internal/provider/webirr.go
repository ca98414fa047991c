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

const weBirrDefaultURL = "https://api.webirr.com"

var weBirrStatuses = statusTable{
	known: map[string]domain.PaymentStatus{
		"PAID":      domain.PaymentStatusSuccess,
		"SUCCESS":   domain.PaymentStatusSuccess,
		"FAILED":    domain.PaymentStatusFailed,
		"CANCELLED": domain.PaymentStatusCancelled,
		"PENDING":   domain.PaymentStatusPending,
	},
	fallback: domain.PaymentStatusPending,
}

// WeBirr issues bills that the payer settles through the WeBirr portal.
// The bill id is the transaction id.
type WeBirr struct {
	cfg  config.ProviderConfig
	http *httpClient
}

func NewWeBirr(cfg config.ProviderConfig, opts ...Option) (*WeBirr, error) {
	err := requireCredentials(domain.ProviderWeBirr, map[string]string{
		"MERCHANT_ID":    cfg.MerchantID,
		"API_KEY":        cfg.APIKey,
		"WEBHOOK_SECRET": cfg.WebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("NewWeBirr: %w", err)
	}
	return &WeBirr{
		cfg:  cfg,
		http: newHTTPClient(domain.ProviderWeBirr, cfg, weBirrDefaultURL, defaultTimeout, opts),
	}, nil
}

func (a *WeBirr) Key() domain.ProviderKey { return domain.ProviderWeBirr }

type weBirrBillRequest struct {
	APIKey      string `json:"apiKey"`
	MerchantID  string `json:"merchantId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"orderId"`
	CallbackURL string `json:"callbackUrl"`
	ReturnURL   string `json:"returnUrl,omitempty"`
	CancelURL   string `json:"cancelUrl,omitempty"`
	Description string `json:"description"`
}

type weBirrBillResponse struct {
	BillID     string `json:"billId"`
	PaymentURL string `json:"paymentUrl"`
	Error      string `json:"error"`
	Code       string `json:"code"`
}

func (a *WeBirr) InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	body, err := marshalBody(a.Key(), weBirrBillRequest{
		APIKey:      a.cfg.APIKey,
		MerchantID:  a.cfg.MerchantID,
		Amount:      formatMajor(req.AmountMinor),
		Currency:    req.Currency,
		OrderID:     req.OrderID,
		CallbackURL: a.cfg.CallbackURL,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
		Description: orderDescription(req.OrderID),
	})
	if err != nil {
		return nil, err
	}

	var resp weBirrBillResponse
	err = a.http.do(ctx, request{method: http.MethodPost, path: "/v1/merchant/payment", body: body}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, domain.NewProviderError(a.Key(), domain.KindInitFailed,
			fmt.Sprintf("bill rejected: %s (code %s)", resp.Error, resp.Code), nil)
	}
	if resp.PaymentURL == "" || resp.BillID == "" {
		return nil, domain.NewProviderError(a.Key(), domain.KindInvalidResponse, "response missing billId or paymentUrl", nil)
	}

	logging.FromContext(ctx).Info("payment initialized",
		"provider", a.Key(), "order_id", req.OrderID, "transaction_id", resp.BillID)

	return &domain.InitResult{
		Provider:      a.Key(),
		TransactionID: resp.BillID,
		PaymentURL:    resp.PaymentURL,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		InitializedAt: a.http.now().UTC(),
		Extra:         domain.Extra{"billId": resp.BillID},
	}, nil
}

func (a *WeBirr) HandleWebhook(ctx context.Context, payload map[string]any) (*domain.WebhookResult, error) {
	if !VerifySignature(payload, a.cfg.WebhookSecret, CanonicalQuery) {
		logging.FromContext(ctx).Warn("webhook signature rejected", "provider", a.Key())
		return nil, domain.NewProviderError(a.Key(), domain.KindInvalidSignature, "signature mismatch", nil)
	}
	if missing := missingFields(payload, "billId", "status"); len(missing) > 0 {
		return nil, domain.NewProviderError(a.Key(), domain.KindMissingFields, fmt.Sprintf("missing %v", missing), nil)
	}
	amount, err := parseMajor(payload["amount"])
	if err != nil {
		return nil, domain.NewProviderError(a.Key(), domain.KindMissingFields, "amount is not a decimal", err)
	}

	extra := domain.Extra{}
	setIfPresent(extra, "paymentMethod", payload["paymentMethod"])
	setIfPresent(extra, "providerTransactionId", payload["transactionId"])

	return &domain.WebhookResult{
		Provider:      a.Key(),
		TransactionID: stringField(payload, "billId"),
		OrderID:       stringField(payload, "orderId"),
		AmountMinor:   amount,
		Currency:      stringField(payload, "currency"),
		Status:        weBirrStatuses.Map(stringField(payload, "status")),
		TimestampRaw:  stringField(payload, "timestamp"),
		Verified:      true,
		Extra:         extra,
	}, nil
}

type weBirrStatusResponse struct {
	BillID string `json:"billId"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (a *WeBirr) VerifyPayment(ctx context.Context, payload map[string]any) domain.VerificationResult {
	billID := firstField(payload, "billId", "transactionId")
	if billID == "" {
		return unverified(a.Key(), "", fmt.Errorf("billId is required"))
	}

	query := url.Values{"apiKey": {a.cfg.APIKey}, "merchantId": {a.cfg.MerchantID}}
	var resp weBirrStatusResponse
	err := a.http.do(ctx, request{
		method: http.MethodGet,
		path:   "/v1/merchant/payment/" + url.PathEscape(billID),
		query:  query,
	}, &resp)
	if err != nil {
		return unverified(a.Key(), billID, err)
	}
	if resp.Error != "" {
		return unverified(a.Key(), billID, fmt.Errorf("status query rejected: %s", resp.Error))
	}

	return domain.VerificationResult{
		Provider:      a.Key(),
		TransactionID: billID,
		Status:        weBirrStatuses.Map(resp.Status),
		Verified:      true,
	}
}

func (a *WeBirr) Ping(ctx context.Context) error {
	return a.http.ping(ctx, a.cfg.HealthPath)
}

func orderDescription(orderID string) string {
	return "Payment for order " + orderID
}

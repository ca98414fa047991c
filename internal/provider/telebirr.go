package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/josh-kwaku/payment-aggregator/internal/config"
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

const (
	telebirrDefaultURL     = "https://api.telebirr.com"
	telebirrSuccessCode    = "SUCCESS"
	telebirrTimeoutExpress = "30m"
)

var telebirrStatuses = statusTable{
	known: map[string]domain.PaymentStatus{
		"SUCCESS":        domain.PaymentStatusSuccess,
		"TRADE_SUCCESS":  domain.PaymentStatusSuccess,
		"FAILED":         domain.PaymentStatusFailed,
		"TRADE_CLOSED":   domain.PaymentStatusFailed,
		"CANCELLED":      domain.PaymentStatusCancelled,
		"PENDING":        domain.PaymentStatusPending,
		"WAIT_BUYER_PAY": domain.PaymentStatusPending,
	},
	fallback: domain.PaymentStatusPending,
}

// Telebirr is the mobile-money prepay flow. MerchantID carries the app id
// and APIKey the app key.
type Telebirr struct {
	cfg  config.ProviderConfig
	http *httpClient
}

func NewTelebirr(cfg config.ProviderConfig, opts ...Option) (*Telebirr, error) {
	err := requireCredentials(domain.ProviderTelebirr, map[string]string{
		"MERCHANT_ID":    cfg.MerchantID,
		"API_KEY":        cfg.APIKey,
		"WEBHOOK_SECRET": cfg.WebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("NewTelebirr: %w", err)
	}
	return &Telebirr{
		cfg:  cfg,
		http: newHTTPClient(domain.ProviderTelebirr, cfg, telebirrDefaultURL, defaultTimeout, opts),
	}, nil
}

func (a *Telebirr) Key() domain.ProviderKey { return domain.ProviderTelebirr }

type telebirrPrepayRequest struct {
	AppID          string `json:"appId"`
	AppKey         string `json:"appKey"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	OrderID        string `json:"orderId"`
	ReturnURL      string `json:"returnUrl,omitempty"`
	NotifyURL      string `json:"notifyUrl"`
	Subject        string `json:"subject"`
	TimeoutExpress string `json:"timeoutExpress"`
}

type telebirrEnvelope[T any] struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type telebirrPrepayData struct {
	QRCode     string `json:"qrCode"`
	PaymentURL string `json:"paymentUrl"`
	OutTradeNo string `json:"outTradeNo"`
	PrepayID   string `json:"prepayId"`
}

func (a *Telebirr) InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	body, err := marshalBody(a.Key(), telebirrPrepayRequest{
		AppID:          a.cfg.MerchantID,
		AppKey:         a.cfg.APIKey,
		Amount:         formatMajor(req.AmountMinor),
		Currency:       req.Currency,
		OrderID:        req.OrderID,
		ReturnURL:      req.ReturnURL,
		NotifyURL:      a.cfg.CallbackURL,
		Subject:        orderDescription(req.OrderID),
		TimeoutExpress: telebirrTimeoutExpress,
	})
	if err != nil {
		return nil, err
	}

	var resp telebirrEnvelope[telebirrPrepayData]
	err = a.http.do(ctx, request{method: http.MethodPost, path: "/v1/payment/prepay", body: body}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != telebirrSuccessCode {
		return nil, domain.NewProviderError(a.Key(), domain.KindInitFailed,
			fmt.Sprintf("prepay rejected: %s: %s", resp.Code, resp.Message), nil)
	}

	txID := resp.Data.OutTradeNo
	if txID == "" {
		txID = resp.Data.PrepayID
	}
	if resp.Data.PaymentURL == "" || txID == "" {
		return nil, domain.NewProviderError(a.Key(), domain.KindInvalidResponse, "response missing outTradeNo or paymentUrl", nil)
	}

	extra := domain.Extra{"timeoutExpress": telebirrTimeoutExpress}
	setIfPresent(extra, "outTradeNo", resp.Data.OutTradeNo)
	setIfPresent(extra, "prepayId", resp.Data.PrepayID)
	setIfPresent(extra, "qrCode", resp.Data.QRCode)

	logging.FromContext(ctx).Info("payment initialized",
		"provider", a.Key(), "order_id", req.OrderID, "transaction_id", txID)

	return &domain.InitResult{
		Provider:      a.Key(),
		TransactionID: txID,
		PaymentURL:    resp.Data.PaymentURL,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		InitializedAt: a.http.now().UTC(),
		Extra:         extra,
	}, nil
}

func (a *Telebirr) HandleWebhook(ctx context.Context, payload map[string]any) (*domain.WebhookResult, error) {
	if !VerifySignature(payload, a.cfg.WebhookSecret, CanonicalQuery) {
		logging.FromContext(ctx).Warn("webhook signature rejected", "provider", a.Key())
		return nil, domain.NewProviderError(a.Key(), domain.KindInvalidSignature, "signature mismatch", nil)
	}
	if missing := missingFields(payload, "outTradeNo", "tradeStatus"); len(missing) > 0 {
		return nil, domain.NewProviderError(a.Key(), domain.KindMissingFields, fmt.Sprintf("missing %v", missing), nil)
	}
	amount, err := parseMajor(payload["totalAmount"])
	if err != nil {
		return nil, domain.NewProviderError(a.Key(), domain.KindMissingFields, "totalAmount is not a decimal", err)
	}

	extra := domain.Extra{}
	setIfPresent(extra, "tradeNo", payload["tradeNo"])
	setIfPresent(extra, "buyerId", payload["buyerId"])
	setIfPresent(extra, "phoneNumber", payload["phoneNumber"])

	outTradeNo := stringField(payload, "outTradeNo")
	return &domain.WebhookResult{
		Provider:      a.Key(),
		TransactionID: outTradeNo,
		OrderID:       firstField(payload, "orderId", "outTradeNo"),
		AmountMinor:   amount,
		Currency:      stringField(payload, "currency"),
		Status:        telebirrStatuses.Map(stringField(payload, "tradeStatus")),
		TimestampRaw:  stringField(payload, "timestamp"),
		Verified:      true,
		Extra:         extra,
	}, nil
}

type telebirrQueryRequest struct {
	AppID      string `json:"appId"`
	AppKey     string `json:"appKey"`
	OutTradeNo string `json:"outTradeNo"`
}

type telebirrQueryData struct {
	TradeStatus string `json:"tradeStatus"`
	TradeNo     string `json:"tradeNo"`
}

func (a *Telebirr) VerifyPayment(ctx context.Context, payload map[string]any) domain.VerificationResult {
	outTradeNo := firstField(payload, "outTradeNo", "transactionId")
	if outTradeNo == "" {
		return unverified(a.Key(), "", fmt.Errorf("outTradeNo is required"))
	}

	body, err := marshalBody(a.Key(), telebirrQueryRequest{
		AppID:      a.cfg.MerchantID,
		AppKey:     a.cfg.APIKey,
		OutTradeNo: outTradeNo,
	})
	if err != nil {
		return unverified(a.Key(), outTradeNo, err)
	}

	var resp telebirrEnvelope[telebirrQueryData]
	err = a.http.do(ctx, request{method: http.MethodPost, path: "/v1/payment/query", body: body}, &resp)
	if err != nil {
		return unverified(a.Key(), outTradeNo, err)
	}
	if resp.Code != telebirrSuccessCode {
		return unverified(a.Key(), outTradeNo, fmt.Errorf("query rejected: %s: %s", resp.Code, resp.Message))
	}

	extra := domain.Extra{}
	setIfPresent(extra, "tradeNo", resp.Data.TradeNo)

	return domain.VerificationResult{
		Provider:      a.Key(),
		TransactionID: outTradeNo,
		Status:        telebirrStatuses.Map(resp.Data.TradeStatus),
		Verified:      true,
		Extra:         extra,
	}
}

func (a *Telebirr) Ping(ctx context.Context) error {
	return a.http.ping(ctx, a.cfg.HealthPath)
}

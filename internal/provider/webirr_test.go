package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

func TestWeBirr_InitializePayment(t *testing.T) {
	up := &upstream{body: `{"billId":"B-100","paymentUrl":"https://pay.webirr.test/B-100"}`}
	srv := up.start(t)
	a := newTestAdapter(t, domain.ProviderWeBirr, srv.URL)

	res, err := a.InitializePayment(context.Background(), testInitRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderWeBirr, res.Provider)
	assert.Equal(t, "B-100", res.TransactionID)
	assert.Equal(t, "https://pay.webirr.test/B-100", res.PaymentURL)
	assert.Equal(t, int64(50000), res.AmountMinor)
	assert.Equal(t, "ETB", res.Currency)
	assert.Equal(t, "order-42", res.OrderID)
	assert.Equal(t, fixedNow, res.InitializedAt)
	assert.Equal(t, "B-100", res.Extra["billId"])

	req, _ := up.request()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v1/merchant/payment", req.URL.Path)

	body := up.decodedBody(t)
	assert.Equal(t, "500.00", body["amount"])
	assert.Equal(t, "api-key", body["apiKey"])
	assert.Equal(t, "merchant-1", body["merchantId"])
	assert.Equal(t, "order-42", body["orderId"])
	assert.Equal(t, "http://backend.test/api/v1/payments/x/webhook", body["callbackUrl"])
	assert.Equal(t, "https://shop.test/return", body["returnUrl"])
}

func TestWeBirr_InitializePayment_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind domain.ProviderErrorKind
	}{
		{
			name:     "explicit error",
			body:     `{"error":"merchant suspended","code":"E401"}`,
			wantKind: domain.KindInitFailed,
		},
		{
			name:     "missing payment url",
			body:     `{"billId":"B-1"}`,
			wantKind: domain.KindInvalidResponse,
		},
		{
			name:     "missing bill id",
			body:     `{"paymentUrl":"https://pay.webirr.test/x"}`,
			wantKind: domain.KindInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &upstream{body: tt.body}
			srv := up.start(t)
			a := newTestAdapter(t, domain.ProviderWeBirr, srv.URL)

			_, err := a.InitializePayment(context.Background(), testInitRequest())
			kind, ok := domain.ProviderErrorKindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestWeBirr_HandleWebhook_Extras(t *testing.T) {
	a := newTestAdapter(t, domain.ProviderWeBirr, "http://unused.invalid")

	payload := minimalWebhook(domain.ProviderWeBirr, "PAID")
	payload["paymentMethod"] = "CBE"
	payload["transactionId"] = "BANK-7"
	payload["timestamp"] = "2026-03-01T12:00:00Z"

	res, err := a.HandleWebhook(context.Background(), signedPayload(t, domain.ProviderWeBirr, payload))
	require.NoError(t, err)

	assert.Equal(t, "B-1", res.TransactionID)
	assert.Equal(t, "order-42", res.OrderID)
	assert.Equal(t, domain.PaymentStatusSuccess, res.Status)
	assert.Equal(t, "2026-03-01T12:00:00Z", res.TimestampRaw)
	assert.Equal(t, "CBE", res.Extra["paymentMethod"])
	assert.Equal(t, "BANK-7", res.Extra["providerTransactionId"])
}

func TestWeBirr_VerifyPayment(t *testing.T) {
	up := &upstream{body: `{"billId":"B-100","status":"PAID"}`}
	srv := up.start(t)
	a := newTestAdapter(t, domain.ProviderWeBirr, srv.URL)

	res := a.VerifyPayment(context.Background(), map[string]any{"billId": "B-100"})
	assert.True(t, res.Verified)
	assert.Equal(t, domain.PaymentStatusSuccess, res.Status)
	assert.Equal(t, "B-100", res.TransactionID)

	req, _ := up.request()
	assert.Equal(t, "/v1/merchant/payment/B-100", req.URL.Path)
	assert.Equal(t, "api-key", req.URL.Query().Get("apiKey"))
	assert.Equal(t, "merchant-1", req.URL.Query().Get("merchantId"))

	res = a.VerifyPayment(context.Background(), map[string]any{"transactionId": "B-100"})
	assert.True(t, res.Verified, "generic transactionId key is accepted")
}

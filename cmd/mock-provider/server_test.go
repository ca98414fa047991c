package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	appconfig "github.com/josh-kwaku/payment-aggregator/internal/config"
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/provider"
)

const mockSecret = "mock-webhook-secret"

func startMock(t *testing.T, cfg config) *httptest.Server {
	t.Helper()
	cfg.WeBirrSecret, cfg.TelebirrSecret, cfg.CBEBirrSecret, cfg.AmoleSecret = mockSecret, mockSecret, mockSecret, mockSecret
	m := newMockServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), clockz.RealClock, http.DefaultClient)
	srv := httptest.NewServer(m.routes())
	t.Cleanup(srv.Close)
	return srv
}

func adapterFor(t *testing.T, key domain.ProviderKey, baseURL, callback string) provider.Adapter {
	t.Helper()
	a, err := provider.New(key, appconfig.ProviderConfig{
		Enabled:       true,
		APIURL:        baseURL + prefixes[key],
		MerchantID:    "merchant-1",
		APIKey:        "api-key",
		SecretKey:     "secret-key",
		WebhookSecret: mockSecret,
		Timeout:       2 * time.Second,
		HealthPath:    "/health",
		CallbackURL:   callback,
	})
	require.NoError(t, err)
	return a
}

func TestMockProvider_InitAndVerify(t *testing.T) {
	srv := startMock(t, config{})

	for _, key := range domain.AllProviders() {
		t.Run(string(key), func(t *testing.T) {
			a := adapterFor(t, key, srv.URL, "http://merchant.invalid/callback")

			res, err := a.InitializePayment(context.Background(), domain.InitRequest{
				OrderID:     "ORD-1",
				AmountMinor: 10000,
				Currency:    "ETB",
			})
			require.NoError(t, err)
			assert.Equal(t, key, res.Provider)
			assert.NotEmpty(t, res.TransactionID)
			assert.NotEmpty(t, res.PaymentURL)

			v := a.VerifyPayment(context.Background(), map[string]any{"transactionId": res.TransactionID})
			assert.True(t, v.Verified, v.Error)
			assert.Equal(t, domain.PaymentStatusPending, v.Status)

			prober, ok := a.(provider.Prober)
			require.True(t, ok)
			assert.NoError(t, prober.Ping(context.Background()))
		})
	}
}

func TestMockProvider_FailureInjection(t *testing.T) {
	srv := startMock(t, config{FailProviders: []string{"webirr", "CBE_BIRR"}})

	_, err := adapterFor(t, domain.ProviderWeBirr, srv.URL, "").InitializePayment(context.Background(), domain.InitRequest{
		OrderID: "ORD-1", AmountMinor: 100, Currency: "ETB",
	})
	kind, ok := domain.ProviderErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindInitFailed, kind)

	_, err = adapterFor(t, domain.ProviderTelebirr, srv.URL, "").InitializePayment(context.Background(), domain.InitRequest{
		OrderID: "ORD-1", AmountMinor: 100, Currency: "ETB",
	})
	assert.NoError(t, err)
}

func TestMockProvider_SendsSignedWebhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received = make(map[string][]byte)
	)
	merchant := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received[r.URL.Path] = body
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(merchant.Close)

	srv := startMock(t, config{WebhookDelay: 10 * time.Millisecond})

	for _, key := range domain.AllProviders() {
		t.Run(string(key), func(t *testing.T) {
			path := "/callback/" + string(key)
			a := adapterFor(t, key, srv.URL, merchant.URL+path)

			res, err := a.InitializePayment(context.Background(), domain.InitRequest{
				OrderID: "ORD-7", AmountMinor: 12345, Currency: "ETB",
			})
			require.NoError(t, err)

			var body []byte
			require.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				body = received[path]
				return body != nil
			}, 2*time.Second, 10*time.Millisecond)

			payload, err := provider.DecodePayload(body)
			require.NoError(t, err)

			got, err := a.HandleWebhook(context.Background(), payload)
			require.NoError(t, err)
			assert.Equal(t, res.TransactionID, got.TransactionID)
			assert.Equal(t, "ORD-7", got.OrderID)
			assert.Equal(t, int64(12345), got.AmountMinor)
			assert.Equal(t, domain.PaymentStatusSuccess, got.Status)

			v := a.VerifyPayment(context.Background(), map[string]any{"transactionId": res.TransactionID})
			assert.Equal(t, domain.PaymentStatusSuccess, v.Status)
		})
	}
}

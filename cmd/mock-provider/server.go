package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/provider"
)

// Each provider is served under its own prefix so one mock can back all
// four *_API_URL settings, e.g. WEBIRR_API_URL=http://mock:8081/webirr.
var prefixes = map[domain.ProviderKey]string{
	domain.ProviderWeBirr:   "/webirr",
	domain.ProviderTelebirr: "/telebirr",
	domain.ProviderCBEBirr:  "/cbe-birr",
	domain.ProviderAmole:    "/amole",
}

type mockTransaction struct {
	provider    domain.ProviderKey
	orderID     string
	amount      string
	currency    string
	callbackURL string
	status      string
}

type mockServer struct {
	cfg     config
	logger  *slog.Logger
	clock   clockz.Clock
	client  *http.Client
	failing map[domain.ProviderKey]bool
	secrets map[domain.ProviderKey]string

	mu  sync.Mutex
	txs map[string]*mockTransaction
}

func newMockServer(cfg config, logger *slog.Logger, clock clockz.Clock, client *http.Client) *mockServer {
	failing := make(map[domain.ProviderKey]bool)
	for _, raw := range cfg.FailProviders {
		if key, err := domain.ParseProviderKey(raw); err == nil {
			failing[key] = true
		}
	}
	return &mockServer{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		client:  client,
		failing: failing,
		secrets: map[domain.ProviderKey]string{
			domain.ProviderWeBirr:   cfg.WeBirrSecret,
			domain.ProviderTelebirr: cfg.TelebirrSecret,
			domain.ProviderCBEBirr:  cfg.CBEBirrSecret,
			domain.ProviderAmole:    cfg.AmoleSecret,
		},
		txs: make(map[string]*mockTransaction),
	}
}

func (m *mockServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for key, prefix := range prefixes {
		mux.HandleFunc("GET "+prefix+"/health", m.wrap(key, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}))
	}

	mux.HandleFunc("POST /webirr/v1/merchant/payment", m.wrap(domain.ProviderWeBirr, m.weBirrInit))
	mux.HandleFunc("GET /webirr/v1/merchant/payment/{billId}", m.wrap(domain.ProviderWeBirr, m.weBirrStatus))
	mux.HandleFunc("POST /telebirr/v1/payment/prepay", m.wrap(domain.ProviderTelebirr, m.telebirrInit))
	mux.HandleFunc("POST /telebirr/v1/payment/query", m.wrap(domain.ProviderTelebirr, m.telebirrQuery))
	mux.HandleFunc("POST /cbe-birr/v2/payments/initiate", m.wrap(domain.ProviderCBEBirr, m.gatewayInit(domain.ProviderCBEBirr)))
	mux.HandleFunc("GET /cbe-birr/v2/payments/status", m.wrap(domain.ProviderCBEBirr, m.gatewayStatus))
	mux.HandleFunc("POST /amole/v1/payments/initiate", m.wrap(domain.ProviderAmole, m.gatewayInit(domain.ProviderAmole)))
	mux.HandleFunc("GET /amole/v1/payments/status", m.wrap(domain.ProviderAmole, m.gatewayStatus))
	return mux
}

// wrap applies latency and failure injection.
func (m *mockServer) wrap(key domain.ProviderKey, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.cfg.Latency > 0 {
			select {
			case <-m.clock.After(m.cfg.Latency):
			case <-r.Context().Done():
				return
			}
		}
		if m.failing[key] {
			m.logger.Info("failing request on purpose", "provider", key, "path", r.URL.Path)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "provider unavailable"})
			return
		}
		next(w, r)
	}
}

type initBody struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"orderId"`
	CallbackURL string `json:"callbackUrl"`
	NotifyURL   string `json:"notifyUrl"`
}

func (b initBody) callback() string {
	if b.CallbackURL != "" {
		return b.CallbackURL
	}
	return b.NotifyURL
}

func (m *mockServer) store(key domain.ProviderKey, txID string, body initBody) {
	m.mu.Lock()
	m.txs[txID] = &mockTransaction{
		provider:    key,
		orderID:     body.OrderID,
		amount:      body.Amount,
		currency:    body.Currency,
		callbackURL: body.callback(),
		status:      "PENDING",
	}
	m.mu.Unlock()

	if m.cfg.WebhookDelay > 0 && body.callback() != "" {
		go m.completeLater(txID)
	}
}

func (m *mockServer) lookup(txID string) (mockTransaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[txID]
	if !ok {
		return mockTransaction{}, false
	}
	return *tx, true
}

func (m *mockServer) weBirrInit(w http.ResponseWriter, r *http.Request) {
	var body initBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "invalid request", "code": "BAD_REQUEST"})
		return
	}
	billID := "WB-" + uuid.NewString()
	m.store(domain.ProviderWeBirr, billID, body)
	writeJSON(w, http.StatusOK, map[string]string{
		"billId":     billID,
		"paymentUrl": "https://checkout.webirr.example/pay/" + billID,
	})
}

func (m *mockServer) weBirrStatus(w http.ResponseWriter, r *http.Request) {
	billID := r.PathValue("billId")
	tx, ok := m.lookup(billID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"billId": billID, "error": "bill not found"})
		return
	}
	status := tx.status
	if status == "SUCCESS" {
		status = "PAID"
	}
	writeJSON(w, http.StatusOK, map[string]string{"billId": billID, "status": status})
}

func (m *mockServer) telebirrInit(w http.ResponseWriter, r *http.Request) {
	var body initBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"code": "FAIL", "message": "invalid request"})
		return
	}
	outTradeNo := "TB-" + uuid.NewString()
	m.store(domain.ProviderTelebirr, outTradeNo, body)
	writeJSON(w, http.StatusOK, map[string]any{
		"code":    "SUCCESS",
		"message": "ok",
		"data": map[string]string{
			"outTradeNo": outTradeNo,
			"prepayId":   "PP-" + outTradeNo,
			"paymentUrl": "https://h5.telebirr.example/pay/" + outTradeNo,
			"qrCode":     "telebirr://pay/" + outTradeNo,
		},
	})
}

func (m *mockServer) telebirrQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OutTradeNo string `json:"outTradeNo"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	tx, ok := m.lookup(body.OutTradeNo)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"code": "FAIL", "message": "order not found"})
		return
	}
	status := tx.status
	if status == "SUCCESS" {
		status = "TRADE_SUCCESS"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code": "SUCCESS",
		"data": map[string]string{"tradeStatus": status, "tradeNo": "TN-" + body.OutTradeNo},
	})
}

func (m *mockServer) gatewayInit(key domain.ProviderKey) http.HandlerFunc {
	prefix := strings.ToUpper(strings.TrimPrefix(prefixes[key], "/")[:3])
	return func(w http.ResponseWriter, r *http.Request) {
		var body initBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "invalid request"})
			return
		}
		txID := prefix + "-" + uuid.NewString()
		m.store(key, txID, body)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]string{
				"transactionId": txID,
				"paymentUrl":    "https://gateway.example" + prefixes[key] + "/pay/" + txID,
				"qrCode":        "qr:" + txID,
				"reference":     "REF-" + txID[len(txID)-8:],
				"ussdCode":      "*847*" + txID[len(txID)-6:] + "#",
			},
		})
	}
}

func (m *mockServer) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	txID := r.URL.Query().Get("transactionId")
	tx, ok := m.lookup(txID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"transactionId":  txID,
			"status":         tx.status,
			"settlementInfo": map[string]string{"settledAmount": tx.amount, "currency": tx.currency},
		},
	})
}

// webhookPayload builds the callback body in key's native shape.
func webhookPayload(key domain.ProviderKey, txID string, tx mockTransaction, now time.Time) map[string]any {
	ts := now.UTC().Format(time.RFC3339)
	switch key {
	case domain.ProviderWeBirr:
		return map[string]any{
			"billId": txID, "orderId": tx.orderID, "amount": tx.amount, "currency": tx.currency,
			"status": "PAID", "paymentMethod": "mobile", "timestamp": ts,
		}
	case domain.ProviderTelebirr:
		return map[string]any{
			"outTradeNo": txID, "orderId": tx.orderID, "totalAmount": tx.amount, "currency": tx.currency,
			"tradeStatus": "TRADE_SUCCESS", "tradeNo": "TN-" + txID, "timestamp": ts,
		}
	default:
		return map[string]any{
			"transactionId": txID, "orderId": tx.orderID, "amount": tx.amount, "currency": tx.currency,
			"status": "SUCCESS", "timestamp": ts,
		}
	}
}

func (m *mockServer) completeLater(txID string) {
	<-m.clock.After(m.cfg.WebhookDelay)

	m.mu.Lock()
	tx, ok := m.txs[txID]
	if ok {
		tx.status = "SUCCESS"
	}
	var snapshot mockTransaction
	if ok {
		snapshot = *tx
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	log := m.logger.With("provider", snapshot.provider, "transaction_id", txID)
	payload, err := provider.SignPayload(snapshot.provider, webhookPayload(snapshot.provider, txID, snapshot, m.clock.Now()), m.secrets[snapshot.provider])
	if err != nil {
		log.Error("failed to sign webhook", "error", err)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to encode webhook", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, snapshot.callbackURL, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to build webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		log.Error("webhook delivery failed", "error", err)
		return
	}
	resp.Body.Close()
	log.Info("webhook delivered", "status", resp.StatusCode)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

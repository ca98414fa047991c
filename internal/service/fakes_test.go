package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/events"
)

var testBuyer = uuid.MustParse("6f1d8f0e-4a7b-4c55-9d43-1b2f6c3a9e10")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGateway struct {
	mu         sync.Mutex
	initErr    error
	webhook    *domain.WebhookResult
	webhookErr error
	verify     map[string]domain.VerificationResult
	routed     int
	pinned     []domain.ProviderKey
	lastInit   domain.InitRequest
}

func (g *fakeGateway) result(key domain.ProviderKey, req domain.InitRequest) *domain.InitResult {
	return &domain.InitResult{
		Provider:      key,
		TransactionID: "TX-" + req.OrderID,
		PaymentURL:    "https://pay.example/" + req.OrderID,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		InitializedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Extra:         domain.Extra{"qrCode": "QR"},
	}
}

func (g *fakeGateway) InitializePayment(_ context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routed++
	g.lastInit = req
	if g.initErr != nil {
		return nil, g.initErr
	}
	return g.result(domain.ProviderWeBirr, req), nil
}

func (g *fakeGateway) InitializeWithProvider(_ context.Context, key domain.ProviderKey, req domain.InitRequest) (*domain.InitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pinned = append(g.pinned, key)
	g.lastInit = req
	if g.initErr != nil {
		return nil, g.initErr
	}
	return g.result(key, req), nil
}

func (g *fakeGateway) HandleWebhook(_ context.Context, _ domain.ProviderKey, _ map[string]any) (*domain.WebhookResult, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	res := *g.webhook
	return &res, nil
}

func (g *fakeGateway) VerifyPayment(_ context.Context, key domain.ProviderKey, payload map[string]any) domain.VerificationResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	txID, _ := payload["transactionId"].(string)
	if res, ok := g.verify[txID]; ok {
		return res
	}
	return domain.VerificationResult{Provider: key, TransactionID: txID, Status: domain.PaymentStatusUnknown, Error: "not found"}
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	paid   []string
}

func newFakeOrders(orders ...*domain.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, id string, amountMinor int64, currency string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != domain.OrderStatusCreated || o.AmountMinor != amountMinor || o.Currency != currency {
		return domain.ErrNotFound
	}
	o.Status = domain.OrderStatusPaid
	f.paid = append(f.paid, id)
	return nil
}

type attemptKey struct {
	provider domain.ProviderKey
	txID     string
}

type fakeAttempts struct {
	mu        sync.Mutex
	created   []domain.PaymentAttempt
	byKey     map[attemptKey]*domain.PaymentAttempt
	stale     []domain.PaymentAttempt
	createErr error
	listErr   error
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{byKey: make(map[attemptKey]*domain.PaymentAttempt)}
}

func (f *fakeAttempts) Create(_ context.Context, a *domain.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *a)
	cp := *a
	f.byKey[attemptKey{a.Provider, a.TransactionID}] = &cp
	return nil
}

func (f *fakeAttempts) UpdateStatus(_ context.Context, provider domain.ProviderKey, txID string, status domain.PaymentStatus) (*domain.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byKey[attemptKey{provider, txID}]
	if !ok || a.Status.IsTerminal() {
		return nil, domain.ErrNotFound
	}
	a.Status = status
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) ListStalePending(_ context.Context, _ time.Time, limit int) ([]domain.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.stale) > limit {
		return f.stale[:limit], nil
	}
	return f.stale, nil
}

func (f *fakeAttempts) status(provider domain.ProviderKey, txID string) domain.PaymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byKey[attemptKey{provider, txID}]; ok {
		return a.Status
	}
	return ""
}

// seed registers a pending 500.00 ETB attempt that is also returned as stale.
func (f *fakeAttempts) seed(orderID string, provider domain.ProviderKey, txID string) {
	f.seedAmount(orderID, provider, txID, 50000)
}

func (f *fakeAttempts) seedAmount(orderID string, provider domain.ProviderKey, txID string, amountMinor int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := domain.PaymentAttempt{
		ID:            uuid.New(),
		OrderID:       orderID,
		Provider:      provider,
		TransactionID: txID,
		AmountMinor:   amountMinor,
		Currency:      "ETB",
		Status:        domain.PaymentStatusPending,
	}
	f.stale = append(f.stale, a)
	cp := a
	f.byKey[attemptKey{provider, txID}] = &cp
}

type fakeWebhooks struct {
	mu     sync.Mutex
	seen   map[string]bool
	stored []domain.WebhookEvent
}

func newFakeWebhooks() *fakeWebhooks {
	return &fakeWebhooks{seen: make(map[string]bool)}
}

func (f *fakeWebhooks) Create(_ context.Context, e *domain.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := string(e.Provider) + "|" + e.TransactionID + "|" + string(e.Status)
	if f.seen[k] {
		return domain.ErrDuplicateWebhook
	}
	f.seen[k] = true
	f.stored = append(f.stored, *e)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.PaymentEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e events.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []events.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.PaymentEvent(nil), p.events...)
}

func openOrder(id string) *domain.Order {
	return &domain.Order{
		ID:          id,
		UserID:      testBuyer,
		AmountMinor: 50000,
		Currency:    "ETB",
		Status:      domain.OrderStatusCreated,
	}
}

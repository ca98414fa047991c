package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

type fakeAdapter struct {
	key domain.ProviderKey

	mu      sync.Mutex
	calls   int
	err     error
	delay   time.Duration
	started chan struct{}
	pingErr error
	pings   int
	panics  any
}

func newFakeAdapter(key domain.ProviderKey) *fakeAdapter {
	return &fakeAdapter{key: key}
}

func (f *fakeAdapter) failWith(kind domain.ProviderErrorKind) *fakeAdapter {
	f.err = domain.NewProviderError(f.key, kind, "forced failure", nil)
	return f
}

func (f *fakeAdapter) Key() domain.ProviderKey { return f.key }

func (f *fakeAdapter) InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	err := f.err
	delay := f.delay
	started := f.started
	panics := f.panics
	f.mu.Unlock()

	if panics != nil {
		panic(panics)
	}

	if started != nil {
		close(started)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, domain.NewProviderError(f.key, domain.KindTimeout, "request aborted", ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return &domain.InitResult{
		Provider:      f.key,
		TransactionID: fmt.Sprintf("%s-tx-%d", f.key, n),
		PaymentURL:    "https://pay.test/" + req.OrderID,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		InitializedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeAdapter) HandleWebhook(_ context.Context, payload map[string]any) (*domain.WebhookResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.WebhookResult{
		Provider:      f.key,
		TransactionID: fmt.Sprint(payload["transactionId"]),
		Status:        domain.PaymentStatusSuccess,
		Verified:      true,
	}, nil
}

func (f *fakeAdapter) VerifyPayment(_ context.Context, payload map[string]any) domain.VerificationResult {
	return domain.VerificationResult{
		Provider:      f.key,
		TransactionID: fmt.Sprint(payload["transactionId"]),
		Status:        domain.PaymentStatusPending,
		Verified:      true,
	}
}

func (f *fakeAdapter) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// plainAdapter has no Ping method.
type plainAdapter struct{ inner *fakeAdapter }

func (p plainAdapter) Key() domain.ProviderKey { return p.inner.Key() }

func (p plainAdapter) InitializePayment(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	return p.inner.InitializePayment(ctx, req)
}

func (p plainAdapter) HandleWebhook(ctx context.Context, payload map[string]any) (*domain.WebhookResult, error) {
	return p.inner.HandleWebhook(ctx, payload)
}

func (p plainAdapter) VerifyPayment(ctx context.Context, payload map[string]any) domain.VerificationResult {
	return p.inner.VerifyPayment(ctx, payload)
}

type fakeSet struct {
	webirr, telebirr, cbe, amole *fakeAdapter
}

func newFakeSet() fakeSet {
	return fakeSet{
		webirr:   newFakeAdapter(domain.ProviderWeBirr),
		telebirr: newFakeAdapter(domain.ProviderTelebirr),
		cbe:      newFakeAdapter(domain.ProviderCBEBirr),
		amole:    newFakeAdapter(domain.ProviderAmole),
	}
}

func (s fakeSet) registry() *Registry {
	r, err := NewRegistry(s.webirr, s.telebirr, s.cbe, s.amole)
	if err != nil {
		panic(err)
	}
	return r
}

func testRequest() domain.InitRequest {
	return domain.InitRequest{OrderID: "order-1", AmountMinor: 50000, Currency: "ETB"}
}

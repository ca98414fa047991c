package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

func newTestService(s fakeSet, deadline time.Duration) *Service {
	return NewService(s.registry(), Options{
		Preference:       domain.DefaultPreferenceOrder,
		FailureThreshold: 3,
		RequestDeadline:  deadline,
	})
}

func TestFailover_FirstProviderSucceeds(t *testing.T) {
	s := newFakeSet()
	svc := newTestService(s, time.Second)

	res, err := svc.InitializePayment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderWeBirr, res.Provider)
	assert.Equal(t, 1, s.webirr.callCount())
	assert.Zero(t, s.telebirr.callCount())

	h, _ := svc.Tracker().Get(domain.ProviderWeBirr)
	assert.True(t, h.Sampled)
}

func TestFailover_FallsThroughToNextProvider(t *testing.T) {
	s := newFakeSet()
	s.webirr.failWith(domain.KindInitFailed)
	svc := newTestService(s, time.Second)

	res, err := svc.InitializePayment(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderTelebirr, res.Provider)
	assert.Equal(t, "order-1", res.OrderID)
	assert.Equal(t, 1, s.webirr.callCount())
	assert.Equal(t, 1, s.telebirr.callCount())

	webirr, _ := svc.Tracker().Get(domain.ProviderWeBirr)
	assert.Equal(t, 1, webirr.ConsecutiveFailures)
	assert.True(t, webirr.Healthy)

	telebirr, _ := svc.Tracker().Get(domain.ProviderTelebirr)
	assert.Zero(t, telebirr.ConsecutiveFailures)
	assert.True(t, telebirr.Sampled)
}

func TestFailover_AllProvidersFail(t *testing.T) {
	s := newFakeSet()
	s.webirr.failWith(domain.KindTimeout)
	s.telebirr.failWith(domain.KindInitFailed)
	s.amole.failWith(domain.KindInvalidResponse)
	s.cbe.failWith(domain.KindInitFailed)
	svc := newTestService(s, time.Second)

	_, err := svc.InitializePayment(context.Background(), testRequest())
	require.ErrorIs(t, err, domain.ErrAllProvidersFailed)

	var allFailed *domain.AllProvidersFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, []domain.ProviderKey{
		domain.ProviderWeBirr,
		domain.ProviderTelebirr,
		domain.ProviderAmole,
		domain.ProviderCBEBirr,
	}, allFailed.Providers())

	kind, ok := domain.ProviderErrorKindOf(allFailed.Failures[0].Err)
	require.True(t, ok)
	assert.Equal(t, domain.KindTimeout, kind)

	for _, f := range []*fakeAdapter{s.webirr, s.telebirr, s.amole, s.cbe} {
		assert.Equal(t, 1, f.callCount(), "each provider is tried at most once: %s", f.key)
		h, _ := svc.Tracker().Get(f.key)
		assert.Equal(t, 1, h.ConsecutiveFailures)
	}
}

func TestFailover_RepeatedFailuresTripHealth(t *testing.T) {
	s := newFakeSet()
	for _, f := range []*fakeAdapter{s.webirr, s.telebirr, s.amole, s.cbe} {
		f.failWith(domain.KindInitFailed)
	}
	svc := newTestService(s, time.Second)

	for range 3 {
		_, err := svc.InitializePayment(context.Background(), testRequest())
		require.ErrorIs(t, err, domain.ErrAllProvidersFailed)
	}

	_, err := svc.InitializePayment(context.Background(), testRequest())
	require.ErrorIs(t, err, domain.ErrNoProviderAvailable)
	assert.Equal(t, 3, s.webirr.callCount(), "unhealthy providers are not called")
}

func TestFailover_NoHealthyProvider(t *testing.T) {
	s := newFakeSet()
	svc := newTestService(s, time.Second)
	for _, k := range domain.AllProviders() {
		markUnhealthy(svc.Tracker(), k)
	}

	_, err := svc.InitializePayment(context.Background(), testRequest())
	require.ErrorIs(t, err, domain.ErrNoProviderAvailable)
	assert.NotErrorIs(t, err, domain.ErrAllProvidersFailed)
	assert.Zero(t, s.webirr.callCount())
}

func TestFailover_SkipsUnhealthyAndRecovers(t *testing.T) {
	s := newFakeSet()
	svc := newTestService(s, time.Second)
	markUnhealthy(svc.Tracker(), domain.ProviderWeBirr)

	res, err := svc.InitializePayment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderTelebirr, res.Provider)
	assert.Zero(t, s.webirr.callCount())

	_, err = svc.InitializeWithProvider(context.Background(), domain.ProviderWeBirr, testRequest())
	require.NoError(t, err)
	assert.True(t, svc.Tracker().IsHealthy(domain.ProviderWeBirr), "one success restores health")
}

func TestFailover_InvalidRequest(t *testing.T) {
	s := newFakeSet()
	svc := newTestService(s, time.Second)

	_, err := svc.InitializePayment(context.Background(), domain.InitRequest{OrderID: "o", AmountMinor: -1, Currency: "ETB"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Zero(t, s.webirr.callCount())
}

func TestFailover_CallerCancellation(t *testing.T) {
	s := newFakeSet()
	s.webirr.delay = 5 * time.Second
	s.webirr.started = make(chan struct{})
	svc := newTestService(s, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-s.webirr.started
		cancel()
	}()

	_, err := svc.InitializePayment(ctx, testRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrAllProvidersFailed)

	h, _ := svc.Tracker().Get(domain.ProviderWeBirr)
	assert.Zero(t, h.ConsecutiveFailures, "cancellation is not a provider failure")
	assert.Zero(t, s.telebirr.callCount(), "no further attempts after cancellation")
}

func TestFailover_AlreadyCancelled(t *testing.T) {
	s := newFakeSet()
	svc := newTestService(s, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.InitializePayment(ctx, testRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.webirr.callCount())
}

func TestFailover_DeadlineReportsRemainingAsTimeout(t *testing.T) {
	s := newFakeSet()
	s.webirr.delay = 5 * time.Second
	svc := newTestService(s, 50*time.Millisecond)

	start := time.Now()
	_, err := svc.InitializePayment(context.Background(), testRequest())
	assert.Less(t, time.Since(start), 2*time.Second)

	var allFailed *domain.AllProvidersFailedError
	require.ErrorAs(t, err, &allFailed)
	require.Len(t, allFailed.Failures, 4)
	for _, f := range allFailed.Failures {
		kind, _ := domain.ProviderErrorKindOf(f.Err)
		assert.Equal(t, domain.KindTimeout, kind, f.Provider)
	}

	assert.Equal(t, 1, s.webirr.callCount())
	assert.Zero(t, s.telebirr.callCount())
	assert.Zero(t, s.amole.callCount())
	assert.Zero(t, s.cbe.callCount())
	assert.True(t, errors.Is(allFailed.Failures[1].Err, errDeadlineExhausted))
}

func TestFailover_ConcurrentCallsAreIndependent(t *testing.T) {
	s := newFakeSet()
	svc := newTestService(s, time.Second)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*domain.InitResult
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.InitializePayment(context.Background(), testRequest())
			assert.NoError(t, err)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, results, 2)
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.NotEqual(t, results[0].TransactionID, results[1].TransactionID)
}

func TestFailover_AdapterPanicFallsThrough(t *testing.T) {
	s := newFakeSet()
	s.webirr.panics = "upstream sdk blew up"
	svc := newTestService(s, time.Second)

	res, err := svc.InitializePayment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderTelebirr, res.Provider)

	webirr, _ := svc.Tracker().Get(domain.ProviderWeBirr)
	assert.Equal(t, 1, webirr.ConsecutiveFailures)
}

func TestFailover_AdapterPanicReportedAsInitFailed(t *testing.T) {
	s := newFakeSet()
	s.webirr.panics = "upstream sdk blew up"
	s.telebirr.failWith(domain.KindTimeout)
	s.amole.failWith(domain.KindInitFailed)
	s.cbe.failWith(domain.KindInitFailed)
	svc := newTestService(s, time.Second)

	_, err := svc.InitializePayment(context.Background(), testRequest())

	var allFailed *domain.AllProvidersFailedError
	require.ErrorAs(t, err, &allFailed)
	require.Len(t, allFailed.Failures, 4)
	assert.Equal(t, domain.ProviderWeBirr, allFailed.Failures[0].Provider)
	kind, ok := domain.ProviderErrorKindOf(allFailed.Failures[0].Err)
	require.True(t, ok)
	assert.Equal(t, domain.KindInitFailed, kind)
}

func TestService_InitializeWithProvider_AdapterPanic(t *testing.T) {
	s := newFakeSet()
	s.amole.panics = "nil map write"
	svc := newTestService(s, time.Second)

	_, err := svc.InitializeWithProvider(context.Background(), domain.ProviderAmole, testRequest())
	kind, ok := domain.ProviderErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindInitFailed, kind)

	h, _ := svc.Tracker().Get(domain.ProviderAmole)
	assert.Equal(t, 1, h.ConsecutiveFailures)
}

package aggregator

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

const DefaultFailureThreshold = 3

type Outcome struct {
	Success      bool
	ResponseTime time.Duration
	// Sampled marks ResponseTime as a real measurement.
	Sampled bool
}

type healthRecord struct {
	mu    sync.Mutex
	state domain.ProviderHealth
}

// HealthTracker keeps one record per provider, each behind its own lock.
// The record map is built once and never mutated afterwards.
type HealthTracker struct {
	records   map[domain.ProviderKey]*healthRecord
	keys      []domain.ProviderKey
	threshold int
	clock     clockz.Clock
}

func NewHealthTracker(keys []domain.ProviderKey, threshold int, clock clockz.Clock) *HealthTracker {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	if clock == nil {
		clock = clockz.RealClock
	}

	t := &HealthTracker{
		records:   make(map[domain.ProviderKey]*healthRecord, len(keys)),
		threshold: threshold,
		clock:     clock,
	}
	for _, k := range keys {
		if _, ok := t.records[k]; ok {
			continue
		}
		t.records[k] = &healthRecord{state: domain.ProviderHealth{Provider: k, Healthy: true}}
		t.keys = append(t.keys, k)
	}
	return t
}

// RecordOutcome ignores providers the tracker was not built with.
func (t *HealthTracker) RecordOutcome(key domain.ProviderKey, o Outcome) {
	rec, ok := t.records[key]
	if !ok {
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	s := &rec.state
	s.LastCheckedAt = t.clock.Now()
	if o.Success {
		s.ConsecutiveFailures = 0
		s.Healthy = true
		if o.Sampled {
			s.LastResponseTimeMs = o.ResponseTime.Milliseconds()
			s.Sampled = true
		}
		return
	}

	s.ConsecutiveFailures++
	if s.ConsecutiveFailures >= t.threshold {
		s.Healthy = false
	}
}

func (t *HealthTracker) IsHealthy(key domain.ProviderKey) bool {
	h, ok := t.Get(key)
	return ok && h.Healthy
}

func (t *HealthTracker) Get(key domain.ProviderKey) (domain.ProviderHealth, bool) {
	rec, ok := t.records[key]
	if !ok {
		return domain.ProviderHealth{Provider: key}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state, true
}

// Snapshot copies every record in construction order.
func (t *HealthTracker) Snapshot() []domain.ProviderHealth {
	out := make([]domain.ProviderHealth, 0, len(t.keys))
	for _, k := range t.keys {
		h, _ := t.Get(k)
		out = append(out, h)
	}
	return out
}

func (t *HealthTracker) Threshold() int { return t.threshold }

package aggregator

import (
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

type Router struct {
	health *HealthTracker
}

func NewRouter(health *HealthTracker) *Router {
	return &Router{health: health}
}

// Select returns the healthy provider with the lowest last response time.
// Ties go to the earlier position in preference. A provider without a
// measured response time counts as 0ms so it gets tried.
func (r *Router) Select(preference []domain.ProviderKey) (domain.ProviderKey, error) {
	var (
		best     domain.ProviderKey
		bestMs   int64
		selected bool
	)
	for _, key := range preference {
		h, ok := r.health.Get(key)
		if !ok || !h.Healthy {
			continue
		}
		ms := h.LastResponseTimeMs
		if !h.Sampled {
			ms = 0
		}
		if !selected || ms < bestMs {
			best, bestMs, selected = key, ms, true
		}
	}
	if !selected {
		return "", domain.ErrNoProviderAvailable
	}
	return best, nil
}

// Package aggregator routes payment initialization across provider adapters,
// tracks provider health and fails over between providers.
package aggregator

import (
	"fmt"
	"slices"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/provider"
)

// Registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	adapters map[domain.ProviderKey]provider.Adapter
	keys     []domain.ProviderKey
}

func NewRegistry(adapters ...provider.Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[domain.ProviderKey]provider.Adapter, len(adapters))}
	for _, a := range adapters {
		key := a.Key()
		if !key.IsValid() {
			return nil, fmt.Errorf("NewRegistry: %q: %w", key, domain.ErrUnknownProvider)
		}
		if _, dup := r.adapters[key]; dup {
			return nil, fmt.Errorf("NewRegistry: duplicate adapter for %s", key)
		}
		r.adapters[key] = a
		r.keys = append(r.keys, key)
	}
	return r, nil
}

func (r *Registry) Get(key domain.ProviderKey) (provider.Adapter, error) {
	a, ok := r.adapters[key]
	if !ok {
		return nil, fmt.Errorf("Registry.Get: %q: %w", key, domain.ErrUnknownProvider)
	}
	return a, nil
}

// Keys returns the registered providers in registration order.
func (r *Registry) Keys() []domain.ProviderKey {
	return slices.Clone(r.keys)
}

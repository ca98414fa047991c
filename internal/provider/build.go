package provider

import (
	"fmt"

	"github.com/josh-kwaku/payment-aggregator/internal/config"
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

// New builds the adapter for key.
func New(key domain.ProviderKey, cfg config.ProviderConfig, opts ...Option) (Adapter, error) {
	switch key {
	case domain.ProviderWeBirr:
		return NewWeBirr(cfg, opts...)
	case domain.ProviderTelebirr:
		return NewTelebirr(cfg, opts...)
	case domain.ProviderCBEBirr:
		return NewCBEBirr(cfg, opts...)
	case domain.ProviderAmole:
		return NewAmole(cfg, opts...)
	default:
		return nil, fmt.Errorf("provider.New: %q: %w", key, domain.ErrUnknownProvider)
	}
}

// BuildEnabled returns one adapter per enabled provider. Any enabled provider
// with missing credentials fails the whole build.
func BuildEnabled(cfg *config.Config, opts ...Option) ([]Adapter, error) {
	var adapters []Adapter
	for _, key := range cfg.EnabledProviders() {
		a, err := New(key, *cfg.Provider(key), opts...)
		if err != nil {
			return nil, fmt.Errorf("BuildEnabled: %w", err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

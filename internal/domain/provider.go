package domain

import (
	"fmt"
	"strings"
)

type ProviderKey string

const (
	ProviderWeBirr   ProviderKey = "WEBIRR"
	ProviderTelebirr ProviderKey = "TELEBIRR"
	ProviderCBEBirr  ProviderKey = "CBE_BIRR"
	ProviderAmole    ProviderKey = "AMOLE"
)

// DefaultPreferenceOrder is the routing priority used when a caller does not
// pin a provider.
var DefaultPreferenceOrder = []ProviderKey{
	ProviderWeBirr,
	ProviderTelebirr,
	ProviderAmole,
	ProviderCBEBirr,
}

func AllProviders() []ProviderKey {
	return []ProviderKey{ProviderWeBirr, ProviderTelebirr, ProviderCBEBirr, ProviderAmole}
}

func (k ProviderKey) IsValid() bool {
	switch k {
	case ProviderWeBirr, ProviderTelebirr, ProviderCBEBirr, ProviderAmole:
		return true
	}
	return false
}

func (k ProviderKey) String() string { return string(k) }

// ParseProviderKey accepts path-style spellings such as "cbe-birr".
func ParseProviderKey(s string) (ProviderKey, error) {
	k := ProviderKey(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	if !k.IsValid() {
		return "", fmt.Errorf("ParseProviderKey: %q: %w", s, ErrUnknownProvider)
	}
	return k, nil
}

func ParsePreferenceOrder(values []string) ([]ProviderKey, error) {
	seen := make(map[ProviderKey]bool, len(values))
	order := make([]ProviderKey, 0, len(values))
	for _, v := range values {
		k, err := ParseProviderKey(v)
		if err != nil {
			return nil, fmt.Errorf("ParsePreferenceOrder: %w", err)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		order = append(order, k)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("ParsePreferenceOrder: empty order: %w", ErrInvalidRequest)
	}
	return order, nil
}

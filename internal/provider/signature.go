package provider

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

const SignatureField = "signature"

type Canonicalization int

const (
	// CanonicalQuery renders "k1=v1&k2=v2" with keys sorted.
	CanonicalQuery Canonicalization = iota
	// CanonicalJSON renders compact JSON with keys sorted at every depth.
	CanonicalJSON
)

func CanonicalizationFor(key domain.ProviderKey) Canonicalization {
	switch key {
	case domain.ProviderCBEBirr, domain.ProviderAmole:
		return CanonicalJSON
	default:
		return CanonicalQuery
	}
}

// Canonicalize serializes payload without its signature field.
func Canonicalize(payload map[string]any, form Canonicalization) ([]byte, error) {
	unsigned := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == SignatureField {
			continue
		}
		unsigned[k] = v
	}

	switch form {
	case CanonicalJSON:
		return compactJSON(unsigned)
	case CanonicalQuery:
		keys := make([]string, 0, len(unsigned))
		for k := range unsigned {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			v, err := canonicalValue(unsigned[k])
			if err != nil {
				return nil, fmt.Errorf("Canonicalize: %s: %w", k, err)
			}
			parts = append(parts, k+"="+v)
		}
		return []byte(strings.Join(parts, "&")), nil
	default:
		return nil, fmt.Errorf("Canonicalize: unknown form %d", form)
	}
}

func Sign(payload map[string]any, secret string, form Canonicalization) (string, error) {
	msg, err := Canonicalize(payload, form)
	if err != nil {
		return "", fmt.Errorf("Sign: %w", err)
	}
	return hmacHex(secret, msg), nil
}

// VerifySignature reports whether payload carries a valid signature for
// secret. An empty secret never verifies.
func VerifySignature(payload map[string]any, secret string, form Canonicalization) bool {
	if secret == "" {
		return false
	}
	sig, ok := payload[SignatureField].(string)
	if !ok || sig == "" {
		return false
	}
	expected, err := Sign(payload, secret, form)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(sig))
}

// SignPayload returns a copy of payload with the provider's signature set.
func SignPayload(key domain.ProviderKey, payload map[string]any, secret string) (map[string]any, error) {
	sig, err := Sign(payload, secret, CanonicalizationFor(key))
	if err != nil {
		return nil, fmt.Errorf("SignPayload: %w", err)
	}
	signed := maps.Clone(payload)
	if signed == nil {
		signed = map[string]any{}
	}
	signed[SignatureField] = sig
	return signed, nil
}

func hmacHex(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func compactJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func canonicalValue(v any) (string, error) {
	switch val := v.(type) {
	case map[string]any, []any:
		b, err := compactJSON(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return stringValue(val), nil
	}
}

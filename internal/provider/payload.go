package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// DecodePayload decodes a webhook body keeping numbers as json.Number so
// that signatures are computed over the literal the provider sent.
func DecodePayload(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("DecodePayload: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("DecodePayload: body is not a JSON object")
	}
	return payload, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func stringField(payload map[string]any, key string) string {
	return stringValue(payload[key])
}

// firstField returns the first non-empty value among keys.
func firstField(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := stringField(payload, k); v != "" {
			return v
		}
	}
	return ""
}

func missingFields(payload map[string]any, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if stringField(payload, k) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// formatMajor renders minor units as a two-decimal major amount ("500.00").
func formatMajor(amountMinor int64) string {
	return decimal.New(amountMinor, -2).StringFixed(2)
}

// parseMajor converts a provider's major amount into minor units. An absent
// amount is zero.
func parseMajor(v any) (int64, error) {
	s := stringValue(v)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parseMajor: %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parseMajor: negative amount %q", s)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

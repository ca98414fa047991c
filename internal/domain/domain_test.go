package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderKey(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderKey
		wantErr bool
	}{
		{in: "WEBIRR", want: ProviderWeBirr},
		{in: "telebirr", want: ProviderTelebirr},
		{in: "cbe-birr", want: ProviderCBEBirr},
		{in: " Amole ", want: ProviderAmole},
		{in: "chapa", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseProviderKey(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePreferenceOrder(t *testing.T) {
	order, err := ParsePreferenceOrder([]string{"webirr", "AMOLE", "webirr"})
	require.NoError(t, err)
	assert.Equal(t, []ProviderKey{ProviderWeBirr, ProviderAmole}, order)

	_, err = ParsePreferenceOrder(nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParsePreferenceOrder([]string{"stripe"})
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestInitRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     InitRequest
		wantErr bool
	}{
		{name: "valid", req: InitRequest{OrderID: "ORD-1", AmountMinor: 10000, Currency: "ETB"}},
		{name: "zero amount allowed", req: InitRequest{OrderID: "ORD-1", AmountMinor: 0, Currency: "ETB"}},
		{name: "missing order", req: InitRequest{AmountMinor: 1, Currency: "ETB"}, wantErr: true},
		{name: "negative amount", req: InitRequest{OrderID: "ORD-1", AmountMinor: -1, Currency: "ETB"}, wantErr: true},
		{name: "lowercase currency", req: InitRequest{OrderID: "ORD-1", AmountMinor: 1, Currency: "etb"}, wantErr: true},
		{name: "long currency", req: InitRequest{OrderID: "ORD-1", AmountMinor: 1, Currency: "BIRR"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAllProvidersFailedError(t *testing.T) {
	timeout := NewProviderError(ProviderWeBirr, KindTimeout, "upstream timed out", nil)
	rejected := NewProviderError(ProviderAmole, KindInitFailed, "rejected", errors.New("insufficient balance"))

	err := fmt.Errorf("InitializeWithFailover: %w", &AllProvidersFailedError{Failures: []AttemptFailure{
		{Provider: ProviderWeBirr, Err: timeout},
		{Provider: ProviderAmole, Err: rejected},
	}})

	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Contains(t, err.Error(), "WEBIRR")
	assert.Contains(t, err.Error(), "AMOLE")
	assert.Contains(t, err.Error(), "insufficient balance")

	var all *AllProvidersFailedError
	require.ErrorAs(t, err, &all)
	assert.Equal(t, []ProviderKey{ProviderWeBirr, ProviderAmole}, all.Providers())

	kind, ok := ProviderErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, kind)
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	assert.True(t, PaymentStatusSuccess.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.True(t, PaymentStatusCancelled.IsTerminal())
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.False(t, PaymentStatusUnknown.IsTerminal())
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrNoProviderAvailable = errors.New("no payment provider available")
	ErrAllProvidersFailed  = errors.New("all payment providers failed")
	ErrOrderNotPayable     = errors.New("order is not payable")
	ErrDuplicateWebhook    = errors.New("duplicate webhook event")
)

type ProviderErrorKind string

const (
	KindInitFailed       ProviderErrorKind = "INIT_FAILED"
	KindTimeout          ProviderErrorKind = "TIMEOUT"
	KindInvalidResponse  ProviderErrorKind = "INVALID_RESPONSE"
	KindInvalidSignature ProviderErrorKind = "INVALID_SIGNATURE"
	KindMissingFields    ProviderErrorKind = "MISSING_FIELDS"
)

type ProviderError struct {
	Provider ProviderKey
	Kind     ProviderErrorKind
	Message  string
	Err      error
}

func NewProviderError(provider ProviderKey, kind ProviderErrorKind, msg string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: msg, Err: err}
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Provider, e.Kind, e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ProviderErrorKindOf returns the kind of the first ProviderError in err's chain.
func ProviderErrorKindOf(err error) (ProviderErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

type AttemptFailure struct {
	Provider ProviderKey
	Err      error
}

// AllProvidersFailedError lists every provider tried within one request and
// why each of them failed.
type AllProvidersFailedError struct {
	Failures []AttemptFailure
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return fmt.Sprintf("%s: [%s]", ErrAllProvidersFailed, strings.Join(parts, "; "))
}

func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

func (e *AllProvidersFailedError) Providers() []ProviderKey {
	keys := make([]ProviderKey, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.Provider)
	}
	return keys
}

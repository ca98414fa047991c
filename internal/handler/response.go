package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// failedAttempt is the per-provider detail attached to PAYMENT_UNAVAILABLE.
type failedAttempt struct {
	Provider domain.ProviderKey       `json:"provider"`
	Kind     domain.ProviderErrorKind `json:"kind,omitempty"`
	Reason   string                   `json:"reason"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var (
		appErr    *AppError
		details   any
		allFailed *domain.AllProvidersFailedError
	)

	switch {
	case errors.As(err, &allFailed):
		appErr = ErrPaymentUnavailable
		details = failedAttempts(allFailed)
	case errors.Is(err, domain.ErrNoProviderAvailable):
		appErr = ErrPaymentUnavailable
	case errors.Is(err, domain.ErrUnknownProvider):
		appErr = ErrUnknownProvider
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrOrderNotPayable):
		appErr = ErrOrderNotPayable
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		kind, ok := domain.ProviderErrorKindOf(err)
		if !ok {
			slog.Error("unhandled domain error", "error", err)
			appErr = ErrInternalError
			break
		}
		appErr = providerAppError(kind)
	}

	RespondAppError(w, appErr, details)
}

func providerAppError(kind domain.ProviderErrorKind) *AppError {
	switch kind {
	case domain.KindInvalidSignature:
		return ErrInvalidSignature
	case domain.KindMissingFields:
		return ErrMissingFields
	case domain.KindTimeout:
		return ErrProviderTimeout
	default:
		return ErrProviderFailed
	}
}

func failedAttempts(err *domain.AllProvidersFailedError) []failedAttempt {
	out := make([]failedAttempt, 0, len(err.Failures))
	for _, f := range err.Failures {
		kind, _ := domain.ProviderErrorKindOf(f.Err)
		out = append(out, failedAttempt{Provider: f.Provider, Kind: kind, Reason: f.Err.Error()})
	}
	return out
}

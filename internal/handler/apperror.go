package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrUnknownProvider     = &AppError{http.StatusNotFound, "UNKNOWN_PROVIDER", "Payment provider is not available"}
	ErrPaymentUnavailable  = &AppError{http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE", "All payment options are temporarily unavailable"}
	ErrOrderNotPayable     = &AppError{http.StatusUnprocessableEntity, "ORDER_NOT_PAYABLE", "Order cannot be paid in its current state"}
	ErrInvalidSignature    = &AppError{http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature is invalid"}
	ErrMissingFields       = &AppError{http.StatusBadRequest, "MISSING_FIELDS", "Webhook is missing required fields"}
	ErrProviderTimeout     = &AppError{http.StatusGatewayTimeout, "PROVIDER_TIMEOUT", "Payment provider did not respond in time"}
	ErrProviderFailed      = &AppError{http.StatusBadGateway, "PROVIDER_ERROR", "Payment provider rejected the request"}
	ErrIdempotencyConflict = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)

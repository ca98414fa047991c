package handler

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

// autoProvider in the {provider} path segment lets the router pick.
const autoProvider = "auto"

type paymentInitializer interface {
	Initialize(ctx context.Context, provider domain.ProviderKey, req domain.InitRequest) (*domain.InitResult, error)
}

type providerGateway interface {
	VerifyPayment(ctx context.Context, key domain.ProviderKey, payload map[string]any) domain.VerificationResult
	Health() []domain.ProviderHealth
}

type PaymentHandler struct {
	payments paymentInitializer
	gateway  providerGateway
}

func NewPaymentHandler(payments paymentInitializer, gateway providerGateway) *PaymentHandler {
	return &PaymentHandler{payments: payments, gateway: gateway}
}

type initPaymentRequest struct {
	OrderID     string `json:"orderId" validate:"required"`
	AmountMinor *int64 `json:"amountMinor" validate:"required_without=AmountInt,omitempty,gte=0"`
	// AmountInt is accepted as an alias of amountMinor.
	AmountInt *int64 `json:"amountInt" validate:"omitempty,gte=0"`
	Currency  string `json:"currency" validate:"required,len=3,uppercase"`
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
	CancelURL string `json:"cancelUrl" validate:"omitempty,url"`
}

func (r initPaymentRequest) toDomain() domain.InitRequest {
	amount := r.AmountMinor
	if amount == nil {
		amount = r.AmountInt
	}
	return domain.InitRequest{
		OrderID:     r.OrderID,
		AmountMinor: *amount,
		Currency:    r.Currency,
		ReturnURL:   r.ReturnURL,
		CancelURL:   r.CancelURL,
	}
}

// providerFromPath resolves {provider}. It returns "" for auto.
func providerFromPath(r *http.Request) (domain.ProviderKey, *AppError) {
	raw := r.PathValue("provider")
	if raw == autoProvider {
		return "", nil
	}
	key, err := domain.ParseProviderKey(raw)
	if err != nil {
		return "", ErrUnknownProvider
	}
	return key, nil
}

func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	key, appErr := providerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req initPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := logging.With(r.Context(), "order_id", req.OrderID)
	result, err := h.payments.Initialize(ctx, key, req.toDomain())
	if err != nil {
		logging.FromContext(ctx).Warn("payment initialization failed", "provider", r.PathValue("provider"), "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, result)
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	key, err := domain.ParseProviderKey(r.PathValue("provider"))
	if err != nil {
		RespondAppError(w, ErrUnknownProvider, nil)
		return
	}

	result := h.gateway.VerifyPayment(r.Context(), key, map[string]any{
		"transactionId": r.PathValue("transactionId"),
	})
	RespondSuccess(w, http.StatusOK, result)
}

func (h *PaymentHandler) Health(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, h.gateway.Health())
}

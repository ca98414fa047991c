package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/payment-aggregator/internal/auth"
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
	"github.com/josh-kwaku/payment-aggregator/internal/service"
)

type checkoutService interface {
	CreateSession(ctx context.Context, userID uuid.UUID, req service.CheckoutRequest) (*domain.InitResult, error)
}

type CheckoutHandler struct {
	checkout checkoutService
}

func NewCheckoutHandler(checkout checkoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutSessionRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
	CancelURL string `json:"cancelUrl" validate:"omitempty,url"`
}

func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	key, appErr := providerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req checkoutSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.checkout.CreateSession(r.Context(), userID, service.CheckoutRequest{
		Provider:  key,
		OrderID:   req.OrderID,
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("checkout session failed", "order_id", req.OrderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, result)
}

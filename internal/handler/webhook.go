package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
	"github.com/josh-kwaku/payment-aggregator/internal/provider"
	"github.com/josh-kwaku/payment-aggregator/internal/service"
)

type webhookProcessor interface {
	Process(ctx context.Context, key domain.ProviderKey, payload map[string]any, raw []byte) (*service.WebhookOutcome, error)
}

type WebhookHandler struct {
	webhooks webhookProcessor
}

func NewWebhookHandler(webhooks webhookProcessor) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

type webhookResponse struct {
	Status string                `json:"status"`
	Result *domain.WebhookResult `json:"result"`
}

// Receive accepts a provider callback in that provider's native shape.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	key, err := domain.ParseProviderKey(r.PathValue("provider"))
	if err != nil {
		RespondAppError(w, ErrUnknownProvider, nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", "provider", key, "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	payload, err := provider.DecodePayload(body)
	if err != nil {
		log.Warn("failed to parse webhook payload", "provider", key, "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	out, err := h.webhooks.Process(r.Context(), key, payload, body)
	if err != nil {
		log.Warn("webhook rejected", "provider", key, "error", err)
		RespondDomainError(w, err)
		return
	}

	status := "received"
	if out.Duplicate {
		status = "already_received"
	}
	RespondSuccess(w, http.StatusOK, webhookResponse{Status: status, Result: out.Result})
}

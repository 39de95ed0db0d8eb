package controller

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/providers"
	"github.com/growshare/marketplace/internal/service"
	"github.com/rs/zerolog/log"
)

const maxWebhookBodySize = 1 << 20

// WebhookController receives payment provider callbacks. The signature is
// verified over the raw payload before anything is decoded or processed; an
// unsigned or tampered delivery never reaches the orchestrator.
type WebhookController struct {
	paymentService  *service.PaymentService
	providerFactory *providers.Factory
}

func NewWebhookController(paymentService *service.PaymentService, providerFactory *providers.Factory) *WebhookController {
	return &WebhookController{
		paymentService:  paymentService,
		providerFactory: providerFactory,
	}
}

// HandlePaymentWebhook handles POST /webhooks/payments/{provider}
func (h *WebhookController) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	p, _, err := h.providerFactory.Get(providerName)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown provider", Code: "not_found"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read payload", Code: "invalid_payload"})
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")
	if err := p.VerifyWebhookSignature(payload, signature); err != nil {
		log.Warn().Str("provider", providerName).Msg("webhook signature verification failed")
		writeError(w, domainErrors.ErrInvalidSignature)
		return
	}

	ev, err := providers.ParseWebhookEvent(payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed event payload", Code: "invalid_payload"})
		return
	}

	if err := h.paymentService.HandleWebhookEvent(r.Context(), ev); err != nil {
		// Non-2xx makes the provider redeliver; processing is idempotent
		// so the retry is safe.
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

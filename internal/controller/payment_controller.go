package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/middleware"
	"github.com/growshare/marketplace/internal/service"
)

// PaymentController handles payment initiation and refunds for a
// transactable. Settlement itself arrives over the webhook endpoint.
type PaymentController struct {
	paymentService *service.PaymentService
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

// InitiatePayment handles POST /api/v1/transactables/{id}/payment
func (h *PaymentController) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transactable id", Code: "invalid_id"})
		return
	}

	resp, err := h.paymentService.InitiatePayment(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromPaymentRecord(resp.Record, true))
}

// GetPayment handles GET /api/v1/transactables/{id}/payment
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transactable id", Code: "invalid_id"})
		return
	}

	rec, err := h.paymentService.GetRecord(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromPaymentRecord(rec, false))
}

// Refund handles POST /api/v1/transactables/{id}/refund
func (h *PaymentController) Refund(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transactable id", Code: "invalid_id"})
		return
	}

	result, err := h.paymentService.Refund(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefundResponse{
		Payment:     FromPaymentRecord(result.Record, false),
		Percentage:  result.Percentage,
		AmountCents: result.AmountCents,
		RefundRef:   result.RefundRef,
	})
}

package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/transactable"
	"github.com/growshare/marketplace/internal/middleware"
	"github.com/growshare/marketplace/internal/service"
)

// TransactableController handles booking, rental and order endpoints.
type TransactableController struct {
	transactableService *service.TransactableService
}

func NewTransactableController(transactableService *service.TransactableService) *TransactableController {
	return &TransactableController{transactableService: transactableService}
}

// CreateBooking handles POST /api/v1/bookings
func (h *TransactableController) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	var req CreateBookingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.transactableService.CreateBooking(r.Context(), service.CreateBookingRequest{
		ListingID:      uuid.MustParse(req.ListingID),
		CounterpartyID: actorID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromTransactable(t))
}

// CreateRental handles POST /api/v1/rentals
func (h *TransactableController) CreateRental(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	var req CreateRentalRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.transactableService.CreateRental(r.Context(), service.CreateRentalRequest{
		ListingID:      uuid.MustParse(req.ListingID),
		CounterpartyID: actorID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromTransactable(t))
}

// CreateOrder handles POST /api/v1/orders
func (h *TransactableController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.transactableService.CreateOrder(r.Context(), service.CreateOrderRequest{
		ListingID:      uuid.MustParse(req.ListingID),
		CounterpartyID: actorID,
		Quantity:       req.Quantity,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromTransactable(t))
}

// Get handles GET /api/v1/transactables/{id}
func (h *TransactableController) Get(w http.ResponseWriter, r *http.Request) {
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

	t, err := h.transactableService.GetByID(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromTransactable(t))
}

// List handles GET /api/v1/transactables
func (h *TransactableController) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	filter := transactable.ListFilter{}
	if s := r.URL.Query().Get("kind"); s != "" {
		kind := transactable.Kind(s)
		filter.Kind = &kind
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := transactable.Status(s)
		filter.Status = &status
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	filter.SortBy = r.URL.Query().Get("sort_by")
	filter.SortOrder = r.URL.Query().Get("sort_order")

	items, err := h.transactableService.List(r.Context(), actorID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]TransactableResponse, 0, len(items))
	for _, t := range items {
		resp = append(resp, FromTransactable(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactables": resp})
}

// Transition handles POST /api/v1/transactables/{id}/transition
func (h *TransactableController) Transition(w http.ResponseWriter, r *http.Request) {
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

	var req TransitionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.transactableService.Transition(r.Context(), service.TransitionRequest{
		TransactableID: id,
		ActorID:        actorID,
		Target:         transactable.Status(req.Status),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromTransactable(t))
}

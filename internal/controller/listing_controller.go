package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/growshare/marketplace/internal/middleware"
)

// ListingController handles the minimal listing surface the lifecycle
// needs: owners create listings and anyone can read them. Search and
// editing live in another service.
type ListingController struct {
	listingRepo listing.Repository
}

func NewListingController(listingRepo listing.Repository) *ListingController {
	return &ListingController{listingRepo: listingRepo}
}

// Create handles POST /api/v1/listings
func (h *ListingController) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	var req CreateListingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	l, err := listing.New(ownerID, listing.Type(req.Type), req.Title, req.Quantity, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	l.UnitPriceCents = req.UnitPriceCents
	l.DailyRateCents = req.DailyRateCents
	l.WeeklyRateCents = req.WeeklyRateCents

	if err := h.listingRepo.Create(r.Context(), l); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromListing(l))
}

// Get handles GET /api/v1/listings/{id}
func (h *ListingController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid listing id", Code: "invalid_id"})
		return
	}

	l, err := h.listingRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromListing(l))
}

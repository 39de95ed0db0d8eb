package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/notification"
	"github.com/growshare/marketplace/internal/middleware"
)

// NotificationController exposes a user's notification feed.
type NotificationController struct {
	notificationRepo notification.Repository
}

func NewNotificationController(notificationRepo notification.Repository) *NotificationController {
	return &NotificationController{notificationRepo: notificationRepo}
}

// List handles GET /api/v1/notifications
func (h *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.notificationRepo.ListByRecipient(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, FromNotification(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": resp})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid notification id", Code: "invalid_id"})
		return
	}

	if err := h.notificationRepo.MarkRead(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package notification_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/notification"
)

type Handler struct {
	Service *notification.Service
	Logger  *logger.Logger
}

func NewHandler(service *notification.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

type listResponse struct {
	Success       bool                  `json:"success"`
	Notifications []models.Notification `json:"notifications"`
}

// List handles GET /order/notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	notifications, err := h.Service.List(r.Context(), principal.UserID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("List notifications failed for %s: %v", principal.UserID, err))
		http.Error(w, "Failed to retrieve notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listResponse{Success: true, Notifications: notifications}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("List notifications: failed to encode response: %v", err))
	}
}

// MarkRead handles PUT /order/notifications/{id}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Service.MarkRead(r.Context(), principal.UserID, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w)
}

// MarkAllRead handles PUT /order/notifications/read-all.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := h.Service.MarkAllRead(r.Context(), principal.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w)
}

// Delete handles DELETE /order/notifications/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Service.Delete(r.Context(), principal.UserID, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w)
}

// ClearAll handles DELETE /order/notifications/clear.
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := h.Service.ClearAll(r.Context(), principal.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w)
}

func (h *Handler) writeSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"success":true}`)); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to write response: %v", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notification.ErrNotFound):
		http.Error(w, "Notification not found", http.StatusNotFound)
	case errors.Is(err, notification.ErrForbidden):
		http.Error(w, "Notification belongs to another user", http.StatusForbidden)
	default:
		h.Logger.Error("API", fmt.Sprintf("Notification operation failed: %v", err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

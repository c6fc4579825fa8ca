package cart_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/logger"
)

type Handler struct {
	Service *cart.Service
	Logger  *logger.Logger
}

func NewHandler(service *cart.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Size     string `json:"size,omitempty"`
	Quantity int    `json:"quantity"`
}

// GetCart handles GET /cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	c, err := h.Service.GetCart(r.Context(), principal.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// AddItem handles POST /cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.Service.AddItem(r.Context(), principal.UserID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddItem failed for user %s: %v", principal.UserID, err))
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// UpdateItem handles PUT /cart/items/{productId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.Service.UpdateQuantity(r.Context(), principal.UserID, productID, req.Size, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// RemoveItem handles DELETE /cart/items/{productId}. The size of the
// line to drop comes from the optional "size" query parameter.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	productID := chi.URLParam(r, "productId")
	size := r.URL.Query().Get("size")

	c, err := h.Service.RemoveItem(r.Context(), principal.UserID, productID, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// ClearCart handles DELETE /cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := h.Service.ClearCart(r.Context(), principal.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetWishlist handles GET /wishlist.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	wl, err := h.Service.GetWishlist(r.Context(), principal.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wl)
}

// AddToWishlist handles POST /wishlist/{productId}.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	wl, err := h.Service.AddToWishlist(r.Context(), principal.UserID, productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wl)
}

// RemoveFromWishlist handles DELETE /wishlist/{productId}.
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	wl, err := h.Service.RemoveFromWishlist(r.Context(), principal.UserID, productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wl)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrProductNotFound), errors.Is(err, cart.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cart.ErrInvalidSize), errors.Is(err, cart.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, cart.ErrOutOfStock):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/order"
	"storefront/internal/qr"
)

type Handler struct {
	OrderService *order.OrderService
	QR           *qr.Generator
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, qrGen *qr.Generator, log *logger.Logger) *Handler {
	return &Handler{OrderService: orderService, QR: qrGen, Logger: log}
}

// Checkout handles POST /order - turns the caller's cart into orders.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	h.Logger.Info("API", fmt.Sprintf("Checkout: user=%s", principal.UserID))

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.OrderService.Checkout(r.Context(), principal, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout failed for user %s: %v", principal.UserID, err))
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to encode response: %v", err))
	}
}

// TrackOrder handles GET /order/track/{orderId} for the buyer-facing
// tracking view.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("TrackOrder: orderId=%s user=%s", orderID, principal.UserID))

	ord, err := h.OrderService.TrackOrder(r.Context(), principal, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"order": ord}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("TrackOrder: failed to encode response: %v", err))
	}
}

// TrackOrderQR handles GET /order/track/{orderId}/qr and returns a PNG
// QR code carrying the encrypted tracking reference.
func (h *Handler) TrackOrderQR(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	ord, err := h.OrderService.TrackOrder(r.Context(), principal, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	png, err := h.QR.GenerateTrackingQR(&ord.Order)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TrackOrderQR: failed to generate QR for %s: %v", orderID, err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("TrackOrderQR: failed to write response: %v", err))
	}
}

// ListMyOrders handles GET /order/my - the buyer's order history.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	orders, err := h.OrderService.ListMyOrders(r.Context(), principal)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMyOrders failed for %s: %v", principal.UserID, err))
		http.Error(w, "Failed to retrieve orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"orders": orders}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMyOrders: failed to encode response: %v", err))
	}
}

// ListSellerOrders handles GET /order/seller - the seller dashboard
// listing.
func (h *Handler) ListSellerOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	orders, err := h.OrderService.ListSellerOrders(r.Context(), principal)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"orders": orders}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListSellerOrders: failed to encode response: %v", err))
	}
}

// GetSellerOrder handles GET /order/seller/id/{id}.
func (h *Handler) GetSellerOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	orderID := chi.URLParam(r, "id")
	h.Logger.Info("API", fmt.Sprintf("GetSellerOrder: orderId=%s seller=%s", orderID, principal.UserID))

	ord, err := h.OrderService.GetSellerOrder(r.Context(), principal, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"order": ord}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSellerOrder: failed to encode response: %v", err))
	}
}

// UpdateOrderStatus handles PUT /order/seller/id/{id}/status, the entry
// point to the status manager.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	orderID := chi.URLParam(r, "id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateOrderStatus: orderId=%s requested=%s by=%s", orderID, body.Status, principal.UserID))

	ord, err := h.OrderService.RequestTransition(r.Context(), principal, orderID, models.OrderStatus(body.Status))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrderStatus rejected for %s: %v", orderID, err))
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "order": ord}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrderStatus: failed to encode response: %v", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, order.ErrForbidden):
		http.Error(w, "You may not act on this order", http.StatusForbidden)
	case errors.Is(err, order.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

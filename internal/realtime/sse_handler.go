package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
)

// OrderReader is the slice of the order service the transport needs to
// authorize order-room subscriptions.
type OrderReader interface {
	CanWatchOrder(ctx context.Context, p auth.Principal, orderID string) error
}

// SSEHandler serves the live event streams. Authentication happens at
// connection time via the shared middleware; a connection that never
// authenticated is rejected before joining any room.
type SSEHandler struct {
	Hub    *Hub
	Orders OrderReader
	Logger *logger.Logger
}

func NewSSEHandler(hub *Hub, orders OrderReader, log *logger.Logger) *SSEHandler {
	return &SSEHandler{Hub: hub, Orders: orders, Logger: log}
}

// HandleUserEvents streams personal notifications. The connection joins
// the caller's user room and, for sellers and admins, their role room.
func (h *SSEHandler) HandleUserEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated connection", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)
	ctx := r.Context()

	userChan := h.Hub.Subscribe(ctx, UserRoom(principal.UserID))
	var roleChan chan Event
	if principal.Role == models.RoleSeller || principal.Role == models.RoleAdmin {
		roleChan = h.Hub.Subscribe(ctx, RoleRoom(principal.Role))
	}

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"userId\":\"%s\"}\n\n", principal.UserID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("User %s connected to personal event stream", principal.UserID))

	for {
		select {
		case ev, open := <-userChan:
			if !open {
				return
			}
			h.writeEvent(w, flusher, ev)
		case ev, open := <-roleChan:
			if !open {
				return
			}
			h.writeEvent(w, flusher, ev)
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("User %s disconnected from personal event stream", principal.UserID))
			return
		}
	}
}

// HandleOrderEvents streams order-room broadcasts for a tracking view.
// Joining requires the caller to be the order's buyer, its seller, or an
// admin.
func (h *SSEHandler) HandleOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated connection", http.StatusUnauthorized)
		return
	}

	if err := h.Orders.CanWatchOrder(r.Context(), principal, orderID); err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Order room access denied for user %s: %v", principal.UserID, err))
		http.Error(w, "unauthorized access", http.StatusForbidden)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)
	ctx := r.Context()

	orderChan := h.Hub.Subscribe(ctx, OrderRoom(orderID))

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"orderId\":\"%s\"}\n\n", orderID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("User %s joined order room %s", principal.UserID, orderID))

	for {
		select {
		case ev, open := <-orderChan:
			if !open {
				return
			}
			h.writeEvent(w, flusher, ev)
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("User %s left order room %s", principal.UserID, orderID))
			return
		}
	}
}

func (h *SSEHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, ev Event) {
	jsonData, err := json.Marshal(ev)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize event: %v", err))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, jsonData)
	flusher.Flush()
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"

	"storefront/internal/logger"
	"storefront/internal/order"
	"storefront/internal/payment"
)

// PaymentHandler receives gateway callbacks. It is mounted outside the
// authenticated router group since Stripe signs its own requests.
type PaymentHandler struct {
	OrderService *order.OrderService
	Stripe       *payment.StripeProvider
	Logger       *logger.Logger
}

func NewPaymentHandler(orderService *order.OrderService, stripeProvider *payment.StripeProvider, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{OrderService: orderService, Stripe: stripeProvider, Logger: log}
}

// StripeWebhook handles POST /webhook/stripe. A verified
// payment_intent.succeeded event marks the referenced order as paid.
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	event, err := h.Stripe.VerifyWebhook(r)
	if err != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("Stripe webhook rejected: %v", err))
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			h.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to parse payment intent: %v", err))
			http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
			return
		}

		orderID := intent.Metadata["order_id"]
		if orderID == "" {
			h.Logger.Warn("WEBHOOK", fmt.Sprintf("Payment intent %s carries no order_id metadata", intent.ID))
			break
		}

		if err := h.OrderService.MarkPaid(r.Context(), orderID); err != nil {
			h.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to mark order %s paid: %v", orderID, err))
			http.Error(w, "Webhook processing error", http.StatusInternalServerError)
			return
		}
		h.Logger.Info("WEBHOOK", fmt.Sprintf("Order %s marked paid via intent %s", orderID, intent.ID))

	default:
		h.Logger.Info("WEBHOOK", fmt.Sprintf("Ignoring Stripe event type %s", event.Type))
	}

	w.WriteHeader(http.StatusOK)
}

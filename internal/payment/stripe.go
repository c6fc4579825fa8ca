package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"storefront/internal/logger"
	"storefront/internal/models"
)

var (
	ErrStripeNotConfigured = errors.New("stripe secret key is not configured")
	ErrStripeAPIError      = errors.New("stripe API error")
)

// StripeProvider creates payment intents for card checkouts and
// verifies webhook callbacks.
type StripeProvider struct {
	client        *client.API
	webhookSecret string
	logger        *logger.Logger
}

func NewStripeProvider(secretKey, webhookSecret string, log *logger.Logger) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, ErrStripeNotConfigured
	}
	return &StripeProvider{
		client:        client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		logger:        log,
	}, nil
}

// CreateIntent registers a payment intent for the order total and
// returns the client secret the storefront uses to confirm the charge.
func (p *StripeProvider) CreateIntent(ctx context.Context, order *models.Order) (string, string, error) {
	amountInCents := int64(order.Total * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String("usd"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.OrderID)

	intent, err := p.client.PaymentIntents.New(params)
	if err != nil {
		p.logger.Error("PAYMENT", fmt.Sprintf("Failed to create payment intent for order %s: %v", order.OrderID, err))
		return "", "", fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	p.logger.Info("PAYMENT", fmt.Sprintf("Created payment intent %s for order %s", intent.ID, order.OrderID))
	return intent.ClientSecret, intent.ID, nil
}

// VerifyWebhook validates the Stripe-Signature header and returns the
// parsed event.
func (p *StripeProvider) VerifyWebhook(r *http.Request) (stripe.Event, error) {
	if p.webhookSecret == "" {
		return stripe.Event{}, errors.New("stripe webhook secret is not configured")
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("failed to read webhook payload: %w", err)
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), p.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return event, nil
}

package billing

import (
	"context"
	"time"
)

// Provider defines the interface for payment processing.
// Implementations can use Stripe, PayPal, Square, etc.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for a one-time charge.
	// Returns a payment intent with a client_secret for frontend confirmation.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an existing payment intent.
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)

	// VerifyWebhookSignature verifies that a webhook request is authentic and
	// returns the decoded event. Verification happens before any payload
	// field is trusted.
	VerifyWebhookSignature(payload []byte, signature string, secret string) (*WebhookEvent, error)
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountCents is the amount in smallest currency unit (cents for USD)
	AmountCents int64

	// Currency code (ISO 4217) - e.g., "usd", "eur"
	Currency string

	// Description appears on the customer's statement and in the dashboard
	Description string

	// Metadata is attached to the intent and echoed back on webhook events
	Metadata map[string]string
}

// PaymentIntent represents a payment intent at the gateway.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       string
	Metadata     map[string]string
	CreatedAt    time.Time
}

// WebhookEvent is a verified gateway event. Intent fields are only
// populated for payment_intent.* event types.
type WebhookEvent struct {
	ID     string
	Type   string
	Intent *PaymentIntent

	// PaymentMethodType is the method used, e.g. "card", when known.
	PaymentMethodType string
}

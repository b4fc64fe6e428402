package billing

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, at time.Time, secret string) string {
	t.Helper()
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func eventPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {
			"object": {
				"id": "pi_test_1",
				"object": "payment_intent",
				"amount": 6997,
				"currency": "usd",
				"status": "succeeded",
				"payment_method_types": ["card"],
				"metadata": {"order_id": "42", "order_number": "GLW2508110042"}
			}
		}
	}`, stripe.APIVersion, eventType))
}

func TestVerifyWebhookSignature(t *testing.T) {
	provider := NewStripeProvider("sk_test_key")
	payload := eventPayload("payment_intent.succeeded")

	event, err := provider.VerifyWebhookSignature(payload, signedHeader(t, payload, time.Now(), testSecret), testSecret)
	require.NoError(t, err)

	assert.Equal(t, "evt_test_1", event.ID)
	assert.Equal(t, "payment_intent.succeeded", event.Type)
	require.NotNil(t, event.Intent)
	assert.Equal(t, "pi_test_1", event.Intent.ID)
	assert.Equal(t, int64(6997), event.Intent.AmountCents)
	assert.Equal(t, "42", event.Intent.Metadata["order_id"])
	assert.Equal(t, "card", event.PaymentMethodType)
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	provider := NewStripeProvider("sk_test_key")
	payload := eventPayload("payment_intent.succeeded")

	_, err := provider.VerifyWebhookSignature(payload, signedHeader(t, payload, time.Now(), "whsec_other"), testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	provider := NewStripeProvider("sk_test_key")
	payload := eventPayload("payment_intent.succeeded")
	header := signedHeader(t, payload, time.Now(), testSecret)

	tampered := eventPayload("payment_intent.payment_failed")
	_, err := provider.VerifyWebhookSignature(tampered, header, testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignature_StaleTimestamp(t *testing.T) {
	provider := NewStripeProvider("sk_test_key")
	payload := eventPayload("payment_intent.succeeded")

	stale := time.Now().Add(-time.Hour)
	_, err := provider.VerifyWebhookSignature(payload, signedHeader(t, payload, stale, testSecret), testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignature_NonIntentEvent(t *testing.T) {
	provider := NewStripeProvider("sk_test_key")
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test_2",
		"object": "event",
		"api_version": %q,
		"type": "charge.refunded",
		"data": {"object": {"id": "ch_1", "object": "charge"}}
	}`, stripe.APIVersion))

	event, err := provider.VerifyWebhookSignature(payload, signedHeader(t, payload, time.Now(), testSecret), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", event.Type)
	assert.Nil(t, event.Intent)
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aya-berrouan/glowora/internal/billing"
	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/service"
	"github.com/aya-berrouan/glowora/internal/telemetry"
)

// WebhookHandler processes payment gateway webhooks. The signature is
// verified before any payload field is read.
type WebhookHandler struct {
	orders        service.OrderService
	provider      billing.Provider
	webhookSecret string
	metrics       *telemetry.BusinessMetrics
	logger        zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	orders service.OrderService,
	provider billing.Provider,
	webhookSecret string,
	metrics *telemetry.BusinessMetrics,
	logger zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		orders:        orders,
		provider:      provider,
		webhookSecret: webhookSecret,
		metrics:       metrics,
		logger:        logger.With().Str("component", "webhook_handler").Logger(),
	}
}

// HandleStripeWebhook handles POST /api/payment/webhook
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read webhook body")
		return RespondError(c, h.logger,
			domain.Invalid("webhook.read", "Failed to read request body"))
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	event, err := h.provider.VerifyWebhookSignature(body, signature, h.webhookSecret)
	if err != nil {
		h.metrics.WebhookFailed.WithLabelValues("unknown", "signature").Inc()
		h.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return RespondError(c, h.logger,
			domain.Invalid("webhook.verify", "Invalid signature"))
	}

	h.metrics.WebhookReceived.WithLabelValues(event.Type).Inc()
	h.logger.Info().
		Str("event_id", event.ID).
		Str("type", event.Type).
		Msg("webhook event received")

	switch event.Type {
	case "payment_intent.succeeded":
		return h.handlePaymentSucceeded(c, event)
	case "payment_intent.payment_failed":
		return h.handlePaymentFailed(c, event)
	default:
		h.logger.Debug().Str("type", event.Type).Msg("ignoring unhandled event type")
		return c.JSON(http.StatusOK, map[string]any{"received": true})
	}
}

func (h *WebhookHandler) handlePaymentSucceeded(c echo.Context, event *billing.WebhookEvent) error {
	orderID, err := orderIDFromEvent(event)
	if err != nil {
		h.metrics.WebhookFailed.WithLabelValues(event.Type, "decode").Inc()
		h.logger.Error().
			Str("event_id", event.ID).
			Msg("payment_intent.succeeded without order_id metadata")
		return RespondError(c, h.logger, err)
	}

	method := event.PaymentMethodType
	if method == "" {
		method = "card"
	}

	err = h.orders.ReconcileSucceeded(c.Request().Context(), domain.PaymentSucceededParams{
		EventID:       event.ID,
		OrderID:       orderID,
		AmountMinor:   event.Intent.AmountCents,
		PaymentMethod: method,
	})
	if errors.Is(err, domain.ErrInsufficientStock) {
		// A retry cannot fix this: the payment is captured at the gateway but
		// stock already ran out. The order stays unpaid and the conflict is
		// surfaced through logs and metrics for manual follow-up.
		h.metrics.WebhookFailed.WithLabelValues(event.Type, "apply").Inc()
		h.logger.Error().
			Str("event_id", event.ID).
			Int64("order_id", orderID).
			Msg("paid order rejected: insufficient stock")
		return c.JSON(http.StatusOK, map[string]any{"received": true})
	}
	if err != nil {
		h.metrics.WebhookFailed.WithLabelValues(event.Type, "apply").Inc()
		return RespondError(c, h.logger, err)
	}

	h.metrics.WebhookProcessed.WithLabelValues(event.Type).Inc()
	return c.JSON(http.StatusOK, map[string]any{"received": true})
}

func (h *WebhookHandler) handlePaymentFailed(c echo.Context, event *billing.WebhookEvent) error {
	orderID, err := orderIDFromEvent(event)
	if err != nil {
		h.metrics.WebhookFailed.WithLabelValues(event.Type, "decode").Inc()
		h.logger.Error().
			Str("event_id", event.ID).
			Msg("payment_intent.payment_failed without order_id metadata")
		return RespondError(c, h.logger, err)
	}

	err = h.orders.ReconcileFailed(c.Request().Context(), domain.PaymentFailedParams{
		EventID: event.ID,
		OrderID: orderID,
	})
	if err != nil {
		h.metrics.WebhookFailed.WithLabelValues(event.Type, "apply").Inc()
		return RespondError(c, h.logger, err)
	}

	h.metrics.WebhookProcessed.WithLabelValues(event.Type).Inc()
	return c.JSON(http.StatusOK, map[string]any{"received": true})
}

func orderIDFromEvent(event *billing.WebhookEvent) (int64, error) {
	if event.Intent == nil {
		return 0, domain.ErrMissingOrderID
	}
	raw, ok := event.Intent.Metadata["order_id"]
	if !ok {
		return 0, domain.ErrMissingOrderID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrMissingOrderID
	}
	return id, nil
}

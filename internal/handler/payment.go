package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/service"
)

// PaymentHandler serves the payment intent endpoint.
type PaymentHandler struct {
	payments service.PaymentService
	logger   zerolog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger.With().Str("component", "payment_handler").Logger(),
	}
}

// CreateIntent handles POST /api/payment/create-intent
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	var body struct {
		OrderID int64 `json:"order_id"`
	}
	if err := c.Bind(&body); err != nil || body.OrderID == 0 {
		return RespondError(c, h.logger,
			domain.Invalid("payment_handler.create_intent", "A valid order_id is required"))
	}

	result, err := h.payments.CreateIntent(c.Request().Context(), CurrentUser(c), body.OrderID)
	if err != nil {
		return RespondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"clientSecret":    result.ClientSecret,
		"paymentIntentId": result.PaymentIntentID,
	})
}

package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aya-berrouan/glowora/internal/billing"
	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/telemetry"
)

// PaymentService provides business logic for payment gateway operations
type PaymentService interface {
	// CreateIntent creates a gateway payment intent for an order the caller
	// owns and returns the client secret for frontend confirmation.
	CreateIntent(ctx context.Context, user *domain.User, orderID int64) (*PaymentIntentResult, error)
}

// PaymentIntentResult is returned to the frontend to confirm the payment.
type PaymentIntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type paymentService struct {
	orders   domain.OrderStore
	provider billing.Provider
	metrics  *telemetry.BusinessMetrics
	currency string
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService instance
func NewPaymentService(
	orders domain.OrderStore,
	provider billing.Provider,
	metrics *telemetry.BusinessMetrics,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		orders:   orders,
		provider: provider,
		metrics:  metrics,
		currency: "usd",
		logger:   logger.With().Str("component", "payment_service").Logger(),
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, user *domain.User, orderID int64) (*PaymentIntentResult, error) {
	const op = "payment_service.create_intent"

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsAdmin() {
		return nil, domain.ErrOrderNotFound
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountCents: amountMinor(order.TotalAmount),
		Currency:    s.currency,
		Description: "Order " + order.OrderNumber,
		Metadata: map[string]string{
			"order_id":     strconv.FormatInt(order.ID, 10),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		s.metrics.PaymentIntents.WithLabelValues("error").Inc()
		return nil, &domain.Error{
			Code:    domain.EPAYMENT,
			Message: "Failed to initialize payment. Please try again.",
			Op:      op,
			Err:     fmt.Errorf("create payment intent for order %d: %w", order.ID, err),
		}
	}

	s.metrics.PaymentIntents.WithLabelValues("created").Inc()

	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("payment_intent_id", intent.ID).
		Int64("amount_cents", intent.AmountCents).
		Msg("payment intent created")

	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// amountMinor converts a major unit total to minor units, rounding to the
// nearest cent.
func amountMinor(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

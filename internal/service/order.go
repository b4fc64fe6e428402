package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/notify"
	"github.com/aya-berrouan/glowora/internal/telemetry"
)

// OrderService provides business logic for order operations
type OrderService interface {
	// CreateOrder validates a checkout snapshot, persists the order with its
	// items, clears the cart, and publishes an order.created event.
	CreateOrder(ctx context.Context, user *domain.User, input CreateOrderInput) (*domain.Order, error)

	// GetOrder retrieves a single order. Non-admin callers only see their own
	// orders.
	GetOrder(ctx context.Context, user *domain.User, id int64) (*domain.Order, error)

	// ListOrders returns a filtered page of orders. Non-admin callers are
	// always scoped to their own orders.
	ListOrders(ctx context.Context, user *domain.User, input ListOrdersInput) (*domain.OrderPage, error)

	// UpdateOrderStatus changes the fulfillment status. Allowed for the order
	// owner and for admins.
	UpdateOrderStatus(ctx context.Context, user *domain.User, id int64, status string) (*domain.Order, error)

	// ReconcileSucceeded applies a verified successful payment event.
	// Duplicate deliveries are absorbed silently.
	ReconcileSucceeded(ctx context.Context, params domain.PaymentSucceededParams) error

	// ReconcileFailed applies a verified failed payment event.
	ReconcileFailed(ctx context.Context, params domain.PaymentFailedParams) error
}

// CustomCandleInput describes a configurator-built candle line.
type CustomCandleInput struct {
	ScentName      string  `json:"scent_name" validate:"required"`
	JarStyle       string  `json:"jar_style" validate:"required"`
	CustomLabel    *string `json:"custom_label"`
	GeneratedImage *string `json:"generated_image"`
}

// OrderItemInput is one cart line submitted at checkout.
type OrderItemInput struct {
	Type      string             `json:"type" validate:"required,oneof=product custom_candle"`
	ProductID *int64             `json:"product_id"`
	Quantity  int32              `json:"quantity" validate:"required,gt=0"`
	Price     decimal.Decimal    `json:"price" validate:"-"`
	Custom    *CustomCandleInput `json:"custom_details"`
}

// CreateOrderInput is the checkout payload.
type CreateOrderInput struct {
	TotalAmount     decimal.Decimal  `json:"total_amount" validate:"-"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount" validate:"-"`
	CouponCode      *string          `json:"coupon_code"`
	ShippingAddress domain.Address   `json:"shipping_address" validate:"required"`
	BillingAddress  domain.Address   `json:"billing_address" validate:"required"`
	PaymentMethod   string           `json:"payment_method" validate:"required"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// ListOrdersInput selects a page of orders.
type ListOrdersInput struct {
	Search    string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortDesc  bool
	Page      int
	PerPage   int
}

type orderService struct {
	orders   domain.OrderStore
	products domain.ProductStore
	notifier notify.Publisher
	metrics  *telemetry.BusinessMetrics
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewOrderService creates a new OrderService instance
func NewOrderService(
	orders domain.OrderStore,
	products domain.ProductStore,
	notifier notify.Publisher,
	metrics *telemetry.BusinessMetrics,
	logger zerolog.Logger,
) OrderService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report failures under the JSON field names clients actually sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &orderService{
		orders:   orders,
		products: products,
		notifier: notifier,
		metrics:  metrics,
		validate: validate,
		logger:   logger.With().Str("component", "order_service").Logger(),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, user *domain.User, input CreateOrderInput) (*domain.Order, error) {
	if err := s.validateCreateOrder(ctx, input); err != nil {
		return nil, err
	}

	params := domain.CreateOrderParams{
		UserID:          user.ID,
		OrderNumber:     generateOrderNumber(time.Now()),
		TotalAmount:     input.TotalAmount,
		DiscountAmount:  input.DiscountAmount,
		CouponCode:      input.CouponCode,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		PaymentMethod:   input.PaymentMethod,
	}
	for _, item := range input.Items {
		p := domain.OrderItemParams{
			Type:     domain.ItemType(item.Type),
			Quantity: item.Quantity,
			Price:    item.Price,
		}
		// Exactly one of ProductID and Custom survives, determined by the
		// item type. Stray fields from the client are dropped.
		switch p.Type {
		case domain.ItemTypeProduct:
			p.ProductID = item.ProductID
		case domain.ItemTypeCustomCandle:
			if item.Custom != nil {
				p.Custom = &domain.CustomCandleDetails{
					ScentName:      item.Custom.ScentName,
					JarStyle:       item.Custom.JarStyle,
					CustomLabel:    item.Custom.CustomLabel,
					GeneratedImage: item.Custom.GeneratedImage,
				}
			}
		}
		params.Items = append(params.Items, p)
	}

	order, err := s.orders.CreateOrder(ctx, params)
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.WithLabelValues(order.PaymentMethod).Inc()
	s.metrics.OrderValue.WithLabelValues(order.PaymentMethod).Observe(order.TotalAmount.InexactFloat64())
	s.metrics.OrderItemCount.WithLabelValues(order.PaymentMethod).Observe(float64(len(order.Items)))

	s.publishEvent(ctx, notify.EventOrderCreated, order)

	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("user_id", user.ID).
		Str("total_amount", order.TotalAmount.String()).
		Msg("order created")

	return order, nil
}

// validateCreateOrder applies struct tag validation plus the checks the tags
// cannot express: positive amounts and the product/custom union per item.
func (s *orderService) validateCreateOrder(ctx context.Context, input CreateOrderInput) error {
	const op = "order_service.validate"

	verr := domain.NewValidationError(op)

	if err := s.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.AddFieldError(fieldKey(fe), validationMessage(fe))
			}
		} else {
			return domain.Internal(err, op, "failed to validate order input")
		}
	}

	if input.TotalAmount.Cmp(decimal.Zero) <= 0 {
		verr.AddFieldError("total_amount", "Total amount must be greater than zero")
	}
	if input.DiscountAmount.Cmp(decimal.Zero) < 0 {
		verr.AddFieldError("discount_amount", "Discount amount cannot be negative")
	}

	for i, item := range input.Items {
		prefix := "items." + strconv.Itoa(i)

		if item.Price.Cmp(decimal.Zero) < 0 {
			verr.AddFieldError(prefix+".price", "Price cannot be negative")
		}

		switch domain.ItemType(item.Type) {
		case domain.ItemTypeProduct:
			if item.ProductID == nil {
				verr.AddFieldError(prefix+".product_id", "Product ID is required for product items")
				continue
			}
			if _, err := s.products.GetProduct(ctx, *item.ProductID); err != nil {
				if domain.ErrorCode(err) == domain.ENOTFOUND {
					verr.AddFieldError(prefix+".product_id", "The selected product does not exist")
					continue
				}
				return err
			}
		case domain.ItemTypeCustomCandle:
			if item.Custom == nil {
				verr.AddFieldError(prefix+".custom_details", "Custom details are required for custom candle items")
			}
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, user *domain.User, id int64) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsAdmin() {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, user *domain.User, input ListOrdersInput) (*domain.OrderPage, error) {
	filter := domain.OrderFilter{
		Search:    input.Search,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		SortBy:    input.SortBy,
		SortDesc:  input.SortDesc,
		Page:      input.Page,
		PerPage:   input.PerPage,
	}

	if input.Status != "" {
		status := domain.OrderStatus(input.Status)
		if !status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = &status
	}

	if !user.IsAdmin() {
		filter.UserID = &user.ID
	}

	return s.orders.ListOrders(ctx, filter)
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, user *domain.User, id int64, status string) (*domain.Order, error) {
	const op = "order_service.update_status"

	next := domain.OrderStatus(status)
	if !next.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsAdmin() {
		return nil, domain.Forbidden(op, "You are not allowed to modify this order")
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", id).
		Str("status", status).
		Int64("actor_id", user.ID).
		Msg("order status updated")

	return updated, nil
}

func (s *orderService) ReconcileSucceeded(ctx context.Context, params domain.PaymentSucceededParams) error {
	err := s.orders.ApplyPaymentSucceeded(ctx, params)
	if errors.Is(err, domain.ErrEventAlreadyProcessed) {
		s.logger.Info().
			Str("event_id", params.EventID).
			Int64("order_id", params.OrderID).
			Msg("duplicate payment event ignored")
		return nil
	}
	if errors.Is(err, domain.ErrInsufficientStock) {
		s.metrics.StockConflicts.Inc()
		return err
	}
	if err != nil {
		return err
	}

	s.metrics.PaymentSucceeded.Inc()

	if order, getErr := s.orders.GetOrder(ctx, params.OrderID); getErr == nil {
		s.publishEvent(ctx, notify.EventOrderPaid, order)
	}

	s.logger.Info().
		Str("event_id", params.EventID).
		Int64("order_id", params.OrderID).
		Int64("amount_minor", params.AmountMinor).
		Msg("payment reconciled as succeeded")

	return nil
}

func (s *orderService) ReconcileFailed(ctx context.Context, params domain.PaymentFailedParams) error {
	err := s.orders.ApplyPaymentFailed(ctx, params)
	if errors.Is(err, domain.ErrEventAlreadyProcessed) {
		s.logger.Info().
			Str("event_id", params.EventID).
			Int64("order_id", params.OrderID).
			Msg("duplicate payment event ignored")
		return nil
	}
	if err != nil {
		return err
	}

	s.metrics.PaymentFailed.Inc()

	if order, getErr := s.orders.GetOrder(ctx, params.OrderID); getErr == nil {
		s.publishEvent(ctx, notify.EventOrderPaymentFailed, order)
	}

	s.logger.Info().
		Str("event_id", params.EventID).
		Int64("order_id", params.OrderID).
		Msg("payment reconciled as failed")

	return nil
}

// publishEvent emits an order lifecycle event. Failures are logged, never
// surfaced to the caller.
func (s *orderService) publishEvent(ctx context.Context, event string, order *domain.Order) {
	err := s.notifier.Publish(ctx, notify.OrderEvent{
		Event:       event,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now(),
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("event", event).
			Int64("order_id", order.ID).
			Msg("failed to publish order event")
	}
}

// generateOrderNumber builds a human-readable order number: GLW, the date as
// yymmdd, and a random four digit suffix. Numbers are not guaranteed unique;
// orders are addressed by id everywhere that matters.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("GLW%s%04d", now.Format("060102"), rand.IntN(10000))
}

// fieldKey converts a validator namespace like
// "CreateOrderInput.items[0].type" into "items.0.type". Field names are
// already JSON names via the registered tag name func; the uppercase branch
// only fires for untagged fields.
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := indexAfterDot(ns); idx >= 0 {
		ns = ns[idx:]
	}

	out := make([]byte, 0, len(ns))
	for i := 0; i < len(ns); i++ {
		c := ns[i]
		switch {
		case c == '[':
			out = append(out, '.')
		case c == ']':
		case c >= 'A' && c <= 'Z':
			if i > 0 && ns[i-1] != '.' && ns[i-1] != '[' {
				out = append(out, '_')
			}
			out = append(out, c+'a'-'A')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// indexAfterDot returns the position right after the first dot, skipping the
// root struct name.
func indexAfterDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i + 1
		}
	}
	return -1
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "At least " + fe.Param() + " item is required"
	case "gt":
		return "Must be greater than " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}

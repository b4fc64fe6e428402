package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks the fulfillment lifecycle of an order.
// It is independent of PaymentStatus: status tracks fulfillment
// (pending -> processing -> shipped/cancelled), payment_status tracks money.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known fulfillment status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks the money lifecycle of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// ItemType discriminates the two order line variants: a catalog product
// reference, or a configurator-built custom candle.
type ItemType string

const (
	ItemTypeProduct      ItemType = "product"
	ItemTypeCustomCandle ItemType = "custom_candle"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeProduct || t == ItemTypeCustomCandle
}

// CustomCandleDetails describes a configurator-built candle. ScentName and
// JarStyle are required; the label and generated image reference are optional.
type CustomCandleDetails struct {
	ScentName      string  `json:"scent_name"`
	JarStyle       string  `json:"jar_style"`
	CustomLabel    *string `json:"custom_label,omitempty"`
	GeneratedImage *string `json:"generated_image,omitempty"`
}

// Address is a structured shipping or billing address, validated at the
// boundary and stored as JSON.
type Address struct {
	Name       string `json:"name" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone,omitempty"`
}

// OrderItem is a single order line. Exactly one of ProductID and Custom is
// populated, determined by Type. Price is the unit price snapshot taken at
// order time; Subtotal is price * quantity, computed at creation and stored,
// never recomputed from the live catalog.
type OrderItem struct {
	ID        int64                `json:"id"`
	OrderID   int64                `json:"-"`
	Type      ItemType             `json:"type"`
	Quantity  int32                `json:"quantity"`
	Price     decimal.Decimal      `json:"price"`
	Subtotal  decimal.Decimal      `json:"subtotal"`
	ProductID *int64               `json:"product_id,omitempty"`
	Custom    *CustomCandleDetails `json:"custom_details,omitempty"`

	// ProductName and ImageURL are denormalized from the catalog for display.
	ProductName string `json:"name,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the customer-facing name for the line item.
func (i OrderItem) DisplayName() string {
	if i.Type == ItemTypeCustomCandle && i.Custom != nil {
		return fmt.Sprintf("Custom Candle - %s (%s)", i.Custom.JarStyle, i.Custom.ScentName)
	}
	return i.ProductName
}

// Order is a persisted order with its line items. TotalAmount is taken from
// the client snapshot at creation and never recomputed server-side.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	OrderNumber     string          `json:"order_number"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	CouponCode      *string         `json:"coupon_code,omitempty"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingAddress  Address         `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	Items           []OrderItem     `json:"order_items,omitempty"`
	Customer        *User           `json:"user,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Payment is an append-only ledger row recorded when the gateway confirms a
// payment. PaymentAmount is the gateway's minor-unit amount converted back to
// major units.
type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Order-related domain errors.
var (
	ErrOrderNotFound         = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrInsufficientStock     = &Error{Code: ECONFLICT, Message: "Insufficient stock for one or more items"}
	ErrEventAlreadyProcessed = &Error{Code: ECONFLICT, Message: "Webhook event already processed"}
	ErrMissingOrderID        = &Error{Code: EINVALID, Message: "Order ID missing from payment metadata"}
	ErrInvalidStatus         = &Error{Code: EINVALID, Message: "Unknown order status"}
)

// OrderItemParams is one line of a cart snapshot submitted for order creation.
type OrderItemParams struct {
	Type      ItemType
	Quantity  int32
	Price     decimal.Decimal
	ProductID *int64
	Custom    *CustomCandleDetails
}

// CreateOrderParams carries a validated cart snapshot into the store.
// Subtotals are recomputed by the store as price * quantity regardless of
// anything the client asserted.
type CreateOrderParams struct {
	UserID          int64
	OrderNumber     string
	TotalAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponCode      *string
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   string
	Items           []OrderItemParams
}

// OrderFilter selects and orders a page of orders.
// A nil UserID means no ownership scoping (privileged callers only).
type OrderFilter struct {
	UserID    *int64
	Search    string
	Status    *OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortDesc  bool
	Page      int
	PerPage   int
}

// OrderPage is one page of a filtered order listing.
type OrderPage struct {
	Orders      []Order
	Total       int64
	PerPage     int
	CurrentPage int
	LastPage    int
}

// PaymentSucceededParams applies a verified payment_intent.succeeded event.
type PaymentSucceededParams struct {
	// EventID is the gateway event id, used for delivery de-duplication.
	EventID string

	OrderID int64

	// AmountMinor is the gateway-reported amount in minor currency units.
	AmountMinor int64

	PaymentMethod string
}

// PaymentFailedParams applies a verified payment_intent.payment_failed event.
type PaymentFailedParams struct {
	EventID string
	OrderID int64
}

// OrderStore is the persistence boundary for orders. Every mutating method is
// atomic: either all of its writes commit or none do.
type OrderStore interface {
	// CreateOrder inserts the order and its items and clears the user's cart
	// rows in a single transaction.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)

	// GetOrder returns the order with items and customer, or ErrOrderNotFound.
	GetOrder(ctx context.Context, id int64) (*Order, error)

	// ListOrders returns a filtered, sorted, paginated page of orders.
	ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error)

	// UpdateOrderStatus sets the fulfillment status and returns the updated
	// order.
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error)

	// ApplyPaymentSucceeded transitions the order to paid/processing, records
	// a payment ledger row, and decrements stock for every product line, all
	// in one transaction. Returns ErrEventAlreadyProcessed when the event id
	// was seen before, ErrInsufficientStock when any decrement would drive
	// stock negative (in which case nothing is committed, including the
	// payment-status update), and ErrOrderNotFound when the order is unknown.
	ApplyPaymentSucceeded(ctx context.Context, params PaymentSucceededParams) error

	// ApplyPaymentFailed transitions the order to cancelled/failed. Applying
	// the same terminal transition twice yields the same final state.
	ApplyPaymentFailed(ctx context.Context, params PaymentFailedParams) error
}

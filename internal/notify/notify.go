// Package notify publishes order lifecycle events for downstream consumers
// (email receipts, fulfillment, analytics). Publishing is best effort: a
// failed publish never fails the request that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventOrderCreated is published after an order commits.
const EventOrderCreated = "order.created"

// EventOrderPaid is published after a successful payment reconciles.
const EventOrderPaid = "order.paid"

// EventOrderPaymentFailed is published after a failed payment reconciles.
const EventOrderPaymentFailed = "order.payment_failed"

// OrderEvent is the payload published for every order lifecycle event.
type OrderEvent struct {
	Event       string          `json:"event"`
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Publisher emits order lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error

	// Close releases the underlying connection.
	Close()
}

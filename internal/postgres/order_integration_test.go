//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aya-berrouan/glowora/internal"
	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/postgres"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/postgres/

func newTestStore(t *testing.T) (*postgres.OrderStore, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, internal.RunMigrations(postgres.StdDB(pool)))

	_, err = pool.Exec(ctx, `
		TRUNCATE webhook_events, payments, order_items, orders, carts, sessions, products, users
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return postgres.NewOrderStore(pool), pool
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedUser(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (name, email, password_hash)
		VALUES ('Jamie Doe', 'jamie@example.com', 'x') RETURNING id`,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, stock int32) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO products (name, price, stock, active)
		VALUES ('Lavender Dreams', 24.99, $1, true) RETURNING id`,
		stock,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func orderParams(userID, productID int64, quantity int32) domain.CreateOrderParams {
	address := domain.Address{
		Name:       "Jamie Doe",
		Line1:      "12 Rue des Lilas",
		City:       "Lyon",
		PostalCode: "69003",
		Country:    "FR",
	}
	return domain.CreateOrderParams{
		UserID:          userID,
		OrderNumber:     "GLW2509010042",
		TotalAmount:     dec("69.97"),
		DiscountAmount:  decimal.Zero,
		ShippingAddress: address,
		BillingAddress:  address,
		PaymentMethod:   "card",
		Items: []domain.OrderItemParams{
			{Type: domain.ItemTypeProduct, Quantity: quantity, Price: dec("24.99"), ProductID: &productID},
			{Type: domain.ItemTypeCustomCandle, Quantity: 1, Price: dec("19.99"), Custom: &domain.CustomCandleDetails{
				ScentName: "Amber Noir",
				JarStyle:  "matte black",
			}},
		},
	}
}

func TestCreateOrder_Postgres(t *testing.T) {
	store, pool := newTestStore(t)
	ctx := context.Background()

	userID := seedUser(t, pool)
	productID := seedProduct(t, pool, 10)

	_, err := pool.Exec(ctx, `
		INSERT INTO carts (user_id, item_type, product_id, quantity)
		VALUES ($1, 'product', $2, 2)`,
		userID, productID,
	)
	require.NoError(t, err)

	order, err := store.CreateOrder(ctx, orderParams(userID, productID, 2))
	require.NoError(t, err)
	require.NotZero(t, order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)

	// Subtotals are recomputed from price and quantity, never taken from the
	// client snapshot.
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].Subtotal.Equal(dec("49.98")),
		"subtotal = %s", order.Items[0].Subtotal)
	assert.True(t, order.Items[1].Subtotal.Equal(dec("19.99")),
		"subtotal = %s", order.Items[1].Subtotal)

	var cartRows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM carts WHERE user_id = $1`, userID).Scan(&cartRows))
	assert.Zero(t, cartRows, "cart must be cleared in the same transaction")

	fetched, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 2)
	require.NotNil(t, fetched.Items[1].Custom)
	assert.Equal(t, "Amber Noir", fetched.Items[1].Custom.ScentName)
	require.NotNil(t, fetched.Customer)
	assert.Equal(t, "jamie@example.com", fetched.Customer.Email)
}

func TestApplyPaymentSucceeded_Postgres(t *testing.T) {
	store, pool := newTestStore(t)
	ctx := context.Background()

	userID := seedUser(t, pool)
	productID := seedProduct(t, pool, 10)
	order, err := store.CreateOrder(ctx, orderParams(userID, productID, 2))
	require.NoError(t, err)

	params := domain.PaymentSucceededParams{
		EventID:       "evt_1",
		OrderID:       order.ID,
		AmountMinor:   6997,
		PaymentMethod: "card",
	}
	require.NoError(t, store.ApplyPaymentSucceeded(ctx, params))

	var (
		status        domain.OrderStatus
		paymentStatus domain.PaymentStatus
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status, payment_status FROM orders WHERE id = $1`, order.ID,
	).Scan(&status, &paymentStatus))
	assert.Equal(t, domain.OrderStatusProcessing, status)
	assert.Equal(t, domain.PaymentStatusPaid, paymentStatus)

	var amount decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT payment_amount FROM payments WHERE order_id = $1`, order.ID).Scan(&amount))
	assert.True(t, amount.Equal(dec("69.97")), "payment_amount = %s", amount)

	var stock int32
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	assert.Equal(t, int32(8), stock)

	// Replaying the same event must not decrement stock a second time.
	err = store.ApplyPaymentSucceeded(ctx, params)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)

	require.NoError(t, pool.QueryRow(ctx,
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	assert.Equal(t, int32(8), stock)

	var paymentRows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE order_id = $1`, order.ID).Scan(&paymentRows))
	assert.Equal(t, 1, paymentRows)
}

func TestApplyPaymentSucceeded_Postgres_StockConflictRollsBack(t *testing.T) {
	store, pool := newTestStore(t)
	ctx := context.Background()

	userID := seedUser(t, pool)
	productID := seedProduct(t, pool, 1)
	order, err := store.CreateOrder(ctx, orderParams(userID, productID, 2))
	require.NoError(t, err)

	err = store.ApplyPaymentSucceeded(ctx, domain.PaymentSucceededParams{
		EventID:       "evt_conflict",
		OrderID:       order.ID,
		AmountMinor:   6997,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The whole transaction rolls back: no status change, no payment row,
	// no stock change, and the event claim is released.
	var (
		status        domain.OrderStatus
		paymentStatus domain.PaymentStatus
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status, payment_status FROM orders WHERE id = $1`, order.ID,
	).Scan(&status, &paymentStatus))
	assert.Equal(t, domain.OrderStatusPending, status)
	assert.Equal(t, domain.PaymentStatusPending, paymentStatus)

	var paymentRows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE order_id = $1`, order.ID).Scan(&paymentRows))
	assert.Zero(t, paymentRows)

	var stock int32
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	assert.Equal(t, int32(1), stock)

	var eventRows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM webhook_events WHERE event_id = 'evt_conflict'`).Scan(&eventRows))
	assert.Zero(t, eventRows)
}

func TestApplyPaymentSucceeded_Postgres_UnknownOrder(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.ApplyPaymentSucceeded(context.Background(), domain.PaymentSucceededParams{
		EventID:       "evt_orphan",
		OrderID:       99999,
		AmountMinor:   100,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestApplyPaymentFailed_Postgres(t *testing.T) {
	store, pool := newTestStore(t)
	ctx := context.Background()

	userID := seedUser(t, pool)
	productID := seedProduct(t, pool, 10)
	order, err := store.CreateOrder(ctx, orderParams(userID, productID, 2))
	require.NoError(t, err)

	params := domain.PaymentFailedParams{EventID: "evt_failed", OrderID: order.ID}
	require.NoError(t, store.ApplyPaymentFailed(ctx, params))

	var (
		status        domain.OrderStatus
		paymentStatus domain.PaymentStatus
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status, payment_status FROM orders WHERE id = $1`, order.ID,
	).Scan(&status, &paymentStatus))
	assert.Equal(t, domain.OrderStatusCancelled, status)
	assert.Equal(t, domain.PaymentStatusFailed, paymentStatus)

	err = store.ApplyPaymentFailed(ctx, params)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
}

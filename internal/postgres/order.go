package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aya-berrouan/glowora/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

// Compile-time check that OrderStore implements domain.OrderStore.
var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates a new PostgreSQL-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateOrder inserts the order with its items and clears the user's cart in
// a single transaction. Item subtotals are recomputed from price and quantity
// here, regardless of what the client submitted.
func (s *OrderStore) CreateOrder(ctx context.Context, params domain.CreateOrderParams) (*domain.Order, error) {
	const op = "order.create"

	shippingJSON, err := json.Marshal(params.ShippingAddress)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode shipping address")
	}
	billingJSON, err := json.Marshal(params.BillingAddress)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode billing address")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	order := &domain.Order{
		UserID:          params.UserID,
		OrderNumber:     params.OrderNumber,
		TotalAmount:     params.TotalAmount,
		DiscountAmount:  params.DiscountAmount,
		CouponCode:      params.CouponCode,
		ShippingAddress: params.ShippingAddress,
		BillingAddress:  params.BillingAddress,
		PaymentMethod:   params.PaymentMethod,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, order_number, total_amount, discount_amount, coupon_code,
			shipping_address, billing_address, payment_method, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		params.UserID, params.OrderNumber, params.TotalAmount, params.DiscountAmount,
		params.CouponCode, shippingJSON, billingJSON, params.PaymentMethod,
		domain.OrderStatusPending, domain.PaymentStatusPending,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to insert order")
	}

	for _, item := range params.Items {
		subtotal := item.Price.Mul(decimal.NewFromInt32(item.Quantity))

		var customJSON []byte
		if item.Custom != nil {
			customJSON, err = json.Marshal(item.Custom)
			if err != nil {
				return nil, domain.Internal(err, op, "failed to encode custom details")
			}
		}

		row := domain.OrderItem{
			OrderID:   order.ID,
			Type:      item.Type,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  subtotal,
			ProductID: item.ProductID,
			Custom:    item.Custom,
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, item_type, product_id, quantity, price, subtotal, custom_details)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`,
			order.ID, item.Type, item.ProductID, item.Quantity, item.Price, subtotal, customJSON,
		).Scan(&row.ID, &row.CreatedAt)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to insert order item")
		}

		if item.Type == domain.ItemTypeProduct && item.ProductID != nil {
			err = tx.QueryRow(ctx,
				`SELECT name, image_url FROM products WHERE id = $1`, *item.ProductID,
			).Scan(&row.ProductName, &row.ImageURL)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.Internal(err, op, "failed to load product for order item")
			}
		}

		order.Items = append(order.Items, row)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, params.UserID); err != nil {
		return nil, domain.Internal(err, op, "failed to clear cart")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, op, "failed to commit transaction")
	}

	return order, nil
}

// GetOrder returns the order with its items and customer.
func (s *OrderStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	const op = "order.get"

	rows, err := s.pool.Query(ctx, selectOrderSQL+` WHERE o.id = $1`, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to query order")
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to scan order")
	}
	if len(orders) == 0 {
		return nil, domain.ErrOrderNotFound
	}

	order := &orders[0]
	if err := s.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, domain.Internal(err, op, "failed to load order items")
	}

	return order, nil
}

// ListOrders returns a filtered, sorted page of orders with their items.
func (s *OrderStore) ListOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	const op = "order.list"

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 10
	}

	where := sq.And{}
	if filter.UserID != nil {
		where = append(where, sq.Eq{"o.user_id": *filter.UserID})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"o.status": *filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, sq.Or{
			sq.ILike{"o.order_number": pattern},
			sq.ILike{"u.name": pattern},
			sq.ILike{"u.email": pattern},
		})
	}
	if filter.StartDate != nil {
		where = append(where, sq.GtOrEq{"o.created_at": *filter.StartDate})
	}
	if filter.EndDate != nil {
		where = append(where, sq.LtOrEq{"o.created_at": *filter.EndDate})
	}

	countQuery := s.qb.Select("COUNT(*)").
		From("orders o").
		Join("users u ON u.id = o.user_id")
	if len(where) > 0 {
		countQuery = countQuery.Where(where)
	}

	sql, args, err := countQuery.ToSql()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to build count query")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, domain.Internal(err, op, "failed to count orders")
	}

	listQuery := s.qb.Select(
		"o.id", "o.user_id", "o.order_number", "o.total_amount", "o.discount_amount",
		"o.coupon_code", "o.shipping_address", "o.billing_address", "o.payment_method",
		"o.status", "o.payment_status", "o.created_at", "o.updated_at",
		"u.id", "u.name", "u.email", "u.role", "u.created_at",
	).
		From("orders o").
		Join("users u ON u.id = o.user_id").
		OrderBy(orderByClause(filter.SortBy, filter.SortDesc)).
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage))
	if len(where) > 0 {
		listQuery = listQuery.Where(where)
	}

	sql, args, err = listQuery.ToSql()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to build list query")
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to query orders")
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to scan orders")
	}

	refs := make([]*domain.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := s.loadItems(ctx, refs); err != nil {
		return nil, domain.Internal(err, op, "failed to load order items")
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	return &domain.OrderPage{
		Orders:      orders,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}, nil
}

// UpdateOrderStatus sets the fulfillment status and returns the updated order.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	const op = "order.update_status"

	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrOrderNotFound
	}

	return s.GetOrder(ctx, id)
}

// ApplyPaymentSucceeded records a confirmed payment in one transaction: the
// event id is claimed for de-duplication, the order row is locked and moved
// to paid/processing, a payment ledger row is written, and stock is
// decremented for every product line. Any decrement that would drive stock
// negative aborts the whole transaction, including the status update.
func (s *OrderStore) ApplyPaymentSucceeded(ctx context.Context, params domain.PaymentSucceededParams) error {
	const op = "order.apply_payment_succeeded"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	claimed, err := claimEvent(ctx, tx, params.EventID)
	if err != nil {
		return domain.Internal(err, op, "failed to record webhook event")
	}
	if !claimed {
		return domain.ErrEventAlreadyProcessed
	}

	if err := lockOrder(ctx, tx, params.OrderID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET payment_status = $1, status = $2, updated_at = now() WHERE id = $3`,
		domain.PaymentStatusPaid, domain.OrderStatusProcessing, params.OrderID,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update order payment status")
	}

	amount := decimal.NewFromInt(params.AmountMinor).Div(decimal.NewFromInt(100))
	_, err = tx.Exec(ctx,
		`INSERT INTO payments (order_id, payment_method, payment_amount) VALUES ($1, $2, $3)`,
		params.OrderID, params.PaymentMethod, amount,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to insert payment record")
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity FROM order_items
		WHERE order_id = $1 AND item_type = $2 AND product_id IS NOT NULL`,
		params.OrderID, domain.ItemTypeProduct,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to query order items")
	}

	type line struct {
		productID int64
		quantity  int32
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return domain.Internal(err, op, "failed to scan order item")
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Internal(err, op, "failed to read order items")
	}

	for _, l := range lines {
		tag, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $1, updated_at = now() WHERE id = $2 AND stock >= $1`,
			l.quantity, l.productID,
		)
		if err != nil {
			return domain.Internal(err, op, "failed to decrement stock")
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInsufficientStock
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, op, "failed to commit transaction")
	}

	return nil
}

// ApplyPaymentFailed marks the order cancelled with a failed payment. The
// transition is terminal, so replays land on the same state.
func (s *OrderStore) ApplyPaymentFailed(ctx context.Context, params domain.PaymentFailedParams) error {
	const op = "order.apply_payment_failed"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	claimed, err := claimEvent(ctx, tx, params.EventID)
	if err != nil {
		return domain.Internal(err, op, "failed to record webhook event")
	}
	if !claimed {
		return domain.ErrEventAlreadyProcessed
	}

	if err := lockOrder(ctx, tx, params.OrderID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET payment_status = $1, status = $2, updated_at = now() WHERE id = $3`,
		domain.PaymentStatusFailed, domain.OrderStatusCancelled, params.OrderID,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update order payment status")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, op, "failed to commit transaction")
	}

	return nil
}

// claimEvent records the event id, returning false when it was already seen.
func claimEvent(ctx context.Context, tx pgx.Tx, eventID string) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO webhook_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`,
		eventID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// lockOrder takes a row lock on the order for the rest of the transaction.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Internal(err, "order.lock", "failed to lock order row")
	}
	return nil
}

const selectOrderSQL = `
	SELECT o.id, o.user_id, o.order_number, o.total_amount, o.discount_amount,
		o.coupon_code, o.shipping_address, o.billing_address, o.payment_method,
		o.status, o.payment_status, o.created_at, o.updated_at,
		u.id, u.name, u.email, u.role, u.created_at
	FROM orders o
	JOIN users u ON u.id = o.user_id`

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o            domain.Order
			u            domain.User
			shippingJSON []byte
			billingJSON  []byte
		)
		err := rows.Scan(
			&o.ID, &o.UserID, &o.OrderNumber, &o.TotalAmount, &o.DiscountAmount,
			&o.CouponCode, &shippingJSON, &billingJSON, &o.PaymentMethod,
			&o.Status, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt,
			&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address for order %d: %w", o.ID, err)
		}
		if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
			return nil, fmt.Errorf("decode billing address for order %d: %w", o.ID, err)
		}
		o.Customer = &u
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// loadItems attaches line items (with denormalized product name and image)
// to every order in the slice.
func (s *OrderStore) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.order_id, i.item_type, i.product_id, i.quantity, i.price,
			i.subtotal, i.custom_details, i.created_at,
			COALESCE(p.name, ''), COALESCE(p.image_url, '')
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       domain.OrderItem
			customJSON []byte
		)
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.Type, &item.ProductID, &item.Quantity,
			&item.Price, &item.Subtotal, &customJSON, &item.CreatedAt,
			&item.ProductName, &item.ImageURL,
		)
		if err != nil {
			return err
		}
		if len(customJSON) > 0 {
			var custom domain.CustomCandleDetails
			if err := json.Unmarshal(customJSON, &custom); err != nil {
				return fmt.Errorf("decode custom details for item %d: %w", item.ID, err)
			}
			item.Custom = &custom
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

// orderByClause maps a client-supplied sort key onto an allowed column.
// Unknown keys fall back to creation time.
func orderByClause(sortBy string, desc bool) string {
	col := "o.created_at"
	switch sortBy {
	case "total_amount":
		col = "o.total_amount"
	case "order_number":
		col = "o.order_number"
	case "status":
		col = "o.status"
	case "created_at":
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

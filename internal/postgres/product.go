package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aya-berrouan/glowora/internal/domain"
)

// ProductStore implements domain.ProductStore using PostgreSQL.
type ProductStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that ProductStore implements domain.ProductStore.
var _ domain.ProductStore = (*ProductStore)(nil)

// NewProductStore creates a new PostgreSQL-backed product store.
func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// GetProduct returns the product or domain.ErrProductNotFound.
func (s *ProductStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "product.get"

	var p domain.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, price, stock, image_url, category, active
		FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.Category, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to get product")
	}
	return &p, nil
}

// ListProducts returns all active products.
func (s *ProductStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "product.list"

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, price, stock, image_url, category, active
		FROM products WHERE active ORDER BY name`,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.Category, &p.Active)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read products")
	}
	return products, nil
}

package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Stock is a hard floor: reconciliation refuses
// any decrement that would drive it negative.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock"`
	ImageURL    string          `json:"image_url,omitempty"`
	Category    string          `json:"category,omitempty"`
	Active      bool            `json:"active"`
}

var ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}

// ProductStore is the persistence boundary for the catalog.
type ProductStore interface {
	// GetProduct returns the product or ErrProductNotFound.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// ListProducts returns all active products.
	ListProducts(ctx context.Context) ([]Product, error)
}

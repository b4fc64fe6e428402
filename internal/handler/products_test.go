package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aya-berrouan/glowora/internal/domain"
)

type fakeProductStore struct {
	products map[int64]*domain.Product
}

func (f *fakeProductStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, domain.ErrProductNotFound
}

func (f *fakeProductStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func TestProductHandler_ListProducts(t *testing.T) {
	store := &fakeProductStore{products: map[int64]*domain.Product{
		1: {ID: 1, Name: "Lavender Dreams", Price: decimal.NewFromFloat(24.99), Stock: 10, Active: true},
	}}
	h := NewProductHandler(store, zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ListProducts(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success  bool             `json:"success"`
		Products []domain.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Products, 1)
}

func TestProductHandler_GetProduct(t *testing.T) {
	store := &fakeProductStore{products: map[int64]*domain.Product{
		1: {ID: 1, Name: "Lavender Dreams", Price: decimal.NewFromFloat(24.99), Stock: 10, Active: true},
	}}
	h := NewProductHandler(store, zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/products/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.GetProduct(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/products/99", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("99")
	require.NoError(t, h.GetProduct(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

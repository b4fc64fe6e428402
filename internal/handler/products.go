package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aya-berrouan/glowora/internal/domain"
)

// ProductHandler serves the public catalog.
type ProductHandler struct {
	products domain.ProductStore
	logger   zerolog.Logger
}

func NewProductHandler(products domain.ProductStore, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger.With().Str("component", "product_handler").Logger(),
	}
}

// GetProduct handles GET /api/products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return RespondError(c, h.logger,
			domain.Invalid("product_handler.get", "Invalid product ID"))
	}

	product, err := h.products.GetProduct(c.Request().Context(), id)
	if err != nil {
		return RespondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"product": product,
	})
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(c echo.Context) error {
	products, err := h.products.ListProducts(c.Request().Context())
	if err != nil {
		return RespondError(c, h.logger, err)
	}
	if products == nil {
		products = []domain.Product{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"products": products,
	})
}

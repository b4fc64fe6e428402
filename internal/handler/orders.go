package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/service"
)

// OrderHandler serves the order endpoints.
type OrderHandler struct {
	orders service.OrderService
	logger zerolog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger.With().Str("component", "order_handler").Logger(),
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var input service.CreateOrderInput
	if err := c.Bind(&input); err != nil {
		return RespondError(c, h.logger,
			domain.Invalid("order_handler.create", "Invalid request body"))
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), CurrentUser(c), input)
	if err != nil {
		return RespondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetOrder handles GET /api/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return RespondError(c, h.logger,
			domain.Invalid("order_handler.get", "Invalid order ID"))
	}

	order, err := h.orders.GetOrder(c.Request().Context(), CurrentUser(c), id)
	if err != nil {
		return RespondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	input := service.ListOrdersInput{
		Search:   c.QueryParam("search"),
		Status:   c.QueryParam("status"),
		SortBy:   c.QueryParam("sort_by"),
		SortDesc: c.QueryParam("sort_dir") != "asc",
	}

	input.Page, _ = strconv.Atoi(c.QueryParam("page"))
	input.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))

	var err error
	if input.StartDate, err = parseDateParam(c.QueryParam("start_date")); err != nil {
		return RespondError(c, h.logger,
			domain.Invalid("order_handler.list", "Invalid start_date"))
	}
	if input.EndDate, err = parseDateParam(c.QueryParam("end_date")); err != nil {
		return RespondError(c, h.logger,
			domain.Invalid("order_handler.list", "Invalid end_date"))
	}

	page, err := h.orders.ListOrders(c.Request().Context(), CurrentUser(c), input)
	if err != nil {
		return RespondError(c, h.logger, err)
	}

	orders := page.Orders
	if orders == nil {
		orders = []domain.Order{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"orders":       orders,
		"total":        page.Total,
		"per_page":     page.PerPage,
		"current_page": page.CurrentPage,
		"last_page":    page.LastPage,
	})
}

// UpdateStatus handles PATCH /api/orders/:id/status
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return RespondError(c, h.logger,
			domain.Invalid("order_handler.update_status", "Invalid order ID"))
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return RespondError(c, h.logger,
			domain.Invalid("order_handler.update_status", "Invalid request body"))
	}

	order, err := h.orders.UpdateOrderStatus(c.Request().Context(), CurrentUser(c), id, body.Status)
	if err != nil {
		return RespondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Order status updated",
		"order":   order,
	})
}

// parseDateParam accepts a date ("2006-01-02") or an RFC 3339 timestamp.
func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

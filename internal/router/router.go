package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aya-berrouan/glowora/internal/handler"
	"github.com/aya-berrouan/glowora/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Webhooks *handler.WebhookHandler
	Products *handler.ProductHandler
	Auth     *middleware.Auth
}

// New builds the echo instance with all routes and middleware registered.
func New(h Handlers, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	api.GET("/products", h.Products.ListProducts)
	api.GET("/products/:id", h.Products.GetProduct)

	// Gateway callbacks authenticate with a signature, not a session.
	api.POST("/payment/webhook", h.Webhooks.HandleStripeWebhook)

	authed := api.Group("", h.Auth.RequireUser())
	authed.POST("/orders", h.Orders.CreateOrder)
	authed.GET("/orders", h.Orders.ListOrders)
	authed.GET("/orders/:id", h.Orders.GetOrder)
	authed.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
	authed.POST("/payment/create-intent", h.Payments.CreateIntent)

	// Admin dashboard surface. The listing handler is shared: the service
	// leaves admin queries unscoped.
	admin := authed.Group("/admin", h.Auth.RequireAdmin())
	admin.GET("/orders", h.Orders.ListOrders)

	return e
}

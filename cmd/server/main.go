package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aya-berrouan/glowora/internal"
	"github.com/aya-berrouan/glowora/internal/billing"
	"github.com/aya-berrouan/glowora/internal/handler"
	"github.com/aya-berrouan/glowora/internal/middleware"
	"github.com/aya-berrouan/glowora/internal/notify"
	"github.com/aya-berrouan/glowora/internal/postgres"
	"github.com/aya-berrouan/glowora/internal/router"
	"github.com/aya-berrouan/glowora/internal/service"
	"github.com/aya-berrouan/glowora/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Connect database
	logger.Info().Msg("Connecting to database...")
	pool, err := postgres.NewPool(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("Database connection established")

	// Run migrations
	logger.Info().Msg("Running database migrations...")
	sqlDB := postgres.StdDB(pool)
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info().Msg("Database migrations completed successfully")

	// Initialize stores
	orderStore := postgres.NewOrderStore(pool)
	productStore := postgres.NewProductStore(pool)
	userStore := postgres.NewUserStore(pool)

	// Initialize Stripe billing provider
	billingProvider := billing.NewStripeProvider(cfg.Stripe.SecretKey)
	logger.Info().Msg("Stripe billing provider initialized")

	// Initialize event publisher
	var notifier notify.Publisher = notify.NoopPublisher{}
	if cfg.Nats.URL != "" {
		natsPublisher, err := notify.NewNatsPublisher(ctx, cfg.Nats.URL, cfg.Nats.Stream)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		notifier = natsPublisher
		logger.Info().Str("stream", cfg.Nats.Stream).Msg("Event publisher initialized")
	} else {
		logger.Warn().Msg("NATS_URL not set, order events disabled")
	}
	defer notifier.Close()

	// Initialize metrics
	metrics := telemetry.NewBusinessMetrics("glowora")

	// Initialize services
	orderService := service.NewOrderService(orderStore, productStore, notifier, metrics, logger)
	paymentService := service.NewPaymentService(orderStore, billingProvider, metrics, logger)

	// Build router
	e := router.New(router.Handlers{
		Orders:   handler.NewOrderHandler(orderService, logger),
		Payments: handler.NewPaymentHandler(paymentService, logger),
		Webhooks: handler.NewWebhookHandler(orderService, billingProvider, cfg.Stripe.WebhookSecret, metrics, logger),
		Products: handler.NewProductHandler(productStore, logger),
		Auth:     middleware.NewAuth(userStore, logger),
	}, logger)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("Starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

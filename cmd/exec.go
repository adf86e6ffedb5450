package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/shopspring/decimal"

	"tour-booking/config"
	"tour-booking/internal/geo"
	"tour-booking/internal/handlers"
	"tour-booking/internal/services"
	"tour-booking/internal/services/gateway"
	"tour-booking/internal/store"
	"tour-booking/monitoring"
	"tour-booking/security"
	"tour-booking/utils"

	_ "tour-booking/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the payment gateway. Development setups without gateway
	// credentials run with capture notifications disabled; the reconciler
	// rejects refunds that would need the missing provider, so most dev
	// flows seed confirmed bookings directly.
	var provider gateway.Provider
	if cfg.Gateway.BaseURL != "" {
		factory := gateway.NewFactory()
		p, err := factory.Create(ctx, gateway.ProviderYesPay, &cfg.Gateway)
		if err != nil {
			return err
		}
		provider = p
		defer provider.Close(ctx)
	}

	// Initialize stores
	bookings := store.NewPBBookings(app)
	payments := store.NewPBPayments(app)
	hotels := store.NewPBHotels(app)
	points := store.NewPBMeetingPoints(app)
	catalog := store.NewPBTourCatalog(app)

	// Initialize services
	paymentService := services.NewPaymentService(payments, provider)
	bookingService := services.NewBookingService(bookings, payments, hotels, points, catalog, paymentService, services.BookingConfig{
		CancellationWindow: cfg.CancellationWindow,
		DepositRate:        decimal.NewFromFloat(cfg.DepositRate),
	})
	ticketService := services.NewTicketService(bookings)
	assignmentService := services.NewAssignmentService(hotels, points, redisClient, services.AssignmentConfig{
		Workers: cfg.AssignmentWorkers,
	})
	geocoder := geo.NewHTTPGeocoder(&cfg.Geocoder)

	// Feed gateway capture notifications into booking confirmation.
	if provider != nil {
		txChannel := make(chan *gateway.Transaction, 1)
		provider.SetTransactionChannel(txChannel)
		go func() {
			for {
				select {
				case t := <-txChannel:
					slog.Info("=> gateway capture notification", "bill", t.ExternalPaymentID, "amount", t.Amount)

					if _, err := bookingService.Confirm(ctx, t.ExternalPaymentID, t.Amount); err != nil {
						slog.Error("bookingService.Confirm()", "bill", t.ExternalPaymentID, "error", err)
					}

				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	paymentHandler := handlers.NewPaymentHandler(bookingService, cfg.CallbackSecretHash)
	adminHandler := handlers.NewAdminHandler(assignmentService, paymentService, points, geocoder)

	rateLimiter := security.NewRateLimiter(redisClient, security.RateLimiterConfig{
		MaxRequests: cfg.RateLimitMax,
		Window:      cfg.RateLimitWindow,
	})

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Ops endpoints run on a sidecar so scrapers never hit the public API.
	if cfg.EnableMetrics {
		opsServer := monitoring.NewOpsServer(redisClient, cfg.MetricsPort)
		go func() {
			if err := opsServer.Start(); err != nil {
				slog.Error("opsServer.Start()", "error", err)
			}
		}()
		defer opsServer.Shutdown(context.Background())
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	setupPaymentHooks(app, ctx, provider)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Booking endpoints
		e.Router.POST("/api/v1/bookings", bookingHandler.Create).
			Bind(apis.RequireAuth()).
			BindFunc(rateLimiter.Middleware())
		e.Router.GET("/api/v1/bookings/{bookingId}", bookingHandler.Get).
			Bind(apis.RequireAuth())
		e.Router.POST("/api/v1/bookings/{bookingId}/cancel", bookingHandler.Cancel).
			Bind(apis.RequireAuth()).
			BindFunc(rateLimiter.Middleware())

		// Ticket endpoints
		e.Router.POST("/api/v1/tickets/{bookingId}/validate", ticketHandler.Validate).
			Bind(apis.RequireAuth())

		// Payment endpoints. The callback authenticates with the shared
		// secret, not a user token.
		e.Router.POST("/api/v1/payments/callback", paymentHandler.CaptureCallback)

		// Admin endpoints
		e.Router.POST("/api/v1/admin/meeting-points/reassign", adminHandler.Reassign).
			Bind(apis.RequireAuth())
		e.Router.PUT("/api/v1/admin/meeting-points", adminHandler.UpsertMeetingPoint).
			Bind(apis.RequireAuth())
		e.Router.POST("/api/v1/admin/payments/{bookingId}/refund", adminHandler.RefundPayment).
			Bind(apis.RequireAuth())

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// setupPaymentHooks subscribes the gateway watcher to every newly issued
// payment so capture events for its bill start flowing immediately.
func setupPaymentHooks(app *pocketbase.PocketBase, ctx context.Context, provider gateway.Provider) {
	watcher, ok := provider.(interface {
		WatchPayment(ctx context.Context, externalPaymentID string)
	})
	if !ok {
		return
	}

	app.OnRecordAfterCreateSuccess("payments").BindFunc(func(e *core.RecordEvent) error {
		extID := e.Record.GetString("external_payment_id")
		if extID != "" {
			watcher.WatchPayment(ctx, extID)
		}
		return e.Next()
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jerseyshop/storefront-api/docs"
	"github.com/jerseyshop/storefront-api/internal/api/handlers"
	"github.com/jerseyshop/storefront-api/internal/api/middleware"
	"github.com/jerseyshop/storefront-api/internal/cache"
	"github.com/jerseyshop/storefront-api/internal/config"
	"github.com/jerseyshop/storefront-api/internal/events"
	"github.com/jerseyshop/storefront-api/internal/health"
	"github.com/jerseyshop/storefront-api/internal/metrics"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	service "github.com/jerseyshop/storefront-api/internal/services"
	"github.com/jerseyshop/storefront-api/internal/telemetry"
	"github.com/jerseyshop/storefront-api/pkg/sendgrid"
	"github.com/jerseyshop/storefront-api/pkg/stripe"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//	@title						Jersey Shop Storefront API
//	@version					1.0
//	@description				Cart, checkout and order API of the Jersey Shop storefront.
//	@host						localhost:8080
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Otel, health.Version)
	if err != nil {
		slog.Error("Error initializing tracing", slog.Any("error", err))
		os.Exit(1)
	}

	repos, err := repository.New(ctx, cfg)
	if err != nil {
		slog.Error("Error accessing the database", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := repository.NewRedisClient(ctx, cfg)
	if err != nil {
		slog.Error("Error accessing the redis instance", slog.Any("error", err))
		os.Exit(1)
	}

	gateway := stripe.NewStripeClient(cfg.Stripe)
	if cfg.Stripe.APIKey == "" {
		slog.Warn("Stripe API key is not set, checkout will report the payment gateway as not configured")
	}

	emailService := sendgrid.NewEmailService(cfg.SendGrid)
	publisher := events.NewPublisher(cfg.Kafka)
	productCache := cache.NewRedisCache(redisClient, cfg.Cache)

	pricing := service.NewCachedResolver(repos.Products, productCache, cfg.Cache.ProductTTL)
	cartService := service.NewCartService(repos.Carts, pricing)
	orderService := service.NewOrderService(repos.Orders)
	notificationService := service.NewNotificationService(repos.Notification, repos.Users, emailService, cfg.Checkout.NotificationMaxAttempts)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Carts:     repos.Carts,
		Orders:    repos.Orders,
		Payments:  repos.Payments,
		RateLimit: repository.NewRateLimitRepo(redisClient, cfg.RateConfig),
		Pricing:   service.NewCatalogResolver(repos.Products),
		Gateway:   gateway,
		Notifier:  notificationService,
		Publisher: publisher,
	}, cfg.Checkout)

	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)
	auth := middleware.NewAuthMiddleware([]byte(cfg.Security.JWTKey))

	healthChecker, err := health.NewHealthHandler(cfg, &health.Endpoints{Gateway: gateway})
	if err != nil {
		slog.Error("Error creating health checks", slog.Any("error", err))
		os.Exit(1)
	}

	router := http.NewServeMux()
	router.HandleFunc("GET /api/v1/cart", auth.Authenticate(cartHandler.GetCart()))
	router.HandleFunc("POST /api/v1/cart/items", auth.Authenticate(cartHandler.AddItem()))
	router.HandleFunc("PUT /api/v1/cart/items/{id}", auth.Authenticate(cartHandler.UpdateItem()))
	router.HandleFunc("DELETE /api/v1/cart/items/{id}", auth.Authenticate(cartHandler.RemoveItem()))
	router.HandleFunc("POST /api/v1/checkout/payment-intent", auth.Authenticate(checkoutHandler.CreatePaymentIntent()))
	router.HandleFunc("POST /api/v1/checkout", auth.Authenticate(checkoutHandler.PlaceOrder()))
	router.HandleFunc("GET /api/v1/orders", auth.Authenticate(orderHandler.ListOrders()))
	router.HandleFunc("GET /api/v1/orders/{id}", auth.Authenticate(orderHandler.GetOrder()))
	router.HandleFunc("GET /api/v1/admin/orders", auth.Authenticate(auth.RequireAdmin(orderHandler.ListAllOrders())))
	router.HandleFunc("GET /api/v1/admin/orders/{id}", auth.Authenticate(auth.RequireAdmin(orderHandler.GetOrderAdmin())))
	router.HandleFunc("PATCH /api/v1/admin/orders/{id}/status", auth.Authenticate(auth.RequireAdmin(orderHandler.UpdateOrderStatus())))
	router.Handle("GET /metrics", metrics.Handler())
	router.Handle("GET /health", healthChecker.Handler())
	router.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// metrics reads the matched pattern, so it must sit directly on the mux
	var handler http.Handler = metrics.Middleware(router)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "storefront-api")

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	retryCtx, stopRetries := context.WithCancel(context.Background())
	retriesDone := make(chan struct{})

	go func() {
		defer close(retriesDone)
		notificationService.RunRetryLoop(retryCtx, cfg.Checkout.NotificationRetryInterval)
	}()

	go func() {
		slog.Info("Server is starting", slog.String("address", cfg.Addr), slog.String("env", cfg.Env))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	slog.Warn("Shutdown signal received, stopping the server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown encountered an issue", slog.Any("error", err))
	}

	if err := checkoutService.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Order notifications still in flight at shutdown", slog.Any("error", err))
	}

	stopRetries()

	select {
	case <-retriesDone:
	case <-time.After(cfg.ShutdownTimeout):
		slog.Warn("Notification retry loop did not stop in time")
	}

	if err := publisher.Close(); err != nil {
		slog.Error("Error closing event publisher", slog.Any("error", err))
	}

	if err := redisClient.Close(); err != nil {
		slog.Error("Error closing redis connection", slog.Any("error", err))
	}

	if err := repos.DB.Close(); err != nil {
		slog.Error("Error closing database connection", slog.Any("error", err))
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		slog.Error("Error flushing traces", slog.Any("error", err))
	}

	slog.Info("Server shut down gracefully")
}

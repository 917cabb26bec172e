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

	"github.com/aaravmahajanofficial/storefront/docs"
	"github.com/aaravmahajanofficial/storefront/internal/api/handlers"
	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/health"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/telemetry"
	"github.com/aaravmahajanofficial/storefront/pkg/sendgrid"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const version = "1.0.0"

//	@title						Storefront API
//	@version					1.0
//	@description				Carts, checkout and orders for the storefront.
//	@host						localhost:8080
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//
//	@securityDefinitions.apikey	ServiceKey
//	@in							header
//	@name						X-Service-Key
func main() {
	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.MustLoad()

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Otel, version)
	if err != nil {
		slog.Error("❌ Error setting up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Database setup
	repo, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := repo.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer redisClient.Close()

	backend := cache.NewNoopCache()
	if !cfg.Cache.Disabled {
		backend = cache.NewRedisCache(redisClient, &cfg.Cache)
	}

	// one loader so order placement invalidates carts loaded by the cart service
	appCache := cache.NewLoader(backend)

	var emailSender sendgrid.EmailSender = sendgrid.LogSender{}
	if cfg.SendGrid.Enabled {
		emailSender = sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	}

	store := repo.Store()
	calc := pricing.NewCalculator(cfg.Pricing)
	jwtKey := []byte(cfg.Security.JWTKey)
	jwtExpiry := time.Duration(cfg.Security.JWTExpiryHours) * time.Hour

	cartService := service.NewCartService(store, appCache, calc, cfg.Cache.DefaultTTL)
	notificationService := service.NewNotificationService(store.Notifications(), emailSender)
	orderService := service.NewOrderService(store, appCache, calc, notificationService, nil, cfg.Cache.DefaultTTL)
	customerService := service.NewCustomerService(store, repository.NewRateLimitRepo(redisClient, cfg.RateConfig), cartService, jwtKey, jwtExpiry)
	productService := service.NewProductService(store.Products())

	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	customerHandler := handlers.NewCustomerHandler(customerService)
	productHandler := handlers.NewProductHandler(productService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, orderService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)
	serviceAuth := middleware.NewServiceAuth(cfg.Security.ServiceKey)

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{DB: repo.DB.DB})
	if err != nil {
		slog.Error("❌ Error creating health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	docs.SwaggerInfo.Host = ""
	docs.SwaggerInfo.Version = version

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("driver", cfg.Database.Driver), slog.String("version", version))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("POST /api/v1/customers/register", customerHandler.Register())
	routerMux.HandleFunc("POST /api/v1/customers/login", customerHandler.Login())
	routerMux.HandleFunc("GET /api/v1/customers/me", authMiddleware.Authenticate(customerHandler.Profile()))
	routerMux.HandleFunc("POST /api/v1/products", authMiddleware.Authenticate(productHandler.CreateProduct()))
	routerMux.HandleFunc("GET /api/v1/products/{slug}", productHandler.GetProduct())
	routerMux.HandleFunc("POST /api/v1/carts", authMiddleware.OptionalAuthenticate(cartHandler.CreateCart()))
	routerMux.HandleFunc("GET /api/v1/carts/{token}", authMiddleware.OptionalAuthenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/carts/{token}/items", authMiddleware.OptionalAuthenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("DELETE /api/v1/carts/{token}/items", authMiddleware.OptionalAuthenticate(cartHandler.ClearCart()))
	routerMux.HandleFunc("PUT /api/v1/carts/{token}/items/{itemId}", authMiddleware.OptionalAuthenticate(cartHandler.UpdateItem()))
	routerMux.HandleFunc("DELETE /api/v1/carts/{token}/items/{itemId}", authMiddleware.OptionalAuthenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("POST /api/v1/carts/{token}/merge", authMiddleware.Authenticate(cartHandler.MergeCarts()))
	routerMux.HandleFunc("POST /api/v1/orders", authMiddleware.OptionalAuthenticate(orderHandler.CreateOrder()))
	routerMux.HandleFunc("POST /api/v1/orders/external", serviceAuth.Authenticate(orderHandler.CreateExternalOrder()))
	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("GET /api/v1/orders/{orderNumber}", authMiddleware.OptionalAuthenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("GET /api/v1/orders/{orderNumber}/notifications", authMiddleware.Authenticate(notificationHandler.ListOrderNotifications()))
	routerMux.HandleFunc("PATCH /api/v1/orders/{id}/status", authMiddleware.Authenticate(orderHandler.UpdateOrderStatus()))
	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// Middleware chaining; metrics sits directly on the mux so r.Pattern is set
	var handler http.Handler = metrics.Middleware(routerMux)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "storefront")

	server := http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("❌ Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("Tracer shutdown failed", slog.String("error", err.Error()))
	}
}

// Package main Storefront Gateway API
//
// This is the public entry point of the storefront.
// It exposes REST endpoints backed by the orders gRPC service and
// receives payment provider webhooks.
//
//	@title			Storefront Gateway API
//	@version		1.0
//	@description	Public API of the storefront: checkout, orders and delivery tracking
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.email	support@example.com
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8443
//	@BasePath	/
//	@schemes	https http
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "go-storefront/docs/swagger"
	"go-storefront/internal/gateway/clients"
	"go-storefront/internal/gateway/handlers"
	"go-storefront/pkg/config"
	"go-storefront/pkg/events"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/middleware"
	"go-storefront/pkg/rabbitmq"
	pkgtls "go-storefront/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()
	cfg.ServiceName = "gateway"

	// Initialize logger
	log := logger.New("gateway", cfg.LogLevel, logger.WithFormat(cfg.LogFormat))
	defer log.Sync()

	log.Info("starting gateway service")

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Create gRPC clients
	grpcClients, err := clients.NewClients(cfg)
	if err != nil {
		log.Fatal("failed to create gRPC clients", zap.Error(err))
	}
	defer grpcClients.Close()
	log.Info("connected to backend services via gRPC")

	// Webhook events are queued on the payments exchange
	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	publisher, err := rabbitmq.NewPublisher(rabbitConn, events.ExchangePayments, log)
	if err != nil {
		log.Fatal("failed to create publisher", zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.NewHTTPMetrics("gateway", registry).Middleware())

	// Register API routes
	handler := handlers.NewHandler(handlers.Options{
		Orders:        grpcClients.Orders,
		Publisher:     publisher,
		JWTSecret:     []byte(cfg.JWTSecret),
		WebhookSecret: cfg.StripeWebhookSecret,
		Log:           log,
	})
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	handler.RegisterWebhooks(router)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Root redirect to Swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/swagger/index.html")
	})

	// Start server
	if cfg.TLSEnabled {
		startHTTPSServer(ctx, cfg, log, router)
	} else {
		startHTTPServer(ctx, cfg, log, router)
	}
}

func startHTTPServer(ctx context.Context, cfg *config.Config, log *logger.Logger, router *gin.Engine) {
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		log.Info("HTTP server listening on http://localhost:" + cfg.HTTPPort)
		log.Info("Swagger UI: http://localhost:" + cfg.HTTPPort + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	waitForShutdown(ctx, server, log)
}

func startHTTPSServer(ctx context.Context, cfg *config.Config, log *logger.Logger, router *gin.Engine) {
	tlsConfig, err := pkgtls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile, "", false)
	if err != nil {
		log.Fatal("failed to load TLS config", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      router,
		TLSConfig:    tlsConfig,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		log.Info("HTTPS server listening on https://localhost:" + cfg.HTTPSPort)
		log.Info("Swagger UI: https://localhost:" + cfg.HTTPSPort + "/swagger/index.html")
		if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTPS server error", zap.Error(err))
		}
	}()

	waitForShutdown(ctx, server, log)
}

func waitForShutdown(ctx context.Context, server *http.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}

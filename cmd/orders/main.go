package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v83"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	orderspb "go-storefront/api/orders/v1"
	"go-storefront/internal/orders/adapters"
	"go-storefront/internal/orders/application"
	"go-storefront/internal/orders/infrastructure"
	"go-storefront/migrations"
	"go-storefront/pkg/config"
	"go-storefront/pkg/db"
	"go-storefront/pkg/events"
	grpcpkg "go-storefront/pkg/grpc"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/metrics"
	"go-storefront/pkg/middleware"
	"go-storefront/pkg/rabbitmq"
	"go-storefront/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.LoadForService("ORDERS")

	// Initialize logger
	log := logger.New("orders-service", cfg.LogLevel, logger.WithFormat(cfg.LogFormat))
	defer log.Sync()

	log.Info("starting orders service")

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	policy, err := adapters.ParseStockPolicy(cfg.StockPolicy)
	if err != nil {
		log.Fatal("invalid stock policy", zap.Error(err))
	}

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("connected to database")

	if err := db.Migrate(dbConn, migrations.FS); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stripe.Key = cfg.StripeSecretKey

	deps := application.Dependencies{
		Orders:     adapters.NewPostgresOrderRepository(dbConn),
		Deliveries: adapters.NewPostgresDeliveryRepository(dbConn),
		Inventory:  adapters.NewGormInventory(dbConn, policy),
		Cart:       adapters.NewGormCartReader(dbConn),
		Gateway:    adapters.NewStripeGateway(cfg.StripeCurrency, log),
		Tx:         db.NewTransactor(dbConn),
		Metrics:    metrics.NewBusiness("storefront", registry),
	}

	// Redis is a reconciliation shortcut; the service runs without it
	redisClient, err := adapters.NewRedisClient(ctx, adapters.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn("redis unavailable, reconciliation cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		deps.Cache = adapters.NewRedisReconciliationCache(redisClient, cfg.ReconcileCacheTTL)
	}

	// Connect to RabbitMQ
	var notificationPublisher adapters.NotificationPublisher
	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("failed to connect to RabbitMQ, events will be disabled", zap.Error(err))
	} else {
		defer rabbitConn.Close()

		pub, err := rabbitmq.NewPublisher(rabbitConn, events.ExchangeOrders, log)
		if err != nil {
			log.Warn("failed to create publisher", zap.Error(err))
		} else {
			publisher := adapters.NewRabbitMQPublisher(pub, log)
			deps.Publisher = publisher
			notificationPublisher = publisher
		}
	}
	deps.Notifier = adapters.NewGormNotificationSink(dbConn, notificationPublisher, log)

	// Initialize use case
	useCase := application.NewOrderUseCase(deps, application.Config{
		LowStockThreshold:   cfg.LowStockThreshold,
		DeliveryLeadDays:    cfg.DeliveryLeadDays,
		DeliveryForwardOnly: cfg.DeliveryForwardOnly,
		CheckoutSuccessURL:  cfg.CheckoutSuccessURL,
		CheckoutCancelURL:   cfg.CheckoutCancelURL,
	}, log)

	// Webhook-driven reconciliation
	if rabbitConn != nil {
		consumer, err := adapters.NewCheckoutCompletedConsumer(rabbitConn, useCase, log)
		if err != nil {
			log.Warn("failed to create checkout consumer", zap.Error(err))
		} else if err := consumer.Start(ctx); err != nil {
			log.Warn("failed to start checkout consumer", zap.Error(err))
		}
	}

	// Start HTTP server
	httpHandler := infrastructure.NewHTTPHandler(useCase, []byte(cfg.JWTSecret))
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.NewHTTPMetrics("orders", registry).Middleware())

	api := router.Group("/api/v1")
	httpHandler.RegisterRoutes(api)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		log.Info("HTTP server listening on :" + cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Start gRPC server
	grpcServer := setupGRPCServer(cfg, log, useCase)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen for gRPC", zap.Error(err))
	}

	go func() {
		log.Info("gRPC server listening on :" + cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down servers...")

	// Stops the checkout consumer
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error", zap.Error(err))
	}

	log.Info("servers stopped")
}

func setupGRPCServer(cfg *config.Config, log *logger.Logger, useCase *application.OrderUseCase) *grpc.Server {
	var opts []grpc.ServerOption

	opts = append(opts, grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(log, cfg.GRPCTimeout)))

	// Configure mTLS if enabled
	if cfg.GRPCMTLSEnabled {
		creds, err := tls.ServerCredentials(cfg.GRPCServerCert, cfg.GRPCServerKey, cfg.TLSCAFile)
		if err != nil {
			log.Fatal("failed to load TLS config", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
		log.Info("gRPC mTLS enabled")
	}

	server := grpc.NewServer(opts...)
	orderspb.RegisterOrderServiceServer(server, infrastructure.NewGRPCServer(useCase, []byte(cfg.JWTSecret)))

	return server
}

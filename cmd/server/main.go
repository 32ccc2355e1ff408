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

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/payment"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// backend is everything the services and the cleanup worker need from storage
type backend interface {
	service.CatalogStore
	service.CartStore
	service.OrderStore
	worker.EventStore
	Ping(ctx context.Context) error
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.Info("Starting storefront", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(util.TracerOptions{
		ServiceName: "storefront",
		Environment: cfg.Server.Env,
		Endpoint:    cfg.Observ.JaegerEndpoint,
		SampleRatio: cfg.Observ.SampleRatio,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, closeStore, err := openStore(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer closeStore()

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	var publisher service.EventPublisher = broker.NopPublisher{}
	var producer *broker.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		logger.Warn("No Kafka brokers configured, domain events are disabled")
	}

	processor := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.SecretKey,
		time.Duration(cfg.Payment.TimeoutSeconds)*time.Second)

	cartService := service.NewCartService(db, redisClient,
		time.Duration(cfg.Business.CartCountTTLSeconds)*time.Second)
	orderService := service.NewOrderService(db, cartService, publisher)
	paymentService := service.NewPaymentService(db, orderService, processor, redisClient,
		time.Duration(cfg.Business.ConfirmLockSeconds)*time.Second, publisher)
	productService := service.NewProductService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var cleanupWorker *worker.CartCleanupWorker
	if producer != nil {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		cleanupWorker = worker.NewCartCleanupWorker(consumer, db, cartService)
		go func() {
			if err := cleanupWorker.Start(workerCtx); err != nil {
				logger.Error("Cart cleanup worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(productService, cartService, orderService, paymentService,
		cfg.Auth.UserHeader, map[string]api.Pinger{
			"store": db,
			"redis": redisClient,
		})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if cleanupWorker != nil {
		if err := cleanupWorker.Stop(); err != nil {
			logger.Warn("Error stopping cart cleanup worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// openStore returns the configured storage backend and its closer
func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (backend, func(), error) {
	switch cfg.Driver {
	case "memory":
		mem := memstore.New()
		memstore.SeedDemoCatalog(mem)
		logger.Warn("Using in-memory store, data is lost on restart")
		return mem, func() {}, nil
	default:
		db, err := store.NewStore(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("Database schema applied")
		}
		logger.Info("Database connected")
		return db, func() { _ = db.Close() }, nil
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/keshav-const/BTP-sub000/common/auth"
	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/common/logger"
	"github.com/keshav-const/BTP-sub000/common/middleware"
	"github.com/keshav-const/BTP-sub000/controllers"
	"github.com/keshav-const/BTP-sub000/database"
	"github.com/keshav-const/BTP-sub000/events"
	"github.com/keshav-const/BTP-sub000/metrics"
	"github.com/keshav-const/BTP-sub000/models"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
	"github.com/keshav-const/BTP-sub000/repository"
	"github.com/keshav-const/BTP-sub000/routes"
	"github.com/keshav-const/BTP-sub000/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "order-service"

func main() {
	log, err := logger.Initialize(os.Getenv("APP_ENV"), nil)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// AWS is only touched when some component is configured to use it.
	var awsCfg sdkaws.Config
	if cfg.needsAWS() {
		if awsCfg, err = awspkg.LoadAWSConfig(ctx); err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
	}

	if cfg.CloudWatchEnabled {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, os.Getenv("CLOUDWATCH_LOG_GROUP"), serviceName, true)
		if err != nil {
			log.Warn("CloudWatch logs client init failed (non-fatal)", zap.Error(err))
		} else if log, err = logger.Initialize(cfg.AppEnv, cwLogs); err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
	}
	defer log.Sync()

	// --- Stores ---
	mongoClient, mongoDB, err := database.ConnectMongo(ctx, log, cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		log.Fatal("MongoDB connection failed", zap.Error(err))
	}
	if err := database.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatal("Index creation failed", zap.Error(err))
	}

	var products repository.ProductRepository
	switch cfg.CatalogStore {
	case StoreDynamoDB:
		products = repository.NewDynamoProductRepository(dynamodb.NewFromConfig(awsCfg), cfg.DDBTableProducts)
	default:
		products = repository.NewMongoProductRepository(mongoDB)
	}

	var (
		orders repository.OrderRepository
		pg     *gorm.DB
	)
	switch cfg.OrderStore {
	case StorePostgres:
		if pg, err = database.ConnectPostgres(log, cfg.Postgres, &models.Order{}, &models.OrderItem{}); err != nil {
			log.Fatal("Postgres connection failed", zap.Error(err))
		}
		orders = repository.NewGormOrderRepository(pg)
	default:
		orders = repository.NewMongoOrderRepository(mongoDB)
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg, "order_service")
	cloudWatch := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)
	recorder := metrics.Multi{serverMetrics, cloudWatch}

	var (
		rdb         *redis.Client
		idempotency repository.IdempotencyStore
		// The cart view may serve slightly stale products; stock changes
		// always go through the uncached store.
		cartProducts = products
	)
	if cfg.RedisURL != "" {
		if rdb, err = database.NewRedisClient(ctx, log, cfg.RedisURL); err != nil {
			log.Warn("Redis unavailable, idempotency keys and product cache disabled", zap.Error(err))
		} else {
			idempotency = repository.NewRedisIdempotencyStore(rdb)
			cartProducts = repository.NewCachedProductRepository(products, rdb, cfg.ProductCacheTTL, recorder, log)
		}
	}

	var tx repository.TxRunner = repository.NoopTx{}
	if cfg.MongoTransactions && cfg.CatalogStore == StoreMongo && cfg.OrderStore == StoreMongo {
		tx = repository.NewMongoTx(mongoClient)
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg, awsCfg)
	if err != nil {
		log.Fatal("Event publisher init failed", zap.Error(err))
	}

	// --- Service wiring ---
	stock := services.NewStockService(products, recorder, log)
	carts := repository.NewMongoCartRepository(mongoDB)
	cartService := services.NewCartService(carts, cartProducts, cfg.Pricing, log)
	checkoutService := services.NewCheckoutService(services.CheckoutDeps{
		Orders:              orders,
		Carts:               carts,
		Stock:               stock,
		Tx:                  tx,
		Idempotency:         idempotency,
		IdempotencyTTL:      cfg.IdempotencyTTL,
		IdempotencyClaimTTL: cfg.IdempotencyClaimTTL,
		Publisher:           publisher,
		Metrics:             recorder,
		Pricing:             cfg.Pricing,
		Logger:              log,
	})
	orderService := services.NewOrderService(orders, stock, tx, publisher, recorder, log)
	paymentService := services.NewPaymentService(orders, publisher, recorder, log)

	verifier := auth.NewTokenVerifier(cfg.JWTSecret)
	switch {
	case !verifier.Enabled():
		log.Info("JWT_SECRET not set, trusting gateway identity headers only")
	case cfg.TrustGatewayHeaders:
		log.Warn("Gateway identity headers trusted alongside JWT; only expose this service behind the gateway")
	}

	// --- HTTP router ---
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitPerMinute/2))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.MetricsMiddleware(cloudWatch, serviceName))
	r.Use(serverMetrics.Middleware())
	r.Use(apperrors.ErrorMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(serverMetrics.Handler()))

	routes.RegisterRoutes(r, verifier, cfg.TrustGatewayHeaders, routes.Controllers{
		Cart:     controllers.NewCartController(cartService),
		Checkout: controllers.NewCheckoutController(checkoutService, paymentService),
		Orders:   controllers.NewOrderController(orderService),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Order Service starting",
			zap.String("port", cfg.Port),
			zap.String("catalog_store", cfg.CatalogStore),
			zap.String("order_store", cfg.OrderStore),
			zap.String("events", cfg.EventsBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Order Service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	shutdown(log, closePublisher, rdb, mongoClient, pg)

	log.Info("Order Service stopped gracefully")
}

// newPublisher builds the configured order event sink and its closer.
func newPublisher(ctx context.Context, cfg *Config, awsCfg sdkaws.Config) (events.Publisher, func() error, error) {
	nop := func() error { return nil }
	switch cfg.EventsBackend {
	case EventsSNS:
		return events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicArn), nop, nil
	case EventsSQS:
		queueURL := cfg.OrderQueueURL
		if queueURL == "" {
			var err error
			if queueURL, err = awspkg.GetQueueURL(ctx, awsCfg, cfg.OrderQueueName); err != nil {
				return nil, nil, err
			}
		}
		return events.NewSQSPublisher(awspkg.NewSQSClient(awsCfg, queueURL)), nop, nil
	case EventsKafka:
		p := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic), cfg.KafkaOrderTopic)
		return p, p.Close, nil
	default:
		return events.NopPublisher{}, nop, nil
	}
}

func shutdown(log *zap.Logger, closePublisher func() error, rdb *redis.Client, mongoClient *mongo.Client, pg *gorm.DB) {
	if err := closePublisher(); err != nil {
		log.Warn("Event publisher close failed", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warn("Redis close failed", zap.Error(err))
		}
	}
	if err := database.DisconnectMongo(mongoClient); err != nil {
		log.Warn("MongoDB disconnect failed", zap.Error(err))
	}
	if pg != nil {
		if err := database.ClosePostgres(pg); err != nil {
			log.Warn("Postgres close failed", zap.Error(err))
		}
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/keshav-const/BTP-sub000/database"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
	"github.com/keshav-const/BTP-sub000/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	StoreMongo    = "mongo"
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"

	EventsNone  = "none"
	EventsSNS   = "sns"
	EventsSQS   = "sqs"
	EventsKafka = "kafka"
)

type Config struct {
	Port   string
	AppEnv string

	MongoURL          string
	MongoDB           string
	MongoTransactions bool

	CatalogStore     string
	DDBTableProducts string

	OrderStore string
	Postgres   database.PostgresConfig

	RedisURL            string
	IdempotencyTTL      time.Duration
	IdempotencyClaimTTL time.Duration
	ProductCacheTTL     time.Duration

	EventsBackend    string
	OrderSNSTopicArn string
	OrderQueueURL    string
	OrderQueueName   string
	KafkaBrokers     []string
	KafkaOrderTopic  string

	Pricing services.PricingPolicy

	JWTSecret           string
	TrustGatewayHeaders bool
	AllowedOrigins      string
	RateLimitPerMinute  int
	CloudWatchEnabled   bool
	MetricsNamespace    string
}

func LoadConfig(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8085"),
		AppEnv:            getEnv("APP_ENV", "development"),
		MongoURL:          getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "orders"),
		MongoTransactions: getEnv("MONGO_TRANSACTIONS", "false") == "true",
		CatalogStore:      getEnv("CATALOG_STORE", StoreMongo),
		DDBTableProducts:  getEnv("DDB_TABLE_PRODUCTS", "products"),
		OrderStore:        getEnv("ORDER_STORE", StoreMongo),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		RedisURL:          os.Getenv("REDIS_URL"),
		EventsBackend:     getEnv("EVENTS_BACKEND", EventsNone),
		OrderSNSTopicArn:  os.Getenv("ORDER_SNS_TOPIC_ARN"),
		OrderQueueURL:     os.Getenv("ORDER_EVENTS_QUEUE_URL"),
		OrderQueueName:    os.Getenv("ORDER_EVENTS_QUEUE_NAME"),
		KafkaOrderTopic:   getEnv("KAFKA_ORDER_TOPIC", "order.events"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		CloudWatchEnabled: getEnv("CLOUDWATCH_ENABLED", "false") == "true",
		MetricsNamespace:  getEnv("CLOUDWATCH_NAMESPACE", "ECommerce/OrderService"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", services.DefaultIdempotencyTTL); err != nil {
		return nil, err
	}
	if cfg.IdempotencyClaimTTL, err = getDuration("IDEMPOTENCY_CLAIM_TTL", services.DefaultIdempotencyClaimTTL); err != nil {
		return nil, err
	}
	if cfg.ProductCacheTTL, err = getDuration("PRODUCT_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE: %w", err)
	}

	cfg.Pricing = services.DefaultPricingPolicy()
	if cfg.Pricing.TaxRate, err = getDecimal("TAX_RATE", cfg.Pricing.TaxRate); err != nil {
		return nil, err
	}
	if cfg.Pricing.FreeShippingThreshold, err = getDecimal("FREE_SHIPPING_THRESHOLD", cfg.Pricing.FreeShippingThreshold); err != nil {
		return nil, err
	}
	if cfg.Pricing.FlatShippingFee, err = getDecimal("FLAT_SHIPPING_FEE", cfg.Pricing.FlatShippingFee); err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		loadSecrets(logger, cfg)
	}
	// Without a JWT secret the gateway headers are the only identity source.
	cfg.TrustGatewayHeaders = getEnv("TRUST_GATEWAY_HEADERS", strconv.FormatBool(cfg.JWTSecret == "")) == "true"

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets overrides database credentials and the JWT secret from AWS
// Secrets Manager. Missing secrets keep the environment values.
func loadSecrets(logger *zap.Logger, cfg *Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		logger.Warn("AWS config unavailable, skipping Secrets Manager", zap.Error(err))
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	if m, err := sm.GetSecretMap(ctx, "order/DB_CREDENTIALS"); err == nil {
		override(&cfg.Postgres.User, m["POSTGRES_USER"])
		override(&cfg.Postgres.Password, m["POSTGRES_PASSWORD"])
		override(&cfg.Postgres.DBName, m["POSTGRES_DB"])
		override(&cfg.Postgres.Host, m["POSTGRES_HOST"])
		override(&cfg.Postgres.Port, m["POSTGRES_PORT"])
		override(&cfg.MongoURL, m["MONGO_URL"])
	} else {
		logger.Warn("DB credentials secret not loaded", zap.Error(err))
	}

	if secret, err := sm.GetSecret(ctx, "order/JWT_SECRET"); err == nil {
		override(&cfg.JWTSecret, strings.TrimSpace(secret))
	} else {
		logger.Warn("JWT secret not loaded", zap.Error(err))
	}
}

func (c *Config) validate() error {
	switch c.CatalogStore {
	case StoreMongo:
	case StoreDynamoDB:
		if c.DDBTableProducts == "" {
			return fmt.Errorf("DDB_TABLE_PRODUCTS is required when CATALOG_STORE=dynamodb")
		}
	default:
		return fmt.Errorf("unsupported CATALOG_STORE %q", c.CatalogStore)
	}

	switch c.OrderStore {
	case StoreMongo:
	case StorePostgres:
		p := c.Postgres
		if p.User == "" || p.Password == "" || p.DBName == "" || p.Host == "" {
			return fmt.Errorf("database config incomplete")
		}
	default:
		return fmt.Errorf("unsupported ORDER_STORE %q", c.OrderStore)
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsSNS:
		if c.OrderSNSTopicArn == "" {
			return fmt.Errorf("ORDER_SNS_TOPIC_ARN is required when EVENTS_BACKEND=sns")
		}
	case EventsSQS:
		if c.OrderQueueURL == "" && c.OrderQueueName == "" {
			return fmt.Errorf("ORDER_EVENTS_QUEUE_URL or ORDER_EVENTS_QUEUE_NAME is required when EVENTS_BACKEND=sqs")
		}
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
		}
	default:
		return fmt.Errorf("unsupported EVENTS_BACKEND %q", c.EventsBackend)
	}

	if c.MongoURL == "" {
		return fmt.Errorf("MONGO_URL is required")
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.FlatShippingFee.IsNegative() || c.Pricing.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("pricing parameters must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if !c.TrustGatewayHeaders && c.JWTSecret == "" {
		return fmt.Errorf("TRUST_GATEWAY_HEADERS=false requires JWT_SECRET")
	}
	if c.IdempotencyClaimTTL <= 0 || c.IdempotencyClaimTTL > c.IdempotencyTTL {
		return fmt.Errorf("IDEMPOTENCY_CLAIM_TTL must be positive and not exceed IDEMPOTENCY_TTL")
	}
	return nil
}

func (c *Config) needsAWS() bool {
	return c.CatalogStore == StoreDynamoDB ||
		c.EventsBackend == EventsSNS ||
		c.EventsBackend == EventsSQS ||
		c.CloudWatchEnabled
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	"github.com/yashrajoria/pawmart/backend/services/storefront/notify"
)

// Config holds every setting of the storefront service.
type Config struct {
	Env            string
	Port           string
	CORSOrigins    string
	SecureCookies  bool
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	RedisURL        string
	CartTTL         time.Duration
	ProductCacheTTL time.Duration

	MongoURI string
	MongoDB  string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ProductsTable string
	S3Bucket      string
	S3PublicBase  string

	StripeSecretKey     string
	StripeWebhookSecret string

	EventsTopicArn    string
	PaymentQueueURL   string
	PaymentQueueName  string
	LivePollInterval  time.Duration
	CloudWatchEnabled bool

	SMTP notify.SMTPConfig
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		zap.L().Warn("invalid duration, using default", zap.String("key", key), zap.String("value", v))
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

// LoadConfig reads the environment. If AWS_USE_SECRETS=true the JWT secret,
// Stripe keys and Postgres password are read from Secrets Manager, falling
// back to the environment on failure.
func LoadConfig(ctx context.Context) (*Config, error) {
	env := getEnv("ENV", "development")
	cfg := &Config{
		Env:            env,
		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		SecureCookies:  getEnv("COOKIE_SECURE", strconv.FormatBool(env == "production")) == "true",
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 30),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		AccessTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL: getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CartTTL:         getDuration("CART_TTL", 7*24*time.Hour),
		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 5*time.Minute),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "pawmart"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getEnv("POSTGRES_DB", "pawmart"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ProductsTable: getEnv("DDB_TABLE_PRODUCTS", "Products"),
		S3Bucket:      getEnv("AWS_S3_BUCKET", "pawmart-images"),
		S3PublicBase:  os.Getenv("AWS_S3_PUBLIC_BASE"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		EventsTopicArn:    os.Getenv("SNS_TOPIC_ARN"),
		PaymentQueueURL:   os.Getenv("PAYMENT_EVENTS_QUEUE_URL"),
		PaymentQueueName:  os.Getenv("PAYMENT_EVENTS_QUEUE"),
		LivePollInterval:  getDuration("LIVE_POLL_INTERVAL", 5*time.Second),
		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",

		SMTP: notify.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			FromName: getEnv("SMTP_FROM_NAME", "PawMart"),
		},
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(ctx); err == nil {
			applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg), getEnv("AWS_SECRETS_PREFIX", "storefront/"))
		} else {
			zap.L().Warn("secrets manager unavailable, using environment", zap.Error(err))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type secretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// secretBundle is the JSON secret under the prefix that holds every override
// in one document. Keys missing from it are looked up as individual secrets.
const secretBundle = "app"

// applySecrets overrides sensitive settings from Secrets Manager. Missing
// secrets leave the environment value in place.
func applySecrets(ctx context.Context, cfg *Config, sm secretGetter, prefix string) {
	bundle, err := sm.GetSecretMap(ctx, prefix+secretBundle)
	if err != nil {
		zap.L().Debug("secret bundle unavailable", zap.String("name", prefix+secretBundle), zap.Error(err))
	}
	for name, dst := range map[string]*string{
		"JWT_SECRET":            &cfg.JWTSecret,
		"STRIPE_SECRET_KEY":     &cfg.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": &cfg.StripeWebhookSecret,
		"POSTGRES_PASSWORD":     &cfg.PostgresPassword,
		"SMTP_PASSWORD":         &cfg.SMTP.Password,
	} {
		if v := bundle[name]; v != "" {
			*dst = v
			continue
		}
		v, err := sm.GetSecret(ctx, prefix+name)
		if err != nil || v == "" {
			continue
		}
		*dst = v
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Env == "production" {
		if c.StripeSecretKey == "" {
			missing = append(missing, "STRIPE_SECRET_KEY")
		}
		if c.StripeWebhookSecret == "" {
			missing = append(missing, "STRIPE_WEBHOOK_SECRET")
		}
		if c.PostgresPassword == "" {
			missing = append(missing, "POSTGRES_PASSWORD")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// PostgresDSN is the gorm postgres connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	dynamopkg "github.com/yashrajoria/pawmart/backend/pkg/dynamodb"
	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	commonmw "github.com/yashrajoria/pawmart/backend/services/common/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/cart"
	"github.com/yashrajoria/pawmart/backend/services/storefront/controllers"
	"github.com/yashrajoria/pawmart/backend/services/storefront/database"
	"github.com/yashrajoria/pawmart/backend/services/storefront/live"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/notify"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
	"github.com/yashrajoria/pawmart/backend/services/storefront/routes"
	"github.com/yashrajoria/pawmart/backend/services/storefront/services"
)

const serviceName = "storefront"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	// --- 1. Logging & metrics ---
	var cwWriter io.Writer
	cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CloudWatch logs disabled: %v\n", err)
	} else if cwLogs.IsEnabled() {
		cwWriter = cwLogs
	}
	log := logger.Initialize(os.Getenv("ENV"), cwWriter)
	defer log.Sync()
	zap.ReplaceGlobals(log)

	cfg, err := LoadConfig(ctx)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var metrics awspkg.Recorder = awspkg.NopRecorder{}
	if cfg.CloudWatchEnabled {
		metrics = awspkg.NewMetricsClient(awsCfg)
	}

	// --- 2. Stores ---
	db, err := database.ConnectPostgres(cfg.PostgresDSN(), log)
	if err != nil {
		log.Fatal("Could not connect to PostgreSQL", zap.Error(err))
	}
	mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB, log)
	if err != nil {
		log.Fatal("Could not connect to MongoDB", zap.Error(err))
	}
	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("Could not connect to Redis", zap.Error(err))
	}

	ddb := dynamopkg.NewClientFromConfig(awsCfg)
	if err := dynamopkg.EnsureTable(ctx, ddb, cfg.ProductsTable, "product_id"); err != nil {
		log.Warn("Failed to ensure products table", zap.String("table", cfg.ProductsTable), zap.Error(err))
	}

	orders := collection[models.Order](ctx, mongoDB, database.Orders, log)
	profiles := collection[models.UserProfile](ctx, mongoDB, database.Users, log)
	testimonials := collection[models.Testimonial](ctx, mongoDB, database.Testimonials, log)
	faqs := collection[models.FAQRecord](ctx, mongoDB, database.FAQs, log)
	questions := collection[models.Question](ctx, mongoDB, database.Questions, log)
	subscribers := collection[models.Subscriber](ctx, mongoDB, database.Subscribers, log)
	comments := collection[models.Comment](ctx, mongoDB, database.Comments, log)

	cartRepo := repository.NewCartRepository(redisClient, cfg.CartTTL)
	accounts := repository.NewAccountRepository(db)

	// --- 3. Services ---
	var mailer notify.EmailSender = notify.NewLogSender(log)
	if cfg.SMTP.Enabled() {
		smtpSender, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Fatal("Invalid SMTP configuration", zap.Error(err))
		}
		mailer = smtpSender
	} else {
		log.Warn("SMTP not configured, emails are only logged")
	}

	events := services.NewEventPublisher(awspkg.NewSNSClient(awsCfg), cfg.EventsTopicArn, log)
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatal("Failed to create token issuer", zap.Error(err))
	}
	carts := cart.NewRegistry(cartRepo, log)

	catalog := services.NewCatalogService(
		repository.NewDynamoProductRepository(ddb, cfg.ProductsTable),
		repository.NewProductCache(redisClient, cfg.ProductCacheTTL, log),
		comments,
		awspkg.NewImageUploader(awsCfg, cfg.S3Bucket, cfg.S3PublicBase),
		metrics, log,
	)
	payments := services.NewPaymentService(
		services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
		repository.NewPaymentRepository(db),
		events, metrics, log,
	)
	orderService := services.NewOrderService(orders, carts, catalog, payments, cartRepo, mailer, events, metrics, log)
	authService := services.NewAuthService(accounts, profiles, tokens, carts, mailer, events, metrics, log)
	content := services.NewContentService(testimonials, faqs, questions, subscribers, mailer, events, log)
	adminService := services.NewAdminService(profiles, accounts, orders, subscribers, catalog)

	// --- 4. Live feeds ---
	poll := live.Every(cfg.LivePollInterval)
	watch := func(feed live.ChangeFeed) live.Trigger {
		return live.Changes(feed, cfg.LivePollInterval, log)
	}
	feeds := controllers.LiveFeeds{
		Products: controllers.Feed[models.Product]{Fetch: catalog.All, Trigger: poll},
		Testimonials: controllers.Feed[models.Testimonial]{
			Fetch:   func(ctx context.Context) ([]models.Testimonial, error) { return content.Testimonials(ctx, false) },
			Trigger: watch(testimonials.Changes),
		},
		FAQs: controllers.Feed[models.FAQRecord]{Fetch: content.FAQs, Trigger: watch(faqs.Changes)},
		Questions: controllers.Feed[models.Question]{
			Fetch:   func(ctx context.Context) ([]models.Question, error) { return content.Questions(ctx, false) },
			Trigger: watch(questions.Changes),
		},
		Orders: controllers.Feed[models.Order]{Fetch: orderService.Feed, Trigger: watch(orders.Changes)},
		UserOrders: func(userID string) controllers.Feed[models.Order] {
			return controllers.Feed[models.Order]{Fetch: orderService.FeedForUser(userID), Trigger: watch(orders.Changes)}
		},
	}

	// --- 5. Background workers ---
	limiter := commonmw.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Sweep(ctx)
	go carts.Sweep(ctx, cart.DefaultIdleTTL)

	if queueURL := paymentQueueURL(ctx, awsCfg, cfg, log); queueURL != "" {
		consumer := awspkg.NewSQSConsumer(awsCfg, queueURL, log)
		go func() {
			if err := consumer.StartPolling(ctx, orderService.HandlePaymentEvent); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("payment event consumer stopped", zap.Error(err))
			}
		}()
	}

	// --- 6. HTTP Server & Middleware ---
	r := gin.New()
	r.Use(
		commonmw.RequestID(),
		commonmw.RequestLogger(log),
		gin.Recovery(),
		commonmw.SecurityHeaders(),
		commonmw.CORS(cfg.CORSOrigins),
		commonmw.RateLimit(limiter),
		commonmw.Metrics(metrics, serviceName),
		apperrors.ErrorMiddleware(),
	)
	routes.RegisterRoutes(r, routes.Controllers{
		Auth:    controllers.NewAuthController(authService, cfg.SecureCookies),
		Cart:    controllers.NewCartController(carts, catalog),
		Catalog: controllers.NewCatalogController(catalog),
		Orders:  controllers.NewOrderController(orderService, payments),
		Content: controllers.NewContentController(content),
		Admin:   controllers.NewAdminController(adminService, authService),
		Live:    controllers.NewLiveController(feeds, log),
	}, tokens, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Storefront starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- 7. Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutting down storefront...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close Redis", zap.Error(err))
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("Failed to disconnect MongoDB", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if cwLogs != nil {
		cwLogs.Close()
	}
	log.Info("Storefront stopped gracefully")
}

// collection opens a repository and ensures its indexes.
func collection[T any](ctx context.Context, db *mongo.Database, name string, log *zap.Logger) *repository.MongoRepository[T] {
	repo := repository.NewMongoRepository[T](db.Collection(name))
	if err := repo.EnsureIndexes(ctx, database.Indexes()[name]...); err != nil {
		log.Warn("Failed to ensure indexes", zap.String("collection", name), zap.Error(err))
	}
	return repo
}

// paymentQueueURL resolves the payment events queue. An empty result disables
// the consumer.
func paymentQueueURL(ctx context.Context, awsCfg sdkaws.Config, cfg *Config, log *zap.Logger) string {
	if cfg.PaymentQueueURL != "" {
		return cfg.PaymentQueueURL
	}
	if cfg.PaymentQueueName == "" {
		log.Info("payment events queue not configured, consumer disabled")
		return ""
	}
	url, err := awspkg.GetQueueURL(ctx, awsCfg, cfg.PaymentQueueName)
	if err != nil {
		log.Warn("Failed to resolve payment events queue", zap.String("queue", cfg.PaymentQueueName), zap.Error(err))
		return ""
	}
	return url
}

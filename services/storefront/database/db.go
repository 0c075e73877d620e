// Package database opens the storefront's stores: Postgres for identity and
// payments, MongoDB for documents and Redis for carts and caches.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

const connectTimeout = 10 * time.Second

// ConnectPostgres opens the database and migrates the account and payment
// tables.
func ConnectPostgres(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	log.Info("connected to PostgreSQL")
	return db, nil
}

func ConnectMongo(ctx context.Context, uri, dbName string, log *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Info("connected to MongoDB", zap.String("database", dbName))
	return client, client.Database(dbName), nil
}

// ConnectRedis parses a redis:// URL and pings the server.
func ConnectRedis(ctx context.Context, url string, log *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("connected to Redis", zap.String("addr", opts.Addr))
	return client, nil
}

// Collection names.
const (
	Orders       = "orders"
	Users        = "users"
	Testimonials = "testimonials"
	FAQs         = "faqs"
	Questions    = "questions"
	Subscribers  = "subscribers"
	Comments     = "comments"
)

// Indexes lists the indexes each collection needs.
func Indexes() map[string][]mongo.IndexModel {
	newest := repository.CreatedAtIndex()
	return map[string][]mongo.IndexModel{
		Orders: {
			newest,
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "payment_ref", Value: 1}}, Options: options.Index().SetSparse(true)},
			repository.FieldIndex("status"),
		},
		Users:        {repository.UniqueIndex("email")},
		Testimonials: {newest, repository.FieldIndex("approved")},
		FAQs:         {{Keys: bson.D{{Key: "position", Value: 1}, {Key: "created_at", Value: 1}}}},
		Questions:    {newest},
		Subscribers:  {repository.UniqueIndex("email")},
		Comments:     {{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}}},
	}
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// DocumentStore is the collection access the services need.
// repository.MongoRepository satisfies it.
type DocumentStore[T any] interface {
	List(ctx context.Context, filter any, page, limit int) ([]T, int64, error)
	Find(ctx context.Context, filter any, sort bson.D) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, filter any) (*T, error)
	Insert(ctx context.Context, doc *T) error
	Update(ctx context.Context, id string, set bson.M) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter any) (int64, error)
	Count(ctx context.Context, filter any) (int64, error)
	Aggregate(ctx context.Context, pipeline any, out any) error
}

type IAccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetResetCode(ctx context.Context, id uuid.UUID, codeHash string, expiresAt time.Time) error
	ConsumeResetAttempt(ctx context.Context, id uuid.UUID, max int) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type ITokenIssuer interface {
	Issue(userID, email, role string) (*auth.TokenPair, error)
	Parse(tokenStr, expectedType string) (*auth.Identity, error)
}

// ProductCacheStore is satisfied by repository.ProductCache.
type ProductCacheStore interface {
	GetList(ctx context.Context, q models.ProductQuery) (*models.Page[models.Product], bool)
	SetList(ctx context.Context, q models.ProductQuery, page models.Page[models.Product])
	GetProduct(ctx context.Context, id string) (*models.Product, bool)
	SetProduct(ctx context.Context, p *models.Product)
	Invalidate(ctx context.Context, id string)
}

// ImagePresigner is satisfied by pkg/aws.ImageUploader.
type ImagePresigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (*awspkg.PresignedUpload, error)
}

// IdempotencyStore is satisfied by repository.CartRepository.
type IdempotencyStore interface {
	ClaimIdempotency(ctx context.Context, userID, key string, ttl time.Duration) (string, error)
	CompleteIdempotency(ctx context.Context, userID, key, orderID string, ttl time.Duration) error
	ReleaseIdempotency(ctx context.Context, userID, key string) error
}

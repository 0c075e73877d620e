package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

type RoleUpdate struct {
	Role string `json:"role" validate:"required,oneof=customer admin"`
}

// ProductCounter is satisfied by CatalogService.
type ProductCounter interface {
	Count(ctx context.Context) (int64, error)
}

// AdminService backs the back-office user list and dashboard.
type AdminService struct {
	profiles    DocumentStore[models.UserProfile]
	accounts    IAccountRepository
	orders      DocumentStore[models.Order]
	subscribers DocumentStore[models.Subscriber]
	products    ProductCounter
}

func NewAdminService(
	profiles DocumentStore[models.UserProfile],
	accounts IAccountRepository,
	orders DocumentStore[models.Order],
	subscribers DocumentStore[models.Subscriber],
	products ProductCounter,
) *AdminService {
	return &AdminService{profiles: profiles, accounts: accounts, orders: orders, subscribers: subscribers, products: products}
}

func (s *AdminService) Users(ctx context.Context, page, limit int) (*models.Page[models.UserProfile], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPerPage {
		limit = DefaultPerPage
	}
	items, total, err := s.profiles.List(ctx, nil, page, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := models.NewPage(items, page, limit, total)
	return &out, nil
}

// ChangeRole updates the role in both the identity store and the profile.
// The new role is reflected in tokens issued from the next refresh.
func (s *AdminService) ChangeRole(ctx context.Context, userID string, update RoleUpdate) error {
	if err := Validate(update); err != nil {
		return err
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.NotFound("User not found")
	}
	if err := s.accounts.UpdateRole(ctx, id, update.Role); err != nil {
		return notFoundAs(err, "User not found")
	}
	if err := s.profiles.Update(ctx, userID, bson.M{"role": update.Role}); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal(err)
	}
	return nil
}

type statusBucket struct {
	Status  string `bson:"_id"`
	Count   int64  `bson:"count"`
	Revenue int64  `bson:"revenue"`
}

// Stats gathers the dashboard counters concurrently.
func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{OrdersByStatus: map[string]int64{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.products.Count(gctx)
		stats.Products = n
		return err
	})
	g.Go(func() error {
		n, err := s.accounts.Count(gctx)
		stats.Users = n
		return err
	})
	g.Go(func() error {
		n, err := s.subscribers.Count(gctx, nil)
		stats.Subscribers = n
		return err
	})

	var buckets []statusBucket
	g.Go(func() error {
		pipeline := mongo.Pipeline{
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$status"},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "revenue", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$payment_status", models.PaymentStatusPaid}}}, "$total", 0,
				}}}}}},
			}}},
		}
		return s.orders.Aggregate(gctx, pipeline, &buckets)
	})

	if err := g.Wait(); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("collect stats: %w", err))
	}

	var revenue int64
	for _, b := range buckets {
		stats.OrdersByStatus[b.Status] = b.Count
		stats.Orders += b.Count
		if b.Status != models.OrderCancelled {
			revenue += b.Revenue
		}
	}
	stats.Revenue = models.Cents(revenue)
	return stats, nil
}

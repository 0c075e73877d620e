package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// RedisRepositorySuite runs the Redis-backed repositories against an
// in-process miniredis server.
type RedisRepositorySuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	carts  *CartRepository
	cache  *ProductCache
}

func (s *RedisRepositorySuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.carts = NewCartRepository(s.client, time.Hour)
	s.cache = NewProductCache(s.client, time.Minute, zap.NewNop())
}

func (s *RedisRepositorySuite) TearDownTest() {
	s.client.Close()
}

func TestRedisRepositories(t *testing.T) {
	suite.Run(t, new(RedisRepositorySuite))
}

func (s *RedisRepositorySuite) TestCartLoadMissing() {
	items, err := s.carts.Load(context.Background(), "nobody")
	s.NoError(err)
	s.Nil(items)
}

func (s *RedisRepositorySuite) TestCartSaveLoadRemove() {
	ctx := context.Background()
	in := []models.LineItem{
		{ProductID: "P1", Title: "Chew toy", Price: models.Cents(1000), Quantity: 2},
		{ProductID: "P2", Title: "Leash", Price: models.Cents(1599), Quantity: 1},
	}

	s.Require().NoError(s.carts.Save(ctx, "U1", in))
	s.True(s.mr.Exists("cart:user:U1"))
	s.Equal(time.Hour, s.mr.TTL("cart:user:U1"))

	out, err := s.carts.Load(ctx, "U1")
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal("P1", out[0].ProductID)
	s.Equal(models.Cents(1000), out[0].Price)
	s.Equal(2, out[0].Quantity)
	s.Equal("P2", out[1].ProductID)

	s.Require().NoError(s.carts.Remove(ctx, "U1"))
	s.False(s.mr.Exists("cart:user:U1"))
}

func (s *RedisRepositorySuite) TestCartLoadCorrupt() {
	s.Require().NoError(s.mr.Set("cart:user:U1", "{not json"))
	_, err := s.carts.Load(context.Background(), "U1")
	s.Error(err)
}

func (s *RedisRepositorySuite) TestIdempotencyLifecycle() {
	ctx := context.Background()

	existing, err := s.carts.ClaimIdempotency(ctx, "U1", "k1", time.Minute)
	s.Require().NoError(err)
	s.Empty(existing)

	_, err = s.carts.ClaimIdempotency(ctx, "U1", "k1", time.Minute)
	s.ErrorIs(err, ErrInProgress)

	s.Require().NoError(s.carts.CompleteIdempotency(ctx, "U1", "k1", "order-9", time.Minute))
	existing, err = s.carts.ClaimIdempotency(ctx, "U1", "k1", time.Minute)
	s.Require().NoError(err)
	s.Equal("order-9", existing)

	// other users do not share keys
	existing, err = s.carts.ClaimIdempotency(ctx, "U2", "k1", time.Minute)
	s.Require().NoError(err)
	s.Empty(existing)

	s.Require().NoError(s.carts.ReleaseIdempotency(ctx, "U2", "k1"))
	existing, err = s.carts.ClaimIdempotency(ctx, "U2", "k1", time.Minute)
	s.Require().NoError(err)
	s.Empty(existing)
}

func (s *RedisRepositorySuite) TestProductCacheListInvalidation() {
	ctx := context.Background()
	q := models.ProductQuery{Page: 1, PerPage: 10, Category: "dogs"}
	page := models.NewPage([]models.Product{{ID: "P1", Title: "Bone", Price: models.Cents(499)}}, 1, 10, 1)

	_, ok := s.cache.GetList(ctx, q)
	s.False(ok)

	s.cache.SetList(ctx, q, page)
	got, ok := s.cache.GetList(ctx, q)
	s.Require().True(ok)
	s.Require().Len(got.Items, 1)
	s.Equal("P1", got.Items[0].ID)
	s.Equal(models.Cents(499), got.Items[0].Price)

	other := q
	other.Category = "cats"
	_, ok = s.cache.GetList(ctx, other)
	s.False(ok)

	s.cache.Invalidate(ctx, "")
	_, ok = s.cache.GetList(ctx, q)
	s.False(ok)
}

func (s *RedisRepositorySuite) TestProductCacheDetail() {
	ctx := context.Background()
	p := &models.Product{ID: "P1", Title: "Bone", Price: models.Cents(499), Images: []string{}}

	s.cache.SetProduct(ctx, p)
	got, ok := s.cache.GetProduct(ctx, "P1")
	s.Require().True(ok)
	s.Equal("Bone", got.Title)

	s.cache.Invalidate(ctx, "P1")
	_, ok = s.cache.GetProduct(ctx, "P1")
	s.False(ok)
}

func (s *RedisRepositorySuite) TestProductCacheToleratesOutage() {
	ctx := context.Background()
	s.mr.Close()

	_, ok := s.cache.GetList(ctx, models.ProductQuery{Page: 1, PerPage: 5})
	s.False(ok)
	s.cache.SetProduct(ctx, &models.Product{ID: "P1"})
	s.cache.Invalidate(ctx, "P1")
}

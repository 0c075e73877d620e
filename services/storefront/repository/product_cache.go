package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

const (
	productDetailPrefix = "product:detail:"
	productListPrefix   = "products:v:"
	productVersionKey   = "products:version"
)

// ProductCache caches catalog listings and product details in Redis. Listing
// keys embed a version number; bumping the version invalidates every listing
// at once without scanning keys.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewProductCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *ProductCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductCache{redis: client, ttl: ttl, log: log}
}

// GetList returns a cached listing for q.
func (c *ProductCache) GetList(ctx context.Context, q models.ProductQuery) (*models.Page[models.Product], bool) {
	version, err := c.version(ctx)
	if err != nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, listKey(version, q)).Bytes()
	if err != nil {
		return nil, false
	}
	var page models.Page[models.Product]
	if err := json.Unmarshal(data, &page); err != nil {
		c.log.Warn("cached product list is corrupt", zap.Error(err))
		return nil, false
	}
	return &page, true
}

func (c *ProductCache) SetList(ctx context.Context, q models.ProductQuery, page models.Page[models.Product]) {
	version, err := c.version(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, listKey(version, q), data, c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache product list", zap.Error(err))
	}
}

func (c *ProductCache) GetProduct(ctx context.Context, id string) (*models.Product, bool) {
	data, err := c.redis.Get(ctx, productDetailPrefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) SetProduct(ctx context.Context, p *models.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, productDetailPrefix+p.ID, data, c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

// Invalidate bumps the listing version and drops the product's detail entry
// when id is non-empty.
func (c *ProductCache) Invalidate(ctx context.Context, id string) {
	if err := c.redis.Incr(ctx, productVersionKey).Err(); err != nil {
		c.log.Error("failed to invalidate product listings", zap.Error(err))
	}
	if id == "" {
		return
	}
	if err := c.redis.Del(ctx, productDetailPrefix+id).Err(); err != nil {
		c.log.Warn("failed to drop product cache", zap.String("product_id", id), zap.Error(err))
	}
}

func (c *ProductCache) version(ctx context.Context) (int64, error) {
	v, err := c.redis.Get(ctx, productVersionKey).Int64()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, err
	}
	// SetNX so two instances starting together agree on the first version.
	if err := c.redis.SetNX(ctx, productVersionKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	return c.redis.Get(ctx, productVersionKey).Int64()
}

func listKey(version int64, q models.ProductQuery) string {
	return fmt.Sprintf("%s%d:p:%d:l:%d:c:%s:sc:%s:f:%s:min:%s:max:%s:q:%s:s:%s",
		productListPrefix, version, q.Page, q.PerPage, q.Category, q.Subcategory,
		boolKey(q.Featured), priceKey(q.MinPrice), priceKey(q.MaxPrice), q.Search, q.Sort)
}

func boolKey(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func priceKey(p *models.Price) string {
	if p == nil {
		return ""
	}
	return p.String()
}

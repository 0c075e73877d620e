package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// CartRepository persists cart snapshots in Redis under cart:user:<id>.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// Load returns nil items when the user has no stored cart.
func (r *CartRepository) Load(ctx context.Context, userID string) ([]models.LineItem, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return cart.Items, nil
}

// Save overwrites the snapshot and refreshes its TTL.
func (r *CartRepository) Save(ctx context.Context, userID string, items []models.LineItem) error {
	data, err := json.Marshal(models.Cart{UserID: userID, Items: items, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func idemKey(userID, key string) string {
	return "idem:order:" + userID + ":" + key
}

// ClaimIdempotency reserves key for userID. It returns the order id recorded
// by an earlier request with the same key, or "" when the claim is new.
func (r *CartRepository) ClaimIdempotency(ctx context.Context, userID, key string, ttl time.Duration) (string, error) {
	ok, err := r.client.SetNX(ctx, idemKey(userID, key), "", ttl).Result()
	if err != nil {
		return "", fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return "", nil
	}
	existing, err := r.client.Get(ctx, idemKey(userID, key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("read idempotency key: %w", err)
	}
	if existing == "" {
		return "", ErrInProgress
	}
	return existing, nil
}

// CompleteIdempotency records the order id produced for key.
func (r *CartRepository) CompleteIdempotency(ctx context.Context, userID, key, orderID string, ttl time.Duration) error {
	return r.client.Set(ctx, idemKey(userID, key), orderID, ttl).Err()
}

// ReleaseIdempotency frees a claim after a failed attempt so the client can retry.
func (r *CartRepository) ReleaseIdempotency(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, idemKey(userID, key)).Err()
}

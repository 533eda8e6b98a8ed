package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/go-marketplace/internal/models"
)

var ErrCacheMiss = errors.New("cart cache miss")

// Cache holds rendered cart views keyed by customer. Each view is stored with
// the cart stamp it was rendered under; Get reports a miss when the caller's
// current stamp differs, so a view written after a newer mutation is never
// served.
type Cache interface {
	Get(ctx context.Context, userID int64, stamp string) (*models.CartView, error)
	Set(ctx context.Context, userID int64, stamp string, view *models.CartView) error
	Invalidate(ctx context.Context, userID int64) error
}

type cachedView struct {
	Stamp string           `json:"stamp"`
	View  *models.CartView `json:"view"`
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, baseTTL: ttl}
}

func (r *RedisCache) Get(ctx context.Context, userID int64, stamp string) (*models.CartView, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry cachedView
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cart view: %w", err)
	}
	if entry.View == nil || entry.Stamp != stamp {
		return nil, ErrCacheMiss
	}
	return entry.View, nil
}

// Set stores the view for the base TTL plus up to a minute of jitter so
// entries written together do not expire together.
func (r *RedisCache) Set(ctx context.Context, userID int64, stamp string, view *models.CartView) error {
	data, err := json.Marshal(cachedView{Stamp: stamp, View: view})
	if err != nil {
		return fmt.Errorf("marshal cart view: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Int63n(int64(time.Minute)))
	if err := r.client.Set(ctx, cacheKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}

// NopCache never holds anything. Used when Redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, int64, string) (*models.CartView, error) {
	return nil, ErrCacheMiss
}
func (NopCache) Set(context.Context, int64, string, *models.CartView) error { return nil }
func (NopCache) Invalidate(context.Context, int64) error                    { return nil }

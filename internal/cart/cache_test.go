package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 10*time.Minute), mr
}

func testView() *models.CartView {
	variantID := int64(9)
	return &models.CartView{
		Cart: models.Cart{ID: 1, UserID: 42},
		Items: []models.CartItem{
			{ID: 3, CartID: 1, VariantID: &variantID, Quantity: 2, Subtotal: decimal.RequireFromString("19.98")},
		},
		Total: decimal.RequireFromString("19.98"),
	}
}

func TestRedisCache_SetThenGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 42, "1.1.1.1", testView()))
	assert.True(t, mr.Exists("cart:42"))

	view, err := cache.Get(ctx, 42, "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.Cart.UserID)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("19.98")))
}

func TestRedisCache_StaleStampIsMiss(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 42, "3.1.2.1", testView()))

	view, err := cache.Get(ctx, 42, "4.0.0.0")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, view)
	assert.True(t, mr.Exists("cart:42"))

	view, err = cache.Get(ctx, 42, "3.1.2.1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
}

func TestRedisCache_EntryWithoutViewIsMiss(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:42", `{"stamp":"1.1.1.1"}`))

	_, err := cache.Get(context.Background(), 42, "1.1.1.1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_TTLHasJitterOnTopOfBase(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), 42, "1.1.1.1", testView()))

	ttl := mr.TTL("cart:42")
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 11*time.Minute)
}

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	view, err := cache.Get(context.Background(), 7, "1.1.1.1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, view)
}

func TestRedisCache_Expires(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 42, "1.1.1.1", testView()))
	mr.FastForward(12 * time.Minute)

	_, err := cache.Get(ctx, 42, "1.1.1.1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Invalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 42, "1.1.1.1", testView()))
	require.NoError(t, cache.Invalidate(ctx, 42))
	assert.False(t, mr.Exists("cart:42"))

	require.NoError(t, cache.Invalidate(ctx, 42))
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:42", "{not json"))

	_, err := cache.Get(context.Background(), 42, "1.1.1.1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_ServerDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), 42, "1.1.1.1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, "1.0.0.0", testView()))
	_, err := c.Get(ctx, 1, "1.0.0.0")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Invalidate(ctx, 1))
}

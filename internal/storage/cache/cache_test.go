package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/cache"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := cache.NewRedisClient(context.Background(), config.Cache{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	product := model.Product{
		ID:              3,
		Name:            "Tracker",
		OwnerName:       "Owner",
		Developers:      []string{"Alice Smith"},
		ScrumMasterName: "Jane Doe",
		StartDate:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Methodology:     model.MethodologyAgile,
		Location:        "https://github.com/example/repo",
	}

	t.Run("Should miss on unknown product", func(t *testing.T) {
		client, _ := setupRedis(t)
		c := cache.NewRedisCache(client, time.Minute)

		_, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should return stored product", func(t *testing.T) {
		client, mr := setupRedis(t)
		c := cache.NewRedisCache(client, time.Minute)

		require.NoError(t, c.SetIfVersion(ctx, product, 0))
		assert.True(t, mr.Exists("product-tracker:product:3"))

		got, ok, err := c.Get(ctx, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, product, got)
	})

	t.Run("Should expire after ttl", func(t *testing.T) {
		client, mr := setupRedis(t)
		c := cache.NewRedisCache(client, time.Minute)

		require.NoError(t, c.SetIfVersion(ctx, product, 0))
		mr.FastForward(2 * time.Minute)

		_, ok, err := c.Get(ctx, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should evict and bump the version on invalidate", func(t *testing.T) {
		client, _ := setupRedis(t)
		c := cache.NewRedisCache(client, time.Minute)

		require.NoError(t, c.SetIfVersion(ctx, product, 0))
		require.NoError(t, c.Invalidate(ctx, 3))

		_, ok, err := c.Get(ctx, 3)
		require.NoError(t, err)
		assert.False(t, ok)

		version, err := c.Version(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(1), version)
	})

	t.Run("Should drop a fill that raced with an invalidate", func(t *testing.T) {
		client, mr := setupRedis(t)
		c := cache.NewRedisCache(client, time.Minute)

		version, err := c.Version(ctx, 3)
		require.NoError(t, err)

		require.NoError(t, c.Invalidate(ctx, 3))
		require.NoError(t, c.SetIfVersion(ctx, product, version))

		assert.False(t, mr.Exists("product-tracker:product:3"))
	})

	t.Run("Should fill when the version is unchanged", func(t *testing.T) {
		client, _ := setupRedis(t)
		c := cache.NewRedisCache(client, time.Minute)

		require.NoError(t, c.Invalidate(ctx, 3))
		version, err := c.Version(ctx, 3)
		require.NoError(t, err)

		require.NoError(t, c.SetIfVersion(ctx, product, version))

		_, ok, err := c.Get(ctx, 3)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should surface redis failures", func(t *testing.T) {
		client, mr := setupRedis(t)
		c := cache.NewRedisCache(client, time.Minute)
		mr.Close()

		_, _, err := c.Get(ctx, 3)
		assert.Error(t, err)
	})
}

func TestNopCache(t *testing.T) {
	var c cache.NopCache

	require.NoError(t, c.SetIfVersion(context.Background(), model.Product{ID: 1}, 0))
	require.NoError(t, c.Invalidate(context.Background(), 1))
	_, ok, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

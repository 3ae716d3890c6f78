// Package cache provides the read-through cache in front of product reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/model"
)

const (
	productKeyPrefix = "product-tracker:product:"
	versionKeySuffix = ":v"

	// versionTTL outlives any in-flight read so a fill never sees a reset version.
	versionTTL = 24 * time.Hour
)

// ProductCache is a read cache guarded by a per-product version. A reader
// takes the version before loading from the store and fills the cache with
// SetIfVersion; Invalidate bumps the version so fills that raced with a write
// are dropped.
type ProductCache interface {
	// Get reports a miss with ok=false and a nil error.
	Get(ctx context.Context, id int64) (product model.Product, ok bool, err error)
	Version(ctx context.Context, id int64) (int64, error)
	// SetIfVersion stores product only if its version still equals version.
	SetIfVersion(ctx context.Context, product model.Product, version int64) error
	Invalidate(ctx context.Context, id int64) error
}

var (
	_ ProductCache = (*RedisCache)(nil)
	_ ProductCache = NopCache{}
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.Cache) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, fmt.Errorf("redis get: %w", err)
	}

	var product model.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return model.Product{}, false, fmt.Errorf("unmarshal cached product: %w", err)
	}

	return product, true, nil
}

func (c *RedisCache) Version(ctx context.Context, id int64) (int64, error) {
	version, err := c.client.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version: %w", err)
	}
	return version, nil
}

func (c *RedisCache) SetIfVersion(ctx context.Context, product model.Product, version int64) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	vKey := versionKey(product.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get version: %w", err)
		}
		if current != version {
			return errStaleVersion
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, productKey(product.ID), data, c.ttl)
			return nil
		})
		return err
	}, vKey)

	switch {
	case err == nil, errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("redis set: %w", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, id int64) error {
	vKey := versionKey(id)
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vKey)
		pipe.Expire(ctx, vKey, versionTTL)
		pipe.Del(ctx, productKey(id))
		return nil
	}); err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

var errStaleVersion = errors.New("product version changed")

func productKey(id int64) string {
	return productKeyPrefix + strconv.FormatInt(id, 10)
}

func versionKey(id int64) string {
	return productKey(id) + versionKeySuffix
}

// NopCache never stores anything; every Get is a miss.
type NopCache struct{}

func (NopCache) Get(context.Context, int64) (model.Product, bool, error) {
	return model.Product{}, false, nil
}

func (NopCache) Version(context.Context, int64) (int64, error) { return 0, nil }

func (NopCache) SetIfVersion(context.Context, model.Product, int64) error { return nil }

func (NopCache) Invalidate(context.Context, int64) error { return nil }

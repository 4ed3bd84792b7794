// Package cache keeps read-only product snapshots in Redis. Nothing that
// decides stock or price for a write ever reads from here.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

var ErrCacheMiss = errors.New("cache miss")

type ProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
	group   singleflight.Group
}

func NewProductCache(client *redis.Client, baseTTL time.Duration) *ProductCache {
	if baseTTL <= 0 {
		baseTTL = 5 * time.Minute
	}
	return &ProductCache{client: client, baseTTL: baseTTL}
}

func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return &p, nil
}

func (c *ProductCache) Set(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}
	jitter := time.Duration(rand.Int64N(int64(c.baseTTL/5) + 1))
	if err := c.client.Set(ctx, cacheKey(p.ID), data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *ProductCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// GetOrLoad serves from Redis and collapses concurrent misses for the same
// product into one load. Cache failures fall through to load.
func (c *ProductCache) GetOrLoad(ctx context.Context, id uuid.UUID, load func(context.Context) (*models.Product, error)) (*models.Product, error) {
	if p, err := c.Get(ctx, id); err == nil {
		return p, nil
	}

	v, err, _ := c.group.Do(id.String(), func() (any, error) {
		p, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

func cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id)
}

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

func setupTestRedis(t *testing.T) (*ProductCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewProductCache(client, time.Minute), mr
}

func testProduct() *models.Product {
	return &models.Product{ID: uuid.New(), Name: "lamp", Price: decimal.NewFromInt(100), Stock: 5, Active: true}
}

func TestSetGetDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	p := testProduct()

	_, err := c.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, p))
	assert.True(t, mr.Exists(cacheKey(p.ID)))
	ttl := mr.TTL(cacheKey(p.ID))
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, time.Minute+12*time.Second)

	got, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Price.Equal(got.Price))

	require.NoError(t, c.Delete(ctx, p.ID))
	assert.False(t, mr.Exists(cacheKey(p.ID)))
}

func TestGet_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	id := uuid.New()
	require.NoError(t, mr.Set(cacheKey(id), "{not json"))

	_, err := c.Get(context.Background(), id)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestGetOrLoad_CollapsesMisses(t *testing.T) {
	c, _ := setupTestRedis(t)
	p := testProduct()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (*models.Product, error) {
		loads.Add(1)
		<-release
		return p, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.GetOrLoad(context.Background(), p.ID, load)
			assert.NoError(t, err)
			assert.Equal(t, p.ID, got.ID)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, loads.Load(), int32(8))
	assert.GreaterOrEqual(t, loads.Load(), int32(1))

	got, err := c.GetOrLoad(context.Background(), p.ID, func(context.Context) (*models.Product, error) {
		return nil, errors.New("must be served from cache")
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestGetOrLoad_PropagatesLoadError(t *testing.T) {
	c, _ := setupTestRedis(t)
	want := errors.New("db down")

	_, err := c.GetOrLoad(context.Background(), uuid.New(), func(context.Context) (*models.Product, error) {
		return nil, want
	})
	assert.ErrorIs(t, err, want)
}

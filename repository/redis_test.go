package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/keshav-const/BTP-sub000/metrics"
	"github.com/keshav-const/BTP-sub000/models"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRedis implements the handful of commands the repositories use.
type fakeRedis struct {
	redis.Cmdable

	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		return val
	}
	panic("unsupported value")
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = toString(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = toString(value)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestIdempotencyStore_ClaimLifecycle(t *testing.T) {
	store := NewRedisIdempotencyStore(newFakeRedis())
	ctx := context.Background()

	existing, claimed, err := store.Claim(ctx, "u1:k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, existing)

	existing, claimed, err = store.Claim(ctx, "u1:k1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Empty(t, existing, "in-flight claim exposes no order id")

	require.NoError(t, store.Complete(ctx, "u1:k1", "order-9", time.Hour))
	existing, claimed, err = store.Claim(ctx, "u1:k1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "order-9", existing)

	require.NoError(t, store.Release(ctx, "u1:k1"))
	_, claimed, err = store.Claim(ctx, "u1:k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotencyStore_CompleteExtendsClaim(t *testing.T) {
	rdb := newFakeRedis()
	store := NewRedisIdempotencyStore(rdb)
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, "u1:k1", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	assert.Equal(t, time.Minute, rdb.ttls[idempotencyPrefix+"u1:k1"])

	require.NoError(t, store.Complete(ctx, "u1:k1", "order-1", 24*time.Hour))
	assert.Equal(t, 24*time.Hour, rdb.ttls[idempotencyPrefix+"u1:k1"])
}

type countingRecorder struct {
	metrics.Nop
	counts map[string]int
}

func (r *countingRecorder) RecordCount(_ context.Context, name string, _ map[string]string) error {
	r.counts[name]++
	return nil
}

type countingProducts struct {
	products map[string]*models.Product
	finds    int
	decErr   error
}

func (c *countingProducts) FindByID(_ context.Context, id string) (*models.Product, error) {
	c.finds++
	p, ok := c.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *countingProducts) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	out := map[string]*models.Product{}
	for _, id := range ids {
		if p, err := c.FindByID(ctx, id); err == nil {
			out[id] = p
		}
	}
	return out, nil
}

func (c *countingProducts) DecrementStock(_ context.Context, id string, qty int) error {
	if c.decErr != nil {
		return c.decErr
	}
	c.products[id].Stock -= qty
	return nil
}

func (c *countingProducts) IncrementStock(_ context.Context, id string, qty int) error {
	c.products[id].Stock += qty
	return nil
}

func TestCachedProductRepository(t *testing.T) {
	next := &countingProducts{products: map[string]*models.Product{
		"A": {ID: "A", Name: "Widget", Price: decimal.RequireFromString("10.50"), Stock: 5, IsActive: true},
	}}
	rdb := newFakeRedis()
	repo := NewCachedProductRepository(next, rdb, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	p, err := repo.FindByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	p, err = repo.FindByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, next.finds, "second read is served from cache")
	assert.True(t, p.Price.Equal(decimal.RequireFromString("10.50")))

	require.NoError(t, repo.DecrementStock(ctx, "A", 2))
	p, err = repo.FindByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock, "stock change evicts the entry")
	assert.Equal(t, 2, next.finds)

	found, err := repo.FindByIDs(ctx, []string{"A", "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestCachedProductRepository_RecordsHitsAndMisses(t *testing.T) {
	next := &countingProducts{products: map[string]*models.Product{"A": {ID: "A", Stock: 2, IsActive: true}}}
	recorder := &countingRecorder{counts: map[string]int{}}
	repo := NewCachedProductRepository(next, newFakeRedis(), time.Minute, recorder, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.FindByID(ctx, "A")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, recorder.counts[awspkg.MetricCacheMisses])
	assert.Equal(t, 2, recorder.counts[awspkg.MetricCacheHits])
}

func TestCachedProductRepository_EvictsOnFailedDecrement(t *testing.T) {
	next := &countingProducts{
		products: map[string]*models.Product{"A": {ID: "A", Stock: 1, IsActive: true}},
		decErr:   ErrInsufficientStock,
	}
	rdb := newFakeRedis()
	repo := NewCachedProductRepository(next, rdb, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "A")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.DecrementStock(ctx, "A", 5), ErrInsufficientStock)
	assert.NotContains(t, rdb.data, ProductCachePrefix+"A")
}

func TestCachedProductRepository_FallsBackWhenRedisFails(t *testing.T) {
	next := &countingProducts{products: map[string]*models.Product{"A": {ID: "A", Stock: 2, IsActive: true}}}
	rdb := newFakeRedis()
	rdb.getErr = errors.New("redis down")
	repo := NewCachedProductRepository(next, rdb, time.Minute, nil, zap.NewNop())

	p, err := repo.FindByID(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}

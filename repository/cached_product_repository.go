package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/keshav-const/BTP-sub000/metrics"
	"github.com/keshav-const/BTP-sub000/models"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const ProductCachePrefix = "product:detail:"

// CachedProductRepository serves product reads from Redis for display
// paths such as cart materialization. Stock changes go to the wrapped store
// and evict the cached entry. Checkout never reads through this cache.
type CachedProductRepository struct {
	next   ProductRepository
	redis  redis.Cmdable
	ttl     time.Duration
	metrics metrics.Recorder
	logger  *zap.Logger
}

func NewCachedProductRepository(next ProductRepository, client redis.Cmdable, ttl time.Duration, recorder metrics.Recorder, logger *zap.Logger) *CachedProductRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &CachedProductRepository{next: next, redis: client, ttl: ttl, metrics: recorder, logger: logger}
}

func (c *CachedProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := c.get(ctx, id); ok {
		return p, nil
	}
	p, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, p)
	return p, nil
}

func (c *CachedProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	result := make(map[string]*models.Product, len(ids))
	var missing []string
	for _, id := range ids {
		if p, ok := c.get(ctx, id); ok {
			result[id] = p
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	found, err := c.next.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range found {
		result[id] = p
		c.set(ctx, p)
	}
	return result, nil
}

func (c *CachedProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	defer c.evict(ctx, id)
	return c.next.DecrementStock(ctx, id, qty)
}

func (c *CachedProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	defer c.evict(ctx, id)
	return c.next.IncrementStock(ctx, id, qty)
}

func (c *CachedProductRepository) get(ctx context.Context, id string) (*models.Product, bool) {
	data, err := c.redis.Get(ctx, ProductCachePrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Product cache read failed", zap.String("product_id", id), zap.Error(err))
		}
		c.record(ctx, awspkg.MetricCacheMisses)
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("Failed to unmarshal cached product", zap.String("product_id", id), zap.Error(err))
		c.record(ctx, awspkg.MetricCacheMisses)
		return nil, false
	}
	c.record(ctx, awspkg.MetricCacheHits)
	return &p, true
}

func (c *CachedProductRepository) record(ctx context.Context, name string) {
	if err := c.metrics.RecordCount(ctx, name, map[string]string{"Outcome": "product"}); err != nil {
		c.logger.Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
	}
}

func (c *CachedProductRepository) set(ctx context.Context, p *models.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, ProductCachePrefix+p.ID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (c *CachedProductRepository) evict(ctx context.Context, id string) {
	if err := c.redis.Del(ctx, ProductCachePrefix+id).Err(); err != nil {
		c.logger.Warn("Failed to evict cached product", zap.String("product_id", id), zap.Error(err))
	}
}

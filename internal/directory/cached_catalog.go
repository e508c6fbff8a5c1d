package directory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

const productCacheKeyPrefix = "catalog:product:"

// CachedCatalog fronts a CatalogAdapter with a Redis read-through cache.
// Cache failures are tolerated: a miss or a broken connection falls back to
// the upstream adapter, so caching never turns into an availability problem.
type CachedCatalog struct {
	upstream CatalogAdapter
	client   *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedCatalog builds the decorator. A nil client disables caching.
func NewCachedCatalog(upstream CatalogAdapter, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedCatalog{upstream: upstream, client: client, ttl: ttl, logger: logger}
}

// GetProduct resolves one product, consulting the cache first.
func (c *CachedCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if product := c.cacheGet(ctx, id); product != nil {
		return product, nil
	}
	product, err := c.upstream.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product != nil {
		c.cacheSet(ctx, *product)
	}
	return product, nil
}

// GetProducts resolves a batch, filling cache misses from the upstream in one
// call.
func (c *CachedCatalog) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	resolved := make(map[string]domain.Product, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if product := c.cacheGet(ctx, id); product != nil {
			resolved[id] = *product
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return resolved, nil
	}

	fetched, err := c.upstream.GetProducts(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, product := range fetched {
		resolved[id] = product
		c.cacheSet(ctx, product)
	}
	return resolved, nil
}

func (c *CachedCatalog) cacheGet(ctx context.Context, id string) *domain.Product {
	if c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, productCacheKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Debug("catalog cache read failed", zap.String("product_id", id), zap.Error(err))
		}
		return nil
	}
	var product domain.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil
	}
	return &product
}

func (c *CachedCatalog) cacheSet(ctx context.Context, product domain.Product) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productCacheKeyPrefix+product.ID, raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Debug("catalog cache write failed", zap.String("product_id", product.ID), zap.Error(err))
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
)

const (
	allProductsKey = "products:all"
	notFoundMarker = "notfound"
)

// CachedProductRepository is a read-through redis cache in front of the
// product table. Stock writes invalidate the affected keys.
type CachedProductRepository struct {
	realRepo repository.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
}

var _ repository.ProductRepository = (*CachedProductRepository)(nil)

func NewCachedProductRepository(realRepo repository.ProductRepository, redis *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProductRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    redis,
		ttl:      ttl,
		logger:   logger,
	}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func categoryKey(category string) string {
	return fmt.Sprintf("products:category:%s", category)
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, repository.ErrNotFound
		}

		var product models.Product
		if err := json.Unmarshal(data, &product); err != nil {
			c.logger.Warn("failed to unmarshal cached product, continuing with db", "product_id", id, "error", err)
			break
		}

		return &product, nil

	case errors.Is(err, redis.Nil):

	default:
		c.logger.Warn("redis error, continuing with db", "operation", "product_get", "error", err)
	}

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, time.Minute).Err(); setErr != nil {
				c.logger.Warn("failed to cache notfound", "product_id", id, "error", setErr)
			}
		}
		return nil, err
	}

	c.store(ctx, key, product)
	return product, nil
}

func (c *CachedProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	if products, ok := c.loadList(ctx, allProductsKey); ok {
		return products, nil
	}

	products, err := c.realRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, allProductsKey, products)
	return products, nil
}

func (c *CachedProductRepository) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	key := categoryKey(category)

	if products, ok := c.loadList(ctx, key); ok {
		return products, nil
	}

	products, err := c.realRepo.GetByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, products)
	return products, nil
}

func (c *CachedProductRepository) AdjustStock(ctx context.Context, id string, change int) (*models.StockMovement, error) {
	movement, err := c.realRepo.AdjustStock(ctx, id, change)
	if err != nil {
		return nil, err
	}

	c.Invalidate(ctx, id)
	return movement, nil
}

// Invalidate drops the product and every list that may contain it. Used after
// local writes and when another terminal reports a change.
func (c *CachedProductRepository) Invalidate(ctx context.Context, productID string) {
	keys := []string{productKey(productID), allProductsKey}

	iter := c.redis.Scan(ctx, 0, categoryKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("failed to scan category cache", "error", err)
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("failed to delete product cache", "product_id", productID, "error", err)
	}
}

func (c *CachedProductRepository) loadList(ctx context.Context, key string) ([]models.Product, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis error, continuing with db", "key", key, "error", err)
		}
		return nil, false
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		c.logger.Warn("failed to unmarshal cached products", "key", key, "error", err)
		return nil, false
	}

	return products, true
}

func (c *CachedProductRepository) store(ctx context.Context, key string, v any) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to marshal products", "key", key, "error", err)
		return
	}

	if err := c.redis.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache products", "key", key, "error", err)
	}
}

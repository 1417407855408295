// internal/regulation/search/cache.go
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"regsearch/internal/common/logger"
	"regsearch/internal/common/metrics"
	"regsearch/internal/models"
)

// Cache is a read-through TTL cache of raw agent results keyed by
// category and locality. It protects the shared external rate-limit
// budget; it is not project persistence. A nil *Cache is disabled.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: log}
}

func cacheKey(category string, loc models.Locality) string {
	return fmt.Sprintf("regsearch:%s:%s:%s:%s", category, loc.Prefecture, loc.City, loc.Address)
}

// Get returns the cached result for this category and locality, if any.
func (c *Cache) Get(ctx context.Context, category string, loc models.Locality) (*models.WebSearchResult, bool) {
	if c == nil {
		return nil, false
	}

	val, err := c.client.Get(ctx, cacheKey(category, loc)).Result()
	if err != nil {
		metrics.CacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	var result models.WebSearchResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		metrics.CacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("hit").Inc()
	return &result, true
}

// Set stores a fresh agent result. Failures are logged and ignored; the
// cache is an optimization, never a dependency.
func (c *Cache) Set(ctx context.Context, category string, loc models.Locality, result *models.WebSearchResult) {
	if c == nil || result == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(category, loc), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"category": category,
			"error":    err.Error(),
		})
	}
}

// Package cache is a thin JSON cache over Redis for the dashboard
// aggregates that are expensive to recompute on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values with a fixed TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache. A zero ttl defaults to one minute.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// GetJSON loads a cached value into dst. Returns false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten.
		return false, nil
	}
	return true, nil
}

// SetJSON stores a value under the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops keys, ignoring ones that do not exist.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// DashboardKey is the cache key for an organization's dashboard summary.
func DashboardKey(orgID string) string {
	return "dashboard:" + orgID
}

// MovementsKey is the cache key for a website's rank movement report.
func MovementsKey(orgID, websiteID string) string {
	return "movements:" + orgID + ":" + websiteID
}

// internal/app/system/filecache/filecache.go
package filecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL stays under the one-hour lifetime of a Telegram download path.
const DefaultTTL = 50 * time.Minute

// LoadFunc produces the value for a key on a cache miss.
type LoadFunc func(ctx context.Context) (string, error)

// Cache is a read-through string cache in front of Redis. Concurrent misses
// for one key share a single load. A nil Redis client disables storage but
// keeps the call collapsing; Redis errors degrade to a plain load.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	log    *zap.Logger
}

// New creates a Cache. rdb may be nil.
func New(rdb *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

// Enabled reports whether values are stored in Redis.
func (c *Cache) Enabled() bool { return c.rdb != nil }

// GetOrLoad returns the cached value for key, calling load on a miss and
// storing its result.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load LoadFunc) (string, error) {
	if v, ok := c.get(ctx, key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return "", err
		}
		c.set(ctx, key, val)
		return val, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Delete removes keys from the cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c.rdb == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Ping checks the Redis connection. A disabled cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) get(ctx context.Context, key string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	v, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

func (c *Cache) set(ctx context.Context, key, val string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, val, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

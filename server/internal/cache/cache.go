// Package cache caches rendered visualizations in Redis so repeated
// submissions of the same model/text/view skip the forward pass.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "viz:"

// Key derives the cache key for a visualization request.
func Key(modelName, text, viewType string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s", modelName, text, viewType)))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Stats reports the state of the cache.
type Stats struct {
	Available bool   `json:"available"`
	Keys      int64  `json:"keys_in_cache"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	UsedMem   string `json:"used_memory,omitempty"`
	Error     string `json:"error,omitempty"`
}

// New creates a new cache. When the cache is disabled or Redis is
// unreachable, the returned cache degrades to a no-op: lookups miss and
// writes are dropped, but requests are still served.
func New(ctx context.Context, c Config, logger logr.Logger) *C {
	log := logger.WithName("cache")
	if !c.Enable {
		log.Info("Result cache is disabled")
		return &C{ttl: c.TTL, logger: log}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.Redis.Address,
		Username: c.Redis.Username,
		Password: c.Redis.Password,
		DB:       c.Redis.Database,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error(err, "Redis unavailable; caching disabled")
		return &C{ttl: c.TTL, logger: log}
	}
	log.Info("Result cache connected", "address", c.Redis.Address)
	return &C{client: client, ttl: c.TTL, logger: log}
}

// C is the visualization result cache.
type C struct {
	// client is nil when the cache is degraded or disabled.
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	logger logr.Logger
}

// Available reports whether the cache is backed by a live Redis.
func (c *C) Available() bool {
	return c.client != nil
}

// Get returns the cached rendered visualization for key, if present.
func (c *C) Get(ctx context.Context, key string) (string, bool) {
	if c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Error(err, "Cache retrieval failed", "key", key)
		}
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	c.logger.V(2).Info("Cache hit", "key", key)
	return val, true
}

// Set stores a rendered visualization under key with the configured TTL.
func (c *C) Set(ctx context.Context, key, value string) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Error(err, "Cache storage failed", "key", key)
		return
	}
	c.logger.V(2).Info("Cached result", "key", key, "ttl", c.ttl)
}

// Stats returns cache statistics.
func (c *C) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if c.client == nil {
		return s
	}
	keys, err := c.client.DBSize(ctx).Result()
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.Available = true
	s.Keys = keys
	if mem, err := c.client.Info(ctx, "memory").Result(); err == nil {
		s.UsedMem = parseInfoField(mem, "used_memory_human")
	}
	return s
}

// Clear drops every cached entry.
func (c *C) Clear(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("cache unavailable")
	}
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	c.logger.Info("Cache cleared")
	return nil
}

// parseInfoField extracts a single field value from a redis INFO reply.
func parseInfoField(info, field string) string {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(line, field+":"); ok {
			return strings.TrimRight(v, "\r")
		}
	}
	return ""
}

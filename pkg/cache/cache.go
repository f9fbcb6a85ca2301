// Package cache provides a best-effort Redis verdict cache. Classification
// is deterministic for a given artifact set, so identical content can reuse
// a previous verdict instead of re-running extraction and inference.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phishguard-io/phishguard/pkg/fusion"
)

// VerdictCache stores verdicts keyed by content hash. A nil cache is valid
// and disables caching; every method is safe on nil.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection. Returns nil (caching
// disabled) when addr is empty.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*VerdictCache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &VerdictCache{client: client, ttl: ttl}, nil
}

// Key derives the cache key for a piece of content. The content type is
// part of the hash input so an identical string analyzed as SMS and as URL
// cannot collide.
func Key(contentType, content string) string {
	sum := sha256.Sum256([]byte(contentType + "\x00" + content))
	return "phishguard:verdict:" + hex.EncodeToString(sum[:])
}

// Get returns a cached verdict, or ok=false on miss or any cache error.
// Cache failures are logged and treated as misses.
func (c *VerdictCache) Get(ctx context.Context, key string) (fusion.Verdict, bool) {
	if c == nil {
		return fusion.Verdict{}, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[CACHE] get failed: %v", err)
		}
		return fusion.Verdict{}, false
	}
	var v fusion.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[CACHE] corrupt entry %s dropped: %v", key, err)
		c.client.Del(ctx, key)
		return fusion.Verdict{}, false
	}
	return v, true
}

// Put stores a verdict with the configured TTL. Best effort; failures are
// logged and ignored.
func (c *VerdictCache) Put(ctx context.Context, key string, v fusion.Verdict) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[CACHE] marshal failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] put failed: %v", err)
	}
}

// Close releases the Redis connection.
func (c *VerdictCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

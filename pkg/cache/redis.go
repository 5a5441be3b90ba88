package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements both cache contracts on a Redis server. Visitor
// snapshots live under one key per visitor with an optional TTL; pending
// hits live in a single hash so the whole set can be read and flushed in
// one round trip.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var (
	_ VisitorCache = (*RedisCache)(nil)
	_ HitCache     = (*RedisCache)(nil)
)

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisPrefix sets the key namespace. The default is "flagship".
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithRedisTTL sets an expiration on visitor snapshot keys. Zero keeps
// snapshots until flushed.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) { c.ttl = ttl }
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client, opts ...RedisOption) (*RedisCache, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	c := &RedisCache{client: client, prefix: "flagship"}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *RedisCache) visitorKey(visitorID string) string {
	return c.prefix + ":visitor:" + visitorID
}

func (c *RedisCache) hitsKey() string {
	return c.prefix + ":hits"
}

func (c *RedisCache) CacheVisitor(ctx context.Context, visitorID string, data []byte) error {
	return c.client.Set(ctx, c.visitorKey(visitorID), data, c.ttl).Err()
}

func (c *RedisCache) LookupVisitor(ctx context.Context, visitorID string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.visitorKey(visitorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (c *RedisCache) FlushVisitor(ctx context.Context, visitorID string) error {
	return c.client.Del(ctx, c.visitorKey(visitorID)).Err()
}

func (c *RedisCache) CacheHits(ctx context.Context, hits map[string][]byte) error {
	if len(hits) == 0 {
		return nil
	}
	fields := make(map[string]any, len(hits))
	for id, data := range hits {
		fields[id] = data
	}
	return c.client.HSet(ctx, c.hitsKey(), fields).Err()
}

func (c *RedisCache) LookupHits(ctx context.Context) (map[string][]byte, error) {
	raw, err := c.client.HGetAll(ctx, c.hitsKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for id, data := range raw {
		out[id] = []byte(data)
	}
	return out, nil
}

func (c *RedisCache) FlushHits(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.client.HDel(ctx, c.hitsKey(), ids...).Err()
}

func (c *RedisCache) FlushAllHits(ctx context.Context) error {
	return c.client.Del(ctx, c.hitsKey()).Err()
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"messaging-service/internal/adapter/db/sqlexec"
)

const queryKeyPrefix = "query:"

// RedisQueryCache caches read query results in Redis. Entries expire after ttl.
// Values round-trip through JSON, so numeric columns come back as float64.
type RedisQueryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisQueryCache creates a new Redis-backed query cache.
func NewRedisQueryCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisQueryCache {
	return &RedisQueryCache{client: client, ttl: ttl, log: log}
}

// QueryKey derives the cache key of a query and its arguments.
func QueryKey(query string, args []any) string {
	h := sha256.New()
	h.Write([]byte(query))
	for _, a := range args {
		fmt.Fprintf(h, "\x00%T:%v", a, a)
	}
	return queryKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached rows for query and args. ok is false on a miss.
func (c *RedisQueryCache) Get(ctx context.Context, query string, args []any) ([]sqlexec.Row, bool, error) {
	key := QueryKey(query, args)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("query cache miss", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		c.log.Error("failed to get query from cache", zap.String("key", key), zap.Error(err))
		return nil, false, err
	}

	var rows []sqlexec.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		c.log.Error("failed to unmarshal cached query", zap.String("key", key), zap.Error(err))
		return nil, false, err
	}
	return rows, true, nil
}

// Set stores rows for query and args.
func (c *RedisQueryCache) Set(ctx context.Context, query string, args []any, rows []sqlexec.Row) error {
	key := QueryKey(query, args)

	data, err := json.Marshal(rows)
	if err != nil {
		c.log.Error("failed to marshal query result", zap.String("key", key), zap.Error(err))
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Error("failed to cache query", zap.String("key", key), zap.Error(err))
		return err
	}

	c.log.Debug("cached query", zap.String("key", key), zap.Int("rows", len(rows)), zap.Duration("ttl", c.ttl))
	return nil
}

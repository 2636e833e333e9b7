// Package ratelimit implements a Redis-backed token bucket shared by the HTTP and gRPC servers.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyPrefix namespaces bucket keys in Redis.
const KeyPrefix = "ratelimit:tb:"

// bucketTTL keeps idle buckets around long enough to refill completely.
const bucketTTL = 60

// tokenBucket refills at ARGV[1] tokens per second up to ARGV[2] and takes ARGV[4] tokens
// at time ARGV[3]. State is {last_refill, tokens}; returns 1 when allowed.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= requested then
	tokens = tokens - requested
	allowed = 1
end

redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
redis.call('EXPIRE', key, ttl)
return allowed
`)

// Config holds the bucket parameters.
type Config struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
}

// Limiter decides whether a request identified by a key may proceed.
type Limiter struct {
	client *redis.Client
	config Config
	log    *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a Limiter. A nil client disables limiting.
func NewLimiter(client *redis.Client, config Config, log *zap.Logger) *Limiter {
	return &Limiter{client: client, config: config, log: log, now: time.Now}
}

// Enabled reports whether requests are checked at all.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.config.Enabled
}

// Config returns the bucket parameters.
func (l *Limiter) Config() Config {
	return l.config
}

// Allow takes one token from the bucket of key. Redis failures are logged and the
// request is allowed.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if !l.Enabled() {
		return true
	}

	now := float64(l.now().UnixMilli()) / 1000
	allowed, err := tokenBucket.Run(ctx, l.client, []string{KeyPrefix + key},
		l.config.RequestsPerSecond,
		l.config.BurstCapacity,
		now,
		1,
		bucketTTL,
	).Int64()
	if err != nil {
		l.log.Warn("rate limiter redis error, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}

	if allowed == 0 {
		l.log.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.Float64("limit", l.config.RequestsPerSecond),
			zap.Int("burst", l.config.BurstCapacity),
		)
		return false
	}
	return true
}

// Key builds a bucket key from the caller identity and the operation.
func Key(operation, client string) string {
	return fmt.Sprintf("%s:%s", operation, client)
}

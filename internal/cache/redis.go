package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "modchat:"

type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Documents

func documentKey(key string) string {
	return keyPrefix + "doc:" + key
}

// Load reads a whole document. Missing keys return nil data.
func (r *RedisClient) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, documentKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save overwrites a whole document. Documents never expire.
func (r *RedisClient) Save(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, documentKey(key), data, 0).Err()
}

// Rate limiting

func rateLimitKey(action, key string) string {
	return fmt.Sprintf("%srl:%s:%s", keyPrefix, action, key)
}

// allowScript is a token bucket kept in a hash of {tokens, last}
var allowScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local vals = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(vals[1])
local last = tonumber(vals[2])
if tokens == nil then tokens = burst end
if last == nil then last = now end
local delta = math.max(0, now - last)
local new_tokens = math.min(burst, tokens + (delta * rate / 1000))
local allowed = 0
if new_tokens >= 1 then
	new_tokens = new_tokens - 1
	allowed = 1
end
redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
redis.call('PEXPIRE', key, 60000)
return allowed
`)

// AllowAction implements a Redis-backed token bucket per key and action.
// Returns true if the action is allowed, false if rate-limited.
func (r *RedisClient) AllowAction(ctx context.Context, key, action string, rate, burst int) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := allowScript.Run(ctx, r.client, []string{rateLimitKey(action, key)}, rate, burst, now).Result()
	if err != nil {
		return false, err
	}
	// Eval returns int64 (1 or 0)
	switch v := res.(type) {
	case int64:
		return v == 1, nil
	default:
		return false, fmt.Errorf("unexpected result from rate limiter: %T %v", res, res)
	}
}

// Fallback is consulted when Redis cannot answer
type Fallback interface {
	Allow(key string) bool
}

// Limiter adapts AllowAction to a per-key limiter, falling back to a local limiter
// whenever Redis errors
type Limiter struct {
	redis    *RedisClient
	action   string
	rate     int
	burst    int
	timeout  time.Duration
	fallback Fallback
}

func NewLimiter(r *RedisClient, action string, rate, burst int, fallback Fallback) *Limiter {
	return &Limiter{
		redis:    r,
		action:   action,
		rate:     rate,
		burst:    burst,
		timeout:  250 * time.Millisecond,
		fallback: fallback,
	}
}

func (l *Limiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	ok, err := l.redis.AllowAction(ctx, key, l.action, l.rate, l.burst)
	if err != nil {
		return l.fallback.Allow(key)
	}
	return ok
}

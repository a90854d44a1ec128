package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type countingFallback struct {
	calls int
	allow bool
}

func (f *countingFallback) Allow(key string) bool {
	f.calls++
	return f.allow
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "modchat:doc:bans", documentKey("bans"))
	assert.Equal(t, "modchat:rl:submit:abc", rateLimitKey("submit", "abc"))
}

func TestLimiter_FallsBackWhenRedisIsDown(t *testing.T) {
	// nothing listens on this port, every call errors out quickly
	client := &RedisClient{client: redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})}
	defer client.Close()

	fb := &countingFallback{allow: true}
	l := NewLimiter(client, "submit", 5, 10, fb)

	assert.True(t, l.Allow("session-1"))
	assert.Equal(t, 1, fb.calls)

	fb.allow = false
	assert.False(t, l.Allow("session-1"))
	assert.Equal(t, 2, fb.calls)
}

func TestLoad_ErrorWhenRedisIsDown(t *testing.T) {
	client := &RedisClient{client: redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})}
	defer client.Close()

	_, err := client.Load(context.Background(), "bans")
	assert.Error(t, err)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryRateLimiterAllow(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 2)

	if !l.Allow("a@x.com") || !l.Allow("a@x.com") {
		t.Fatalf("expected first two requests allowed")
	}
	if l.Allow("a@x.com") {
		t.Fatalf("expected third request within window rejected")
	}
	// Claves independientes no comparten ventana.
	if !l.Allow("b@x.com") {
		t.Fatalf("expected distinct key allowed")
	}
}

func TestMemoryRateLimiterWindowExpiry(t *testing.T) {
	l := NewMemoryRateLimiter(10*time.Millisecond, 1)

	if !l.Allow("a@x.com") {
		t.Fatalf("expected first request allowed")
	}
	if l.Allow("a@x.com") {
		t.Fatalf("expected second request rejected")
	}
	time.Sleep(15 * time.Millisecond)
	if !l.Allow("a@x.com") {
		t.Fatalf("expected request allowed after window")
	}
}

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisRateLimiter
		if !l.Allow("a@x.com") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisRateLimiter{client: &mockRedisEvaler{result: 1}, window: time.Minute, max: 3, prefix: "auth:rl:"}
		if l.Allow("   ") {
			t.Fatalf("expected empty key rejected")
		}
	})

	t.Run("allow within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 3}
		l := &redisRateLimiter{client: mock, window: time.Minute, max: 3, prefix: "auth:rl:"}
		if !l.Allow("A@X.com") {
			t.Fatalf("expected request within max allowed")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "auth:rl:a@x.com" {
			t.Fatalf("expected normalized key, got %v", mock.lastKeys)
		}
	})

	t.Run("reject over max", func(t *testing.T) {
		l := &redisRateLimiter{client: &mockRedisEvaler{result: 4}, window: time.Minute, max: 3, prefix: "auth:rl:"}
		if l.Allow("a@x.com") {
			t.Fatalf("expected request over max rejected")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := &redisRateLimiter{client: &mockRedisEvaler{err: errors.New("down")}, window: time.Minute, max: 3, prefix: "auth:rl:"}
		if !l.Allow("a@x.com") {
			t.Fatalf("expected fail-open on redis error")
		}
	})
}

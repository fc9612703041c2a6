package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func newTestRedisLimiter(client redisEvaler, window time.Duration) *redisOTPRateLimiter {
	l := newRedisOTPRateLimiter(client, window, 3, nil)
	l.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return l
}

func TestRedisOTPRateLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisOTPRateLimiter
		if !l.Allow(ctx, "faculty@cse.edu") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 1}
		l := newTestRedisLimiter(mock, time.Minute)
		if l.Allow(ctx, "   ") {
			t.Fatalf("expected empty key to be rejected")
		}
		if mock.lastScript != "" {
			t.Fatalf("redis must not be called for an empty key")
		}
	})

	t.Run("admitted request passes window arguments", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 1}
		l := newTestRedisLimiter(mock, 10*time.Minute)
		if !l.Allow(ctx, " Faculty@CSE.edu ") {
			t.Fatalf("expected request to be admitted")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "projector:otp:requests:faculty@cse.edu" {
			t.Fatalf("unexpected key normalization, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 4 {
			t.Fatalf("expected 4 script args, got %+v", mock.lastArgs)
		}
		if mock.lastArgs[0] != int64(1_700_000_000_000) || mock.lastArgs[1] != int64(600_000) || mock.lastArgs[2] != 3 {
			t.Fatalf("unexpected window args: %+v", mock.lastArgs[:3])
		}
		if member, ok := mock.lastArgs[3].(string); !ok || member == "" {
			t.Fatalf("expected a unique member, got %v", mock.lastArgs[3])
		}
		if mock.lastScript != otpSlidingWindowScript {
			t.Fatalf("expected sliding window script")
		}
	})

	t.Run("deny when window is full", func(t *testing.T) {
		l := newTestRedisLimiter(&mockRedisEvaler{result: 0}, time.Minute)
		if l.Allow(ctx, "faculty@cse.edu") {
			t.Fatalf("expected deny when the script rejects")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := newTestRedisLimiter(&mockRedisEvaler{err: errors.New("redis down")}, time.Minute)
		if !l.Allow(ctx, "faculty@cse.edu") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}

func TestMemoryOTPRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	l := newOTPRateLimiter(10*time.Minute, 3, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "faculty@cse.edu") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "FACULTY@cse.edu") {
		t.Fatalf("fourth request in window should be denied")
	}
	if !l.Allow(ctx, "other@cse.edu") {
		t.Fatalf("keys must be independent")
	}

	now = now.Add(10*time.Minute + time.Second)
	if !l.Allow(ctx, "faculty@cse.edu") {
		t.Fatalf("window should have slid")
	}
}

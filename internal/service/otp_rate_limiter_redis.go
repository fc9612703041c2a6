package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ventana deslizante sobre un sorted set: score = instante de la solicitud en ms.
// Solo registra la solicitud si todavía hay cupo; devuelve 1 si se admite.
const otpSlidingWindowScript = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`

const otpLimiterKeyPrefix = "projector:otp:requests:"

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisOTPRateLimiter comparte el cupo de solicitudes de OTP entre réplicas.
// Si Redis no responde, deja pasar la solicitud.
type redisOTPRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	logger *zap.Logger
	now    func() time.Time
}

func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, max int, logger *zap.Logger) OTPRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisOTPRateLimiter(client, window, max, logger)
}

func newRedisOTPRateLimiter(client redisEvaler, window time.Duration, max int, logger *zap.Logger) *redisOTPRateLimiter {
	if window < time.Millisecond {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisOTPRateLimiter{
		client: client,
		window: window,
		max:    max,
		logger: logger,
		now:    time.Now,
	}
}

func (l *redisOTPRateLimiter) Allow(ctx context.Context, email string) bool {
	if l == nil || l.client == nil {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	nowMs := l.now().UnixMilli()
	admitted, err := l.client.Eval(ctx, otpSlidingWindowScript,
		[]string{otpLimiterKeyPrefix + email},
		nowMs, l.window.Milliseconds(), l.max, uuid.NewString(),
	).Int()
	if err != nil {
		l.logger.Warn("otp rate limiter unavailable, allowing request",
			zap.String("email", email), zap.Error(err))
		return true
	}
	return admitted == 1
}

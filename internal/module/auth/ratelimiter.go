package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// LoginLimiter rate limits login attempts per username and client IP
// using a sliding window in Redis. Redis calls run behind a circuit
// breaker: if Redis is unreachable the limiter fails open so logins keep
// working without rate limiting.
type LoginLimiter struct {
	redis   redis.UniversalClient
	breaker *gobreaker.CircuitBreaker[bool]
	limit   int64
	window  time.Duration
	logger  *zap.Logger
}

// NewLoginLimiter creates a new login rate limiter.
func NewLoginLimiter(client redis.UniversalClient, limit int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	breaker := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:    "login-limiter",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &LoginLimiter{
		redis:   client,
		breaker: breaker,
		limit:   int64(limit),
		window:  window,
		logger:  logger,
	}
}

// slidingWindowScript atomically prunes the window, counts attempts, and
// records the new attempt when under the limit. Returns 1 if allowed.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local expiry_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)
	if current >= limit then
		return 0
	end

	redis.call('ZADD', key, now, now)
	redis.call('PEXPIRE', key, expiry_ms)
	return 1
`)

// Allow reports whether another login attempt is permitted for the given
// username/IP pair. Errors talking to Redis are logged and treated as
// permission.
func (l *LoginLimiter) Allow(ctx context.Context, username, clientIP string) bool {
	allowed, err := l.breaker.Execute(func() (bool, error) {
		key := fmt.Sprintf("loginlimit:%s:%s", username, clientIP)
		now := time.Now().UnixNano()
		windowStart := now - l.window.Nanoseconds()

		result, err := slidingWindowScript.Run(ctx, l.redis, []string{key},
			windowStart,
			now,
			l.limit,
			l.window.Milliseconds()+60000,
		).Int64()
		if err != nil {
			return false, fmt.Errorf("rate limit check failed: %w", err)
		}
		return result == 1, nil
	})
	if err != nil {
		l.logger.Warn("login rate limiter unavailable, failing open", zap.Error(err))
		return true
	}
	return allowed
}

// Reset clears the attempt counter for a username/IP pair.
func (l *LoginLimiter) Reset(ctx context.Context, username, clientIP string) error {
	return l.redis.Del(ctx, fmt.Sprintf("loginlimit:%s:%s", username, clientIP)).Err()
}

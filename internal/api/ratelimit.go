package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/customer-core/internal/infrastructure/config"
)

// LoginLimiter throttles login attempts with a fixed window counter in
// Redis. Each client key gets one counter per window; the first attempt
// in a window sets the expiry and every attempt increments it.
type LoginLimiter struct {
	client   *redis.Client
	attempts int
	window   time.Duration
}

// NewLoginLimiter creates a limiter over an existing Redis client.
func NewLoginLimiter(client *redis.Client, cfg config.RateLimitConfig) *LoginLimiter {
	return &LoginLimiter{
		client:   client,
		attempts: cfg.LoginAttempts,
		window:   time.Duration(cfg.WindowSeconds) * time.Second,
	}
}

// Allow records one attempt for the key and reports whether it is still
// within the window's budget.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "login_attempts:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incrementing rate limit counter: %w", err)
	}

	// First attempt in this window starts the clock.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("setting rate limit window: %w", err)
		}
	}

	return count <= int64(l.attempts), nil
}

// Reset clears the counter for a key. Used after a successful login so
// legitimate users are not penalised for earlier typos.
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, "login_attempts:"+key).Err(); err != nil {
		return fmt.Errorf("resetting rate limit counter: %w", err)
	}
	return nil
}

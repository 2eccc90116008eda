package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garagelink/drivescan/pkg/errx"
)

// RedisLoginThrottle implements LoginThrottle on a Redis counter per key
// with a rolling window set on the first attempt.
type RedisLoginThrottle struct {
	client  *redis.Client
	limit   int
	window  time.Duration
	keyFunc func(string) string
}

// NewRedisLoginThrottle creates a throttle allowing `limit` attempts per window.
func NewRedisLoginThrottle(client *redis.Client, limit int, window time.Duration) *RedisLoginThrottle {
	return &RedisLoginThrottle{
		client: client,
		limit:  limit,
		window: window,
		keyFunc: func(key string) string {
			return fmt.Sprintf("login_attempts:%s", key)
		},
	}
}

// Hit records an attempt and reports whether the caller is over limit.
func (t *RedisLoginThrottle) Hit(ctx context.Context, key string) (bool, error) {
	rkey := t.keyFunc(key)

	count, err := t.client.Incr(ctx, rkey).Result()
	if err != nil {
		return false, errx.Wrap(err, "failed to record login attempt", errx.TypeInternal)
	}
	if count == 1 {
		// First attempt in this window owns the expiry.
		if err := t.client.Expire(ctx, rkey, t.window).Err(); err != nil {
			return false, errx.Wrap(err, "failed to set attempt window", errx.TypeInternal)
		}
	}
	return count > int64(t.limit), nil
}

// Reset clears the counter after a successful login.
func (t *RedisLoginThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.keyFunc(key)).Err(); err != nil {
		return errx.Wrap(err, "failed to reset login attempts", errx.TypeInternal)
	}
	return nil
}

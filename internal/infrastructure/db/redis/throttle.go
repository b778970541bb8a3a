package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts attempts per key in fixed windows.
// Key format: throttle:login:<key>
// The window opens with SET NX EX, which needs Redis 2.6.12 or later.
type LoginThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLoginThrottle allows limit attempts per key per window.
func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, limit: int64(limit), window: window}
}

// Allow records one attempt and reports whether it is within the limit.
// On Redis failure it reports true together with the error.
func (t *LoginThrottle) Allow(ctx context.Context, key string) (bool, error) {
	k := t.key(key)

	pipe := t.client.TxPipeline()
	pipe.SetNX(ctx, k, 0, t.window)
	incr := pipe.Incr(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("throttle check: %w", err)
	}
	return incr.Val() <= t.limit, nil
}

func (t *LoginThrottle) key(key string) string {
	return "throttle:login:" + key
}

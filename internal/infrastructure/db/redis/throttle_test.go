package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableClient points at a closed port so every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLoginThrottle_Allow(t *testing.T) {
	mr, client := newMiniredisClient(t)
	throttle := NewLoginThrottle(client, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, err := throttle.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i)
	}

	allowed, err := throttle.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, allowed, "attempt over the limit should be rejected")

	got, err := mr.Get("throttle:login:203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "4", got)
	assert.Equal(t, time.Minute, mr.TTL("throttle:login:203.0.113.7"))

	other, err := throttle.Allow(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, other, "keys are counted independently")
}

func TestLoginThrottle_WindowDoesNotSlide(t *testing.T) {
	mr, client := newMiniredisClient(t)
	throttle := NewLoginThrottle(client, 1, time.Minute)
	ctx := context.Background()

	_, err := throttle.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)

	mr.FastForward(40 * time.Second)
	allowed, err := throttle.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 20*time.Second, mr.TTL("throttle:login:203.0.113.7"))
}

func TestLoginThrottle_ResetsAfterWindow(t *testing.T) {
	mr, client := newMiniredisClient(t)
	throttle := NewLoginThrottle(client, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := throttle.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
	}

	mr.FastForward(time.Minute)
	require.False(t, mr.Exists("throttle:login:203.0.113.7"))

	allowed, err := throttle.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLoginThrottle_FailsOpen(t *testing.T) {
	throttle := NewLoginThrottle(unreachableClient(t), 1, time.Minute)

	allowed, err := throttle.Allow(context.Background(), "203.0.113.7")

	require.Error(t, err)
	assert.True(t, allowed)
	assert.Contains(t, err.Error(), "throttle check")
}

func TestLoginThrottle_Key(t *testing.T) {
	throttle := NewLoginThrottle(nil, 1, time.Minute)
	assert.Equal(t, "throttle:login:203.0.113.7", throttle.key("203.0.113.7"))
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestPinger(t *testing.T) {
	p := Pinger{Client: unreachableClient(t)}
	assert.Equal(t, "redis", p.Name())
	assert.Error(t, p.Ping(context.Background()))
}

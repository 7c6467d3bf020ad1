package userstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func redisAddr() string { return "localhost:6379" }

func TestRedis(t *testing.T) {
	// Skip if Redis is not available
	pinger := redis.NewClient(&redis.Options{Addr: redisAddr()})
	if err := pinger.Ping(context.Background()).Err(); err != nil {
		_ = pinger.Close()
		t.Skipf("Redis not available: %v", err)
	}
	_ = pinger.Close()

	runStoreTests(t, func(t *testing.T, now func() time.Time) Store {
		client := redis.NewClient(&redis.Options{Addr: redisAddr()})
		prefix := "test:honeyid:" + uuid.NewString() + ":"
		var opts []Option
		if now != nil {
			opts = append(opts, WithClock(now))
		}
		s := NewRedisWithClient(client, prefix, opts...)
		t.Cleanup(func() {
			ctx := context.Background()
			keys, _ := client.Keys(ctx, prefix+"*").Result()
			if len(keys) > 0 {
				_ = client.Del(ctx, keys...).Err()
			}
			_ = s.Close()
		})
		return s
	})
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Port 1 is reserved and refuses connections.
	_, err := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("NewRedis() error = nil, want ping failure")
	}
}

func TestRedisConfig_Env(t *testing.T) {
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	t.Setenv("HONEYID_USERS_KEY_PREFIX", "custom:")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisFromEnv(ctx)
	if err == nil {
		t.Fatal("NewRedisFromEnv() error = nil, want ping failure")
	}
	// The configured address shows up in the error.
	if got := err.Error(); !strings.Contains(got, "127.0.0.1:1") {
		t.Errorf("NewRedisFromEnv() error = %q, want address 127.0.0.1:1", got)
	}
}

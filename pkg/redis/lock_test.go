package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ekaty/ekaty-backend/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func unreachableClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRunLock_AcquireFailsWhenRedisIsDown(t *testing.T) {
	lock := NewRunLock(unreachableClient(t))

	ok, err := lock.Acquire(context.Background(), "ekaty:sync:lock", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, lock.tokens)
}

func TestRunLock_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	lock := NewRunLock(unreachableClient(t))

	assert.NoError(t, lock.Release(context.Background(), "ekaty:sync:lock"))
}

func TestOptions(t *testing.T) {
	opts := Options(&config.RedisConfig{Host: "cache.internal", Port: "6380", Password: "pw", DB: 2})

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)
}

func TestInit_Unreachable(t *testing.T) {
	err := Init(&config.RedisConfig{Host: "127.0.0.1", Port: "1"})
	assert.ErrorContains(t, err, "127.0.0.1:1 unreachable")
	assert.Nil(t, GetClient())
	assert.NoError(t, Close())
}

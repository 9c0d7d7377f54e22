package redis

import (
	"context"
	"sync"
	"time"

	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a SET NX lock held for at most its TTL.
type RunLock struct {
	client redis.Cmdable

	mu     sync.Mutex
	tokens map[string]string
}

func NewRunLock(client redis.Cmdable) *RunLock {
	return &RunLock{
		client: client,
		tokens: make(map[string]string),
	}
}

// Acquire reports whether the lock on key was taken.
func (l *RunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		logger.Error("Failed to acquire run lock", err, map[string]interface{}{
			"key": key,
		})
		return false, err
	}
	if !ok {
		logger.Debug("Run lock held elsewhere", map[string]interface{}{
			"key": key,
		})
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()

	logger.Debug("Run lock acquired", map[string]interface{}{
		"key": key,
		"ttl": ttl.String(),
	})
	return true, nil
}

// Release drops key if this process still owns it.
func (l *RunLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		logger.Error("Failed to release run lock", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	return nil
}

package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ekaty/ekaty-backend/config"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

var client *redis.Client

// Options maps the environment settings onto a small client: only the
// sync lock talks to Redis, so a handful of connections is plenty.
func Options(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// Init connects the shared client and fails when Redis does not answer.
func Init(cfg *config.RedisConfig) error {
	opts := Options(cfg)
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": opts.Addr,
		"db":   opts.DB,
	})

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}

	client = c
	logger.Info("Redis connection established")
	return nil
}

// GetClient returns the shared client, nil before a successful Init.
func GetClient() *redis.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

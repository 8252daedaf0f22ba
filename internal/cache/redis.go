package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "goimages:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the redis URL, e.g. redis://localhost:6379/0.
func NewRedisCache(connectionString string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	fields, err := c.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil, err
	}
	data, ok := fields["data"]
	if !ok {
		return nil, nil
	}
	return &Entry{Data: []byte(data), Extension: fields["extension"]}, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entry *Entry) error {
	redisKey := redisKeyPrefix + key
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKey)
		pipe.HSet(ctx, redisKey, "data", entry.Data, "extension", entry.Extension)
		if c.ttl > 0 {
			pipe.Expire(ctx, redisKey, c.ttl)
		}
		return nil
	})
	return err
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Package repository contains the repository layer for the Tagbin API
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tagbin/tagbinapi/internal/config"
)

// ConnectRedis connects to the Redis instance used as the read-through
// cache. Redis is never authoritative; every cached entry is
// invalidated on write.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
	})
	// Check Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := redisClient.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	return redisClient, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"relay-gateway/internal/database"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{
		client: client,
	}
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit implements a sliding window counter over a sorted set. It
// reports whether the caller identified by key is still under limit for the
// window.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).Unix()

	pipe := r.client.GetClient().Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	// Count current entries
	pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	count := results[1].(*redis.IntCmd).Val()

	return count < int64(limit), nil
}

func (r *RedisService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

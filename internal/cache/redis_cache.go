package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/trip-search/internal/models"
)

// RedisCache shares search results between server replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(addr, password string, ttl time.Duration, logger *slog.Logger) *RedisCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisCache{client: c, ttl: ttl, logger: logger}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]models.TripResult, bool) {
	b, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("search cache get failed", "error", err)
		}
		return nil, false
	}
	var out []models.TripResult
	if err := json.Unmarshal(b, &out); err != nil {
		r.logger.Warn("search cache entry corrupt", "error", err)
		return nil, false
	}
	return out, true
}

func (r *RedisCache) Set(ctx context.Context, key string, results []models.TripResult) {
	b, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKey(key), b, r.ttl).Err(); err != nil {
		r.logger.Warn("search cache set failed", "error", err)
	}
}

func (r *RedisCache) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisCache) Close() error { return r.client.Close() }

func redisKey(key string) string { return "search:" + key }

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbuddy/config"
	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client        redis.Cmdable
	candidatesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, candidatesTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), candidatesTTL)
}

func NewRedisCacheWithClient(client redis.Cmdable, candidatesTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, candidatesTTL: candidatesTTL}
}

// GetCandidates returns nil, nil on a miss.
func (c *RedisCache) GetCandidates(ctx context.Context, key string) ([]domain.CompanionCandidate, error) {
	data, err := c.client.Get(ctx, candidatesKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var candidates []domain.CompanionCandidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (c *RedisCache) SetCandidates(ctx context.Context, key string, candidates []domain.CompanionCandidate) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, candidatesKey(key), payload, c.candidatesTTL).Err()
}

// AcquireSeatLock holds a seat next to a companion while the traveler pays.
func (c *RedisCache) AcquireSeatLock(ctx context.Context, flight domain.RouteKey, seat string, holder string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, seatLockKey(flight, seat), holder, ttl).Result()
}

func (c *RedisCache) ReleaseSeatLock(ctx context.Context, flight domain.RouteKey, seat string) error {
	return c.client.Del(ctx, seatLockKey(flight, seat)).Err()
}

func candidatesKey(key string) string {
	return "cache:companions:" + key
}

func seatLockKey(flight domain.RouteKey, seat string) string {
	return fmt.Sprintf("lock:flight:%s:seat:%s", flight, seat)
}

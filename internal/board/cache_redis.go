package board

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"dinein/internal/order/models"
)

// RedisCache stores board snapshots as JSON with a short TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]*models.Order, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var orders []*models.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, false, err
	}
	return orders, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, orders []*models.Order) error {
	if orders == nil {
		orders = []*models.Order{}
	}
	raw, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

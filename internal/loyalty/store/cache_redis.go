package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"dinein/internal/loyalty/models"
	id "dinein/pkg/domain"
)

const summaryKeyPrefix = "loyalty:summary:"

// RedisSummaryCache caches loyalty summaries between accruals.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, ttl: ttl}
}

// Get returns the cached summary. A miss is (nil, nil).
func (c *RedisSummaryCache) Get(ctx context.Context, customerID id.CustomerID) (*models.Summary, error) {
	raw, err := c.client.Get(ctx, summaryKeyPrefix+customerID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary models.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, summary *models.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKeyPrefix+summary.CustomerID.String(), raw, c.ttl).Err()
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, customerID id.CustomerID) error {
	return c.client.Del(ctx, summaryKeyPrefix+customerID.String()).Err()
}

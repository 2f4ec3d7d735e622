package redisfeed

import (
	"context"

	"github.com/kabradhruv/triarb-scanner/internal/config"
	"github.com/redis/go-redis/v9"
)

// Consumer reads the live feed back; dashboards and smoke tests use it.
type Consumer struct {
	rdb    *redis.Client
	stream string
}

func NewConsumer(cfg *config.Config) *Consumer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Consumer{rdb: rdb, stream: cfg.Redis.Stream}
}

// LastOutcome читает HASH verify:last:<MID><END> последнего результата.
func (c *Consumer) LastOutcome(ctx context.Context, mid, end string) (map[string]string, error) {
	m, err := c.rdb.HGetAll(ctx, lastNS+mid+end).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, redis.Nil
	}
	return m, nil
}

// RecentOutcomes returns up to count newest entries from the stream.
func (c *Consumer) RecentOutcomes(ctx context.Context, count int64) ([]redis.XMessage, error) {
	return c.rdb.XRevRangeN(ctx, c.stream, "+", "-", count).Result()
}

func (c *Consumer) Close() error { return c.rdb.Close() }

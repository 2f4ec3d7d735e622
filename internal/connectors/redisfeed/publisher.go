package redisfeed

import (
	"context"
	"time"

	"github.com/kabradhruv/triarb-scanner/internal/config"
	"github.com/kabradhruv/triarb-scanner/internal/types"
	"github.com/redis/go-redis/v9"
)

// Publisher mirrors verification outcomes into Redis as a live feed for
// external dashboards. The feed is ephemeral: a capped stream plus a
// TTL'd last-outcome hash per cycle, no durable history.
type Publisher struct {
	rdb    *redis.Client
	stream string
}

const (
	lastNS   = "verify:last:"
	lastTTL  = 5 * time.Minute
	maxEntry = 1000
)

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{rdb: rdb, stream: cfg.Redis.Stream}
}

func (p *Publisher) PublishOutcome(ctx context.Context, o types.Outcome) error {
	vals := map[string]interface{}{
		"cycle":        o.Candidate.Cycle.String(),
		"status":       string(o.Status),
		"reported_pct": o.Candidate.ReportedProfitPct.String(),
		"source":       o.Candidate.Source,
		"ts_ms":        o.Ts.UnixMilli(),
	}
	if o.Verification != nil {
		vals["ratio"] = o.Verification.Ratio.String()
		vals["final"] = o.Verification.Final.String()
	}
	if o.Reason != "" {
		vals["reason"] = o.Reason
	}

	key := lastNS + o.Candidate.Cycle[1] + o.Candidate.Cycle[2]
	if err := p.rdb.HSet(ctx, key, vals).Err(); err != nil {
		return err
	}
	if err := p.rdb.Expire(ctx, key, lastTTL).Err(); err != nil {
		return err
	}
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxEntry,
		Approx: true,
		Values: vals,
	}).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }

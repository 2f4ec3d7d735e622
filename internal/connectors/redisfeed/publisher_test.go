package redisfeed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kabradhruv/triarb-scanner/internal/config"
	"github.com/kabradhruv/triarb-scanner/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedConfig(addr string) *config.Config {
	cfg := &config.Config{}
	cfg.Redis.Addr = addr
	cfg.Redis.Stream = "verify:stream"
	return cfg
}

func sampleOutcome() types.Outcome {
	cand := types.Candidate{
		Cycle:             types.NewCycle("USDT", "GALA", "BTC", "USDT"),
		ReportedProfitPct: decimal.RequireFromString("1.45"),
		Source:            "http://src.test/page",
		DiscoveredAt:      time.Now(),
	}
	return types.Outcome{
		Candidate: cand,
		Status:    types.StatusClosed,
		Verification: &types.Verification{
			Candidate: cand,
			Notional:  decimal.RequireFromString("100"),
			Final:     decimal.RequireFromString("96"),
			Ratio:     decimal.RequireFromString("0.96"),
		},
		Ts: time.Now(),
	}
}

func TestPublishOutcome(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newFeedConfig(mr.Addr())

	pub := NewPublisher(cfg)
	defer pub.Close()
	require.NoError(t, pub.PublishOutcome(context.Background(), sampleOutcome()))

	cons := NewConsumer(cfg)
	defer cons.Close()

	last, err := cons.LastOutcome(context.Background(), "GALA", "BTC")
	require.NoError(t, err)
	assert.Equal(t, "USDT -> GALA -> BTC -> USDT", last["cycle"])
	assert.Equal(t, "CLOSED", last["status"])
	assert.Equal(t, "0.96", last["ratio"])
	assert.Equal(t, "http://src.test/page", last["source"])

	msgs, err := cons.RecentOutcomes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "CLOSED", msgs[0].Values["status"])

	// последний результат живёт недолго — фид эфемерный
	mr.FastForward(lastTTL + time.Second)
	_, err = cons.LastOutcome(context.Background(), "GALA", "BTC")
	assert.Error(t, err)
}

func TestPublishOutcome_Unverifiable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newFeedConfig(mr.Addr())

	pub := NewPublisher(cfg)
	defer pub.Close()

	o := sampleOutcome()
	o.Status = types.StatusUnverifiable
	o.Verification = nil
	o.Reason = "QUOTE_UNAVAILABLE: leg 3 (BTCUSDT)"
	require.NoError(t, pub.PublishOutcome(context.Background(), o))

	cons := NewConsumer(cfg)
	defer cons.Close()
	last, err := cons.LastOutcome(context.Background(), "GALA", "BTC")
	require.NoError(t, err)
	assert.Equal(t, "UNVERIFIABLE", last["status"])
	assert.Contains(t, last["reason"], "leg 3")
	_, hasRatio := last["ratio"]
	assert.False(t, hasRatio)
}

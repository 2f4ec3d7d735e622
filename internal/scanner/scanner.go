package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kabradhruv/triarb-scanner/internal/config"
	"github.com/kabradhruv/triarb-scanner/internal/extractor"
	"github.com/kabradhruv/triarb-scanner/internal/fetcher"
	imetrics "github.com/kabradhruv/triarb-scanner/internal/metrics"
	"github.com/kabradhruv/triarb-scanner/internal/types"
	"github.com/kabradhruv/triarb-scanner/internal/verifier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feed receives every emitted outcome; the redis publisher implements
// it. A nil feed disables mirroring.
type Feed interface {
	PublishOutcome(ctx context.Context, o types.Outcome) error
}

// Scanner drives the poll loop: fetch all sources, extract candidates,
// re-verify each against live quotes, emit, sleep, repeat. It only
// stops when its context is cancelled.
type Scanner struct {
	cfg  *config.Config
	log  *zap.Logger
	urls []string
	ftch *fetcher.Fetcher
	vrf  *verifier.Verifier
	feed Feed
}

func New(cfg *config.Config, log *zap.Logger, urls []string, provider verifier.QuoteProvider, feed Feed) *Scanner {
	return &Scanner{
		cfg:  cfg,
		log:  log,
		urls: urls,
		ftch: fetcher.New(cfg, log),
		vrf:  verifier.New(provider, log),
		feed: feed,
	}
}

func (s *Scanner) Run(ctx context.Context) {
	s.log.Info("scanner started",
		zap.Int("sources", len(s.urls)),
		zap.String("base", s.cfg.BaseCurrency),
		zap.String("threshold_pct", s.cfg.Scraper.ProfitThresholdPct),
		zap.Duration("poll_interval", s.cfg.PollInterval()),
	)
	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return
		case <-time.After(s.cfg.PollInterval()):
		}
	}
}

// RunCycle performs one full poll across every source endpoint and
// returns the cycle's outcomes in arrival order. A failed endpoint or a
// rejected candidate never blocks its siblings.
func (s *Scanner) RunCycle(ctx context.Context) []types.Outcome {
	pages := s.ftch.FetchAll(ctx, s.urls)

	var (
		mu       sync.Mutex
		outcomes []types.Outcome
		g        errgroup.Group
	)
	g.SetLimit(s.cfg.Scraper.Concurrency)

	for _, res := range pages {
		res := res
		if res.Err != nil {
			s.log.Warn("endpoint skipped this cycle",
				zap.String("url", res.URL),
				zap.Int("attempts", res.Attempts),
				zap.Error(res.Err),
			)
			continue
		}
		g.Go(func() error {
			for _, o := range s.processPage(ctx, res.URL, res.Body) {
				mu.Lock()
				outcomes = append(outcomes, o)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Scanner) processPage(ctx context.Context, url, body string) []types.Outcome {
	cands, st := extractor.Extract(body, s.cfg.BaseCurrency, s.cfg.ProfitThreshold(), url, s.log)
	if st.SkippedRows > 0 {
		imetrics.RowsSkipped.Add(float64(st.SkippedRows))
	}
	if len(cands) == 0 {
		return nil
	}
	imetrics.Candidates.Add(float64(len(cands)))

	out := make([]types.Outcome, 0, len(cands))
	for _, cand := range cands {
		s.log.Info("opportunity reported",
			zap.String("cycle", cand.Cycle.String()),
			zap.String("profit_pct", cand.ReportedProfitPct.StringFixed(2)),
			zap.String("url", cand.Source),
			zap.Time("discovered_at", cand.DiscoveredAt),
		)
		o := s.verifyOne(ctx, cand)
		s.emit(ctx, o)
		out = append(out, o)
	}
	return out
}

func (s *Scanner) verifyOne(ctx context.Context, cand types.Candidate) types.Outcome {
	res, err := s.vrf.Verify(ctx, cand, s.cfg.StartingNotional())
	if err != nil {
		return types.Outcome{
			Candidate: cand,
			Status:    types.StatusUnverifiable,
			Reason:    err.Error(),
			Ts:        time.Now(),
		}
	}
	status := types.StatusClosed
	if res.Ratio.GreaterThan(s.cfg.PassRatio()) {
		status = types.StatusConfirmed
	}
	return types.Outcome{
		Candidate:    cand,
		Status:       status,
		Verification: &res,
		Ts:           time.Now(),
	}
}

// emit is the scanner's sole output surface: one structured line per
// outcome plus the three-leg breakdown, mirrored to metrics and the
// optional feed. Ratio ≤ 1 is an expected result, not an error.
func (s *Scanner) emit(ctx context.Context, o types.Outcome) {
	imetrics.Verifications.WithLabelValues(string(o.Status)).Inc()

	switch o.Status {
	case types.StatusUnverifiable:
		s.log.Warn("could not verify",
			zap.String("cycle", o.Candidate.Cycle.String()),
			zap.String("reason", o.Reason),
		)
	default:
		v := o.Verification
		ratio, _ := v.Ratio.Float64()
		imetrics.LastRatio.Set(ratio)

		fields := []zap.Field{
			zap.String("cycle", o.Candidate.Cycle.String()),
			zap.String("notional", v.Notional.StringFixed(8)),
			zap.String("final", v.Final.StringFixed(8)),
			zap.String("ratio", v.Ratio.StringFixed(8)),
		}
		for i, leg := range v.Legs {
			fields = append(fields,
				zap.String(legKey(i, "pair"), leg.Pair+"/"+leg.Side),
				zap.String(legKey(i, "price"), leg.Price.StringFixed(8)),
				zap.String(legKey(i, "amount"), leg.Amount.StringFixed(8)),
			)
		}
		if o.Status == types.StatusConfirmed {
			s.log.Info("arbitrage opportunity confirmed", fields...)
		} else {
			s.log.Info("window closed by verification time", fields...)
		}
	}

	if s.feed != nil {
		if err := s.feed.PublishOutcome(ctx, o); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("feed publish failed", zap.Error(err))
		}
	}
}

func legKey(i int, suffix string) string {
	return fmt.Sprintf("leg%d_%s", i+1, suffix)
}

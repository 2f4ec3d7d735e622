package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kabradhruv/triarb-scanner/internal/config"
	"github.com/kabradhruv/triarb-scanner/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const arbPage = `<html><body><div class="esgTile p-l-10 p-r-10"><table class="table">
<tr><th>Start</th><th>Buy 1</th><th></th><th>Buy 2</th><th></th><th>Buy 3</th><th>Profit</th></tr>
<tr>
	<td><span class="p-5">USDT</span></td>
	<td><span class="p-5">GALA</span></td>
	<td></td>
	<td><span class="p-5">BTC</span></td>
	<td></td>
	<td><span class="p-5">USDT</span></td>
	<td><div class="esgTile p-l-10 p-r-10">1.45 %</div></td>
</tr>
<tr>
	<td><span class="p-5">USDT</span></td>
	<td><span class="p-5">XYZ</span></td>
	<td></td>
	<td><span class="p-5">BTC</span></td>
	<td></td>
	<td><span class="p-5">USDT</span></td>
	<td><div class="esgTile p-l-10 p-r-10">2.00 %</div></td>
</tr>
</table></div></body></html>`

type stubProvider struct {
	quotes map[string]types.Quote
}

func (s *stubProvider) BestBidAsk(_ context.Context, symbol string) (types.Quote, error) {
	q, ok := s.quotes[symbol]
	if !ok {
		return types.Quote{}, fmt.Errorf("symbol %s not found", symbol)
	}
	return q, nil
}

type recordingFeed struct {
	mu       sync.Mutex
	outcomes []types.Outcome
}

func (f *recordingFeed) PublishOutcome(_ context.Context, o types.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestConfig() *config.Config {
	cfg := &config.Config{BaseCurrency: "USDT"}
	cfg.Scraper.ProfitThresholdPct = "1"
	cfg.Scraper.Concurrency = 4
	cfg.Scraper.MaxRetries = 2
	cfg.Scraper.RequestTimeoutMs = 2000
	cfg.Scraper.RetryDelayMs = 10
	cfg.Scraper.PollIntervalMs = 10
	cfg.Scraper.UserAgent = "test-agent"
	cfg.Verify.StartingNotional = "100"
	cfg.Verify.PassRatio = "1"
	return cfg
}

// GALA quotes give ratio 1.2 (confirmed); XYZ legs are missing from the
// provider, so that candidate is unverifiable.
func newStubProvider() *stubProvider {
	return &stubProvider{quotes: map[string]types.Quote{
		"GALAUSDT": {Symbol: "GALAUSDT", BestBid: dec("0.049"), BestAsk: dec("0.05")},
		"GALABTC":  {Symbol: "GALABTC", BestBid: dec("0.000001"), BestAsk: dec("0.0000011")},
		"BTCUSDT":  {Symbol: "BTCUSDT", BestBid: dec("60000"), BestAsk: dec("60010")},
	}}
}

func TestRunCycle_ClassifiesOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, arbPage)
	}))
	defer srv.Close()

	feed := &recordingFeed{}
	s := New(newTestConfig(), zap.NewNop(), []string{srv.URL}, newStubProvider(), feed)

	outcomes := s.RunCycle(context.Background())
	require.Len(t, outcomes, 2)

	byMid := map[string]types.Outcome{}
	for _, o := range outcomes {
		byMid[o.Candidate.Cycle[1]] = o
	}

	gala := byMid["GALA"]
	require.Equal(t, types.StatusConfirmed, gala.Status)
	require.NotNil(t, gala.Verification)
	// 100/0.05=2000; *0.000001=0.002; *60000=120 → ratio 1.2
	assert.True(t, gala.Verification.Ratio.Equal(dec("1.2")), "ratio %s", gala.Verification.Ratio)

	xyz := byMid["XYZ"]
	assert.Equal(t, types.StatusUnverifiable, xyz.Status)
	assert.Nil(t, xyz.Verification)
	assert.Contains(t, xyz.Reason, "XYZUSDT")

	feed.mu.Lock()
	defer feed.mu.Unlock()
	assert.Len(t, feed.outcomes, 2, "every outcome mirrored to the feed")
}

func TestRunCycle_ClosedWindowIsNotAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, arbPage)
	}))
	defer srv.Close()

	p := newStubProvider()
	// drop leg2 bid so GALA comes back below par
	p.quotes["GALABTC"] = types.Quote{Symbol: "GALABTC", BestBid: dec("0.0000008"), BestAsk: dec("0.0000009")}
	s := New(newTestConfig(), zap.NewNop(), []string{srv.URL}, p, nil)

	outcomes := s.RunCycle(context.Background())
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		if o.Candidate.Cycle[1] != "GALA" {
			continue
		}
		require.Equal(t, types.StatusClosed, o.Status)
		require.NotNil(t, o.Verification)
		assert.True(t, o.Verification.Ratio.Equal(dec("0.96")))
	}
}

func TestRunCycle_FailedEndpointDoesNotBlockSiblings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, arbPage)
	}))
	defer srv.Close()

	s := New(newTestConfig(), zap.NewNop(), []string{srv.URL + "/down", srv.URL + "/up"}, newStubProvider(), nil)
	outcomes := s.RunCycle(context.Background())
	assert.Len(t, outcomes, 2, "healthy endpoint still produced its candidates")
}

func TestRunCycle_EmptyPageYieldsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>maintenance</body></html>")
	}))
	defer srv.Close()

	s := New(newTestConfig(), zap.NewNop(), []string{srv.URL}, newStubProvider(), nil)
	assert.Empty(t, s.RunCycle(context.Background()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	s := New(newTestConfig(), zap.NewNop(), []string{srv.URL}, newStubProvider(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop on context cancellation")
	}
}

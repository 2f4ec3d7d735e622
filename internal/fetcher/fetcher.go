package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kabradhruv/triarb-scanner/internal/config"
	imetrics "github.com/kabradhruv/triarb-scanner/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the terminal outcome for one endpoint in one poll cycle:
// either Body or Err is set, never both.
type Result struct {
	URL      string
	Body     string
	Attempts int
	Err      error
}

type Fetcher struct {
	cfg  *config.Config
	log  *zap.Logger
	http *http.Client
}

func New(cfg *config.Config, log *zap.Logger) *Fetcher {
	// таймаут на попытку задаётся контекстом, не клиентом
	return &Fetcher{cfg: cfg, log: log, http: &http.Client{}}
}

// FetchAll polls every endpoint with at most cfg.Scraper.Concurrency
// requests in flight. It returns only when each endpoint has reached a
// terminal outcome; one endpoint exhausting its retries never affects
// the others.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) map[string]Result {
	results := make([]Result, len(urls))

	var g errgroup.Group
	g.SetLimit(f.cfg.Scraper.Concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = f.fetchWithRetry(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(urls))
	for _, r := range results {
		out[r.URL] = r
	}
	return out
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, url string) Result {
	maxAttempts := f.cfg.Scraper.MaxRetries
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			imetrics.PagesFetched.Inc()
			return Result{URL: url, Body: body, Attempts: attempt}
		}
		lastErr = err
		f.log.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				imetrics.FetchFailures.Inc()
				return Result{URL: url, Attempts: attempt, Err: fmt.Errorf("fetch %s: %w", url, ctx.Err())}
			case <-time.After(f.cfg.RetryDelay()):
			}
		}
	}

	imetrics.FetchFailures.Inc()
	return Result{URL: url, Attempts: maxAttempts, Err: fmt.Errorf("fetch %s: %w", url, lastErr)}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	// имитируем обычный браузер, иначе площадка режет запросы
	req.Header.Set("User-Agent", f.cfg.Scraper.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", "https://www.google.com/")

	start := time.Now()
	resp, err := f.http.Do(req)
	imetrics.FetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

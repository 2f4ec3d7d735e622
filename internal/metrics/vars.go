package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_pages_fetched_total",
		Help: "Source pages fetched successfully",
	})

	FetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_fetch_failures_total",
		Help: "Endpoints that exhausted all fetch retries in a cycle",
	})

	RowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_rows_skipped_total",
		Help: "Table rows dropped by the extractor (shape/parse mismatch)",
	})

	Candidates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_candidates_total",
		Help: "Scraped opportunities above the report threshold",
	})

	Verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "triarb_verifications_total",
		Help: "Verification outcomes by status",
	}, []string{"status"})

	FetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "triarb_fetch_latency_seconds",
		Help:    "Time to fetch one source page (per attempt)",
		Buckets: prometheus.DefBuckets, // можно настроить под себя
	})

	LastRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "triarb_last_verified_ratio",
		Help: "Ratio of the most recently verified candidate",
	})
)

func init() {
	prometheus.MustRegister(
		PagesFetched,
		FetchFailures,
		RowsSkipped,
		Candidates,
		Verifications,
		FetchLatency,
		LastRatio,
	)
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpRequestsTotal        *prometheus.CounterVec
	httpLatencySeconds       *prometheus.HistogramVec
	httpErrorsTotal          *prometheus.CounterVec
	ingestEventsTotal        *prometheus.CounterVec
	ingestBatchesTotal       *prometheus.CounterVec
	ingestBatchSeconds       prometheus.Histogram
	duplicateSimilarity      prometheus.Histogram
	scoresComputedTotal      *prometheus.CounterVec
	attemptFlagsTotal        prometheus.Counter
	leaderboardRequestsTotal *prometheus.CounterVec
	rateLimitedTotal         *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		ingestEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Attempt events processed by outcome.",
		}, []string{"outcome"})

		ingestBatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_batches_total",
			Help: "Ingestion batches by result.",
		}, []string{"result"})

		ingestBatchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_batch_duration_seconds",
			Help:    "Time spent processing an ingestion batch.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		})

		duplicateSimilarity = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dedup_match_similarity",
			Help:    "Answer similarity of attempts classified as duplicates.",
			Buckets: []float64{0.92, 0.94, 0.96, 0.98, 0.99, 1.0},
		})

		scoresComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scores_computed_total",
			Help: "Scores computed by trigger and scoring mode.",
		}, []string{"trigger", "mode"})

		attemptFlagsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attempt_flags_total",
			Help: "Review flags raised against attempts.",
		})

		leaderboardRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_requests_total",
			Help: "Leaderboard reads by cache result.",
		}, []string{"cache"})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by a rate limiter, by scope.",
		}, []string{"scope"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			ingestEventsTotal,
			ingestBatchesTotal,
			ingestBatchSeconds,
			duplicateSimilarity,
			scoresComputedTotal,
			attemptFlagsTotal,
			leaderboardRequestsTotal,
			rateLimitedTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// IngestEvents counts processed events by outcome (scored, deduped, error).
func IngestEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return ingestEventsTotal
}

// IngestBatches counts batches by result (committed, failed).
func IngestBatches() *prometheus.CounterVec {
	RegisterMetrics()
	return ingestBatchesTotal
}

// IngestBatchDuration observes batch processing time.
func IngestBatchDuration() prometheus.Histogram {
	RegisterMetrics()
	return ingestBatchSeconds
}

// DuplicateSimilarity observes the similarity of detected duplicates.
func DuplicateSimilarity() prometheus.Histogram {
	RegisterMetrics()
	return duplicateSimilarity
}

// ScoresComputed counts score computations.
func ScoresComputed() *prometheus.CounterVec {
	RegisterMetrics()
	return scoresComputedTotal
}

// AttemptFlags counts review flags.
func AttemptFlags() prometheus.Counter {
	RegisterMetrics()
	return attemptFlagsTotal
}

// LeaderboardRequests counts leaderboard reads.
func LeaderboardRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return leaderboardRequestsTotal
}

// RateLimited counts requests rejected by a rate limiter.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}

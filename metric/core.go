package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the Prometheus namespace shared by all core metrics.
const Namespace = "domainsearch"

// Metrics holds the core lookup pipeline metrics. Component-specific metrics
// (cache, worker pool) register themselves through the MetricsRegistry
// instead of living here.
type Metrics struct {
	// LookupsTotal counts resolved queries by source and outcome
	// (cache_hit, available, taken, error).
	LookupsTotal *prometheus.CounterVec

	// LookupDuration observes end-to-end resolve latency per source.
	LookupDuration *prometheus.HistogramVec

	// SourceErrorsTotal counts upstream failures by source and error code.
	SourceErrorsTotal *prometheus.CounterVec

	// BreakerState exposes each circuit breaker's state
	// (0 closed, 1 half-open, 2 open).
	BreakerState *prometheus.GaugeVec

	// BreakerTransitionsTotal counts state transitions per breaker.
	BreakerTransitionsTotal *prometheus.CounterVec

	// RateLimitWaitSeconds observes time spent waiting for a token per source.
	RateLimitWaitSeconds *prometheus.HistogramVec

	// AdaptiveConcurrencyLimit exposes the current bound of each adaptive limiter.
	AdaptiveConcurrencyLimit *prometheus.GaugeVec

	// QuoteBudgetDeniedTotal counts pricing quotes skipped because the batch
	// budget was spent.
	QuoteBudgetDeniedTotal prometheus.Counter

	// BatchItemsTotal counts batch items by result (ok, failed).
	BatchItemsTotal *prometheus.CounterVec
}

// NewMetrics creates the core lookup metrics
func NewMetrics() *Metrics {
	return &Metrics{
		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lookups_total",
			Help:      "Total domain lookups by source and outcome",
		}, []string{"source", "outcome"}),

		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "lookup_duration_seconds",
			Help:      "End-to-end resolve latency per source",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),

		SourceErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_errors_total",
			Help:      "Upstream failures by source and error code",
		}, []string{"source", "code"}),

		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"breaker"}),

		BreakerTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"breaker", "to"}),

		RateLimitWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for a rate limiter token per source",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"source"}),

		AdaptiveConcurrencyLimit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "adaptive_concurrency_limit",
			Help:      "Current bound of each adaptive concurrency limiter",
		}, []string{"limiter"}),

		QuoteBudgetDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quote_budget_denied_total",
			Help:      "Pricing quotes skipped because the batch budget was spent",
		}),

		BatchItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batch_items_total",
			Help:      "Batch resolve items by result",
		}, []string{"result"}),
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CartMetrics records cart engine operation counts and latencies.
type CartMetrics struct {
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
	merged     prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart operations by outcome.",
	}, []string{"operation", "outcome"})
	merged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_merged_lines_total",
		Help: "Session cart lines moved or summed into user carts.",
	})
	reg.MustRegister(duration, operations, merged)
	return &CartMetrics{
		duration:   duration,
		operations: operations,
		merged:     merged,
	}
}

// Observe records one finished operation.
func (c *CartMetrics) Observe(operation string, elapsed time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	c.operations.WithLabelValues(op, outcome).Inc()
}

// AddMergedLines increments the merged lines counter.
func (c *CartMetrics) AddMergedLines(n int) {
	if c == nil || c.merged == nil || n <= 0 {
		return
	}
	c.merged.Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

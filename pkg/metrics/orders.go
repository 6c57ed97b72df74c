package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records checkout outcomes for the order workflow.
type OrderMetrics struct {
	duration *prometheus.HistogramVec
	placed   prometheus.Counter
	failed   *prometheus.CounterVec
}

// NewOrderMetrics registers the order workflow metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_placement_duration_seconds",
		Help:    "Duration of order placement transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed successfully.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Order placements that failed, by reason.",
	}, []string{"reason"})
	reg.MustRegister(duration, placed, failed)
	return &OrderMetrics{
		duration: duration,
		placed:   placed,
		failed:   failed,
	}
}

// ObserveDuration records how long a placement attempt took.
func (o *OrderMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncPlaced increments the successful placement counter.
func (o *OrderMetrics) IncPlaced() {
	if o == nil || o.placed == nil {
		return
	}
	o.placed.Inc()
}

// IncFailed increments the failure counter for the given reason.
func (o *OrderMetrics) IncFailed(reason string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts and their outcomes.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	success  prometheus.Counter
	failure  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_success_total",
		Help: "Checkouts that produced an invoice.",
	})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure_total",
		Help: "Checkouts that ended without an invoice.",
	}, []string{"reason"})
	reg.MustRegister(duration, success, failure)
	return &CheckoutMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveSuccess records a committed checkout.
func (c *CheckoutMetrics) ObserveSuccess(elapsed time.Duration) {
	if c == nil || c.success == nil {
		return
	}
	c.success.Inc()
	c.duration.WithLabelValues("success").Observe(elapsed.Seconds())
}

// ObserveFailure records a checkout that ended with the given reason.
func (c *CheckoutMetrics) ObserveFailure(reason string, elapsed time.Duration) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(reason)).Inc()
	c.duration.WithLabelValues("failure").Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

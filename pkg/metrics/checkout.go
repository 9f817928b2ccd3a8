package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records counters for the checkout flow.
type CheckoutMetrics struct {
	quoteDuration *prometheus.HistogramVec
	quoteFailure  *prometheus.CounterVec
	submissions   *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	quoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_quote_duration_seconds",
		Help:    "Duration of shipping quote fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	quoteFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_quote_failure",
		Help: "Failed shipping quote fetches.",
	}, []string{"trigger"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions",
		Help: "Order submission attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(quoteDuration, quoteFailure, submissions)
	return &CheckoutMetrics{
		quoteDuration: quoteDuration,
		quoteFailure:  quoteFailure,
		submissions:   submissions,
	}
}

// ObserveQuote records the duration for one shipping quote fetch.
func (c *CheckoutMetrics) ObserveQuote(trigger string, duration time.Duration) {
	if c == nil || c.quoteDuration == nil {
		return
	}
	c.quoteDuration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncQuoteFailure increments the quote failure counter.
func (c *CheckoutMetrics) IncQuoteFailure(trigger string) {
	if c == nil || c.quoteFailure == nil {
		return
	}
	c.quoteFailure.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncSubmission counts one submission attempt with its outcome.
func (c *CheckoutMetrics) IncSubmission(outcome string) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "_")
}

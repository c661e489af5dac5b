// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and records the gateway's Prometheus metrics.
// A nil *Collector is valid and records nothing, so metrics stay optional.
type Collector struct {
	checkAllowed    prometheus.Counter
	checkDenied     prometheus.Counter
	refreshes       *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
	resolveLatency  prometheus.Histogram
}

// NewCollector creates a [Collector] and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkAllowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_check_allowed_total",
			Help: "Authorization checks answered allow.",
		}),
		checkDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_check_denied_total",
			Help: "Authorization checks answered deny.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_refresh_total",
			Help: "Refresh-token exchanges by outcome.",
		}, []string{"outcome"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_ratelimit_denied_total",
			Help: "Requests denied by the distributed rate limiter, by route.",
		}, []string{"route"}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authgate_resolve_latency_seconds",
			Help:    "Session resolution latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.checkAllowed,
		c.checkDenied,
		c.refreshes,
		c.rateLimitDenied,
		c.resolveLatency,
	)

	return c
}

// RecordCheckAllowed counts an allowed authorization check.
func (c *Collector) RecordCheckAllowed() {
	if c == nil {
		return
	}
	c.checkAllowed.Inc()
}

// RecordCheckDenied counts a denied authorization check.
func (c *Collector) RecordCheckDenied() {
	if c == nil {
		return
	}
	c.checkDenied.Inc()
}

// RecordRefresh counts a refresh exchange with outcome "ok" or "rejected".
func (c *Collector) RecordRefresh(outcome string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

// RecordRateLimitDenied counts a rate-limit denial on the given route.
func (c *Collector) RecordRateLimitDenied(route string) {
	if c == nil {
		return
	}
	c.rateLimitDenied.WithLabelValues(route).Inc()
}

// ObserveResolveLatency records one session-resolution duration.
func (c *Collector) ObserveResolveLatency(d time.Duration) {
	if c == nil {
		return
	}
	c.resolveLatency.Observe(d.Seconds())
}

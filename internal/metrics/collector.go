// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector gathers deliberation engine metrics. All methods are safe on a
// nil receiver, so callers can treat the collector as optional.
type Collector struct {
	roundsTotal   *prometheus.CounterVec
	roundDuration *prometheus.HistogramVec

	analystCalls    *prometheus.CounterVec
	analystDuration *prometheus.HistogramVec

	sessionTransitions *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the engine metrics on reg under the namespace. A nil
// registerer uses the default registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.roundsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of deliberation rounds by decision",
		},
		[]string{"decision"},
	)

	c.roundDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Deliberation round duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"decision"},
	)

	c.analystCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyst_calls_total",
			Help:      "Total number of analyst invocations by role and status",
		},
		[]string{"role", "status"},
	)

	c.analystDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analyst_call_duration_seconds",
			Help:      "Analyst invocation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"role"},
	)

	c.sessionTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of session status transitions",
		},
		[]string{"from", "to"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordRound records one completed round.
func (c *Collector) RecordRound(decision string, duration time.Duration) {
	if c == nil {
		return
	}
	c.roundsTotal.WithLabelValues(decision).Inc()
	c.roundDuration.WithLabelValues(decision).Observe(duration.Seconds())
}

// RecordAnalystCall records one analyst invocation.
func (c *Collector) RecordAnalystCall(role, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.analystCalls.WithLabelValues(role, status).Inc()
	c.analystDuration.WithLabelValues(role).Observe(duration.Seconds())
}

// RecordTransition records one session status transition.
func (c *Collector) RecordTransition(from, to string) {
	if c == nil {
		return
	}
	c.sessionTransitions.WithLabelValues(from, to).Inc()
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// Package metrics exposes ledger counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powledger"

// Metrics holds the ledger collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	appended     prometheus.Counter
	rejected     *prometheus.CounterVec
	height       prometheus.Gauge
	attempts     prometheus.Counter
	mineDuration prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_appended_total",
			Help:      "Blocks accepted onto the chain.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_rejected_total",
			Help:      "Blocks rejected by validated append, by reason.",
		}, []string{"reason"}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_height",
			Help:      "ID of the current tip block.",
		}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hash_attempts_total",
			Help:      "Nonces hashed by the proof-of-work search.",
		}),
		mineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mine_duration_seconds",
			Help:      "Wall time spent mining a block.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	m.registry.MustRegister(m.appended, m.rejected, m.height, m.attempts, m.mineDuration)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// BlockAppended records an accepted block and the new tip id.
func (m *Metrics) BlockAppended(height uint64) {
	if m == nil {
		return
	}
	m.appended.Inc()
	m.height.Set(float64(height))
}

// BlockRejected records a rejected block.
func (m *Metrics) BlockRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// SetHeight sets the tip id gauge.
func (m *Metrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// Mined records one proof-of-work search.
func (m *Metrics) Mined(attempts uint64, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.Add(float64(attempts))
	m.mineDuration.Observe(d.Seconds())
}

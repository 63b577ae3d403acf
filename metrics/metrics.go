// Package metrics collects Prometheus instrumentation for the
// detector's scan/opportunity/rejection/decode-error counters and
// cache population/freshness gauges, following the differ package's
// registerer-injected construction pattern.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge/histogram the detector publishes.
// A *Metrics is built once per process from a single prometheus.Registerer
// and shared by every component that needs to record against it.
type Metrics struct {
	scansTotal            *prometheus.CounterVec
	scanDuration          *prometheus.HistogramVec
	opportunitiesFound    *prometheus.CounterVec
	opportunitiesRejected *prometheus.CounterVec
	decodeErrorsTotal     *prometheus.CounterVec
	cachePoolCount        prometheus.Gauge
	cacheFreshPoolCount   prometheus.Gauge
	cacheLatestSlot       prometheus.Gauge
}

// NewMetrics registers and returns the full metric set against registerer.
// registerer must not be nil; a nil registerer is a construction-time bug,
// not a runtime condition to recover from.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb_detector",
			Name:      "scans_total",
			Help:      "Number of arbitrage scan runs, by scan mode.",
		}, []string{"mode"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arb_detector",
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of a scan run, by scan mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		opportunitiesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb_detector",
			Name:      "opportunities_found_total",
			Help:      "Number of arbitrage opportunities discovered, by path type.",
		}, []string{"path_type"}),
		opportunitiesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb_detector",
			Name:      "opportunities_rejected_total",
			Help:      "Number of opportunities rejected by validation, by reason.",
		}, []string{"reason"}),
		decodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb_detector",
			Name:      "decode_errors_total",
			Help:      "Number of account decode failures, by dex and error kind.",
		}, []string{"dex_name", "kind"}),
		cachePoolCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arb_detector",
			Name:      "cache_pool_count",
			Help:      "Number of pools currently tracked in the price cache.",
		}),
		cacheFreshPoolCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arb_detector",
			Name:      "cache_fresh_pool_count",
			Help:      "Number of pools whose last update is within the freshness window.",
		}),
		cacheLatestSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arb_detector",
			Name:      "cache_latest_slot",
			Help:      "The highest slot number observed across all tracked pools.",
		}),
	}

	registerer.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.opportunitiesFound,
		m.opportunitiesRejected,
		m.decodeErrorsTotal,
		m.cachePoolCount,
		m.cacheFreshPoolCount,
		m.cacheLatestSlot,
	)
	return m
}

// RecordScan observes one scan run's duration under mode.
func (m *Metrics) RecordScan(mode string) *prometheus.Timer {
	m.scansTotal.WithLabelValues(mode).Inc()
	return prometheus.NewTimer(m.scanDuration.WithLabelValues(mode))
}

// RecordOpportunity increments the found counter for pathType.
func (m *Metrics) RecordOpportunity(pathType string) {
	m.opportunitiesFound.WithLabelValues(pathType).Inc()
}

// RecordRejection increments the rejected counter for reason.
func (m *Metrics) RecordRejection(reason string) {
	m.opportunitiesRejected.WithLabelValues(reason).Inc()
}

// RecordDecodeError increments the decode error counter for dexName/kind.
func (m *Metrics) RecordDecodeError(dexName, kind string) {
	m.decodeErrorsTotal.WithLabelValues(dexName, kind).Inc()
}

// SetCacheStats updates the cache population/freshness/slot gauges.
func (m *Metrics) SetCacheStats(poolCount, freshCount int, latestSlot uint64) {
	m.cachePoolCount.Set(float64(poolCount))
	m.cacheFreshPoolCount.Set(float64(freshCount))
	m.cacheLatestSlot.Set(float64(latestSlot))
}

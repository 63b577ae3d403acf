package differ

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks how long a poll-to-poll diff takes to compute.
type Metrics struct {
	diffDuration *prometheus.HistogramVec
}

// NewMetrics registers and returns the differ's metric set against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arb_detector",
			Subsystem: "differ",
			Name:      "diff_duration_seconds",
			Help:      "Wall-clock duration of a pool snapshot diff.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),
	}
	registerer.MustRegister(m.diffDuration)
	return m
}

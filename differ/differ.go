// Package differ computes the set of pool changes between two successive
// price cache polls, the way the upstream state differ computed per-protocol
// diffs between two blocks: one poll is "old", the next is "new", and the
// result is the minimal description of what moved.
package differ

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/solarb/arb-detector-go/engine"
)

// Config holds the differ's dependencies.
type Config struct {
	Registry prometheus.Registerer
	Logger   Logger
}

func (c *Config) validate() error {
	if c.Registry == nil {
		return errors.New("differ: config Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("differ: config Logger cannot be nil")
	}
	return nil
}

// Differ computes SnapshotDiffs between two []engine.PoolSnapshot polls.
type Differ struct {
	metrics *Metrics
	logger  Logger
}

// New constructs a Differ from a Config.
func New(cfg *Config) (*Differ, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Differ{
		metrics: NewMetrics(cfg.Registry),
		logger:  cfg.Logger,
	}, nil
}

// Diff compares old and new pool snapshot polls by PoolID, classifying each
// pool as Added, Removed, or Updated (price, reserves, or slot changed).
// Pools present in both polls with identical fields produce no change entry.
func (d *Differ) Diff(old, new []engine.PoolSnapshot) *SnapshotDiff {
	timer := prometheus.NewTimer(d.metrics.diffDuration.WithLabelValues())
	defer timer.ObserveDuration()

	oldByID := make(map[string]engine.PoolSnapshot, len(old))
	for _, p := range old {
		oldByID[p.PoolID] = p
	}

	var changes []PoolChange
	seen := make(map[string]bool, len(new))
	for i := range new {
		n := new[i]
		seen[n.PoolID] = true
		o, existed := oldByID[n.PoolID]
		if !existed {
			changes = append(changes, PoolChange{PoolID: n.PoolID, Kind: Added, New: &n})
			continue
		}
		if poolChanged(o, n) {
			oCopy := o
			changes = append(changes, PoolChange{PoolID: n.PoolID, Kind: Updated, Old: &oCopy, New: &n})
		}
	}
	for i := range old {
		o := old[i]
		if !seen[o.PoolID] {
			changes = append(changes, PoolChange{PoolID: o.PoolID, Kind: Removed, Old: &o})
		}
	}

	d.logger.Debug("computed snapshot diff", "from_count", len(old), "to_count", len(new), "changes", len(changes))

	return &SnapshotDiff{
		Timestamp: time.Now().UnixNano(),
		FromCount: len(old),
		ToCount:   len(new),
		Changes:   changes,
	}
}

func poolChanged(o, n engine.PoolSnapshot) bool {
	return o.Price != n.Price || o.BaseReserve != n.BaseReserve || o.QuoteReserve != n.QuoteReserve || o.Slot != n.Slot
}

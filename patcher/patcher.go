// Package patcher applies a differ.SnapshotDiff to a prior pool snapshot
// slice to reconstruct the poll it was diffed against, the way the upstream
// state patcher replayed a StateDiff onto an old protocol state.
package patcher

import (
	"fmt"

	"github.com/solarb/arb-detector-go/differ"
	"github.com/solarb/arb-detector-go/engine"
)

// Patcher applies SnapshotDiffs to []engine.PoolSnapshot polls.
type Patcher struct{}

// New constructs a Patcher.
func New() *Patcher {
	return &Patcher{}
}

// Patch applies diff to old, returning the reconstructed new poll. old is
// not mutated; the returned slice shares snapshots that the diff left
// untouched.
func (p *Patcher) Patch(old []engine.PoolSnapshot, diff *differ.SnapshotDiff) ([]engine.PoolSnapshot, error) {
	if diff.FromCount != len(old) {
		return nil, fmt.Errorf("patcher: mismatch fromCount (old=%d, diff=%d)", len(old), diff.FromCount)
	}

	byID := make(map[string]engine.PoolSnapshot, len(old))
	for _, p := range old {
		byID[p.PoolID] = p
	}

	for _, change := range diff.Changes {
		switch change.Kind {
		case differ.Added, differ.Updated:
			if change.New == nil {
				return nil, fmt.Errorf("patcher: %s change for pool %s missing New snapshot", change.Kind, change.PoolID)
			}
			byID[change.PoolID] = *change.New
		case differ.Removed:
			delete(byID, change.PoolID)
		default:
			return nil, fmt.Errorf("patcher: unknown change kind %q for pool %s", change.Kind, change.PoolID)
		}
	}

	out := make([]engine.PoolSnapshot, 0, len(byID))
	for _, snap := range byID {
		out = append(out, snap)
	}
	if len(out) != diff.ToCount {
		return nil, fmt.Errorf("patcher: reconstructed %d pools, diff expected %d", len(out), diff.ToCount)
	}
	return out, nil
}

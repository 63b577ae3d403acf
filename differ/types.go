package differ

import "github.com/solarb/arb-detector-go/engine"

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ChangeKind classifies a single pool's movement between two snapshot polls.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Updated ChangeKind = "updated"
	Removed ChangeKind = "removed"
)

// PoolChange describes one pool's transition from an old snapshot to a new
// one. Old is nil for Added, New is nil for Removed.
type PoolChange struct {
	PoolID string               `json:"poolId"`
	Kind   ChangeKind           `json:"kind"`
	Old    *engine.PoolSnapshot `json:"old,omitempty"`
	New    *engine.PoolSnapshot `json:"new,omitempty"`
}

// SnapshotDiff summarizes the changes between two cache polls.
type SnapshotDiff struct {
	Timestamp int64        `json:"timestamp"`
	FromCount int          `json:"fromCount"`
	ToCount   int          `json:"toCount"`
	Changes   []PoolChange `json:"changes"`
}

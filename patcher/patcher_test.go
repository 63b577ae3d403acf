package patcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/differ"
	"github.com/solarb/arb-detector-go/engine"
)

func snap(poolID string, price float64, slot uint64) engine.PoolSnapshot {
	return engine.PoolSnapshot{PoolID: poolID, DexName: "raydium_v4", Pair: "SOL/USDC", Price: price, Slot: slot, LastUpdate: time.Unix(0, 0)}
}

func TestPatcher_HappyPath(t *testing.T) {
	old := []engine.PoolSnapshot{
		snap("pool-a", 100.0, 1),
		snap("pool-b", 50.0, 1),
	}

	updated := snap("pool-a", 101.0, 2)
	added := snap("pool-c", 10.0, 2)
	diff := &differ.SnapshotDiff{
		FromCount: 2,
		ToCount:   2,
		Changes: []differ.PoolChange{
			{PoolID: "pool-a", Kind: differ.Updated, New: &updated},
			{PoolID: "pool-b", Kind: differ.Removed},
			{PoolID: "pool-c", Kind: differ.Added, New: &added},
		},
	}

	p := New()
	newPools, err := p.Patch(old, diff)
	require.NoError(t, err)
	require.Len(t, newPools, 2)

	byID := make(map[string]engine.PoolSnapshot, len(newPools))
	for _, s := range newPools {
		byID[s.PoolID] = s
	}
	assert.Equal(t, 101.0, byID["pool-a"].Price)
	assert.Equal(t, 10.0, byID["pool-c"].Price)
	_, stillPresent := byID["pool-b"]
	assert.False(t, stillPresent)
}

func TestPatcher_NoChangesReturnsOldUnmodified(t *testing.T) {
	old := []engine.PoolSnapshot{snap("pool-a", 100.0, 1)}
	diff := &differ.SnapshotDiff{FromCount: 1, ToCount: 1}

	p := New()
	newPools, err := p.Patch(old, diff)
	require.NoError(t, err)
	require.Len(t, newPools, 1)
	assert.Equal(t, old[0], newPools[0])
}

func TestPatcher_FromCountMismatch(t *testing.T) {
	old := []engine.PoolSnapshot{snap("pool-a", 100.0, 1)}
	diff := &differ.SnapshotDiff{FromCount: 2}

	p := New()
	_, err := p.Patch(old, diff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch fromCount")
}

func TestPatcher_AddedChangeMissingSnapshot(t *testing.T) {
	diff := &differ.SnapshotDiff{
		FromCount: 0,
		ToCount:   1,
		Changes:   []differ.PoolChange{{PoolID: "pool-a", Kind: differ.Added}},
	}

	p := New()
	_, err := p.Patch(nil, diff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing New snapshot")
}

func TestPatcher_ToCountMismatchIsDetected(t *testing.T) {
	old := []engine.PoolSnapshot{snap("pool-a", 100.0, 1)}
	diff := &differ.SnapshotDiff{FromCount: 1, ToCount: 5}

	p := New()
	_, err := p.Patch(old, diff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconstructed")
}

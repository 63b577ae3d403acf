package differ

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/engine"
)

type slogLogger struct{ *slog.Logger }

func (l slogLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, args...) }
func (l slogLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, args...) }
func (l slogLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, args...) }
func (l slogLogger) Error(msg string, args ...any) { l.Logger.Error(msg, args...) }

func newTestDiffer(t *testing.T) *Differ {
	t.Helper()
	d, err := New(&Config{Registry: prometheus.NewRegistry(), Logger: slogLogger{slog.Default()}})
	require.NoError(t, err)
	return d
}

func TestNew_NilRegistryRejected(t *testing.T) {
	_, err := New(&Config{Logger: slogLogger{slog.Default()}})
	assert.Error(t, err)
}

func TestDiffer_DetectsAddedPool(t *testing.T) {
	d := newTestDiffer(t)
	newPool := engine.PoolSnapshot{PoolID: "pool-a", Price: 1.0}

	diff := d.Diff(nil, []engine.PoolSnapshot{newPool})
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, Added, diff.Changes[0].Kind)
	assert.Equal(t, "pool-a", diff.Changes[0].PoolID)
}

func TestDiffer_DetectsRemovedPool(t *testing.T) {
	d := newTestDiffer(t)
	oldPool := engine.PoolSnapshot{PoolID: "pool-a", Price: 1.0}

	diff := d.Diff([]engine.PoolSnapshot{oldPool}, nil)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, Removed, diff.Changes[0].Kind)
}

func TestDiffer_DetectsPriceUpdate(t *testing.T) {
	d := newTestDiffer(t)
	old := []engine.PoolSnapshot{{PoolID: "pool-a", Price: 1.0, Slot: 1}}
	new := []engine.PoolSnapshot{{PoolID: "pool-a", Price: 1.05, Slot: 2}}

	diff := d.Diff(old, new)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, Updated, diff.Changes[0].Kind)
	assert.Equal(t, 1.0, diff.Changes[0].Old.Price)
	assert.Equal(t, 1.05, diff.Changes[0].New.Price)
}

func TestDiffer_UnchangedPoolProducesNoChange(t *testing.T) {
	d := newTestDiffer(t)
	pools := []engine.PoolSnapshot{{PoolID: "pool-a", Price: 1.0, Slot: 1}}

	diff := d.Diff(pools, pools)
	assert.Empty(t, diff.Changes)
	assert.Equal(t, 1, diff.FromCount)
	assert.Equal(t, 1, diff.ToCount)
}

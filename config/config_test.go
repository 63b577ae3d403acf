package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfigFillsDefaults(t *testing.T) {
	path := writeTempConfig(t, `
websocket:
  url: "wss://example.com"
pools:
  - address: "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
    name: "SOL/USDC"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com", cfg.WebSocket.URL)
	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, defaultPoolType, cfg.Pools[0].PoolType)
	assert.Equal(t, defaultRouterMode, cfg.Router.Mode)
	assert.Equal(t, defaultMaxHops, cfg.Router.MaxHops)
	assert.Equal(t, defaultMaxSplits, cfg.Router.SplitOptimizer.MaxSplits)
}

func TestLoad_EmptyWebsocketURLFails(t *testing.T) {
	path := writeTempConfig(t, `
websocket:
  url: ""
pools:
  - address: "abc"
    name: "SOL/USDC"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_NoPoolsFails(t *testing.T) {
	path := writeTempConfig(t, `
websocket:
  url: "wss://example.com"
pools: []
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_PoolMissingAddressFails(t *testing.T) {
	path := writeTempConfig(t, `
websocket:
  url: "wss://example.com"
pools:
  - address: ""
    name: "SOL/USDC"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_ExplicitRouterSectionOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
websocket:
  url: "wss://example.com"
pools:
  - address: "abc"
    name: "SOL/USDC"
router:
  mode: "fast"
  max_hops: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fast", cfg.Router.Mode)
	assert.Equal(t, 4, cfg.Router.MaxHops)
	assert.Equal(t, defaultMinROIPercent, cfg.Router.MinROIPercent)
}

func TestLoad_AmbientSectionsFillDefaultsWhenOmitted(t *testing.T) {
	path := writeTempConfig(t, `
websocket:
  url: "wss://example.com"
pools:
  - address: "abc"
    name: "SOL/USDC"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultDebounceMillis, cfg.EventDriven.DebounceMillis)
	assert.Equal(t, defaultMaxConcurrentScans, cfg.EventDriven.MaxConcurrentScans)
	assert.Equal(t, defaultMinConfidenceForSimulation, cfg.Simulation.MinConfidenceForSimulation)
	assert.Equal(t, defaultInitBatchSize, cfg.Init.BatchSize)
	assert.Equal(t, defaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, defaultAPIAddr, cfg.API.Addr)
}

func TestLoad_InitBatchSizeOverLimitFails(t *testing.T) {
	path := writeTempConfig(t, `
websocket:
  url: "wss://example.com"
pools:
  - address: "abc"
    name: "SOL/USDC"
initialization:
  batch_size: 101
`)

	_, err := Load(path)
	assert.Error(t, err)
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solarb/arb-detector-go/config"
	"github.com/solarb/arb-detector-go/engine"
)

func TestPathToOpportunity_UsesFirstAndLastHop(t *testing.T) {
	path := engine.ArbitragePath{
		Type:       engine.Triangle,
		StartToken: "USDC",
		EndToken:   "USDC",
		ROIPercent: 1.25,
		Steps: []engine.RouteStep{
			{PoolID: "pool-a", DexName: "raydium_v4", Price: 150.0},
			{PoolID: "pool-b", DexName: "raydium_v4", Price: 75.0},
			{PoolID: "pool-c", DexName: "raydium_v4", Price: 1.21},
		},
	}

	opp := pathToOpportunity(path)
	assert.Equal(t, "pool-a", opp.PoolAID)
	assert.Equal(t, "pool-c", opp.PoolBID)
	assert.Equal(t, 150.0, opp.PoolAPrice)
	assert.Equal(t, 1.21, opp.PoolBPrice)
	assert.Equal(t, 1.25, opp.PriceDiffPercent)
}

func TestPathToOpportunity_EmptyStepsYieldsZeroValue(t *testing.T) {
	opp := pathToOpportunity(engine.ArbitragePath{})
	assert.Equal(t, engine.ArbitrageOpportunity{}, opp)
}

func TestBuildRouterConfig_NilFallsBackToDefaults(t *testing.T) {
	cfg := buildRouterConfig(nil)
	assert.Equal(t, engine.ModeComplete, cfg.Mode)
	assert.True(t, cfg.MaxHops > 0)
}

func TestBuildRouterConfig_OverridesDefaultsWhereSet(t *testing.T) {
	cfg := buildRouterConfig(&config.RouterConfig{Mode: "fast", MaxHops: 4})
	assert.Equal(t, engine.ModeFast, cfg.Mode)
	assert.Equal(t, 4, cfg.MaxHops)
}

func TestMaxConcurrentScans_NilFallsBackToTen(t *testing.T) {
	assert.Equal(t, 10, maxConcurrentScans(nil))
}

func TestDebounceDuration_HonorsConfiguredMillis(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, debounceDuration(&config.EventDrivenConfig{DebounceMillis: 50}))
}

func TestChangeThreshold_NilFallsBackToOnePercent(t *testing.T) {
	assert.Equal(t, 1.0, changeThreshold(nil))
}

func TestScanIntervalSeconds_HonorsConfiguredValue(t *testing.T) {
	assert.Equal(t, 15, scanIntervalSeconds(&config.EventDrivenConfig{ScanIntervalSeconds: 15}))
}

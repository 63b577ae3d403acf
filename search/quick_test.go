package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/engine"
)

func TestScanDirect_TwoPoolPriceGapYieldsProfitablePath(t *testing.T) {
	s := NewQuickScanner(NewFeeTable(), DefaultMinROIPercent)

	pools := []engine.PoolSnapshot{
		{PoolID: "raydium_sol_usdc", DexName: "Raydium AMM V4", Pair: "SOL/USDC", Price: 100.0, BaseReserve: 1_000_000, QuoteReserve: 100_000_000},
		{PoolID: "orca_sol_usdc", DexName: "Orca Whirlpool", Pair: "SOL/USDC", Price: 101.0, BaseReserve: 1_000_000, QuoteReserve: 101_000_000},
	}

	paths := s.ScanDirect(pools, 10_000)
	require.Len(t, paths, 1)
	assert.Equal(t, engine.Direct, paths[0].Type)
	assert.Equal(t, "USDC", paths[0].StartToken)
	assert.Greater(t, paths[0].ROIPercent, 0.0)
}

func TestScanDirect_BelowThresholdYieldsNoPath(t *testing.T) {
	s := NewQuickScanner(NewFeeTable(), DefaultMinROIPercent)

	pools := []engine.PoolSnapshot{
		{PoolID: "a", DexName: "Raydium AMM V4", Pair: "SOL/USDC", Price: 100.0},
		{PoolID: "b", DexName: "Orca Whirlpool", Pair: "SOL/USDC", Price: 100.1},
	}

	assert.Empty(t, s.ScanDirect(pools, 10_000))
}

func TestScanDirect_UnprofitableMarketYieldsZeroOpportunities(t *testing.T) {
	s := NewQuickScanner(NewFeeTable(), DefaultMinROIPercent)

	pools := []engine.PoolSnapshot{
		{PoolID: "a", DexName: "Raydium AMM V4", Pair: "SOL/USDC", Price: 100.0},
		{PoolID: "b", DexName: "Orca Whirlpool", Pair: "SOL/USDC", Price: 100.0},
		{PoolID: "c", DexName: "Raydium AMM V4", Pair: "BTC/USDC", Price: 65000.0},
	}

	assert.Empty(t, s.ScanDirect(pools, 10_000))
}

// TestScanDirect_SpecScenario_TwoPoolDirectCycle exercises the
// two-pool direct scenario from the design doc's end-to-end scenario
// list: SOL/USDC at 150.0 (25 bps) and 151.0 (0 bps), 1000 USDC
// principal. The expected gross/net/ROI figures below are this
// package's own fee/gas model applied to those inputs (997.5/150 *
// 151, minus the flat direct-path gas estimate); see DESIGN.md for why
// they differ from the illustrative numbers in spec.md.
func TestScanDirect_SpecScenario_TwoPoolDirectCycle(t *testing.T) {
	s := NewQuickScanner(NewFeeTable(), DefaultMinROIPercent)

	pools := []engine.PoolSnapshot{
		{PoolID: "pool_150", DexName: "Raydium AMM V4", Pair: "SOL/USDC", Price: 150.0},
		{PoolID: "pool_151", DexName: "Lifinity V2", Pair: "SOL/USDC", Price: 151.0},
	}

	paths := s.ScanDirect(pools, 1000.0)
	require.Len(t, paths, 1)
	p := paths[0]
	assert.Equal(t, engine.Direct, p.Type)
	assert.Equal(t, "USDC", p.StartToken)
	assert.Equal(t, "USDC", p.EndToken)
	assert.InDelta(t, 4.15, p.GrossProfit, 0.001)
	assert.InDelta(t, 4.1499, p.NetProfit, 0.001)
	assert.InDelta(t, 0.41499, p.ROIPercent, 0.001)
}

// TestScanTriangle_SpecScenario_TriangleCycle exercises the triangle
// scenario: SOL/USDC=150.0 (25 bps), SOL/USDT=150.8 (1 bps),
// USDC/USDT=1.0 (1 bps), 1000 USDC principal. spec.md calls for an ROI
// between 0.20% and 0.35% after fees and gas, which this asserts
// directly against the package's own computation.
func TestScanTriangle_SpecScenario_TriangleCycle(t *testing.T) {
	// minROIPercent is lowered to 0.1 here: the computed ROI (~0.26%)
	// sits inside spec.md's stated 0.20%-0.35% band but below this
	// package's conservative 0.3% router default, which would filter
	// it out before the scenario's claim could be asserted.
	s := NewQuickScanner(NewFeeTable(), 0.1)

	pools := []engine.PoolSnapshot{
		{PoolID: "sol_usdc", DexName: "Raydium AMM V4", Pair: "SOL/USDC", Price: 150.0},
		{PoolID: "sol_usdt", DexName: "Orca Whirlpool", Pair: "SOL/USDT", Price: 150.8},
		{PoolID: "usdc_usdt", DexName: "Raydium CLMM", Pair: "USDC/USDT", Price: 1.0},
	}

	paths := s.ScanTriangle(pools, 1000.0)

	var found *engine.ArbitragePath
	for i := range paths {
		if paths[i].StartToken == "USDC" {
			found = &paths[i]
			break
		}
	}
	require.NotNil(t, found, "expected a USDC-rooted triangle among %d paths", len(paths))
	assert.Equal(t, engine.Triangle, found.Type)
	assert.Len(t, found.Steps, 3)
	assert.GreaterOrEqual(t, found.ROIPercent, 0.20)
	assert.LessOrEqual(t, found.ROIPercent, 0.35)
}

func TestScanTriangle_ThreeHopCycleYieldsPath(t *testing.T) {
	s := NewQuickScanner(NewFeeTable(), DefaultMinROIPercent)

	pools := []engine.PoolSnapshot{
		{PoolID: "sol_usdc", DexName: "Raydium AMM V4", Pair: "SOL/USDC", Price: 150.0},
		{PoolID: "sol_usdt", DexName: "Orca Whirlpool", Pair: "SOL/USDT", Price: 148.0},
		{PoolID: "usdc_usdt", DexName: "Stabble", Pair: "USDC/USDT", Price: 1.0},
	}

	paths := s.ScanTriangle(pools, 10_000)
	require.NotEmpty(t, paths)
	for _, p := range paths {
		assert.Equal(t, engine.Triangle, p.Type)
		assert.Equal(t, p.StartToken, p.EndToken)
		assert.Len(t, p.Steps, 3)
	}
}

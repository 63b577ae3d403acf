package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/engine"
)

func TestOptimizeAll_SplitsAcrossTopPaths(t *testing.T) {
	o := NewSplitOptimizer(2, 100.0)

	paths := []engine.ArbitragePath{
		{StartToken: "USDC", EndToken: "USDC", InputAmount: 1000, NetProfit: 50, ROIPercent: 5.0},
		{StartToken: "USDC", EndToken: "USDC", InputAmount: 1000, NetProfit: 30, ROIPercent: 3.0},
		{StartToken: "USDC", EndToken: "USDC", InputAmount: 1000, NetProfit: 10, ROIPercent: 1.0},
	}

	out := o.OptimizeAll(paths, 1500.0)
	require.Len(t, out, 3)

	require.NotNil(t, out[0].Split)
	require.NotNil(t, out[1].Split)
	assert.Nil(t, out[2].Split, "third path should be excluded by maxSplits=2")

	var allocated float64
	for _, a := range out[0].Split.Allocations {
		allocated += a.Amount
	}
	assert.LessOrEqual(t, allocated, 1500.0)
}

func TestOptimizeAll_BelowMinSplitAmountSkipsOptimization(t *testing.T) {
	o := NewSplitOptimizer(5, 100.0)
	paths := []engine.ArbitragePath{
		{InputAmount: 1000, NetProfit: 50, ROIPercent: 5.0},
	}

	out := o.OptimizeAll(paths, 50.0)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Split)
	assert.Equal(t, paths[0].NetProfit, out[0].OptimizedNetProfit)
}

func TestOptimizeAll_EmptyPathsYieldsEmptyResult(t *testing.T) {
	o := NewSplitOptimizer(5, 100.0)
	assert.Empty(t, o.OptimizeAll(nil, 10_000))
}

func TestOptimizeAll_SingleProfitablePathGetsFullAllocation(t *testing.T) {
	o := NewSplitOptimizer(5, 100.0)
	paths := []engine.ArbitragePath{
		{InputAmount: 1000, NetProfit: 50, ROIPercent: 5.0},
	}

	out := o.OptimizeAll(paths, 1000.0)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Split)
	assert.InDelta(t, 50.0, out[0].OptimizedNetProfit, 1e-9)
}

func TestOptimizeAll_AllocationCappedAtPathCapacity(t *testing.T) {
	o := NewSplitOptimizer(1, 100.0)
	paths := []engine.ArbitragePath{
		{InputAmount: 500, NetProfit: 25, ROIPercent: 5.0},
	}

	out := o.OptimizeAll(paths, 5000.0)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Split)
	assert.InDelta(t, 500.0, out[0].Split.Allocations[0].Amount, 1e-9)
	assert.InDelta(t, 25.0, out[0].OptimizedNetProfit, 1e-9)
}

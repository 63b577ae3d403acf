package pricecache

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/engine"
)

func TestUpdate_FirstObservationAlwaysTriggers(t *testing.T) {
	c := New()
	ch := c.Subscribe()

	c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 100, LastUpdate: time.Now()})

	select {
	case ev := <-ch:
		assert.Nil(t, ev.OldPrice)
		assert.Equal(t, engine.FirstObservationChangePercent, ev.PriceChangePercent)
	default:
		t.Fatal("expected an event")
	}
}

func TestUpdate_SubsequentChangeComputesPercent(t *testing.T) {
	c := New()
	ch := c.Subscribe()

	c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 100, LastUpdate: time.Now()})
	<-ch

	c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 110, LastUpdate: time.Now()})
	ev := <-ch
	require.NotNil(t, ev.OldPrice)
	assert.InDelta(t, 10.0, ev.PriceChangePercent, 0.001)
}

func TestUpdate_RejectsNonFiniteOrNonPositivePrice(t *testing.T) {
	cases := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -5}
	for _, price := range cases {
		c := New()
		err := c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: price, LastUpdate: time.Now()})
		require.Error(t, err)

		_, ok := c.Get("p1")
		assert.False(t, ok, "rejected price %v must not install a snapshot", price)
	}
}

func TestGet_ReturnsLatestSnapshot(t *testing.T) {
	c := New()
	c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 100})

	s, ok := c.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 100.0, s.Price)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestByPair_FiltersToMatchingPair(t *testing.T) {
	c := New()
	c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 100})
	c.Update(engine.PoolSnapshot{PoolID: "p2", Pair: "SOL/USDT", Price: 101})

	pools := c.ByPair("SOL/USDC")
	require.Len(t, pools, 1)
	assert.Equal(t, "p1", pools[0].PoolID)
}

func TestSlotAligned_FiltersBySpread(t *testing.T) {
	c := New()
	now := time.Now()
	c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 1, LastUpdate: now, Slot: 1000})
	c.Update(engine.PoolSnapshot{PoolID: "p2", Pair: "SOL/USDT", Price: 1, LastUpdate: now, Slot: 1005})

	aligned := c.SlotAligned(3)
	require.Len(t, aligned, 1)
	assert.Equal(t, "p2", aligned[0].PoolID)

	aligned = c.SlotAligned(5)
	assert.Len(t, aligned, 2)
}

func TestSlotAligned_EmptyWhenNoSlotsObserved(t *testing.T) {
	c := New()
	assert.Nil(t, c.SlotAligned(5))
}

func TestConsistent_CombinesFreshnessAndSlotAlignment(t *testing.T) {
	c := New()
	now := time.Now()
	stale := now.Add(-10 * time.Second)

	c.Update(engine.PoolSnapshot{PoolID: "fresh", Pair: "SOL/USDC", Price: 1, LastUpdate: now, Slot: 1000})
	c.Update(engine.PoolSnapshot{PoolID: "stale", Pair: "SOL/USDC", Price: 1, LastUpdate: stale, Slot: 1000})

	out := c.Consistent(time.Second, 5)
	require.Len(t, out, 1)
	assert.Equal(t, "fresh", out[0].PoolID)
}

func TestQuality_ReportsTotals(t *testing.T) {
	c := New()
	c.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 1, LastUpdate: time.Now(), Slot: 1000})

	q := c.Quality()
	assert.Equal(t, 1, q.Total)
	assert.Equal(t, 1, q.FreshCount)
	assert.Equal(t, 1, q.AlignedCount)
}

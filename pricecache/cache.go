// Package pricecache holds the latest decoded price for every pool
// the detector tracks, plus the data-consistency views (freshness,
// slot-alignment) the search layer needs before trusting a snapshot.
package pricecache

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solarb/arb-detector-go/engine"
)

// broadcastBuffer bounds the per-subscriber update channel. A slow
// subscriber drops updates rather than blocking publishers, mirroring
// tokio::sync::broadcast's lossy-on-lag semantics.
const broadcastBuffer = 1000

// snapshot is the read-optimized, deep-copy-free view published after
// every write. Readers load the pointer and range over it directly;
// they never see a torn write because the whole map is replaced.
type snapshot struct {
	byPool map[string]engine.PoolSnapshot
}

// Cache is a concurrency-safe store of the latest PoolSnapshot per
// pool ID, with subscribable price-change events.
type Cache struct {
	mu     sync.Mutex
	cached atomic.Pointer[snapshot]
	subsMu sync.Mutex
	subs   []chan engine.PriceUpdateEvent
}

// New builds an empty price cache.
func New() *Cache {
	c := &Cache{}
	c.cached.Store(&snapshot{byPool: make(map[string]engine.PoolSnapshot)})
	return c
}

// Subscribe returns a channel of price-update events. The channel is
// buffered; if a subscriber falls behind, new events are dropped for
// that subscriber rather than blocking Update.
func (c *Cache) Subscribe() <-chan engine.PriceUpdateEvent {
	ch := make(chan engine.PriceUpdateEvent, broadcastBuffer)
	c.subsMu.Lock()
	c.subs = append(c.subs, ch)
	c.subsMu.Unlock()
	return ch
}

// Update records a pool's latest snapshot, publishing a
// PriceUpdateEvent to every subscriber. The first observation of a
// pool always triggers an event with a 100% change.
//
// This is a defense-in-depth check: every decoder already rejects a
// non-finite or non-positive price before it ever reaches the cache,
// but Update re-checks so a decoder bug can't install a bad snapshot
// that every subscriber then trusts.
func (c *Cache) Update(snap engine.PoolSnapshot) error {
	if math.IsNaN(snap.Price) || math.IsInf(snap.Price, 0) || snap.Price <= 0 {
		return fmt.Errorf("pricecache: rejecting non-finite or non-positive price %v for pool %s", snap.Price, snap.PoolID)
	}

	c.mu.Lock()
	old := c.cached.Load()

	prev, hadPrev := old.byPool[snap.PoolID]

	next := &snapshot{byPool: make(map[string]engine.PoolSnapshot, len(old.byPool)+1)}
	for k, v := range old.byPool {
		next.byPool[k] = v
	}
	next.byPool[snap.PoolID] = snap
	c.cached.Store(next)
	c.mu.Unlock()

	event := engine.PriceUpdateEvent{
		PoolID:    snap.PoolID,
		Pair:      snap.Pair,
		NewPrice:  snap.Price,
		Timestamp: snap.LastUpdate,
	}
	if hadPrev {
		oldPrice := prev.Price
		event.OldPrice = &oldPrice
		if oldPrice != 0 {
			event.PriceChangePercent = percentChange(oldPrice, snap.Price)
		} else {
			event.PriceChangePercent = engine.FirstObservationChangePercent
		}
	} else {
		event.PriceChangePercent = engine.FirstObservationChangePercent
	}

	c.publish(event)
	return nil
}

func percentChange(oldPrice, newPrice float64) float64 {
	diff := (newPrice - oldPrice) / oldPrice * 100.0
	if diff < 0 {
		diff = -diff
	}
	return diff
}

func (c *Cache) publish(event engine.PriceUpdateEvent) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- event:
		default:
			// subscriber is lagging; drop rather than block
		}
	}
}

// Get returns a single pool's latest snapshot.
func (c *Cache) Get(poolID string) (engine.PoolSnapshot, bool) {
	snap := c.cached.Load()
	s, ok := snap.byPool[poolID]
	return s, ok
}

// ByPair returns every pool snapshot currently cached for a pair.
func (c *Cache) ByPair(pair string) []engine.PoolSnapshot {
	snap := c.cached.Load()
	out := make([]engine.PoolSnapshot, 0, len(snap.byPool))
	for _, s := range snap.byPool {
		if s.Pair == pair {
			out = append(out, s)
		}
	}
	return out
}

// All returns every cached pool snapshot.
func (c *Cache) All() []engine.PoolSnapshot {
	snap := c.cached.Load()
	out := make([]engine.PoolSnapshot, 0, len(snap.byPool))
	for _, s := range snap.byPool {
		out = append(out, s)
	}
	return out
}

// Fresh returns only snapshots updated within maxAge.
func (c *Cache) Fresh(maxAge time.Duration) []engine.PoolSnapshot {
	now := time.Now()
	snap := c.cached.Load()
	out := make([]engine.PoolSnapshot, 0, len(snap.byPool))
	for _, s := range snap.byPool {
		if now.Sub(s.LastUpdate) <= maxAge {
			out = append(out, s)
		}
	}
	return out
}

// latestSlot returns the maximum slot observed across all cached
// pools, or 0 if the cache is empty.
func (c *Cache) latestSlot() uint64 {
	snap := c.cached.Load()
	var latest uint64
	for _, s := range snap.byPool {
		if s.Slot > latest {
			latest = s.Slot
		}
	}
	return latest
}

// SlotAligned returns snapshots whose slot is within maxSlotSpread of
// the cache's latest observed slot. Returns nil if no pool has ever
// reported a nonzero slot.
func (c *Cache) SlotAligned(maxSlotSpread uint64) []engine.PoolSnapshot {
	latest := c.latestSlot()
	if latest == 0 {
		return nil
	}
	snap := c.cached.Load()
	out := make([]engine.PoolSnapshot, 0, len(snap.byPool))
	for _, s := range snap.byPool {
		if saturatingSub(latest, s.Slot) <= maxSlotSpread {
			out = append(out, s)
		}
	}
	return out
}

// Consistent combines freshness and slot-alignment: the strongest
// consistency guarantee the cache offers, used before a complete-mode
// scan trusts its snapshot.
func (c *Cache) Consistent(maxAge time.Duration, maxSlotSpread uint64) []engine.PoolSnapshot {
	latest := c.latestSlot()
	if latest == 0 {
		return nil
	}
	now := time.Now()
	snap := c.cached.Load()
	out := make([]engine.PoolSnapshot, 0, len(snap.byPool))
	for _, s := range snap.byPool {
		if now.Sub(s.LastUpdate) > maxAge {
			continue
		}
		if saturatingSub(latest, s.Slot) > maxSlotSpread {
			continue
		}
		out = append(out, s)
	}
	return out
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// DataQuality summarizes cache health for monitoring endpoints.
type DataQuality struct {
	Total            int
	FreshCount       int
	AlignedCount     int
	AvgAgeMillis     int64
	LatestSlot       uint64
	UniquePairCount  int
	ConsistencyScore float64
}

// Quality computes the data-quality snapshot: fresh means updated
// less than 2 seconds ago, aligned means fewer than 5 slots behind the
// latest, the same window sizes as the detector's monitoring defaults. ConsistencyScore
// is the 0-100 composite of the fresh and aligned fractions.
func (c *Cache) Quality() DataQuality {
	const freshWindow = 2 * time.Second
	const alignWindow = uint64(5)

	now := time.Now()
	snap := c.cached.Load()
	latest := c.latestSlot()

	q := DataQuality{Total: len(snap.byPool), LatestSlot: latest}
	var totalAgeMillis int64
	pairs := make(map[string]struct{})
	for _, s := range snap.byPool {
		age := now.Sub(s.LastUpdate)
		totalAgeMillis += age.Milliseconds()
		if age < freshWindow {
			q.FreshCount++
		}
		if saturatingSub(latest, s.Slot) < alignWindow {
			q.AlignedCount++
		}
		pairs[s.Pair] = struct{}{}
	}
	q.UniquePairCount = len(pairs)
	if q.Total > 0 {
		q.AvgAgeMillis = totalAgeMillis / int64(q.Total)
		freshFrac := float64(q.FreshCount) / float64(q.Total)
		alignedFrac := float64(q.AlignedCount) / float64(q.Total)
		q.ConsistencyScore = 50 * (freshFrac + alignedFrac)
	}
	return q
}

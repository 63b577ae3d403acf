// Package engine holds the domain value types shared across the
// decoder, cache, graph, search, validator and simulator packages.
package engine

import "time"

// ArbitrageType classifies a path by its hop count.
type ArbitrageType string

const (
	Direct   ArbitrageType = "direct"   // 2 steps
	Triangle ArbitrageType = "triangle" // 3 steps
	MultiHop ArbitrageType = "multi_hop"
)

// RouterMode selects which scanners the search core runs.
type RouterMode string

const (
	ModeFast     RouterMode = "fast"
	ModeComplete RouterMode = "complete"
	ModeHybrid   RouterMode = "hybrid"
)

// ParseRouterMode mirrors the original's "unrecognized value defaults
// to Complete" behavior rather than erroring at config time.
func ParseRouterMode(s string) RouterMode {
	switch RouterMode(s) {
	case ModeFast, ModeComplete, ModeHybrid:
		return RouterMode(s)
	default:
		return ModeComplete
	}
}

// PoolSnapshot is a price-cache entry. Reserves are smallest-unit
// integer amounts; Price is always the decimal-normalized quote/base
// ratio.
type PoolSnapshot struct {
	PoolID   string
	DexName  string
	Pair     string // "BASE/QUOTE"
	Base     string
	Quote    string
	BaseReserve  uint64
	QuoteReserve uint64
	BaseDecimals  uint8
	QuoteDecimals uint8
	Price      float64
	LastUpdate time.Time
	Slot       uint64
}

// PriceUpdateEvent is broadcast after a PoolSnapshot install.
type PriceUpdateEvent struct {
	PoolID              string
	Pair                string
	OldPrice            *float64 // nil on first observation
	NewPrice            float64
	PriceChangePercent  float64
	Timestamp           time.Time
}

// FirstObservationChangePercent is the sentinel used when there is no
// prior price to compare against (price_cache.rs uses 100.0).
const FirstObservationChangePercent = 100.0

// PoolDescriptor is a configured input describing one tracked pool.
type PoolDescriptor struct {
	PoolID  string
	Pair    string
	DexType string // may be "unknown", triggering auto-detect
}

// VaultBinding is the logical pool<->vault relationship; the concrete
// bidirectional maps live in package vault.
type VaultBinding struct {
	PoolID     string
	VaultBase  string
	VaultQuote string
}

// RouteStep is one hop of an ArbitragePath.
type RouteStep struct {
	Order          int
	PoolID         string
	DexName        string
	InputToken     string
	OutputToken    string
	Price          float64
	LiquidityBase  uint64
	LiquidityQuote uint64
	ExpectedInput  float64
	ExpectedOutput float64
}

// ArbitragePath is a validated cycle ready for ranking/emission.
type ArbitragePath struct {
	Type          ArbitrageType
	Steps         []RouteStep
	StartToken    string
	EndToken      string
	InputAmount   float64
	OutputAmount  float64
	GrossProfit   float64
	EstimatedFees float64
	NetProfit     float64
	ROIPercent    float64
	DiscoveredAt  time.Time
}

// Score combines absolute net profit, ROI, and a complexity discount;
// higher is better. Weights are transcribed from router.rs.
func (p ArbitragePath) Score() float64 {
	complexity := 0.0
	if n := len(p.Steps); n > 0 {
		complexity = 1.0 / float64(n)
	}
	return p.NetProfit*0.6 + (p.ROIPercent/100.0)*0.3 + complexity*0.1
}

// IsValid mirrors router.rs::ArbitragePath::is_valid.
func (p ArbitragePath) IsValid() bool {
	return p.StartToken == p.EndToken &&
		p.NetProfit > 0 &&
		p.ROIPercent >= 0.1 &&
		len(p.Steps) >= 1 && len(p.Steps) <= 5
}

// Signature is the dedup key used to recognize the same cycle found
// by both the quick and deep scanners.
func (p ArbitragePath) Signature() string {
	s := ""
	for _, step := range p.Steps {
		s += step.InputToken + "->" + step.OutputToken + "|"
	}
	return s
}

// SplitStrategy allocates principal across parallel candidate paths.
type SplitStrategy struct {
	Allocations []SplitAllocation
}

// SplitAllocation assigns an amount to one of the candidate paths by
// index into the slice the optimizer was given.
type SplitAllocation struct {
	PathIndex int
	Amount    float64
}

// OptimizedPath wraps an ArbitragePath with an optional split result.
type OptimizedPath struct {
	ArbitragePath
	Split              *SplitStrategy
	OptimizedNetProfit float64
	OptimizedROI       float64
}

// ArbitrageOpportunity is the thin two-pool candidate emitted by the
// direct scan before fee/ROI adjustment and path promotion.
type ArbitrageOpportunity struct {
	PoolAID             string
	PoolADex            string
	PoolAPrice          float64
	PoolBID             string
	PoolBDex            string
	PoolBPrice          float64
	Pair                string
	PriceDiffPercent    float64
	EstimatedProfitPct  float64
	DetectedAt          time.Time
}

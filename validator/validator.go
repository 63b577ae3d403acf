// Package validator re-checks a candidate opportunity against the
// current price cache without touching the chain: freshness, slot
// alignment, price drift and liquidity depth.
package validator

import (
	"math"
	"sort"
	"time"

	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/pricecache"
)

// Kind distinguishes the reason a ValidationResult failed, when it did.
type Kind string

const (
	Valid                 Kind = "valid"
	Stale                 Kind = "stale"
	SlotMismatch          Kind = "slot_mismatch"
	InsufficientLiquidity Kind = "insufficient_liquidity"
	PriceChanged          Kind = "price_changed"
	PoolNotFound          Kind = "pool_not_found"
)

// DataQuality summarizes the freshness/alignment of the two pools
// backing a validated opportunity.
type DataQuality struct {
	AverageAgeMillis int64
	MaxAgeMillis     int64
	SlotSpread       uint64
	FreshnessScore   float64
	AlignmentScore   float64
}

// ValidationResult is the outcome of validating one opportunity. Only
// the fields relevant to Kind are populated.
type ValidationResult struct {
	Kind Kind

	// Valid
	ConfidenceScore float64
	DataQuality     DataQuality

	// Stale
	OldestPool string
	AgeMillis  int64

	// SlotMismatch
	SlotSpread uint64
	PoolsCount int

	// InsufficientLiquidity / PoolNotFound share PoolID
	PoolID    string
	Required  float64
	Available float64

	// PriceChanged
	Expected     float64
	Current      float64
	DeviationPct float64
}

// Config mirrors ValidatorConfig's defaults from opportunity_validator.rs.
type Config struct {
	MaxAge                 time.Duration
	MaxSlotSpread          uint64
	MaxPriceDeviationPct   float64
	MinLiquidityMultiplier float64
}

// DefaultConfig reproduces ValidatorConfig::default.
func DefaultConfig() Config {
	return Config{
		MaxAge:                 2 * time.Second,
		MaxSlotSpread:          5,
		MaxPriceDeviationPct:   5.0,
		MinLiquidityMultiplier: 10.0,
	}
}

// OpportunityValidator checks an ArbitrageOpportunity against the live
// price cache before it is handed to the (optional) on-chain simulator.
type OpportunityValidator struct {
	cache  *pricecache.Cache
	config Config
}

// New builds a validator reading from cache with the given config.
func New(cache *pricecache.Cache, config Config) *OpportunityValidator {
	return &OpportunityValidator{cache: cache, config: config}
}

// NewWithDefaults builds a validator using DefaultConfig.
func NewWithDefaults(cache *pricecache.Cache) *OpportunityValidator {
	return New(cache, DefaultConfig())
}

// Validate re-checks opp against the current cache state for a planned
// trade of size amount (quote-denominated).
func (v *OpportunityValidator) Validate(opp engine.ArbitrageOpportunity, amount float64) ValidationResult {
	poolA, ok := v.cache.Get(opp.PoolAID)
	if !ok {
		return ValidationResult{Kind: PoolNotFound, PoolID: opp.PoolAID}
	}
	poolB, ok := v.cache.Get(opp.PoolBID)
	if !ok {
		return ValidationResult{Kind: PoolNotFound, PoolID: opp.PoolBID}
	}

	now := time.Now()
	ageA := now.Sub(poolA.LastUpdate)
	ageB := now.Sub(poolB.LastUpdate)
	maxAge := ageA
	if ageB > maxAge {
		maxAge = ageB
	}

	if maxAge > v.config.MaxAge {
		oldest := opp.PoolAID
		if ageB > ageA {
			oldest = opp.PoolBID
		}
		return ValidationResult{Kind: Stale, OldestPool: oldest, AgeMillis: maxAge.Milliseconds()}
	}

	slotSpread := absDiffU64(poolA.Slot, poolB.Slot)
	if slotSpread > v.config.MaxSlotSpread {
		return ValidationResult{Kind: SlotMismatch, SlotSpread: slotSpread, PoolsCount: 2}
	}

	if opp.PoolAPrice != 0 {
		deviationA := math.Abs(poolA.Price-opp.PoolAPrice) / opp.PoolAPrice * 100.0
		if deviationA > v.config.MaxPriceDeviationPct {
			return ValidationResult{
				Kind: PriceChanged, PoolID: opp.PoolAID,
				Expected: opp.PoolAPrice, Current: poolA.Price, DeviationPct: deviationA,
			}
		}
	}
	if opp.PoolBPrice != 0 {
		deviationB := math.Abs(poolB.Price-opp.PoolBPrice) / opp.PoolBPrice * 100.0
		if deviationB > v.config.MaxPriceDeviationPct {
			return ValidationResult{
				Kind: PriceChanged, PoolID: opp.PoolBID,
				Expected: opp.PoolBPrice, Current: poolB.Price, DeviationPct: deviationB,
			}
		}
	}

	requiredLiquidity := amount * v.config.MinLiquidityMultiplier

	if liquidity := smallerReserveUI(poolA); liquidity < requiredLiquidity {
		return ValidationResult{Kind: InsufficientLiquidity, PoolID: opp.PoolAID, Required: requiredLiquidity, Available: liquidity}
	}
	if liquidity := smallerReserveUI(poolB); liquidity < requiredLiquidity {
		return ValidationResult{Kind: InsufficientLiquidity, PoolID: opp.PoolBID, Required: requiredLiquidity, Available: liquidity}
	}

	avgAge := (ageA + ageB) / 2
	freshnessScore := 100.0 * (1.0 - float64(maxAge)/float64(v.config.MaxAge))
	alignmentScore := 100.0 * (1.0 - float64(slotSpread)/float64(v.config.MaxSlotSpread))
	confidence := (freshnessScore + alignmentScore) / 2.0

	return ValidationResult{
		Kind:            Valid,
		ConfidenceScore: confidence,
		DataQuality: DataQuality{
			AverageAgeMillis: avgAge.Milliseconds(),
			MaxAgeMillis:     maxAge.Milliseconds(),
			SlotSpread:       slotSpread,
			FreshnessScore:   freshnessScore,
			AlignmentScore:   alignmentScore,
		},
	}
}

// smallerReserveUI returns the smaller of the two reserve legs, decimal
// scaled by base decimals, mirroring the original's conservative
// liquidity estimate.
func smallerReserveUI(p engine.PoolSnapshot) float64 {
	reserve := p.BaseReserve
	if p.QuoteReserve < reserve {
		reserve = p.QuoteReserve
	}
	return float64(reserve) / math.Pow(10, float64(p.BaseDecimals))
}

func absDiffU64(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// ScoredOpportunity pairs an opportunity with the confidence score it
// validated at.
type ScoredOpportunity struct {
	Opportunity engine.ArbitrageOpportunity
	Confidence  float64
}

// RejectedOpportunity pairs an opportunity with why it failed.
type RejectedOpportunity struct {
	Opportunity engine.ArbitrageOpportunity
	Result      ValidationResult
}

// Stats accumulates batch validation outcomes.
type Stats struct {
	Total                 int
	ValidCount            int
	Stale                 int
	SlotMismatch          int
	InsufficientLiquidity int
	PriceChanged          int
	PoolNotFound          int
	TotalConfidence       float64
}

// AverageConfidence returns the mean confidence score among valid
// opportunities, or 0 if none validated.
func (s Stats) AverageConfidence() float64 {
	if s.ValidCount == 0 {
		return 0
	}
	return s.TotalConfidence / float64(s.ValidCount)
}

// PassRate returns the percentage of opportunities that validated.
func (s Stats) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ValidCount) / float64(s.Total) * 100.0
}

// ValidateBatch validates every opportunity for the given trade size,
// returning valid opportunities sorted by descending confidence,
// rejected opportunities with their reasons, and aggregate stats.
func (v *OpportunityValidator) ValidateBatch(opportunities []engine.ArbitrageOpportunity, amount float64) ([]ScoredOpportunity, []RejectedOpportunity, Stats) {
	var valid []ScoredOpportunity
	var invalid []RejectedOpportunity
	var stats Stats

	for _, opp := range opportunities {
		result := v.Validate(opp, amount)
		stats.Total++

		switch result.Kind {
		case Valid:
			stats.ValidCount++
			stats.TotalConfidence += result.ConfidenceScore
			valid = append(valid, ScoredOpportunity{Opportunity: opp, Confidence: result.ConfidenceScore})
		case Stale:
			stats.Stale++
			invalid = append(invalid, RejectedOpportunity{Opportunity: opp, Result: result})
		case SlotMismatch:
			stats.SlotMismatch++
			invalid = append(invalid, RejectedOpportunity{Opportunity: opp, Result: result})
		case InsufficientLiquidity:
			stats.InsufficientLiquidity++
			invalid = append(invalid, RejectedOpportunity{Opportunity: opp, Result: result})
		case PriceChanged:
			stats.PriceChanged++
			invalid = append(invalid, RejectedOpportunity{Opportunity: opp, Result: result})
		case PoolNotFound:
			stats.PoolNotFound++
			invalid = append(invalid, RejectedOpportunity{Opportunity: opp, Result: result})
		}
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].Confidence > valid[j].Confidence })

	return valid, invalid, stats
}

// Package simulator re-reads pool accounts straight from the chain to
// confirm a lightly-validated opportunity still holds, without
// building or simulating an actual swap transaction.
package simulator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/solarb/arb-detector-go/decoder/factory"
	"github.com/solarb/arb-detector-go/engine"
)

// residualProfitBufferPct is the minimum re-derived price spread
// required to still call an opportunity profitable after re-reading
// on-chain state; matches onchain_simulator.rs's 0.3% buffer.
const residualProfitBufferPct = 0.3

// Config mirrors SimulatorConfig's defaults.
type Config struct {
	MinConfidenceForSimulation float64
	Timeout                    time.Duration
	MaxConcurrent              int
}

// DefaultConfig reproduces SimulatorConfig::default.
func DefaultConfig() Config {
	return Config{
		MinConfidenceForSimulation: 80.0,
		Timeout:                    500 * time.Millisecond,
		MaxConcurrent:              10,
	}
}

// Result is the outcome of re-reading both pools behind an opportunity.
type Result struct {
	PoolAVerifiedPrice       float64
	PoolBVerifiedPrice       float64
	PoolADeviationPct        float64
	PoolBDeviationPct        float64
	EstimatedActualProfitPct float64
	SimulationLatency        time.Duration
	VerifiedSlot             uint64
	StillProfitable          bool
}

// accountInfoResponse is the subset of Solana's getAccountInfo JSON-RPC
// response this simulator reads.
type accountInfoResponse struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *struct {
		Data [2]string `json:"data"`
	} `json:"value"`
}

// caller is the subset of *rpc.Client the simulator needs, so tests can
// substitute a fake without standing up a real JSON-RPC server.
type caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Simulator is a "virtual simulation" re-reader: it never builds a
// transaction, it re-fetches the raw account blob behind each pool and
// re-derives price through the same decoder factory live ingestion
// uses, so the two stay in lockstep about what a given blob means.
type Simulator struct {
	client  caller
	factory *factory.PoolFactory
	config  Config
	logger  *slog.Logger
}

// New builds a simulator over an already-dialed RPC client.
func New(client *rpc.Client, poolFactory *factory.PoolFactory, config Config, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{client: client, factory: poolFactory, config: config, logger: logger.With("component", "simulator")}
}

// NewWithDefaults builds a simulator using DefaultConfig.
func NewWithDefaults(client *rpc.Client, poolFactory *factory.PoolFactory, logger *slog.Logger) *Simulator {
	return New(client, poolFactory, DefaultConfig(), logger)
}

// VerifyOpportunity re-reads both pools behind opp and reports whether
// it still clears the residual-profit buffer. Low-confidence
// opportunities are skipped without touching the chain, since an RPC
// round trip is far more expensive than the lightweight validation that
// produced confidenceScore.
func (s *Simulator) VerifyOpportunity(ctx context.Context, opp engine.ArbitrageOpportunity, confidenceScore float64) (Result, bool) {
	if confidenceScore < s.config.MinConfidenceForSimulation {
		s.logger.Debug("skipping simulation for low confidence opportunity", "confidence", confidenceScore)
		return Result{}, false
	}

	start := time.Now()
	priceA, slotA, errA := s.fetchPoolState(ctx, opp.PoolAID, opp.Pair)
	priceB, slotB, errB := s.fetchPoolState(ctx, opp.PoolBID, opp.Pair)
	latency := time.Since(start)

	if errA != nil || errB != nil {
		s.logger.Warn("failed to fetch pool states for simulation", "pool_a_error", errA, "pool_b_error", errB)
		return Result{}, false
	}

	deviationA := deviationPct(priceA, opp.PoolAPrice)
	deviationB := deviationPct(priceB, opp.PoolBPrice)

	priceDiff := math.Abs(priceB - priceA)
	avgPrice := (priceA + priceB) / 2.0
	actualProfitPct := 0.0
	if avgPrice != 0 {
		actualProfitPct = priceDiff / avgPrice * 100.0
	}
	stillProfitable := actualProfitPct > residualProfitBufferPct

	verifiedSlot := slotA
	if slotB > verifiedSlot {
		verifiedSlot = slotB
	}

	if stillProfitable {
		s.logger.Info("simulation passed", "pair", opp.Pair, "actual_profit_pct", actualProfitPct,
			"cached_profit_pct", opp.EstimatedProfitPct, "latency_ms", latency.Milliseconds(), "slot", verifiedSlot)
	} else {
		s.logger.Warn("simulation failed, profit dropped", "pair", opp.Pair, "actual_profit_pct", actualProfitPct,
			"cached_profit_pct", opp.EstimatedProfitPct)
	}

	return Result{
		PoolAVerifiedPrice:       priceA,
		PoolBVerifiedPrice:       priceB,
		PoolADeviationPct:        deviationA,
		PoolBDeviationPct:        deviationB,
		EstimatedActualProfitPct: actualProfitPct,
		SimulationLatency:        latency,
		VerifiedSlot:             verifiedSlot,
		StillProfitable:          stillProfitable,
	}, true
}

func deviationPct(current, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	return math.Abs(current-expected) / expected * 100.0
}

// fetchPoolState re-reads a single account and re-derives its price
// through the decoder factory's auto-detect dispatch.
func (s *Simulator) fetchPoolState(ctx context.Context, poolAddress, pair string) (price float64, slot uint64, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var resp accountInfoResponse
	params := map[string]string{"encoding": "base64", "commitment": "confirmed"}
	if err := s.client.CallContext(ctx, &resp, "getAccountInfo", poolAddress, params); err != nil {
		return 0, 0, fmt.Errorf("rpc error reading %s: %w", poolAddress, err)
	}
	if resp.Value == nil {
		return 0, 0, fmt.Errorf("account not found: %s", poolAddress)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid base64 account data for %s: %w", poolAddress, err)
	}

	pool, err := s.factory.CreateAutoDetect(pair, data)
	if err != nil {
		return 0, 0, fmt.Errorf("deserialization failed for %s: %w", poolAddress, err)
	}

	price, err = pool.CalculatePrice()
	if err != nil {
		return 0, 0, fmt.Errorf("price calculation failed for %s: %w", poolAddress, err)
	}
	return price, resp.Context.Slot, nil
}

// Candidate pairs an opportunity with the confidence score the
// lightweight validator assigned it.
type Candidate struct {
	Opportunity engine.ArbitrageOpportunity
	Confidence  float64
}

// Verified pairs an opportunity with its confirmed simulation result.
type Verified struct {
	Opportunity engine.ArbitrageOpportunity
	Result      Result
}

// VerifyBatch re-verifies every candidate concurrently, bounded by
// MaxConcurrent, and returns only those still profitable after
// re-reading the chain.
func (s *Simulator) VerifyBatch(ctx context.Context, candidates []Candidate) []Verified {
	limit := s.config.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []Verified

	for _, c := range candidates {
		wg.Add(1)
		go func(c Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, ok := s.VerifyOpportunity(ctx, c.Opportunity, c.Confidence)
			if !ok || !result.StillProfitable {
				return
			}
			mu.Lock()
			out = append(out, Verified{Opportunity: c.Opportunity, Result: result})
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return out
}

var errEmptyURL = errors.New("simulator: rpc url is empty")

// Dial connects to a Solana RPC endpoint for use with New/NewWithDefaults.
func Dial(ctx context.Context, url string) (*rpc.Client, error) {
	if url == "" {
		return nil, errEmptyURL
	}
	return rpc.DialContext(ctx, url)
}

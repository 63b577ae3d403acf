package search

import (
	"time"

	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/graph"
)

const (
	directMinPriceDiffPercent = 0.5
	directGasEstimate         = 0.0001
	triangleGasEstimate       = 0.0002
)

// QuickScanner finds direct and triangle arbitrage paths without the
// exhaustive cycle search Bellman-Ford performs — cheap enough to run
// on every price update.
type QuickScanner struct {
	fees      FeeTable
	minROIPct float64
}

// NewQuickScanner builds a scanner with the given fee table and
// minimum acceptable ROI percentage.
func NewQuickScanner(fees FeeTable, minROIPercent float64) *QuickScanner {
	if fees == nil {
		fees = NewFeeTable()
	}
	return &QuickScanner{fees: fees, minROIPct: minROIPercent}
}

// ScanDirect groups pools by pair and checks every unordered pair of
// pools within a pair for a profitable buy-low/sell-high loop.
func (s *QuickScanner) ScanDirect(pools []engine.PoolSnapshot, initialAmount float64) []engine.ArbitragePath {
	byPair := make(map[string][]engine.PoolSnapshot)
	for _, p := range pools {
		byPair[p.Pair] = append(byPair[p.Pair], p)
	}

	var out []engine.ArbitragePath
	for _, group := range byPair {
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if path, ok := s.createDirectPath(group[i], group[j], initialAmount); ok {
					out = append(out, path)
				}
			}
		}
	}
	return out
}

func (s *QuickScanner) createDirectPath(poolA, poolB engine.PoolSnapshot, initialAmount float64) (engine.ArbitragePath, bool) {
	buy, sell := poolA, poolB
	if poolB.Price < poolA.Price {
		buy, sell = poolB, poolA
	}

	priceDiffPct := (sell.Price - buy.Price) / buy.Price * 100.0
	if priceDiffPct < directMinPriceDiffPercent {
		return engine.ArbitragePath{}, false
	}

	base, quote, ok := splitPair(buy.Pair)
	if !ok {
		return engine.ArbitragePath{}, false
	}

	fee1 := s.fees.Rate(buy.DexName)
	afterFee1 := initialAmount * (1.0 - fee1)
	baseAmount := afterFee1 / buy.Price

	step1 := engine.RouteStep{
		Order: 1, PoolID: buy.PoolID, DexName: buy.DexName,
		InputToken: quote, OutputToken: base, Price: buy.Price,
		LiquidityBase: buy.BaseReserve, LiquidityQuote: buy.QuoteReserve,
		ExpectedInput: initialAmount, ExpectedOutput: baseAmount,
	}

	fee2 := s.fees.Rate(sell.DexName)
	quoteAmount := baseAmount * sell.Price
	finalAmount := quoteAmount * (1.0 - fee2)

	step2 := engine.RouteStep{
		Order: 2, PoolID: sell.PoolID, DexName: sell.DexName,
		InputToken: base, OutputToken: quote, Price: sell.Price,
		LiquidityBase: sell.BaseReserve, LiquidityQuote: sell.QuoteReserve,
		ExpectedInput: baseAmount, ExpectedOutput: finalAmount,
	}

	grossProfit := finalAmount - initialAmount
	totalFees := initialAmount * (fee1 + fee2)
	netProfit := grossProfit - directGasEstimate
	roiPercent := netProfit / initialAmount * 100.0

	if roiPercent < s.minROIPct {
		return engine.ArbitragePath{}, false
	}

	return engine.ArbitragePath{
		Type:          engine.Direct,
		Steps:         []engine.RouteStep{step1, step2},
		StartToken:    quote,
		EndToken:      quote,
		InputAmount:   initialAmount,
		OutputAmount:  finalAmount,
		GrossProfit:   grossProfit,
		EstimatedFees: totalFees + directGasEstimate,
		NetProfit:     netProfit,
		ROIPercent:    roiPercent,
		DiscoveredAt:  time.Now(),
	}, true
}

// ScanTriangle walks the token graph for A -> B -> C -> A cycles.
func (s *QuickScanner) ScanTriangle(pools []engine.PoolSnapshot, initialAmount float64) []engine.ArbitragePath {
	g := graph.Build(pools)

	var out []engine.ArbitragePath
	for _, start := range g.Tokens() {
		out = append(out, s.trianglesFromToken(g, start, initialAmount)...)
	}
	return out
}

func (s *QuickScanner) trianglesFromToken(g *graph.Graph, start string, initialAmount float64) []engine.ArbitragePath {
	var out []engine.ArbitragePath

	for _, ab := range g.Neighbors(start) {
		tokenB := ab.To
		for _, bc := range g.Neighbors(tokenB) {
			tokenC := bc.To
			if tokenC == start {
				continue
			}
			for _, ca := range g.Neighbors(tokenC) {
				if ca.To != start {
					continue
				}
				if path, ok := s.calculateTrianglePath(start, tokenB, tokenC, ab, bc, ca, initialAmount); ok {
					out = append(out, path)
				}
			}
		}
	}
	return out
}

func (s *QuickScanner) calculateTrianglePath(tokenA, tokenB, tokenC string, ab, bc, ca graph.Edge, initialAmount float64) (engine.ArbitragePath, bool) {
	fee1 := s.fees.Rate(ab.Pool.DexName)
	amountB := initialAmount * (1.0 - fee1) / ab.Price
	step1 := engine.RouteStep{
		Order: 1, PoolID: ab.Pool.PoolID, DexName: ab.Pool.DexName,
		InputToken: tokenA, OutputToken: tokenB, Price: ab.Price,
		LiquidityBase: ab.Pool.BaseReserve, LiquidityQuote: ab.Pool.QuoteReserve,
		ExpectedInput: initialAmount, ExpectedOutput: amountB,
	}

	fee2 := s.fees.Rate(bc.Pool.DexName)
	amountC := amountB * (1.0 - fee2) / bc.Price
	step2 := engine.RouteStep{
		Order: 2, PoolID: bc.Pool.PoolID, DexName: bc.Pool.DexName,
		InputToken: tokenB, OutputToken: tokenC, Price: bc.Price,
		LiquidityBase: bc.Pool.BaseReserve, LiquidityQuote: bc.Pool.QuoteReserve,
		ExpectedInput: amountB, ExpectedOutput: amountC,
	}

	fee3 := s.fees.Rate(ca.Pool.DexName)
	finalAmount := amountC * (1.0 - fee3) / ca.Price
	step3 := engine.RouteStep{
		Order: 3, PoolID: ca.Pool.PoolID, DexName: ca.Pool.DexName,
		InputToken: tokenC, OutputToken: tokenA, Price: ca.Price,
		LiquidityBase: ca.Pool.BaseReserve, LiquidityQuote: ca.Pool.QuoteReserve,
		ExpectedInput: amountC, ExpectedOutput: finalAmount,
	}

	grossProfit := finalAmount - initialAmount
	totalFees := initialAmount * (fee1 + fee2 + fee3)
	netProfit := grossProfit - triangleGasEstimate
	roiPercent := netProfit / initialAmount * 100.0

	if roiPercent < s.minROIPct {
		return engine.ArbitragePath{}, false
	}

	return engine.ArbitragePath{
		Type:          engine.Triangle,
		Steps:         []engine.RouteStep{step1, step2, step3},
		StartToken:    tokenA,
		EndToken:      tokenA,
		InputAmount:   initialAmount,
		OutputAmount:  finalAmount,
		GrossProfit:   grossProfit,
		EstimatedFees: totalFees + triangleGasEstimate,
		NetProfit:     netProfit,
		ROIPercent:    roiPercent,
		DiscoveredAt:  time.Now(),
	}, true
}

// DetectOpportunities groups pools by pair and emits one raw
// ArbitrageOpportunity candidate for every unordered pool pair whose
// prices diverge at all, ahead of any fee or ROI adjustment. cmd/detector
// uses it only as a cheap gate: when it returns nothing, the router scan
// for that cycle is skipped. Its candidates are not passed to
// validator.ValidateBatch.
func DetectOpportunities(pools []engine.PoolSnapshot) []engine.ArbitrageOpportunity {
	byPair := make(map[string][]engine.PoolSnapshot)
	for _, p := range pools {
		byPair[p.Pair] = append(byPair[p.Pair], p)
	}

	var out []engine.ArbitrageOpportunity
	for pair, group := range byPair {
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if opp, ok := rawOpportunity(pair, group[i], group[j]); ok {
					out = append(out, opp)
				}
			}
		}
	}
	return out
}

func rawOpportunity(pair string, poolA, poolB engine.PoolSnapshot) (engine.ArbitrageOpportunity, bool) {
	if poolA.Price <= 0 || poolB.Price <= 0 {
		return engine.ArbitrageOpportunity{}, false
	}
	buy, sell := poolA, poolB
	if poolB.Price < poolA.Price {
		buy, sell = poolB, poolA
	}
	priceDiffPct := (sell.Price - buy.Price) / buy.Price * 100.0
	if priceDiffPct <= 0 {
		return engine.ArbitrageOpportunity{}, false
	}
	return engine.ArbitrageOpportunity{
		PoolAID:            buy.PoolID,
		PoolADex:           buy.DexName,
		PoolAPrice:         buy.Price,
		PoolBID:            sell.PoolID,
		PoolBDex:           sell.DexName,
		PoolBPrice:         sell.Price,
		Pair:               pair,
		PriceDiffPercent:   priceDiffPct,
		EstimatedProfitPct: priceDiffPct,
		DetectedAt:         time.Now(),
	}, true
}

func splitPair(pair string) (base, quote string, ok bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '/' {
			return pair[:i], pair[i+1:], true
		}
	}
	return "", "", false
}

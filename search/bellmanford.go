package search

import (
	"math"
	"time"

	"github.com/solarb/arb-detector-go/bitset"
	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/graph"
)

// gasPerHop approximates the marginal Solana transaction cost of one
// extra swap instruction in a route, extrapolated from the quick
// scanner's fixed 2-hop/3-hop gas estimates (0.0001/0.0002 SOL).
const gasPerHop = 0.0001

// BellmanFordScanner finds profitable cycles of up to maxHops edges by
// running Bellman-Ford over -ln(rate) edge weights: a negative-weight
// cycle corresponds to a compounding conversion factor greater than
// one, i.e. a profitable loop.
type BellmanFordScanner struct {
	maxHops   int
	minROIPct float64
	fees      FeeTable
}

// NewBellmanFordScanner builds a scanner bounded to maxHops edges per
// cycle, reporting only cycles meeting minROIPercent.
func NewBellmanFordScanner(maxHops int, minROIPercent float64, fees FeeTable) *BellmanFordScanner {
	if fees == nil {
		fees = NewFeeTable()
	}
	return &BellmanFordScanner{maxHops: maxHops, minROIPct: minROIPercent, fees: fees}
}

type weightedEdge struct {
	to     int
	weight float64
	edge   graph.Edge
}

// FindAllCycles builds the token graph from pools and returns every
// distinct profitable cycle discovered, each re-priced into a full
// engine.ArbitragePath with fees and gas applied.
func (s *BellmanFordScanner) FindAllCycles(pools []engine.PoolSnapshot, initialAmount float64) []engine.ArbitragePath {
	g := graph.Build(pools)
	tokens := g.Tokens()
	if len(tokens) == 0 {
		return nil
	}

	index := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		index[tok] = i
	}

	adjacency := make([][]weightedEdge, len(tokens))
	for _, tok := range tokens {
		from := index[tok]
		for _, e := range g.Neighbors(tok) {
			feeRate := s.fees.Rate(e.Pool.DexName)
			w := math.Log(e.Price) - math.Log(1.0-feeRate)
			adjacency[from] = append(adjacency[from], weightedEdge{to: index[e.To], weight: w, edge: e})
		}
	}

	n := len(tokens)
	dist := make([]float64, n)
	pred := make([]int, n)
	predEdge := make([]*weightedEdge, n)
	for i := range dist {
		dist[i] = 0
		pred[i] = -1
	}

	limit := s.maxHops
	if limit <= 0 || limit > n {
		limit = n
	}

	relaxedThisPass := make(map[int]bool)
	for iter := 0; iter < limit; iter++ {
		relaxedThisPass = make(map[int]bool)
		for from := 0; from < n; from++ {
			for i := range adjacency[from] {
				edge := adjacency[from][i]
				if dist[from]+edge.weight < dist[edge.to] {
					dist[edge.to] = dist[from] + edge.weight
					pred[edge.to] = from
					predEdge[edge.to] = &adjacency[from][i]
					relaxedThisPass[edge.to] = true
				}
			}
		}
	}

	if len(relaxedThisPass) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []engine.ArbitragePath

	// Every node still being relaxed after `limit` iterations lies on
	// or downstream of a negative cycle; walk each one back to find
	// its cycle, deduping by pool-sequence signature.
	for candidate := range relaxedThisPass {
		node := candidate
		visited := bitset.NewBitSet(uint64(n))
		steps := 0
		for steps < n {
			if visited.IsSet(uint64(node)) {
				break
			}
			visited.Set(uint64(node))
			if pred[node] == -1 {
				node = -1
				break
			}
			node = pred[node]
			steps++
		}
		if node == -1 {
			continue
		}

		cycleTokens, cycleEdges := extractCycle(node, pred, predEdge, n)
		if len(cycleTokens) < 2 || len(cycleTokens) > s.maxHops {
			continue
		}

		sig := cycleSignature(cycleEdges)
		if seen[sig] {
			continue
		}
		seen[sig] = true

		if path, ok := s.priceCycle(cycleTokens, cycleEdges, initialAmount); ok {
			out = append(out, path)
		}
	}
	return out
}

// extractCycle walks predecessor pointers starting from a node known
// to lie on a negative cycle, collecting tokens until it revisits the
// starting node, using a bitset to detect the repeat cheaply.
func extractCycle(start int, pred []int, predEdge []*weightedEdge, n int) ([]int, []*weightedEdge) {
	visited := bitset.NewBitSet(uint64(n))
	var tokens []int
	var edges []*weightedEdge

	node := start
	for {
		if visited.IsSet(uint64(node)) {
			break
		}
		visited.Set(uint64(node))
		tokens = append(tokens, node)
		if pred[node] == -1 {
			break
		}
		edges = append(edges, predEdge[node])
		node = pred[node]
		if node == start {
			break
		}
	}

	// reverse to walk start -> ... -> start in forward order
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return tokens, edges
}

func cycleSignature(edges []*weightedEdge) string {
	sig := ""
	for _, e := range edges {
		sig += e.edge.Pool.PoolID + "|"
	}
	return sig
}

func (s *BellmanFordScanner) priceCycle(tokens []int, edges []*weightedEdge, initialAmount float64) (engine.ArbitragePath, bool) {
	if len(edges) == 0 {
		return engine.ArbitragePath{}, false
	}

	steps := make([]engine.RouteStep, 0, len(edges))
	amount := initialAmount
	var totalFees float64

	for i, we := range edges {
		e := we.edge
		fee := s.fees.Rate(e.Pool.DexName)
		afterFee := amount * (1.0 - fee)
		out := afterFee / e.Price
		totalFees += amount * fee

		steps = append(steps, engine.RouteStep{
			Order:          i + 1,
			PoolID:         e.Pool.PoolID,
			DexName:        e.Pool.DexName,
			Price:          e.Price,
			LiquidityBase:  e.Pool.BaseReserve,
			LiquidityQuote: e.Pool.QuoteReserve,
			ExpectedInput:  amount,
			ExpectedOutput: out,
		})
		amount = out
	}

	// InputToken/OutputToken require token symbols, not indices; the
	// caller supplies edges in order so step i's tokens come from the
	// graph edge itself (encoded via its Pool pair split at call site
	// is unnecessary since graph.Edge doesn't carry the source token —
	// reconstruct from adjacent steps' pool pairs instead).
	fillStepTokens(steps, edges)

	gasEstimate := gasPerHop * float64(len(edges))
	grossProfit := amount - initialAmount
	netProfit := grossProfit - gasEstimate
	roiPercent := netProfit / initialAmount * 100.0

	if roiPercent < s.minROIPct {
		return engine.ArbitragePath{}, false
	}

	startToken := steps[0].InputToken
	return engine.ArbitragePath{
		Type:          classifyByHops(len(steps)),
		Steps:         steps,
		StartToken:    startToken,
		EndToken:      steps[len(steps)-1].OutputToken,
		InputAmount:   initialAmount,
		OutputAmount:  amount,
		GrossProfit:   grossProfit,
		EstimatedFees: totalFees + gasEstimate,
		NetProfit:     netProfit,
		ROIPercent:    roiPercent,
		DiscoveredAt:  time.Now(),
	}, true
}

func classifyByHops(hops int) engine.ArbitrageType {
	switch {
	case hops <= 2:
		return engine.Direct
	case hops == 3:
		return engine.Triangle
	default:
		return engine.MultiHop
	}
}

// fillStepTokens derives each step's input/output token symbols from
// its pool's pair, choosing the orientation consistent with the
// previous step's output so the chain reads start -> ... -> start.
func fillStepTokens(steps []engine.RouteStep, edges []*weightedEdge) {
	if len(steps) == 0 {
		return
	}

	first := edges[0].edge
	base, quote, ok := splitPair(first.Pool.Pair)
	if !ok {
		return
	}
	// first.To is the destination token of this edge; the source is
	// whichever of base/quote isn't the destination.
	if first.To == base {
		steps[0].InputToken = quote
		steps[0].OutputToken = base
	} else {
		steps[0].InputToken = base
		steps[0].OutputToken = quote
	}

	for i := 1; i < len(steps); i++ {
		steps[i].InputToken = steps[i-1].OutputToken
		steps[i].OutputToken = edges[i].edge.To
	}
}

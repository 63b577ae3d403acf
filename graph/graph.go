// Package graph builds the directed token graph the search layer
// walks for cycle detection: one node per token, one edge per pool
// per direction, with the reverse direction's price inverted.
package graph

import (
	"strings"

	"github.com/solarb/arb-detector-go/engine"
)

// Edge is one directed hop from its source token (implicit, keyed by
// the map it lives under) to To, quoted at Price, backed by Pool.
type Edge struct {
	To    string
	Price float64
	Pool  engine.PoolSnapshot
}

// Graph is a snapshot-built adjacency list: token -> outgoing edges.
// It is immutable once built; callers rebuild it from a fresh
// pricecache read whenever they need an up-to-date view, mirroring
// the per-scan rebuild the original router performs rather than
// maintaining incremental graph state.
type Graph struct {
	edges map[string][]Edge
}

// Build constructs the token graph from a set of pool snapshots. Pairs
// that don't parse as exactly "BASE/QUOTE" are skipped. For each pool
// with pair "base/quote", two edges are added: quote -> base at the
// pool's price, and base -> quote at the inverted price.
func Build(pools []engine.PoolSnapshot) *Graph {
	g := &Graph{edges: make(map[string][]Edge)}

	for _, pool := range pools {
		tokens := strings.SplitN(pool.Pair, "/", 2)
		if len(tokens) != 2 {
			continue
		}
		base, quote := tokens[0], tokens[1]
		if base == "" || quote == "" {
			continue
		}

		g.edges[quote] = append(g.edges[quote], Edge{To: base, Price: pool.Price, Pool: pool})

		if pool.Price != 0 {
			reverse := pool
			reverse.Price = 1.0 / pool.Price
			g.edges[base] = append(g.edges[base], Edge{To: quote, Price: reverse.Price, Pool: reverse})
		}
	}

	return g
}

// Neighbors returns the outgoing edges from a token. Returns nil if
// the token has no known edges.
func (g *Graph) Neighbors(token string) []Edge {
	return g.edges[token]
}

// Tokens returns every token that has at least one outgoing edge.
func (g *Graph) Tokens() []string {
	out := make([]string, 0, len(g.edges))
	for token := range g.edges {
		out = append(out, token)
	}
	return out
}

// EdgeCount returns the total number of directed edges in the graph.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.edges {
		total += len(edges)
	}
	return total
}

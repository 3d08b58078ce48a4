// Package pruner filters edges that cannot participate in a viable
// arbitrage before cycle detection runs. Grounded on
// original_source/core/edge_pruner.{h,cpp}.
package pruner

import "github.com/Devadharshan16/OmniQuant/internal/graph"

// Config holds independently enableable pruning thresholds. The zero
// Config disables every check: each threshold applies only when its
// Enable* flag is set, so 0 is a legitimate min_liquidity.
type Config struct {
	MinLiquidity       float64
	EnableMinLiquidity bool

	MaxFee       float64
	EnableMaxFee bool

	MinRate       float64
	EnableMinRate bool

	MaxRate       float64
	EnableMaxRate bool
}

func (c Config) keep(e graph.Edge) bool {
	if c.EnableMinLiquidity && e.Liquidity < c.MinLiquidity {
		return false
	}
	if c.EnableMaxFee && e.Fee > c.MaxFee {
		return false
	}
	if c.EnableMinRate && e.Rate < c.MinRate {
		return false
	}
	if c.EnableMaxRate && e.Rate > c.MaxRate {
		return false
	}
	return true
}

// Result is the outcome of a Prune call.
type Result struct {
	Graph   *graph.Graph
	Removed int
}

// Prune returns a new graph containing only the edges that satisfy cfg,
// plus the number of edges removed. It is a pure function of (g, cfg):
// calling it twice with the same inputs yields structurally identical
// output, and Prune(Prune(g)) == Prune(g) since the surviving edge set
// is already a fixed point of the same filter.
//
// Node identity/indices are preserved when no token becomes fully
// disconnected (neither an in- nor out-edge survives); otherwise the
// result is re-indexed, dropping isolated tokens.
func Prune(g *graph.Graph, cfg Config) Result {
	edges := g.Edges()
	kept := make([]graph.Edge, 0, len(edges))
	removed := 0
	touched := make([]bool, g.NodeCount())

	for _, e := range edges {
		if cfg.keep(e) {
			kept = append(kept, e)
			touched[e.From] = true
			touched[e.To] = true
		} else {
			removed++
		}
	}

	allTouched := true
	for _, t := range touched {
		if !t {
			allTouched = false
			break
		}
	}

	out := graph.New()
	if allTouched {
		// preserve node identity/indices exactly
		for _, sym := range g.Symbols() {
			out.AddNode(sym)
		}
		for _, e := range kept {
			out.AddEdgeFull(g.Symbol(e.From), g.Symbol(e.To), e.Rate, e.Fee, e.Liquidity, e.Venue, e.Volatility, e.Spread, e.MidPrice)
		}
		return Result{Graph: out, Removed: removed}
	}

	// re-index: only tokens touched by a surviving edge are kept, in
	// their original relative insertion order.
	for i, sym := range g.Symbols() {
		if touched[i] {
			out.AddNode(sym)
		}
	}
	for _, e := range kept {
		out.AddEdgeFull(g.Symbol(e.From), g.Symbol(e.To), e.Rate, e.Fee, e.Liquidity, e.Venue, e.Volatility, e.Spread, e.MidPrice)
	}
	return Result{Graph: out, Removed: removed}
}

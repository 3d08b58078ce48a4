// Package cycles implements the negative-cycle arbitrage detector:
// repeated Bellman-Ford over the log-weighted graph, followed by
// deduplicated cycle extraction. Grounded on
// original_source/core/cycle_detector.cpp, generalized from this
// codebase's streaming internal/detector.Run loop into a single
// synchronous Detect call — the engine's contract is request/response,
// not a ticking loop.
package cycles

import (
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/Devadharshan16/OmniQuant/internal/graph"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

// Result is the outcome of a Detect call.
type Result struct {
	Cycles          []types.Cycle
	DetectionTimeMs float64
}

// Detect runs repeated Bellman-Ford from every node in index order,
// early-exiting once maxCycles distinct cycles have been found, and
// deduplicates by CycleFingerprint across all sources.
//
// An empty graph or a graph with no negative cycle both return an
// empty (non-error) result rather than an error.
func Detect(g *graph.Graph, maxCycles int, log *zap.Logger) Result {
	start := time.Now()

	n := g.NodeCount()
	if n == 0 {
		return Result{}
	}

	edges := g.Edges()
	seen := make(map[string]bool)
	var out []types.Cycle

	for source := 0; source < n && len(out) < maxCycles; source++ {
		relaxNode, dist, parent, ok := bellmanFord(edges, source, n)
		if !ok {
			continue
		}
		cyc, ok := extractCycle(g, edges, relaxNode, dist, parent, n)
		if !ok {
			continue
		}
		if cyc.LogProfit >= 0 {
			// numerical drift produced a non-negative cycle; discard.
			continue
		}
		if seen[cyc.Fingerprint] {
			continue
		}
		seen[cyc.Fingerprint] = true
		out = append(out, cyc)
	}

	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if len(out) > 0 {
		per := elapsed / float64(len(out))
		for i := range out {
			out[i].DetectionTimeMs = per
		}
	}

	if log != nil {
		log.Debug("cycle detection complete",
			zap.Int("nodes", n),
			zap.Int("edges", len(edges)),
			zap.Int("cycles_found", len(out)),
			zap.Float64("detection_time_ms", elapsed),
		)
	}

	return Result{Cycles: out, DetectionTimeMs: elapsed}
}

// bellmanFord runs |V|-1 relaxation passes from source, then one more
// to detect a reachable negative cycle. It returns the "to" node of an
// edge that still relaxes on the extra pass.
func bellmanFord(edges []graph.Edge, source, n int) (relaxNode int, dist []float64, parent []int, foundNegativeCycle bool) {
	dist = make([]float64, n)
	parent = make([]int, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		parent[i] = -1
	}
	dist[source] = 0

	for i := 0; i < n-1; i++ {
		changed := false
		for _, e := range edges {
			if math.IsInf(dist[e.From], 1) {
				continue
			}
			w := e.Weight()
			if math.IsInf(w, 1) {
				continue
			}
			nd := dist[e.From] + w
			if nd < dist[e.To] {
				dist[e.To] = nd
				parent[e.To] = e.From
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, e := range edges {
		if math.IsInf(dist[e.From], 1) {
			continue
		}
		w := e.Weight()
		if math.IsInf(w, 1) {
			continue
		}
		if dist[e.From]+w < dist[e.To] {
			return e.To, dist, parent, true
		}
	}
	return 0, dist, parent, false
}

// extractCycle recovers the cycle containing relaxNode by advancing
// the parent pointer |V| times (to guarantee landing on-cycle rather
// than merely reachable-from-cycle), then walking parent pointers back
// to the start.
func extractCycle(g *graph.Graph, edges []graph.Edge, relaxNode int, dist []float64, parent []int, n int) (types.Cycle, bool) {
	cur := relaxNode
	for i := 0; i < n; i++ {
		if parent[cur] == -1 {
			return types.Cycle{}, false
		}
		cur = parent[cur]
	}
	start := cur

	nodePath := []int{start}
	visited := map[int]bool{start: true}
	cur = parent[start]
	for cur != start {
		if cur == -1 || len(nodePath) > n {
			return types.Cycle{}, false
		}
		nodePath = append(nodePath, cur)
		if visited[cur] {
			// shouldn't happen given the guard above, but avoid an
			// infinite loop defensively.
			return types.Cycle{}, false
		}
		visited[cur] = true
		cur = parent[cur]
	}
	// nodePath is currently [start, predecessor-of-start, ...] walking
	// backward along parent pointers; reverse it to get forward order
	// and prepend start to close the cycle (start -> ... -> start).
	reverse(nodePath)
	nodePath = append([]int{start}, nodePath...)

	edgeIndices := make([]int, 0, len(nodePath)-1)
	for i := 0; i < len(nodePath)-1; i++ {
		from, to := nodePath[i], nodePath[i+1]
		ei, ok := pickEdge(g, edges, from, to, dist)
		if !ok {
			return types.Cycle{}, false
		}
		edgeIndices = append(edgeIndices, ei)
	}

	rawProfit := 1.0
	logProfit := 0.0
	for _, ei := range edgeIndices {
		e := edges[ei]
		rawProfit *= e.EffectiveRate()
		logProfit += e.Weight()
	}
	rawProfit -= 1.0

	path := make([]string, len(nodePath))
	for i, ni := range nodePath {
		path[i] = g.Symbol(ni)
	}

	fp := fingerprint(path)

	return types.Cycle{
		Path:            path,
		NodeIndices:     nodePath,
		EdgeIndices:     edgeIndices,
		RawProfit:       rawProfit,
		LogProfit:       logProfit,
		PathLength:      len(edgeIndices),
		Fingerprint:     fp,
		FingerprintHash: fingerprintHash(fp),
	}, true
}

// pickEdge chooses, among possibly-parallel edges from -> to, the one
// whose weight matches the relaxation that produced the parent link
// (dist[to] - dist[from]); ties (or an inexact match, since dist may
// have been overwritten by a later relaxation) fall back to the
// minimum-weight edge, with ties broken by insertion order.
func pickEdge(g *graph.Graph, edges []graph.Edge, from, to int, dist []float64) (int, bool) {
	candidates := g.EdgesBetween(from, to)
	if len(candidates) == 0 {
		return 0, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	target := dist[to] - dist[from]
	const tol = 1e-9
	best := candidates[0]
	bestDiff := math.Abs(edges[best].Weight() - target)
	bestWeight := edges[best].Weight()
	for _, ei := range candidates[1:] {
		w := edges[ei].Weight()
		diff := math.Abs(w - target)
		if diff < bestDiff-tol {
			best, bestDiff, bestWeight = ei, diff, w
		} else if diff < bestDiff+tol && w < bestWeight {
			best, bestDiff, bestWeight = ei, diff, w
		}
	}
	if bestDiff > tol {
		// no edge reproduces the relaxation; take the minimum-weight
		// edge, earliest-inserted on ties.
		best, bestWeight = candidates[0], edges[candidates[0]].Weight()
		for _, ei := range candidates[1:] {
			if w := edges[ei].Weight(); w < bestWeight {
				best, bestWeight = ei, w
			}
		}
	}
	return best, true
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// fingerprint is the canonical dedup key: the multiset of token
// symbols on the path (order-insensitive, closing token excluded since
// it duplicates the first), sorted and separator-joined.
func fingerprint(path []string) string {
	if len(path) == 0 {
		return ""
	}
	tokens := make([]string, len(path)-1)
	copy(tokens, path[:len(path)-1])
	sort.Strings(tokens)
	return strings.Join(tokens, "|")
}

// fingerprintHash returns the first 16 hex characters of
// Keccak256(fingerprint), used as the wire-level opportunity_id
//. Keccak is the arb-bot reference code's hash family for canonical
// identifiers (its internal/screener/checksum.go), reused here for a token
// multiset instead of an address.
func fingerprintHash(fp string) string {
	h := crypto.Keccak256([]byte(fp))
	return hex.EncodeToString(h)[:16]
}

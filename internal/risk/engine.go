// Package risk implements the five-factor composite risk engine,
// grounded on original_source/risk/risk_engine.py. The arb-bot
// reference code's internal/risk package held a two-line min-profit/min-ROI
// trade gate (internal/config-driven); that gate has no place in a
// scan-scoring engine and is replaced entirely by the composite scorer
// below.
package risk

import (
	"fmt"
	"math"

	"github.com/Devadharshan16/OmniQuant/internal/types"
)

const (
	maxPathLength   = 6
	executionHRefMs = 500.0
	warningThreshold = 70.0
)

// Weights are the fixed composite coefficients.
const (
	weightLiquidity  = 0.3
	weightComplexity = 0.2
	weightVolatility = 0.2
	weightExecution  = 0.2
	weightSpread     = 0.1
)

// Input bundles everything the risk engine needs about one cycle's
// evaluated state.
type Input struct {
	Capital           float64
	MinHopLiquidity   float64
	PathLength        int
	MeanHopSigma      float64
	HalfLifeMs        float64
	HalfLifeUnbounded bool
	Spread            float64
	MidPrice          float64
	Conservative      bool
}

// Score computes a RiskProfile from an Input.
func Score(in Input) types.RiskProfile {
	l := liquidityScore(in.Capital, in.MinHopLiquidity)
	c := complexityScore(in.PathLength)
	v := volatilityScore(in.MeanHopSigma)
	e := executionScore(in.HalfLifeMs, in.HalfLifeUnbounded)
	s := spreadScore(in.Spread, in.MidPrice)

	composite := weightLiquidity*l + weightComplexity*c + weightVolatility*v + weightExecution*e + weightSpread*s
	if in.Conservative {
		composite = clamp(composite*1.3, 0, 100)
	}

	warnings := collectWarnings(l, c, v, e, s)

	return types.RiskProfile{
		Liquidity:  l,
		Complexity: c,
		Volatility: v,
		Execution:  e,
		Spread:     s,
		Composite:  composite,
		Level:      levelFor(composite),
		Warnings:   warnings,
		Confidence: 100 - composite,
	}
}

func liquidityScore(capital, minHopLiquidity float64) float64 {
	if minHopLiquidity <= 0 {
		return 100
	}
	return clamp(100*capital/minHopLiquidity, 0, 100)
}

func complexityScore(pathLength int) float64 {
	return clamp(100*float64(pathLength)/maxPathLength, 0, 100)
}

func volatilityScore(meanHopSigma float64) float64 {
	return clamp(1000*meanHopSigma, 0, 100)
}

func executionScore(halfLifeMs float64, unbounded bool) float64 {
	if unbounded {
		return 0
	}
	h := math.Min(halfLifeMs, executionHRefMs)
	return clamp(100*(1-h/executionHRefMs), 0, 100)
}

func spreadScore(spread, midPrice float64) float64 {
	if midPrice <= 0 {
		return 0
	}
	return clamp(100*spread/midPrice, 0, 100)
}

// levelFor buckets a composite score into a RiskLevel using fixed
// quintile boundaries.
func levelFor(composite float64) types.RiskLevel {
	switch {
	case composite < 20:
		return types.RiskVeryLow
	case composite < 40:
		return types.RiskLow
	case composite < 60:
		return types.RiskModerate
	case composite < 80:
		return types.RiskHigh
	default:
		return types.RiskVeryHigh
	}
}

func collectWarnings(l, c, v, e, s float64) []string {
	var out []string
	if l > warningThreshold {
		out = append(out, fmt.Sprintf("liquidity risk elevated (%.1f): capital nears min hop liquidity", l))
	}
	if c > warningThreshold {
		out = append(out, fmt.Sprintf("complexity risk elevated (%.1f): long path increases failure surface", c))
	}
	if v > warningThreshold {
		out = append(out, fmt.Sprintf("volatility risk elevated (%.1f): hop rates are unstable", v))
	}
	if e > warningThreshold {
		out = append(out, fmt.Sprintf("execution risk elevated (%.1f): latency half-life is short", e))
	}
	if s > warningThreshold {
		out = append(out, fmt.Sprintf("spread risk elevated (%.1f): bid/ask spread is wide relative to mid price", s))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

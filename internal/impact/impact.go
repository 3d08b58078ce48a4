// Package impact implements the convex power-law price impact model,
// grounded on original_source/simulation/impact_model.py.
package impact

import "math"

// Config holds the impact model's tunable coefficients.
type Config struct {
	K     float64
	Alpha float64
}

// DefaultConfig returns the package's default coefficients.
func DefaultConfig() Config {
	return Config{K: 0.5, Alpha: 1.5}
}

// Hop is the result of applying the impact model to one hop.
type Hop struct {
	Impact        float64 // fraction, clamped to [0, 0.5]
	ImpactBps     float64
	Utilization   float64
	EffectiveRate float64
}

// Apply computes the effective rate for one hop after fee and impact:
// effective_rate = rate*(1-fee)*(1-impact), impact = k*(volume/liquidity)^alpha
// clamped to [0, 0.5].
func Apply(cfg Config, rate, fee, volume, liquidity float64) Hop {
	utilization := 0.0
	if liquidity > 0 {
		utilization = volume / liquidity
	} else if volume > 0 {
		utilization = math.Inf(1)
	}

	impactFrac := 0.0
	if utilization > 0 && !math.IsInf(utilization, 1) {
		impactFrac = cfg.K * math.Pow(utilization, cfg.Alpha)
	} else if math.IsInf(utilization, 1) {
		impactFrac = 0.5
	}
	impactFrac = clamp(impactFrac, 0, 0.5)

	effective := rate * (1 - fee) * (1 - impactFrac)

	return Hop{
		Impact:        impactFrac,
		ImpactBps:     impactFrac * 10000,
		Utilization:   utilization,
		EffectiveRate: effective,
	}
}

// ApplyWithNoise is the directional variant: it multiplies the
// no-noise effective rate by (1+eps), where eps is a caller-supplied
// N(0, sigma^2) draw. The Monte Carlo simulator is the caller and owns
// sample generation so that determinism stays centralized in one
// seeding scheme.
func ApplyWithNoise(cfg Config, rate, fee, volume, liquidity, eps float64) Hop {
	h := Apply(cfg, rate, fee, volume, liquidity)
	h.EffectiveRate *= 1 + eps
	return h
}

// CompoundImpact folds Apply across a multi-hop path and reports the
// cumulative price impact: the product of the per-hop (1 - impact)
// factors, minus 1. Grounded on
// original_source/simulation/impact_model.py's
// calculate_multihop_impact.
func CompoundImpact(cfg Config, rates, fees, volumes, liquidities []float64) (cumulativeImpact float64, hops []Hop) {
	n := len(rates)
	hops = make([]Hop, n)
	cumulative := 1.0
	for i := 0; i < n; i++ {
		h := Apply(cfg, rates[i], fees[i], volumes[i], liquidities[i])
		hops[i] = h
		baseline := rates[i] * (1 - fees[i])
		if baseline != 0 {
			cumulative *= h.EffectiveRate / baseline
		}
	}
	return cumulative - 1.0, hops
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

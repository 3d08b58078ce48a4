// Package allocator implements the capital allocation strategies:
// greedy, linear-programming, and risk-parity portfolio assignment
// across surviving cycles. Grounded on
// original_source/optimizer/capital_allocator.py.
package allocator

import (
	"sort"

	"github.com/Devadharshan16/OmniQuant/internal/types"
)

const (
	DefaultMaxPosition  = 0.3
	DefaultMinConfidence = 50.0
	epsilon             = 1e-9
)

// Criterion selects the ranking score used to order candidates before
// allocation.
type Criterion string

const (
	CriterionSharpe    Criterion = "sharpe"
	CriterionMeanReturn Criterion = "mean_return"
	CriterionComposite Criterion = "composite"
)

// Candidate is one cycle's inputs to the allocator.
type Candidate struct {
	OpportunityID   string
	MeanReturn      float64
	Sharpe          float64
	Risk            float64 // composite risk score, [0, 100]
	Confidence      float64
	MinHopLiquidity float64
}

// Config bounds the allocation.
type Config struct {
	Capital       float64
	MaxPosition   float64
	MinConfidence float64
	Criterion     Criterion
}

func (c *Config) normalize() {
	if c.MaxPosition <= 0 {
		c.MaxPosition = DefaultMaxPosition
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.Criterion == "" {
		c.Criterion = CriterionComposite
	}
}

// score computes a candidate's ranking value under cfg.Criterion.
func score(c Candidate, criterion Criterion) float64 {
	switch criterion {
	case CriterionSharpe:
		return c.Sharpe
	case CriterionMeanReturn:
		return c.MeanReturn
	default:
		return c.Sharpe * c.Confidence / maxF(c.Risk, epsilon)
	}
}

// eligible filters and ranks candidates by descending score, dropping
// anything below min_confidence.
func eligible(candidates []Candidate, cfg Config) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence >= cfg.MinConfidence {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return score(out[i], cfg.Criterion) > score(out[j], cfg.Criterion)
	})
	return out
}

// Allocate dispatches to the requested allocation mode.
func Allocate(mode types.AllocatorMode, candidates []Candidate, cfg Config) types.AllocationPlan {
	cfg.normalize()
	switch mode {
	case types.AllocatorLP:
		return allocateLP(candidates, cfg)
	case types.AllocatorRiskParity:
		return allocateRiskParity(candidates, cfg)
	default:
		return allocateGreedy(candidates, cfg)
	}
}

// perCycleCap returns the maximum fraction c may receive: the smaller
// of max_position and the liquidity-implied cap fraction·capital ≤
// min_hop_liquidity.
func perCycleCap(c Candidate, cfg Config) float64 {
	cap := cfg.MaxPosition
	if cfg.Capital > 0 && c.MinHopLiquidity > 0 {
		liquidityCap := c.MinHopLiquidity / cfg.Capital
		if liquidityCap < cap {
			cap = liquidityCap
		}
	}
	if cap < 0 {
		cap = 0
	}
	return cap
}

// allocateGreedy iterates ranked candidates, assigning
// min(capital_remaining, per_cycle_cap, liquidity_cap) until capital is
// exhausted.
func allocateGreedy(candidates []Candidate, cfg Config) types.AllocationPlan {
	ranked := eligible(candidates, cfg)

	remaining := cfg.Capital
	var allocations []types.Allocation
	var totalFraction, expectedReturn, riskSum float64

	for _, c := range ranked {
		if remaining <= 0 {
			break
		}
		cap := perCycleCap(c, cfg)
		capitalCap := cap * cfg.Capital
		amount := minF(remaining, capitalCap)
		if amount <= 0 {
			continue
		}
		fraction := 0.0
		if cfg.Capital > 0 {
			fraction = amount / cfg.Capital
		}
		allocations = append(allocations, types.Allocation{
			OpportunityID:  c.OpportunityID,
			Fraction:       fraction,
			Capital:        amount,
			ExpectedReturn: c.MeanReturn,
			Risk:           c.Risk,
			Confidence:     c.Confidence,
		})
		remaining -= amount
		totalFraction += fraction
		expectedReturn += fraction * c.MeanReturn
		riskSum += fraction * c.Risk
	}

	return finalizePlan(types.AllocatorGreedy, allocations, cfg, totalFraction, expectedReturn, riskSum, remaining)
}

// allocateLP maximizes Sigma x_i * mean_return_i * confidence_i /
// max(risk_i, eps) subject to the same linear constraints as greedy
//, via the two-phase simplex in simplex.go.
func allocateLP(candidates []Candidate, cfg Config) types.AllocationPlan {
	ranked := filterConfidence(candidates, cfg.MinConfidence)
	n := len(ranked)
	if n == 0 {
		return finalizePlan(types.AllocatorLP, nil, cfg, 0, 0, 0, cfg.Capital)
	}

	c := make([]float64, n)
	for i, cand := range ranked {
		c[i] = cand.MeanReturn * cand.Confidence / maxF(cand.Risk, epsilon)
	}

	constraints := make([]lpConstraint, 0, n+1)
	// per-cycle cap: x_i <= cap_i
	for i, cand := range ranked {
		row := make([]float64, n)
		row[i] = 1
		constraints = append(constraints, lpConstraint{coeffs: row, rhs: perCycleCap(cand, cfg)})
	}
	// total allocation: sum x_i <= 1
	totalRow := make([]float64, n)
	for i := range totalRow {
		totalRow[i] = 1
	}
	constraints = append(constraints, lpConstraint{coeffs: totalRow, rhs: 1})

	result := solveLP(c, constraints)
	if !result.feasible {
		// degenerate program (e.g. every cap is zero); fall back to an
		// empty allocation rather than propagating an LP failure.
		return finalizePlan(types.AllocatorLP, nil, cfg, 0, 0, 0, cfg.Capital)
	}

	var allocations []types.Allocation
	var totalFraction, expectedReturn, riskSum float64
	for i, cand := range ranked {
		fraction := result.x[i]
		if fraction <= 1e-9 {
			continue
		}
		amount := fraction * cfg.Capital
		allocations = append(allocations, types.Allocation{
			OpportunityID:  cand.OpportunityID,
			Fraction:       fraction,
			Capital:        amount,
			ExpectedReturn: cand.MeanReturn,
			Risk:           cand.Risk,
			Confidence:     cand.Confidence,
		})
		totalFraction += fraction
		expectedReturn += fraction * cand.MeanReturn
		riskSum += fraction * cand.Risk
	}
	remaining := cfg.Capital * (1 - totalFraction)

	return finalizePlan(types.AllocatorLP, allocations, cfg, totalFraction, expectedReturn, riskSum, remaining)
}

// allocateRiskParity walks candidates in descending-confidence order
// and adds each one while riskParityFractions still gives every chosen
// candidate a positive fraction; it stops at the first candidate whose
// addition yields a zero fraction (a zero per-cycle cap). Fractions are
// x_i = b/risk_i with the shared budget b as large as sum(x_i) <= 1
// allows; a candidate whose b/risk_i exceeds its cap is held at the
// cap, so its x_i·risk_i is smaller than the uncapped candidates'.
func allocateRiskParity(candidates []Candidate, cfg Config) types.AllocationPlan {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	ranked = filterConfidence(ranked, cfg.MinConfidence)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	var chosen []Candidate
	for _, c := range ranked {
		trial := append(append([]Candidate(nil), chosen...), c)
		if riskParityFractions(trial, cfg) != nil {
			chosen = trial
		} else {
			break
		}
	}

	fractions := riskParityFractions(chosen, cfg)

	var allocations []types.Allocation
	var totalFraction, expectedReturn, riskSum float64
	for i, c := range chosen {
		fraction := fractions[i]
		amount := fraction * cfg.Capital
		allocations = append(allocations, types.Allocation{
			OpportunityID:  c.OpportunityID,
			Fraction:       fraction,
			Capital:        amount,
			ExpectedReturn: c.MeanReturn,
			Risk:           c.Risk,
			Confidence:     c.Confidence,
		})
		totalFraction += fraction
		expectedReturn += fraction * c.MeanReturn
		riskSum += fraction * c.Risk
	}
	remaining := cfg.Capital * (1 - totalFraction)

	return finalizePlan(types.AllocatorRiskParity, allocations, cfg, totalFraction, expectedReturn, riskSum, remaining)
}

// riskParityFractions computes x_i = min(b/risk_i, cap_i), with the
// shared risk budget b found by bisection as the largest value that
// keeps sum(x_i) <= 1. Uncapped candidates share an equal x_i·risk_i;
// capped ones contribute less. It returns nil when candidates is empty
// or any resulting fraction is zero.
func riskParityFractions(candidates []Candidate, cfg Config) []float64 {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	caps := make([]float64, n)
	invRisk := make([]float64, n)
	for i, c := range candidates {
		caps[i] = perCycleCap(c, cfg)
		invRisk[i] = 1.0 / maxF(c.Risk, epsilon)
	}

	// Binary search the risk budget b such that fractions x_i =
	// b*invRisk_i, clamped to caps, sum to at most 1 and remain
	// feasible (every x_i > 0 and within its cap).
	hi := 0.0
	for _, ir := range invRisk {
		if ir > hi {
			hi = ir
		}
	}
	if hi == 0 {
		return nil
	}
	// Search b in [0, hiBudget], where hiBudget is the largest
	// cap_i/invRisk_i (at least 1): at that budget every x_i has
	// reached its cap.
	hiBudget := 1.0
	for i := range candidates {
		if caps[i] > 0 && invRisk[i] > 0 {
			c := caps[i] / invRisk[i]
			if c > hiBudget {
				hiBudget = c
			}
		}
	}

	feasible := func(b float64) (float64, []float64) {
		fr := make([]float64, n)
		total := 0.0
		for i := range candidates {
			x := b * invRisk[i]
			if x > caps[i] {
				x = caps[i]
			}
			fr[i] = x
			total += x
		}
		return total, fr
	}

	loB, hiB := 0.0, hiBudget
	var lastFractions []float64
	for iter := 0; iter < 60; iter++ {
		mid := (loB + hiB) / 2
		total, fr := feasible(mid)
		lastFractions = fr
		if total > 1 {
			hiB = mid
		} else {
			loB = mid
		}
	}
	_, fractions := feasible(loB)

	for _, x := range fractions {
		if x <= 0 {
			return nil
		}
	}
	_ = lastFractions
	return fractions
}

func filterConfidence(candidates []Candidate, minConfidence float64) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence >= minConfidence {
			out = append(out, c)
		}
	}
	return out
}

// finalizePlan assembles the AllocationPlan common to every mode and
// asserts the constraints every allocator mode is required to hold:
// total_fraction <= 1, no negative fraction, and capital_remaining
// within [0, capital] (capital_allocated is derived as capital minus
// capital_remaining). A violation means an allocator produced an infeasible plan
// and is a programming error, not a bad input, so it panics rather than
// returning a value the caller could mistake for a valid allocation.
func finalizePlan(mode types.AllocatorMode, allocations []types.Allocation, cfg Config, totalFraction, expectedReturn, riskSum, remaining float64) types.AllocationPlan {
	const eps = 1e-6
	if totalFraction > 1+eps {
		panic("allocator: total_fraction exceeds 1.0")
	}
	for _, a := range allocations {
		if a.Fraction < -eps {
			panic("allocator: negative allocation fraction")
		}
	}
	if remaining < -eps || remaining > cfg.Capital+eps {
		panic("allocator: capital_remaining outside [0, capital]")
	}

	portfolioRisk := 0.0
	if totalFraction > 0 {
		portfolioRisk = riskSum / totalFraction
	}
	return types.AllocationPlan{
		Mode:             mode,
		Allocations:      allocations,
		TotalFraction:    totalFraction,
		CapitalAllocated: cfg.Capital - remaining,
		CapitalRemaining: remaining,
		ExpectedReturn:   expectedReturn,
		PortfolioRisk:    portfolioRisk,
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Package simulate implements the Monte Carlo execution simulator:
// per-cycle randomized execution sampling and the latency half-life
// bisection search. Grounded on
// original_source/simulation/monte_carlo.py, deriving each sample's
// RNG state as hash(seed, fingerprint, sample_index) via
// golang.org/x/crypto/sha3 (SHA3-256), the same Keccak sponge family
// the arb-bot reference code uses for canonical hashing in its
// internal/screener/checksum.go.
package simulate

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/impact"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

const (
	DefaultSamples  = 500
	MaxSamples      = 10000
	DefaultLatencyMaxMs = 200.0
	DefaultLiquidityDelta = 0.2
	DefaultHalfLifeMs = 100.0
)

// HopParams is one leg of a cycle as seen by the simulator.
type HopParams struct {
	Rate       float64
	Fee        float64
	Liquidity  float64
	Volatility float64 // sigma for this hop
	Volume     float64 // trade volume for slippage sizing
}

// Params configures one simulation run over a single cycle.
type Params struct {
	Hops          []HopParams
	Samples       int
	Seed          int64
	FingerprintID string // mixed into the per-sample hash so two cycles never share a stream
	LatencyMaxMs  float64
	LiquidityDelta float64
	HalfLifeMs    float64
	ImpactConfig  impact.Config
}

// normalize fills in the package defaults for zero-value fields.
func (p *Params) normalize() {
	if p.Samples <= 0 {
		p.Samples = DefaultSamples
	}
	if p.LatencyMaxMs == 0 {
		p.LatencyMaxMs = DefaultLatencyMaxMs
	}
	if p.LiquidityDelta == 0 {
		p.LiquidityDelta = DefaultLiquidityDelta
	}
	if p.HalfLifeMs == 0 {
		p.HalfLifeMs = DefaultHalfLifeMs
	}
	if p.ImpactConfig == (impact.Config{}) {
		p.ImpactConfig = impact.DefaultConfig()
	}
}

// sampleSeed derives a deterministic per-sample RNG seed from
// (seed, fingerprint, index) via SHA3-256, so any worker count
// produces identical samples.
func sampleSeed(seed int64, fingerprint string, index int) int64 {
	h := sha3.New256()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(fingerprint))
	binary.BigEndian.PutUint64(buf[:], uint64(index))
	h.Write(buf[:])
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Run draws Samples i.i.d. sample paths for one cycle and returns the
// aggregated distributional statistics. Samples are drawn
// across a bounded worker pool; results are written into an
// index-addressed slice so the final reduction is done in a single
// deterministic pass regardless of completion order.
func Run(ctx context.Context, p Params) (*types.SimulationResult, error) {
	p.normalize()
	if p.Samples > MaxSamples {
		return nil, apperr.New(apperr.InvalidInput, "mc_samples exceeds maximum")
	}
	if len(p.Hops) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "cycle has no hops")
	}

	n := p.Samples
	returns := make([]float64, n)
	valid := make([]bool, n)

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	cancelled := false
	var cancelMu sync.Mutex

	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if (i-lo)%64 == 0 {
					select {
					case <-ctx.Done():
						cancelMu.Lock()
						cancelled = true
						cancelMu.Unlock()
						return
					default:
					}
				}
				seed := sampleSeed(p.Seed, p.FingerprintID, i)
				rng := rand.New(rand.NewSource(seed))
				r, ok := drawSample(p, rng)
				returns[i] = r
				valid[i] = ok
			}
		}(lo, hi)
	}
	wg.Wait()

	if cancelled {
		return nil, apperr.New(apperr.Cancelled, "monte carlo simulation cancelled")
	}

	accepted := make([]float64, 0, n)
	rejected := 0
	for i := 0; i < n; i++ {
		if valid[i] {
			accepted = append(accepted, returns[i])
		} else {
			rejected++
		}
	}

	result := aggregate(accepted)
	result.RejectedSamples = rejected
	result.RequestedSamples = n

	halfLife, unbounded := HalfLife(p)
	result.HalfLifeMs = halfLife
	result.HalfLifeUnbounded = unbounded

	return result, nil
}

// drawSample runs a single randomized execution path over the cycle's
// hops and returns (return, accepted). Non-finite results are
// rejected, not propagated.
func drawSample(p Params, rng *rand.Rand) (float64, bool) {
	latency := rng.Float64() * p.LatencyMaxMs
	lambda := 1 - p.LiquidityDelta + rng.Float64()*(2*p.LiquidityDelta)

	cumulative := 1.0
	for _, hop := range p.Hops {
		eps := 0.0
		if hop.Volatility > 0 {
			eps = rng.NormFloat64() * hop.Volatility
		}
		liq := hop.Liquidity * lambda
		h := impact.ApplyWithNoise(p.ImpactConfig, hop.Rate, hop.Fee, hop.Volume, liq, eps)
		cumulative *= h.EffectiveRate
	}

	decay := decayFactor(latency, p.HalfLifeMs)
	cumulative *= decay

	ret := cumulative - 1.0
	if math.IsNaN(ret) || math.IsInf(ret, 0) {
		return 0, false
	}
	return ret, true
}

// decayFactor implements decay(l) = max(0, 1 - l/half_life_ms).
func decayFactor(latencyMs, halfLifeMs float64) float64 {
	if halfLifeMs <= 0 {
		return 0
	}
	if math.IsInf(halfLifeMs, 1) {
		return 1
	}
	d := 1 - latencyMs/halfLifeMs
	if d < 0 {
		return 0
	}
	return d
}

// aggregate computes the distributional statistics from a set of
// accepted return samples.
func aggregate(samples []float64) *types.SimulationResult {
	n := len(samples)
	res := &types.SimulationResult{Samples: samples}
	if n == 0 {
		return res
	}

	sum := 0.0
	for _, r := range samples {
		sum += r
	}
	mean := sum / float64(n)

	var sqDiff float64
	for _, r := range samples {
		d := r - mean
		sqDiff += d * d
	}
	std := 0.0
	if n > 1 {
		std = math.Sqrt(sqDiff / float64(n-1))
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	median := percentile(sorted, 50)
	p5 := percentile(sorted, 5)
	p95 := percentile(sorted, 95)

	negCount := 0
	profCount := 0
	for _, r := range samples {
		if r < 0 {
			negCount++
		}
		if r > 0 {
			profCount++
		}
	}

	sharpe := 0.0
	if std > 0 {
		sharpe = mean / std
	}

	res.Mean = mean
	res.Std = std
	res.Median = median
	res.P5 = p5
	res.P95 = p95
	res.ProbNegative = float64(negCount) / float64(n)
	res.Sharpe = sharpe
	res.FractionProfitable = float64(profCount) / float64(n)
	return res
}

// percentile does linear-interpolation percentile lookup over an
// already-sorted slice.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// HalfLife locates, by bisection on l in [0, 10000ms] with 1ms
// tolerance, the smallest l>0 at which the cycle's expected return
// (mean over a fixed noise-free evaluation) reaches zero.
// If unprofitable at l=0, half_life=0; if still profitable at
// l=10000ms, half_life is reported as +Inf ("unbounded").
func HalfLife(p Params) (float64, bool) {
	expectedAt := func(latencyMs float64) float64 {
		cumulative := 1.0
		for _, hop := range p.Hops {
			h := impact.Apply(p.ImpactConfig, hop.Rate, hop.Fee, hop.Volume, hop.Liquidity)
			cumulative *= h.EffectiveRate
		}
		return cumulative*decayFactor(latencyMs, p.HalfLifeMs) - 1.0
	}

	if expectedAt(0) <= 0 {
		return 0, false
	}
	if expectedAt(10000) > 0 {
		return math.Inf(1), true
	}

	lo, hi := 0.0, 10000.0
	for hi-lo > 1.0 {
		mid := (lo + hi) / 2
		if expectedAt(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, false
}

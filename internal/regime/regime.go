// Package regime implements the rolling-window market regime
// classifier, grounded on
// original_source/analytics/regime_detector.py. The tracker is
// append-only and safe for single-writer/multi-reader use, replacing
// the source's ambient global state with a caller-owned instance.
package regime

import (
	"math"
	"sync"

	"github.com/Devadharshan16/OmniQuant/internal/types"
)

const DefaultWindow = 100

// Observation is one per-pair sample fed into the rolling window.
type Observation struct {
	Price  float64
	Volume float64
}

// Tracker holds a bounded rolling window of observations for one
// trading pair and classifies volatility/liquidity/trend regimes on
// demand.
type Tracker struct {
	mu     sync.RWMutex
	window int
	obs    []Observation
}

// New constructs a Tracker with the given rolling window size
// (defaults to 100 when zero).
func New(window int) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: window}
}

// Observe appends a new observation, evicting the oldest once the
// window is full.
func (t *Tracker) Observe(o Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.obs = append(t.obs, o)
	if len(t.obs) > t.window {
		t.obs = t.obs[len(t.obs)-t.window:]
	}
}

// Len returns the number of observations currently held.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.obs)
}

// Snapshot classifies the current window into a RegimeSnapshot. With
// fewer than three observations classification is
// underdetermined; Snapshot reports the neutral middle buckets
// (Moderate, Normal, Flat) with zero confidence.
func (t *Tracker) Snapshot() types.RegimeSnapshot {
	t.mu.RLock()
	obs := append([]Observation(nil), t.obs...)
	t.mu.RUnlock()

	if len(obs) < 3 {
		return types.RegimeSnapshot{
			VolatilityClass: types.VolModerate,
			LiquidityClass:  types.LiqNormal,
			TrendClass:      types.TrendFlat,
			Confidence:      0,
		}
	}

	logReturns := make([]float64, 0, len(obs)-1)
	for i := 1; i < len(obs); i++ {
		if obs[i-1].Price > 0 && obs[i].Price > 0 {
			logReturns = append(logReturns, math.Log(obs[i].Price/obs[i-1].Price))
		}
	}
	volStdev := stdev(logReturns)

	volumes := make([]float64, len(obs))
	for i, o := range obs {
		volumes[i] = o.Volume
	}
	meanVolume := mean(volumes)

	prices := make([]float64, len(obs))
	for i, o := range obs {
		prices[i] = o.Price
	}

	trendClass, trendConfidence := classifyTrend(prices)

	return types.RegimeSnapshot{
		VolatilityClass: classifyVolatility(volStdev),
		LiquidityClass:  classifyLiquidity(meanVolume),
		TrendClass:      trendClass,
		Confidence:      trendConfidence,
	}
}

// classifyVolatility buckets window stdev of log-returns into a
// quintile-style five-class scale. Thresholds are fixed fractions of a
// 1% daily-vol reference scale; the exact quintile boundaries are an
// implementation choice, not a fixed requirement.
func classifyVolatility(stdev float64) types.VolatilityClass {
	switch {
	case stdev < 0.0005:
		return types.VolVeryLow
	case stdev < 0.0015:
		return types.VolLow
	case stdev < 0.004:
		return types.VolModerate
	case stdev < 0.01:
		return types.VolHigh
	default:
		return types.VolVeryHigh
	}
}

// classifyLiquidity buckets window mean volume into a five-class scale
// using fixed absolute bands (0.2, 0.6, 1.5, 4.0) around a baseline of
// 1.0. The bands are not normalized per pair, so the class depends on
// the unit the caller's volumes are expressed in.
func classifyLiquidity(meanVolume float64) types.LiquidityClass {
	switch {
	case meanVolume < 0.2:
		return types.LiqDrought
	case meanVolume < 0.6:
		return types.LiqScarce
	case meanVolume < 1.5:
		return types.LiqNormal
	case meanVolume < 4.0:
		return types.LiqAmple
	default:
		return types.LiqAbundant
	}
}

// classifyTrend compares SMA(short=10) - SMA(long=30) against the
// window's price stdev to classify direction and strength. Confidence
// scales with how many stdevs the SMA gap spans.
func classifyTrend(prices []float64) (types.TrendClass, float64) {
	shortN, longN := 10, 30
	if len(prices) < shortN {
		shortN = len(prices)
	}
	if len(prices) < longN {
		longN = len(prices)
	}

	shortSMA := mean(prices[len(prices)-shortN:])
	longSMA := mean(prices[len(prices)-longN:])
	priceStdev := stdev(prices)

	if priceStdev == 0 {
		return types.TrendFlat, 0
	}

	gap := (shortSMA - longSMA) / priceStdev
	confidence := clamp(math.Abs(gap)*25, 0, 100)

	switch {
	case gap > 1.5:
		return types.TrendStrongUp, confidence
	case gap > 0.3:
		return types.TrendUp, confidence
	case gap < -1.5:
		return types.TrendStrongDown, confidence
	case gap < -0.3:
		return types.TrendDown, confidence
	default:
		return types.TrendFlat, confidence
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sqDiff float64
	for _, x := range xs {
		d := x - m
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff / float64(len(xs)-1))
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

package impact

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_NoVolumeNoImpact(t *testing.T) {
	cfg := DefaultConfig()
	h := Apply(cfg, 1.0, 0.001, 0, 10000)
	assert.Zero(t, h.Impact)
	assert.InDelta(t, 0.999, h.EffectiveRate, 1e-9)
}

func TestApply_ImpactGrowsWithUtilization(t *testing.T) {
	cfg := DefaultConfig()
	small := Apply(cfg, 1.0, 0, 100, 10000)
	large := Apply(cfg, 1.0, 0, 5000, 10000)
	assert.Less(t, small.Impact, large.Impact)
	assert.Less(t, large.EffectiveRate, small.EffectiveRate)
}

func TestApply_ImpactClampedAtHalf(t *testing.T) {
	cfg := Config{K: 100, Alpha: 1}
	h := Apply(cfg, 1.0, 0, 1000, 100)
	assert.Equal(t, 0.5, h.Impact)
	assert.InDelta(t, 5000, h.ImpactBps, 1e-9)
}

func TestApply_ZeroLiquidityWithVolumeIsMaximalImpact(t *testing.T) {
	cfg := DefaultConfig()
	h := Apply(cfg, 1.0, 0, 1, 0)
	assert.True(t, math.IsInf(h.Utilization, 1))
	assert.Equal(t, 0.5, h.Impact)
}

func TestApply_ZeroLiquidityNoVolumeIsZeroImpact(t *testing.T) {
	cfg := DefaultConfig()
	h := Apply(cfg, 1.0, 0, 0, 0)
	assert.Zero(t, h.Impact)
	assert.Zero(t, h.Utilization)
}

func TestApplyWithNoise_ScalesEffectiveRate(t *testing.T) {
	cfg := DefaultConfig()
	base := Apply(cfg, 1.0, 0.001, 100, 10000)
	noisy := ApplyWithNoise(cfg, 1.0, 0.001, 100, 10000, 0.02)
	assert.InDelta(t, base.EffectiveRate*1.02, noisy.EffectiveRate, 1e-9)
}

func TestCompoundImpact_TwoHops(t *testing.T) {
	cfg := DefaultConfig()
	cumImpact, hops := CompoundImpact(cfg,
		[]float64{1.0, 1.0},
		[]float64{0, 0},
		[]float64{100, 100},
		[]float64{10000, 10000},
	)
	require.Len(t, hops, 2)
	assert.Less(t, cumImpact, 0.0)
}

func TestCompoundImpact_EmptyPathIsZero(t *testing.T) {
	cumImpact, hops := CompoundImpact(DefaultConfig(), nil, nil, nil, nil)
	assert.Empty(t, hops)
	assert.Zero(t, cumImpact)
}

package stress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/impact"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

func profitableInput() Input {
	return Input{
		Hops: []Hop{
			{Rate: 1.05, Fee: 0.001, Liquidity: 100000, Volatility: 0.001, Volume: 5000},
			{Rate: 1.02, Fee: 0.001, Liquidity: 100000, Volatility: 0.001, Volume: 5000},
		},
		LatencyMaxMs: 10,
		HalfLifeMs:   200,
		Spread:       0.0005,
		MidPrice:     1.0,
		ImpactConfig: impact.DefaultConfig(),
	}
}

func TestRun_ReturnsSevenScenarios(t *testing.T) {
	report, err := Run(context.Background(), profitableInput())
	require.NoError(t, err)
	assert.Len(t, report.Results, 7)
	assert.Equal(t, types.ShockCombined, report.Results[len(report.Results)-1].Scenario)
}

func TestRun_RobustnessMatchesSurvivalFraction(t *testing.T) {
	report, err := Run(context.Background(), profitableInput())
	require.NoError(t, err)

	survived := 0
	for _, r := range report.Results {
		if r.Survived {
			survived++
		}
	}
	assert.InDelta(t, float64(survived)/float64(len(report.Results)), report.Robustness, 1e-9)
}

func TestRun_CancelledContextReturnsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, profitableInput())
	require.Error(t, err)
	assert.Equal(t, apperr.Cancelled, apperr.KindOf(err))
}

func TestRatingFor_Buckets(t *testing.T) {
	assert.Equal(t, types.RatingExcellent, ratingFor(6))
	assert.Equal(t, types.RatingExcellent, ratingFor(7))
	assert.Equal(t, types.RatingStrong, ratingFor(4))
	assert.Equal(t, types.RatingModerate, ratingFor(2))
	assert.Equal(t, types.RatingWeak, ratingFor(1))
	assert.Equal(t, types.RatingVeryWeak, ratingFor(0))
}

func TestApplyShock_PriceDownReducesRate(t *testing.T) {
	in := profitableInput()
	shocked := applyShock(in, types.ShockPrice, 1.0)
	for i := range shocked.Hops {
		assert.InDelta(t, in.Hops[i].Rate*0.99, shocked.Hops[i].Rate, 1e-9)
	}
	// original input's hop slice is untouched
	assert.Equal(t, 1.05, in.Hops[0].Rate)
}

func TestApplyShock_LiquidityDown30Pct(t *testing.T) {
	in := profitableInput()
	shocked := applyShock(in, types.ShockLiquidity, 1.0)
	assert.InDelta(t, in.Hops[0].Liquidity*0.7, shocked.Hops[0].Liquidity, 1e-6)
}

func TestApplyShock_LatencyMax10x(t *testing.T) {
	in := profitableInput()
	shocked := applyShock(in, types.ShockLatency, 1.0)
	assert.InDelta(t, in.LatencyMaxMs*10, shocked.LatencyMaxMs, 1e-9)
}

func TestApplyShock_SpreadTriples(t *testing.T) {
	in := profitableInput()
	in.Spread = 0.001
	shocked := applyShock(in, types.ShockSpread, 1.0)
	assert.InDelta(t, 0.003, shocked.Spread, 1e-9)
}

func TestExpectedReturn_NoHopsIsZero(t *testing.T) {
	assert.Zero(t, expectedReturn(Input{}))
}

func TestExpectedReturn_VolatilityHaircutReducesReturn(t *testing.T) {
	low := profitableInput()
	high := profitableInput()
	for i := range high.Hops {
		high.Hops[i].Volatility = 0.5
	}
	assert.Less(t, expectedReturn(high), expectedReturn(low))
}

func TestExpectedReturn_LiquidityShockRaisesImpactAndCutsReturn(t *testing.T) {
	in := profitableInput()
	baseline := expectedReturn(in)
	shocked := applyShock(in, types.ShockLiquidity, 1.0)
	assert.Less(t, expectedReturn(shocked), baseline)
}

func TestExpectedReturn_SpreadShockCutsReturn(t *testing.T) {
	in := profitableInput()
	baseline := expectedReturn(in)
	shocked := applyShock(in, types.ShockSpread, 1.0)
	assert.Less(t, expectedReturn(shocked), baseline)
}

func TestExpectedReturn_ZeroVolumeMakesLiquidityShockANoOp(t *testing.T) {
	in := profitableInput()
	for i := range in.Hops {
		in.Hops[i].Volume = 0
	}
	shocked := applyShock(in, types.ShockLiquidity, 1.0)
	assert.InDelta(t, expectedReturn(in), expectedReturn(shocked), 1e-12)
}

func TestRunCombined_AppliesAllThreeShocks(t *testing.T) {
	in := profitableInput()
	result := runCombined(in)
	assert.Equal(t, types.ShockCombined, result.Scenario)
	for _, s := range []types.ShockType{types.ShockPrice, types.ShockLiquidity, types.ShockFee} {
		assert.Less(t, result.ExpectedReturn, runScenario(in, s).ExpectedReturn)
	}
}

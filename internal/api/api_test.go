package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Devadharshan16/OmniQuant/internal/config"
	"github.com/Devadharshan16/OmniQuant/internal/feed"
	"github.com/Devadharshan16/OmniQuant/internal/pipeline"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

func newTestServer() *Server {
	engine := pipeline.NewEngineContext(config.Default(), zap.NewNop())
	return NewServer(engine, feed.DefaultSimulated(1))
}

func profitableMarketData() []types.RawEdge {
	mk := func(from, to string) types.RawEdge {
		return types.RawEdge{FromToken: from, ToToken: to, Rate: 1.05, Fee: 0.001, Liquidity: 1_000_000, Venue: "v"}
	}
	return []types.RawEdge{mk("A", "B"), mk("B", "C"), mk("C", "A")}
}

func TestHandle_UnknownOperationReportsFailureInEnvelope(t *testing.T) {
	s := newTestServer()
	env := s.Handle(context.Background(), "not_a_real_op", nil)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "unknown operation")
	assert.Nil(t, env.Data)
}

func TestHandle_ScanWithEmptyMarketDataFails(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{"market_data": []types.RawEdge{}, "capital": 1000})
	env := s.Handle(context.Background(), "scan", body)
	assert.False(t, env.Success)
}

func TestHandle_ScanWithNoCyclesReturnsSuccessAndEmptyOpportunities(t *testing.T) {
	s := newTestServer()
	flat := []types.RawEdge{
		{FromToken: "A", ToToken: "B", Rate: 1.0, Fee: 0.001, Liquidity: 1_000_000, Venue: "v"},
		{FromToken: "B", ToToken: "A", Rate: 1.0, Fee: 0.001, Liquidity: 1_000_000, Venue: "v"},
	}
	body, _ := json.Marshal(map[string]interface{}{"market_data": flat, "capital": 10000, "run_monte_carlo": false})
	env := s.Handle(context.Background(), "scan", body)
	require.True(t, env.Success)

	resp, ok := env.Data.(scanResponseBody)
	require.True(t, ok)
	assert.Empty(t, resp.Opportunities)
	assert.Equal(t, int64(1), resp.ScanMetrics.TotalScans)
}

func TestHandle_ScanFindsCycleAndCachesOpportunities(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{
		"market_data":     profitableMarketData(),
		"capital":         10000,
		"run_monte_carlo": false,
	})
	env := s.Handle(context.Background(), "scan", body)
	require.True(t, env.Success)

	resp, ok := env.Data.(scanResponseBody)
	require.True(t, ok)
	assert.NotEmpty(t, resp.Opportunities)
	assert.NotEmpty(t, s.cache.byID)
}

func TestHandle_QuickScanUsesSimulatedFeedWhenNoBody(t *testing.T) {
	s := newTestServer()
	env := s.Handle(context.Background(), "quick_scan", nil)
	// no negative cycle in the simulated feed's synthetic edges for a
	// given seed is a normal, successful scan with an empty
	// opportunities list, not a failure.
	require.True(t, env.Success)
	_, ok := env.Data.(scanResponseBody)
	assert.True(t, ok)
}

func TestHandle_QuickScanRejectsLiveDataRequest(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{"use_real_data": true})
	env := s.Handle(context.Background(), "quick_scan", body)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "live source")
}

func TestHandle_MetricsReflectsPriorScans(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{"market_data": profitableMarketData(), "capital": 10000, "run_monte_carlo": false})
	s.Handle(context.Background(), "scan", body)

	env := s.Handle(context.Background(), "metrics", nil)
	require.True(t, env.Success)
}

func TestHandle_AllocateWithUnknownOpportunityIDsFails(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{"capital": 1000, "opportunity_ids": []string{"nonexistent"}})
	env := s.Handle(context.Background(), "allocate", body)
	assert.False(t, env.Success)
}

func TestHandle_AllocateSucceedsAfterScan(t *testing.T) {
	s := newTestServer()
	scanBody, _ := json.Marshal(map[string]interface{}{"market_data": profitableMarketData(), "capital": 10000, "run_monte_carlo": false})
	scanEnv := s.Handle(context.Background(), "scan", scanBody)
	require.True(t, scanEnv.Success)
	resp := scanEnv.Data.(scanResponseBody)
	require.NotEmpty(t, resp.Opportunities)

	var ids []string
	for _, o := range resp.Opportunities {
		ids = append(ids, o.OpportunityID)
	}
	allocBody, _ := json.Marshal(map[string]interface{}{"capital": 10000, "opportunity_ids": ids})
	allocEnv := s.Handle(context.Background(), "allocate", allocBody)
	assert.True(t, allocEnv.Success)
}

func TestHandle_StressTestWithoutPriorRunStressFails(t *testing.T) {
	s := newTestServer()
	scanBody, _ := json.Marshal(map[string]interface{}{"market_data": profitableMarketData(), "capital": 10000, "run_monte_carlo": false, "run_stress": false})
	scanEnv := s.Handle(context.Background(), "scan", scanBody)
	require.True(t, scanEnv.Success)
	resp := scanEnv.Data.(scanResponseBody)
	require.NotEmpty(t, resp.Opportunities)

	body, _ := json.Marshal(map[string]interface{}{"opportunity_id": resp.Opportunities[0].OpportunityID})
	env := s.Handle(context.Background(), "stress_test", body)
	assert.False(t, env.Success)
}

func TestHandle_StressTestSucceedsWhenRunAtScanTime(t *testing.T) {
	s := newTestServer()
	scanBody, _ := json.Marshal(map[string]interface{}{"market_data": profitableMarketData(), "capital": 10000, "run_monte_carlo": false, "run_stress": true})
	scanEnv := s.Handle(context.Background(), "scan", scanBody)
	require.True(t, scanEnv.Success)
	resp := scanEnv.Data.(scanResponseBody)
	require.NotEmpty(t, resp.Opportunities)

	body, _ := json.Marshal(map[string]interface{}{"opportunity_id": resp.Opportunities[0].OpportunityID})
	env := s.Handle(context.Background(), "stress_test", body)
	assert.True(t, env.Success)
}

func TestHandle_MarketImpactRejectsNonPositiveInputs(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{"volume": 100, "liquidity": 0, "base_price": 1})
	env := s.Handle(context.Background(), "market_impact", body)
	assert.False(t, env.Success)
}

func TestHandle_MarketImpactAppliesDefaultConfigWhenZero(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{"volume": 1000, "liquidity": 100000, "base_price": 1.0})
	env := s.Handle(context.Background(), "market_impact", body)
	require.True(t, env.Success)
	resp := env.Data.(marketImpactResponseBody)
	assert.Len(t, resp.ComparisonData, 20)
	assert.Greater(t, resp.ImpactedPrice, 1.0)
}

func TestHandle_LatencySensitivityRejectsNonPositivePathLength(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{"path_length": 0})
	env := s.Handle(context.Background(), "latency_sensitivity", body)
	assert.False(t, env.Success)
}

func TestHandle_LatencySensitivityProducesFullDecayCurve(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{
		"base_return":     0.02,
		"path_length":     3,
		"liquidity":       100000,
		"initial_capital": 1000,
	})
	env := s.Handle(context.Background(), "latency_sensitivity", body)
	require.True(t, env.Success)
	resp := env.Data.(latencySensitivityResponseBody)
	assert.Len(t, resp.DecayCurve, 11)
	assert.Contains(t, resp.KeyMetrics, "zero_latency")
	assert.Contains(t, resp.KeyMetrics, "latency_50ms")
	assert.Contains(t, resp.KeyMetrics, "baseline_100ms")
	assert.Contains(t, resp.KeyMetrics, "latency_200ms")
}

func TestHandle_LatencySensitivityDecaysReturnLinearly(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]interface{}{
		"base_return":     0.01,
		"path_length":     1,
		"liquidity":       1_000_000_000,
		"initial_capital": 1,
	})
	env := s.Handle(context.Background(), "latency_sensitivity", body)
	require.True(t, env.Success)
	resp := env.Data.(latencySensitivityResponseBody)

	assert.InDelta(t, 100.0, resp.HalfLifeMs, 1e-9)
	assert.InDelta(t, 0.5, resp.KeyMetrics["latency_50ms"].ReturnPct, 0.05)
	assert.InDelta(t, 0.0, resp.KeyMetrics["baseline_100ms"].ReturnPct, 0.05)
	assert.Less(t, resp.KeyMetrics["latency_200ms"].ReturnPct, 0.0)
}

package cycles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Devadharshan16/OmniQuant/internal/graph"
)

func profitableGraph() *graph.Graph {
	g := graph.New()
	g.AddEdge("A", "B", 1.05, 0.001, 100000, "v1")
	g.AddEdge("B", "C", 1.05, 0.001, 100000, "v2")
	g.AddEdge("C", "A", 1.05, 0.001, 100000, "v3")
	return g
}

func balancedGraph() *graph.Graph {
	g := graph.New()
	g.AddEdge("A", "B", 1.0, 0.001, 100000, "v1")
	g.AddEdge("B", "A", 1.0, 0.001, 100000, "v2")
	return g
}

func TestDetect_EmptyGraphReturnsEmptyResult(t *testing.T) {
	result := Detect(graph.New(), 10, zap.NewNop())
	assert.Empty(t, result.Cycles)
}

func TestDetect_NoNegativeCycleReturnsEmptyResult(t *testing.T) {
	result := Detect(balancedGraph(), 10, zap.NewNop())
	assert.Empty(t, result.Cycles)
}

func TestDetect_FindsProfitableCycle(t *testing.T) {
	result := Detect(profitableGraph(), 10, zap.NewNop())
	require.NotEmpty(t, result.Cycles)
	cyc := result.Cycles[0]
	assert.Less(t, cyc.LogProfit, 0.0)
	assert.Greater(t, cyc.RawProfit, 0.0)
	assert.NotEmpty(t, cyc.Fingerprint)
	assert.Len(t, cyc.FingerprintHash, 16)
}

func TestDetect_DeduplicatesAcrossSources(t *testing.T) {
	result := Detect(profitableGraph(), 10, zap.NewNop())
	seen := make(map[string]bool)
	for _, c := range result.Cycles {
		assert.False(t, seen[c.Fingerprint], "duplicate fingerprint %s", c.Fingerprint)
		seen[c.Fingerprint] = true
	}
}

func TestDetect_RespectsMaxCycles(t *testing.T) {
	result := Detect(profitableGraph(), 0, zap.NewNop())
	assert.Empty(t, result.Cycles)
}

func TestDetect_SetsPerCycleDetectionTime(t *testing.T) {
	result := Detect(profitableGraph(), 10, zap.NewNop())
	require.NotEmpty(t, result.Cycles)
	for _, c := range result.Cycles {
		assert.GreaterOrEqual(t, c.DetectionTimeMs, 0.0)
	}
}

func TestFingerprint_OrderInsensitiveAcrossRotation(t *testing.T) {
	a := fingerprint([]string{"A", "B", "C", "A"})
	b := fingerprint([]string{"B", "C", "A", "B"})
	assert.Equal(t, a, b)
}

func TestFingerprint_EmptyPathIsEmptyString(t *testing.T) {
	assert.Equal(t, "", fingerprint(nil))
}

func TestFingerprintHash_IsDeterministic(t *testing.T) {
	fp := fingerprint([]string{"A", "B", "A"})
	assert.Equal(t, fingerprintHash(fp), fingerprintHash(fp))
}

package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_IsDeterministicForFixedSeed(t *testing.T) {
	s1 := DefaultSimulated(42)
	s2 := DefaultSimulated(42)

	edges1, err := s1.Load(context.Background())
	require.NoError(t, err)
	edges2, err := s2.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, edges1, edges2)
}

func TestLoad_DifferentSeedsProduceDifferentGraphs(t *testing.T) {
	s1 := DefaultSimulated(1)
	s2 := DefaultSimulated(2)

	edges1, err := s1.Load(context.Background())
	require.NoError(t, err)
	edges2, err := s2.Load(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, edges1, edges2)
}

func TestLoad_AppliesDefaultsOnZeroFields(t *testing.T) {
	s := &Simulated{Seed: 1}
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, s.TokenCount)
	assert.Equal(t, 0.4, s.EdgeDensity)
}

func TestLoad_ProducesNoSelfLoops(t *testing.T) {
	s := DefaultSimulated(7)
	edges, err := s.Load(context.Background())
	require.NoError(t, err)
	for _, e := range edges {
		assert.NotEqual(t, e.FromToken, e.ToToken)
	}
}

func TestLoad_EveryEdgeHasPositiveRateAndLiquidity(t *testing.T) {
	s := DefaultSimulated(3)
	edges, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, edges)
	for _, e := range edges {
		assert.Greater(t, e.Rate, 0.0)
		assert.Greater(t, e.Liquidity, 0.0)
	}
}

func TestSyntheticSymbol_SingleLetterBelowAlphabetSize(t *testing.T) {
	assert.Equal(t, "A", syntheticSymbol(0))
	assert.Equal(t, "Z", syntheticSymbol(25))
}

func TestSyntheticSymbol_WrapsWithSuffixBeyondAlphabetSize(t *testing.T) {
	assert.Equal(t, "A1", syntheticSymbol(26))
}

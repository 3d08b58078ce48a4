package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devadharshan16/OmniQuant/internal/allocator"
	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/stress"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

// runRoot executes rootCmd with args and returns its combined stdout
// buffer and any error, without the os.Exit side effect Execute() has.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeJSON(t *testing.T, v interface{}) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.json")
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestExitCodeFor_MapsKindsToCodes(t *testing.T) {
	assert.Equal(t, 2, exitCodeFor(apperr.New(apperr.InvalidInput, "x")))
	assert.Equal(t, 3, exitCodeFor(apperr.New(apperr.NoCyclesFound, "x")))
	assert.Equal(t, 3, exitCodeFor(apperr.New(apperr.Cancelled, "x")))
	assert.Equal(t, 4, exitCodeFor(apperr.New(apperr.Internal, "x")))
}

func TestAllocateCmd_RequiresInputFlag(t *testing.T) {
	_, err := runRoot(t, "allocate")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestAllocateCmd_RunsAllocationOverFileOfCandidates(t *testing.T) {
	candidates := []allocator.Candidate{
		{OpportunityID: "a", MeanReturn: 0.02, Sharpe: 1.5, Risk: 30, Confidence: 80},
		{OpportunityID: "b", MeanReturn: 0.01, Sharpe: 0.5, Risk: 60, Confidence: 40},
	}
	path := writeJSON(t, candidates)

	out, err := runRoot(t, "allocate", "--input", path, "--capital", "5000", "--mode", "greedy")
	require.NoError(t, err)
	assert.Contains(t, out, "opportunity_id")
}

func TestStressCmd_RequiresInputFlag(t *testing.T) {
	_, err := runRoot(t, "stress")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestStressCmd_RunsShockBatteryOverFileOfHops(t *testing.T) {
	hops := []stress.Hop{
		{Rate: 1.05, Fee: 0.001, Liquidity: 100000, Volatility: 0.001},
		{Rate: 1.02, Fee: 0.001, Liquidity: 100000, Volatility: 0.001},
	}
	path := writeJSON(t, hops)

	out, err := runRoot(t, "stress", "--input", path)
	require.NoError(t, err)
	assert.Contains(t, out, "combined")
}

func TestMarketImpactCmd_PrintsEnvelope(t *testing.T) {
	out, err := runRoot(t, "market-impact", "--volume", "1000", "--liquidity", "100000", "--base-price", "1.0")
	require.NoError(t, err)
	assert.Contains(t, out, "impact_pct")
}

func TestLatencyCmd_PrintsEnvelope(t *testing.T) {
	out, err := runRoot(t, "latency", "--base-return", "0.02", "--path-length", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "decay_curve")
}

func TestScanCmd_RequiresInputUnlessQuick(t *testing.T) {
	_, err := runRoot(t, "scan")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestScanCmd_RunsAgainstInputFile(t *testing.T) {
	edges := []types.RawEdge{
		{FromToken: "A", ToToken: "B", Rate: 1.05, Fee: 0.001, Liquidity: 1_000_000, Venue: "v"},
		{FromToken: "B", ToToken: "C", Rate: 1.05, Fee: 0.001, Liquidity: 1_000_000, Venue: "v"},
		{FromToken: "C", ToToken: "A", Rate: 1.05, Fee: 0.001, Liquidity: 1_000_000, Venue: "v"},
	}
	path := writeJSON(t, edges)

	out, err := runRoot(t, "scan", "--input", path, "--no-monte-carlo", "--capital", "10000")
	require.NoError(t, err)
	assert.Contains(t, out, "opportunities")
}

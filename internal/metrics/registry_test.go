package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_RegistersEveryCollectorExactlyOnce(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.Reg)

	families, err := r.Reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"omniquant_scans_total",
		"omniquant_cycles_found_total",
		"omniquant_detection_duration_ms",
		"omniquant_scan_duration_ms",
		"omniquant_opportunities_tracked",
		"omniquant_portfolio_sharpe",
		"omniquant_allocation_errors_total",
	} {
		assert.True(t, names[want], "missing collector %s", want)
	}
}

func TestNewRegistry_IndependentInstancesDoNotShareState(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.ScansTotal.Inc()
	a.ScansTotal.Inc()
	b.ScansTotal.Inc()

	famA, err := a.Reg.Gather()
	require.NoError(t, err)
	famB, err := b.Reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, findCounterValue(famA, "omniquant_scans_total"))
	assert.Equal(t, 1.0, findCounterValue(famB, "omniquant_scans_total"))
}

func findCounterValue(families []*dto.MetricFamily, name string) float64 {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			return m.GetCounter().GetValue()
		}
	}
	return -1
}

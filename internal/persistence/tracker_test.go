package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devadharshan16/OmniQuant/internal/types"
)

type recordedObservation struct {
	fingerprint string
	ret         float64
}

type fakeMirror struct {
	observed []recordedObservation
}

func (m *fakeMirror) Observe(fingerprint string, ret float64, now time.Time) {
	m.observed = append(m.observed, recordedObservation{fingerprint, ret})
}

func TestRecordObservation_CreatesRecordOnFirstSeen(t *testing.T) {
	tr := New(0, nil)
	now := time.Now()
	tr.RecordObservation("fp1", 0.02, now)

	summary, ok := tr.Summary("fp1")
	require.True(t, ok)
	assert.Equal(t, 1, summary.DetectionCount)
	assert.Equal(t, 0.02, summary.PeakReturn)
	assert.Equal(t, now, summary.FirstSeenTs)
}

func TestRecordObservation_TracksPeakReturn(t *testing.T) {
	tr := New(0, nil)
	now := time.Now()
	tr.RecordObservation("fp1", 0.01, now)
	tr.RecordObservation("fp1", 0.05, now.Add(time.Second))
	tr.RecordObservation("fp1", 0.02, now.Add(2*time.Second))

	summary, ok := tr.Summary("fp1")
	require.True(t, ok)
	assert.Equal(t, 0.05, summary.PeakReturn)
	assert.Equal(t, 3, summary.DetectionCount)
}

func TestRecordObservation_NotifiesMirror(t *testing.T) {
	mirror := &fakeMirror{}
	tr := New(0, mirror)
	now := time.Now()
	tr.RecordObservation("fp1", 0.03, now)

	require.Len(t, mirror.observed, 1)
	assert.Equal(t, "fp1", mirror.observed[0].fingerprint)
	assert.Equal(t, 0.03, mirror.observed[0].ret)
}

func TestSummary_UnknownFingerprintReturnsFalse(t *testing.T) {
	tr := New(0, nil)
	_, ok := tr.Summary("missing")
	assert.False(t, ok)
}

func TestPrune_EvictsExpiredRecords(t *testing.T) {
	tr := New(time.Minute, nil)
	now := time.Now()
	tr.RecordObservation("stale", 0.01, now)
	tr.RecordObservation("fresh", 0.01, now.Add(90*time.Second))

	evicted := tr.Prune(now.Add(2 * time.Minute))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, tr.Count())

	_, ok := tr.Summary("stale")
	assert.False(t, ok)
	_, ok = tr.Summary("fresh")
	assert.True(t, ok) // last_seen + ttl = 90s+60s = 150s, still after the 120s prune time
}

func TestCount_ReflectsTrackedFingerprints(t *testing.T) {
	tr := New(0, nil)
	now := time.Now()
	tr.RecordObservation("a", 0.01, now)
	tr.RecordObservation("b", 0.01, now)
	assert.Equal(t, 2, tr.Count())
}

func TestClassifyDecay_InsufficientDataUnderThreeSamples(t *testing.T) {
	assert.Equal(t, types.DecayInsufficient, classifyDecay([]float64{0.01}))
	assert.Equal(t, types.DecayInsufficient, classifyDecay([]float64{0.01, 0.02}))
}

func TestClassifyDecay_MonotonicDown(t *testing.T) {
	assert.Equal(t, types.DecayMonotonic, classifyDecay([]float64{0.05, 0.03, 0.01}))
}

func TestClassifyDecay_Improving(t *testing.T) {
	assert.Equal(t, types.DecayImproving, classifyDecay([]float64{0.01, 0.03, 0.05}))
}

func TestClassifyDecay_Oscillating(t *testing.T) {
	assert.Equal(t, types.DecayOscillating, classifyDecay([]float64{0.01, -0.01, 0.01, -0.01}))
}

func TestStabilityComponent_NeutralWithFewerThanTwoSamples(t *testing.T) {
	assert.Equal(t, stabilityWeightMax/2, stabilityComponent(nil))
	assert.Equal(t, stabilityWeightMax/2, stabilityComponent([]float64{0.01}))
}

func TestStabilityComponent_HighForLowVariance(t *testing.T) {
	stable := stabilityComponent([]float64{0.02, 0.021, 0.019, 0.02})
	volatile := stabilityComponent([]float64{0.05, -0.03, 0.08, -0.06})
	assert.Greater(t, stable, volatile)
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1, sign(0.5))
	assert.Equal(t, -1, sign(-0.5))
	assert.Equal(t, 0, sign(0))
}

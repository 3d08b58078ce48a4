// Package persistence implements the opportunity-identity tracker:
// fingerprint -> OpportunityRecord lifecycle, TTL eviction,
// persistence scoring, and decay classification. Grounded on
// original_source/analytics/persistence_tracker.py. The arb-bot
// reference code's package-global trackers (its internal/screener) are
// replaced with an explicit, engine-context-owned Tracker instance
// held by pipeline.EngineContext.
package persistence

import (
	"math"
	"sync"
	"time"

	"github.com/Devadharshan16/OmniQuant/internal/types"
)

const (
	DefaultTTL = 30 * time.Minute

	freqWeightMax     = 40.0
	durationWeightMax = 40.0
	stabilityWeightMax = 20.0

	// freqSaturation is the detection_count at which the frequency
	// component reaches its maximum weight.
	freqSaturation = 20.0
	// durationSaturationMs is the observed lifespan at which the
	// duration component reaches its maximum weight.
	durationSaturationMs = float64(10 * time.Minute / time.Millisecond)
)

// Mirror is an optional sink that observes every record_observation
// call, used to fan persistence events out to an external store
//. Nil by
// default: persistence tracking never depends on external state.
type Mirror interface {
	Observe(fingerprint string, ret float64, now time.Time)
}

// Tracker holds the process-wide fingerprint -> OpportunityRecord map.
// It is safe for a single writer (RecordObservation, Prune) and
// concurrent readers (Summary, Count) via an RWMutex, in place
// of the source's ambient global dict.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*types.OpportunityRecord
	ttl     time.Duration
	mirror  Mirror
}

// New constructs a Tracker with the given eviction TTL (defaults to
// 30 minutes when zero) and an optional Mirror.
func New(ttl time.Duration, mirror Mirror) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		records: make(map[string]*types.OpportunityRecord),
		ttl:     ttl,
		mirror:  mirror,
	}
}

// RecordObservation updates last_seen_ts, increments detection_count,
// updates the peak if ret exceeds it, and appends ret to the rolling
// ring. It creates a new record on first observation of a
// fingerprint.
func (t *Tracker) RecordObservation(fingerprint string, ret float64, now time.Time) {
	t.mu.Lock()
	rec, ok := t.records[fingerprint]
	if !ok {
		rec = &types.OpportunityRecord{
			Fingerprint: fingerprint,
			FirstSeenTs: now,
			PeakReturn:  ret,
			PeakTs:      now,
		}
		t.records[fingerprint] = rec
	}
	rec.LastSeenTs = now
	rec.DetectionCount++
	if ret > rec.PeakReturn {
		rec.PeakReturn = ret
		rec.PeakTs = now
	}
	rec.AppendReturn(ret)
	t.mu.Unlock()

	if t.mirror != nil {
		t.mirror.Observe(fingerprint, ret, now)
	}
}

// Prune evicts every record whose last_seen_ts + ttl < now
// and returns the number evicted.
func (t *Tracker) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for fp, rec := range t.records {
		if rec.LastSeenTs.Add(t.ttl).Before(now) {
			delete(t.records, fp)
			evicted++
		}
	}
	return evicted
}

// Summary returns the wire-level PersistenceSummary for a fingerprint,
// or (zero, false) if it has never been observed.
func (t *Tracker) Summary(fingerprint string) (types.PersistenceSummary, bool) {
	t.mu.RLock()
	rec, ok := t.records[fingerprint]
	t.mu.RUnlock()
	if !ok {
		return types.PersistenceSummary{}, false
	}
	return summarize(rec), true
}

// Count returns the number of tracked (non-evicted) fingerprints.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// summarize computes the persistence score and decay classification
// for one record.
func summarize(rec *types.OpportunityRecord) types.PersistenceSummary {
	returns := rec.Returns()

	freqScore := clamp(freqWeightMax*float64(rec.DetectionCount)/freqSaturation, 0, freqWeightMax)

	durationMs := float64(rec.LastSeenTs.Sub(rec.FirstSeenTs) / time.Millisecond)
	durationScore := clamp(durationWeightMax*durationMs/durationSaturationMs, 0, durationWeightMax)

	stabilityScore := stabilityComponent(returns)

	score := freqScore + durationScore + stabilityScore

	return types.PersistenceSummary{
		FirstSeenTs:    rec.FirstSeenTs,
		LastSeenTs:     rec.LastSeenTs,
		DetectionCount: rec.DetectionCount,
		PeakReturn:     rec.PeakReturn,
		Score:          score,
		Decay:          classifyDecay(returns),
	}
}

// stabilityComponent is 100 - stdev(returns)/|mean(returns)|*100,
// scaled by 20/100 and clamped to [0, 20]. A zero or undefined mean, or fewer
// than two samples, yields the neutral midpoint since stability cannot
// be assessed.
func stabilityComponent(returns []float64) float64 {
	if len(returns) < 2 {
		return stabilityWeightMax / 2
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	if mean == 0 {
		return stabilityWeightMax / 2
	}

	var sqDiff float64
	for _, r := range returns {
		d := r - mean
		sqDiff += d * d
	}
	stdev := math.Sqrt(sqDiff / float64(len(returns)-1))

	raw := 100 - (stdev/math.Abs(mean))*100
	return clamp(raw*stabilityWeightMax/100, 0, stabilityWeightMax)
}

// classifyDecay classifies the rolling return sequence's sign pattern
// and monotonicity.
func classifyDecay(returns []float64) types.DecayPattern {
	if len(returns) < 3 {
		return types.DecayInsufficient
	}

	monotoneDown := true
	monotoneUp := true
	signChanges := 0
	prevSign := sign(returns[0])
	for i := 1; i < len(returns); i++ {
		if returns[i] > returns[i-1] {
			monotoneDown = false
		}
		if returns[i] < returns[i-1] {
			monotoneUp = false
		}
		s := sign(returns[i])
		if s != 0 && prevSign != 0 && s != prevSign {
			signChanges++
		}
		if s != 0 {
			prevSign = s
		}
	}

	switch {
	case monotoneDown:
		return types.DecayMonotonic
	case monotoneUp:
		return types.DecayImproving
	case signChanges >= len(returns)/2:
		return types.DecayOscillating
	default:
		return types.DecayStable
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
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

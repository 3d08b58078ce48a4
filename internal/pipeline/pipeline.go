// Package pipeline wires the graph, cycle-detection, simulation, risk,
// persistence, and regime collaborators into the single scan
// operation, in the same construct-once, fan-out-per-item,
// join-then-aggregate shape as the arb-bot reference code's
// internal/bot.Bot.Run orchestration —
// generalized here from a streaming detector loop into a synchronous
// request/response scan.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Devadharshan16/OmniQuant/internal/allocator"
	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/config"
	"github.com/Devadharshan16/OmniQuant/internal/cycles"
	"github.com/Devadharshan16/OmniQuant/internal/graph"
	"github.com/Devadharshan16/OmniQuant/internal/impact"
	"github.com/Devadharshan16/OmniQuant/internal/metrics"
	"github.com/Devadharshan16/OmniQuant/internal/persistence"
	"github.com/Devadharshan16/OmniQuant/internal/pruner"
	"github.com/Devadharshan16/OmniQuant/internal/regime"
	"github.com/Devadharshan16/OmniQuant/internal/risk"
	"github.com/Devadharshan16/OmniQuant/internal/simulate"
	"github.com/Devadharshan16/OmniQuant/internal/stress"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

// EngineContext holds every long-lived, process-wide collaborator a
// scan needs: the persistence tracker, regime trackers (keyed per
// pair), and the metrics registry. It stands in for ambient
// package-level singletons — a scan takes an *EngineContext explicitly
// rather than reaching for global state.
type EngineContext struct {
	Config      *config.Config
	Log         *zap.Logger
	Metrics     *metrics.Registry
	Persistence *persistence.Tracker
	Regimes     *regimeRegistry

	totalScans       int64
	totalCyclesFound int64
	sumDetectionMs   float64
	sumLifespanMs    float64
	scanMu           sync.Mutex
}

// NewEngineContext constructs an EngineContext from cfg, ready to
// accept Scan calls. Lifecycle is init-on-start / teardown-on-shutdown
// per the caller (there is no background goroutine started here).
func NewEngineContext(cfg *config.Config, log *zap.Logger) *EngineContext {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EngineContext{
		Config:      cfg,
		Log:         log,
		Metrics:     metrics.NewRegistry(),
		Persistence: persistence.New(cfg.Persistence.TTL, nil),
		Regimes:     newRegimeRegistry(cfg.Regime.Window),
	}
}

// regimeRegistry lazily creates a per-pair regime.Tracker on first use.
type regimeRegistry struct {
	mu      sync.Mutex
	window  int
	tracker map[string]*regime.Tracker
}

func newRegimeRegistry(window int) *regimeRegistry {
	return &regimeRegistry{window: window, tracker: make(map[string]*regime.Tracker)}
}

func (r *regimeRegistry) get(pair string) *regime.Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracker[pair]
	if !ok {
		t = regime.New(r.window)
		r.tracker[pair] = t
	}
	return t
}

// Options configures a single scan.
type Options struct {
	MaxCycles     int
	RunMonteCarlo bool
	MCSamples     int
	RunStress     bool
	Seed          int64
	AllocatorMode types.AllocatorMode
	Conservative  bool
}

func (o *Options) normalize(cfg *config.Config) {
	if o.MaxCycles <= 0 {
		o.MaxCycles = cfg.Scan.MaxCycles
	}
	if o.MCSamples <= 0 {
		o.MCSamples = cfg.Simulation.Samples
	}
	if o.AllocatorMode == "" {
		o.AllocatorMode = types.AllocatorGreedy
	}
}

// Request is a full scan invocation.
type Request struct {
	Edges   []types.RawEdge
	Capital float64
	Options Options
}

// Result is the scan's response envelope contents.
type Result struct {
	Opportunities []types.Opportunity
	Allocation    types.AllocationPlan
	ScanMetrics   types.ScanMetrics
}

// Scan runs one full scan operation: prune -> detect -> per-cycle
// fan-out (simulate, score risk, stress test, record) -> allocate ->
// aggregate metrics. It respects ctx cancellation at the documented
// poll points; on cancellation it returns an apperr.Cancelled error
// and publishes no partial results. A graph with no negative cycle is
// not an error: Scan returns a Result with an empty Opportunities
// slice and still runs allocation (over zero candidates) and metric
// aggregation.
func (ec *EngineContext) Scan(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req.Options.normalize(ec.Config)

	g := graph.New()
	for _, e := range req.Edges {
		g.AddEdgeFull(e.FromToken, e.ToToken, e.Rate, e.Fee, e.Liquidity, e.Venue, e.Volatility, e.Spread, e.MidPrice)
	}

	pruned := pruner.Prune(g, pruner.Config{
		MinLiquidity:       ec.Config.Pruner.MinLiquidity,
		EnableMinLiquidity: ec.Config.Pruner.EnableMinLiquidity,
		MaxFee:             ec.Config.Pruner.MaxFee,
		EnableMaxFee:       ec.Config.Pruner.EnableMaxFee,
		MinRate:            ec.Config.Pruner.MinRate,
		EnableMinRate:      ec.Config.Pruner.EnableMinRate,
		MaxRate:            ec.Config.Pruner.MaxRate,
		EnableMaxRate:      ec.Config.Pruner.EnableMaxRate,
	})

	detection := cycles.Detect(pruned.Graph, req.Options.MaxCycles, ec.Log)

	select {
	case <-ctx.Done():
		return nil, apperr.New(apperr.Cancelled, "scan cancelled before evaluation")
	default:
	}

	opportunities := make([]types.Opportunity, len(detection.Cycles))
	errs := make([]error, len(detection.Cycles))

	var wg sync.WaitGroup
	for i, cyc := range detection.Cycles {
		wg.Add(1)
		go func(i int, cyc types.Cycle) {
			defer wg.Done()
			opp, err := ec.evaluateCycle(ctx, pruned.Graph, cyc, req)
			opportunities[i] = opp
			errs[i] = err
		}(i, cyc)
	}
	wg.Wait()

	for _, err := range errs {
		if apperr.KindOf(err) == apperr.Cancelled {
			return nil, apperr.New(apperr.Cancelled, "scan cancelled during evaluation")
		}
	}

	// opportunities is already index-aligned with detection.Cycles (each
	// goroutine wrote back into its own slot), which is itself in
	// canonical source/detection order — no re-sort needed.

	candidates := make([]allocator.Candidate, 0, len(opportunities))
	for _, opp := range opportunities {
		minHopLiquidity := minLiquidity(pruned.Graph, opp.Cycle)
		sharpe, meanReturn := 0.0, opp.Cycle.RawProfit
		if opp.Simulation != nil {
			sharpe = opp.Simulation.Sharpe
			meanReturn = opp.Simulation.Mean
		}
		candidates = append(candidates, allocator.Candidate{
			OpportunityID:   opp.OpportunityID,
			MeanReturn:      meanReturn,
			Sharpe:          sharpe,
			Risk:            opp.Risk.Composite,
			Confidence:      opp.Risk.Confidence,
			MinHopLiquidity: minHopLiquidity,
		})
	}

	plan := allocator.Allocate(req.Options.AllocatorMode, candidates, allocator.Config{
		Capital:       req.Capital,
		MaxPosition:   ec.Config.Allocator.MaxPosition,
		MinConfidence: ec.Config.Allocator.MinConfidence,
		Criterion:     allocator.Criterion(ec.Config.Allocator.Criterion),
	})

	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	scanMetrics := ec.finalizeMetrics(detection, opportunities, plan, elapsed)

	return &Result{Opportunities: opportunities, Allocation: plan, ScanMetrics: scanMetrics}, nil
}

// evaluateCycle runs simulation, risk scoring, and stress testing for
// a single cycle and records the observation in the persistence
// tracker.
func (ec *EngineContext) evaluateCycle(ctx context.Context, g *graph.Graph, cyc types.Cycle, req Request) (types.Opportunity, error) {
	hops := make([]simulate.HopParams, len(cyc.EdgeIndices))
	stressHops := make([]stress.Hop, len(cyc.EdgeIndices))
	var sigmaSum, spreadSum, midSum, minLiq float64
	minLiq = -1
	var leadPair string
	for i, ei := range cyc.EdgeIndices {
		e := g.Edge(ei)
		volume := req.Capital
		hops[i] = simulate.HopParams{
			Rate:       e.Rate,
			Fee:        e.Fee,
			Liquidity:  e.Liquidity,
			Volatility: e.Volatility,
			Volume:     volume,
		}
		stressHops[i] = stress.Hop{Rate: e.Rate, Fee: e.Fee, Liquidity: e.Liquidity, Volatility: e.Volatility, Volume: volume}
		sigmaSum += e.Volatility
		spreadSum += e.Spread
		midSum += e.MidPrice
		if minLiq < 0 || e.Liquidity < minLiq {
			minLiq = e.Liquidity
		}

		pair := g.Symbol(e.From) + "-" + g.Symbol(e.To)
		if i == 0 {
			leadPair = pair
		}
		ec.Regimes.get(pair).Observe(regime.Observation{Price: e.MidPrice, Volume: e.Liquidity})
	}
	n := float64(len(cyc.EdgeIndices))
	meanSigma := sigmaSum / n
	meanSpread := spreadSum / n
	meanMid := midSum / n

	impactCfg := impact.Config{K: ec.Config.Simulation.ImpactK, Alpha: ec.Config.Simulation.ImpactAlpha}

	var simResult *types.SimulationResult
	if req.Options.RunMonteCarlo {
		res, err := simulate.Run(ctx, simulate.Params{
			Hops:           hops,
			Samples:        req.Options.MCSamples,
			Seed:           req.Options.Seed,
			FingerprintID:  cyc.FingerprintHash,
			LatencyMaxMs:   ec.Config.Simulation.LatencyMaxMs,
			LiquidityDelta: ec.Config.Simulation.LiquidityDelta,
			HalfLifeMs:     ec.Config.Simulation.HalfLifeMs,
			ImpactConfig:   impactCfg,
		})
		if err != nil {
			return types.Opportunity{}, err
		}
		simResult = res
	}

	halfLifeMs, halfLifeUnbounded := 0.0, false
	if simResult != nil {
		halfLifeMs, halfLifeUnbounded = simResult.HalfLifeMs, simResult.HalfLifeUnbounded
	}

	riskProfile := risk.Score(risk.Input{
		Capital:           req.Capital,
		MinHopLiquidity:   minLiq,
		PathLength:        cyc.PathLength,
		MeanHopSigma:      meanSigma,
		HalfLifeMs:        halfLifeMs,
		HalfLifeUnbounded: halfLifeUnbounded,
		Spread:            meanSpread,
		MidPrice:          meanMid,
		Conservative:      req.Options.Conservative,
	})

	var stressReport *types.StressReport
	if req.Options.RunStress {
		report, err := stress.Run(ctx, stress.Input{
			Hops:         stressHops,
			LatencyMaxMs: ec.Config.Simulation.LatencyMaxMs,
			HalfLifeMs:   ec.Config.Simulation.HalfLifeMs,
			Spread:       meanSpread,
			MidPrice:     meanMid,
			ImpactConfig: impactCfg,
		})
		if err != nil {
			return types.Opportunity{}, err
		}
		stressReport = &report
	}

	now := time.Now()
	observedReturn := cyc.RawProfit
	if simResult != nil {
		observedReturn = simResult.Mean
	}
	ec.Persistence.RecordObservation(cyc.FingerprintHash, observedReturn, now)
	summary, _ := ec.Persistence.Summary(cyc.FingerprintHash)
	regimeSnapshot := ec.Regimes.get(leadPair).Snapshot()

	return types.Opportunity{
		OpportunityID: cyc.FingerprintHash,
		Cycle:         cyc,
		Simulation:    simResult,
		Risk:          riskProfile,
		Stress:        stressReport,
		Persistence:   summary,
		Regime:        regimeSnapshot,
	}, nil
}

func minLiquidity(g *graph.Graph, cyc types.Cycle) float64 {
	min := -1.0
	for _, ei := range cyc.EdgeIndices {
		l := g.Edge(ei).Liquidity
		if min < 0 || l < min {
			min = l
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// finalizeMetrics updates the engine-wide counters atomically at the
// end of the scan and returns the wire-level ScanMetrics snapshot.
func (ec *EngineContext) finalizeMetrics(detection cycles.Result, opportunities []types.Opportunity, plan types.AllocationPlan, scanElapsedMs float64) types.ScanMetrics {
	atomic.AddInt64(&ec.totalScans, 1)
	atomic.AddInt64(&ec.totalCyclesFound, int64(len(detection.Cycles)))

	ec.scanMu.Lock()
	ec.sumDetectionMs += detection.DetectionTimeMs
	var lifespanSum float64
	for _, opp := range opportunities {
		lifespanSum += float64(opp.Persistence.LastSeenTs.Sub(opp.Persistence.FirstSeenTs) / time.Millisecond)
	}
	if len(opportunities) > 0 {
		ec.sumLifespanMs += lifespanSum / float64(len(opportunities))
	}
	totalScans := ec.totalScans
	avgDetection := ec.sumDetectionMs / float64(totalScans)
	avgLifespan := ec.sumLifespanMs / float64(totalScans)
	ec.scanMu.Unlock()

	ec.Metrics.ScansTotal.Inc()
	ec.Metrics.CyclesFoundTotal.Add(float64(len(detection.Cycles)))
	ec.Metrics.DetectionDuration.Observe(detection.DetectionTimeMs)
	ec.Metrics.ScanDuration.Observe(scanElapsedMs)
	ec.Metrics.OpportunitiesLive.Set(float64(ec.Persistence.Count()))
	ec.Metrics.PortfolioSharpe.Set(portfolioSharpe(plan))

	return types.ScanMetrics{
		TotalScans:         atomic.LoadInt64(&ec.totalScans),
		TotalCyclesFound:   atomic.LoadInt64(&ec.totalCyclesFound),
		AvgDetectionTimeMs: avgDetection,
		AvgLifespanMs:      avgLifespan,
		PortfolioSharpe:    portfolioSharpe(plan),
	}
}

// TotalScans returns the number of completed Scan calls so far.
func (ec *EngineContext) TotalScans() int64 {
	return atomic.LoadInt64(&ec.totalScans)
}

// TotalCyclesFound returns the cumulative count of cycles detected
// across all completed Scan calls.
func (ec *EngineContext) TotalCyclesFound() int64 {
	return atomic.LoadInt64(&ec.totalCyclesFound)
}

// portfolioSharpe is the capital-weighted mean return over the
// portfolio's aggregate risk, used as the reported "portfolio Sharpe"
// (no simulation-derived stdev is available at the portfolio level, so
// this is expected_portfolio_return / max(portfolio_risk_score/100,
// eps) — see DESIGN.md).
func portfolioSharpe(plan types.AllocationPlan) float64 {
	risk := plan.PortfolioRisk / 100
	if risk <= 0 {
		risk = 1e-9
	}
	return plan.ExpectedReturn / risk
}

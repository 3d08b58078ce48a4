// Package api implements the transport-agnostic operation contract: a
// structured envelope wrapping each of the seven engine operations.
// JSON encoding uses sugawarayuuta/sonnet in place of encoding/json,
// grounded on codewanderer42820-evm_triarb/syncharvester's use of
// sonnet on its hot decode path for another low-latency arbitrage
// system.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/Devadharshan16/OmniQuant/internal/allocator"
	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/feed"
	"github.com/Devadharshan16/OmniQuant/internal/impact"
	"github.com/Devadharshan16/OmniQuant/internal/pipeline"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

// Envelope is the wire-level response shape every operation returns.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ElapsedMs float64     `json:"elapsed_ms"`
}

// opportunityCache lets stress_test and allocate look an
// already-scanned opportunity up by ID. It is populated by Handle
// after every scan/quick_scan and lives only as long as the Server
// that owns it, alongside the engine's persistence tracker.
type opportunityCache struct {
	byID map[string]types.Opportunity
}

// Server dispatches decoded operation bodies against a
// *pipeline.EngineContext. It owns the last scan's opportunity cache
// so stress_test/allocate can reference IDs returned by a prior scan.
type Server struct {
	Engine *pipeline.EngineContext
	Feed   feed.Source

	cache opportunityCache
}

// NewServer constructs a Server around an already-initialized engine.
func NewServer(engine *pipeline.EngineContext, defaultFeed feed.Source) *Server {
	return &Server{Engine: engine, Feed: defaultFeed, cache: opportunityCache{byID: make(map[string]types.Opportunity)}}
}

// Handle dispatches op against body and always returns a non-nil
// Envelope — errors are reported inside the envelope, never as a
// second return value, so transports never need special-case error
// plumbing.
func (s *Server) Handle(ctx context.Context, op string, body []byte) (env Envelope) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			env = Envelope{
				Success:   false,
				Error:     apperr.New(apperr.Internal, fmt.Sprintf("internal error: %v", r)).Error(),
				ElapsedMs: float64(time.Since(start)) / float64(time.Millisecond),
			}
		}
	}()
	data, err := s.dispatch(ctx, op, body)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return Envelope{Success: false, Error: err.Error(), ElapsedMs: elapsed}
	}
	return Envelope{Success: true, Data: data, ElapsedMs: elapsed}
}

func (s *Server) dispatch(ctx context.Context, op string, body []byte) (interface{}, error) {
	switch op {
	case "scan":
		return s.handleScan(ctx, body)
	case "quick_scan":
		return s.handleQuickScan(ctx, body)
	case "metrics":
		return s.handleMetrics(ctx)
	case "allocate":
		return s.handleAllocate(ctx, body)
	case "stress_test":
		return s.handleStressTest(ctx, body)
	case "market_impact":
		return s.handleMarketImpact(ctx, body)
	case "latency_sensitivity":
		return s.handleLatencySensitivity(ctx, body)
	default:
		return nil, apperr.New(apperr.InvalidInput, "unknown operation: "+op)
	}
}

type scanRequestBody struct {
	MarketData      []types.RawEdge     `json:"market_data"`
	Capital         float64             `json:"capital"`
	MaxCycles       int                 `json:"max_cycles"`
	RunMonteCarlo   *bool               `json:"run_monte_carlo"`
	MCSamples       int                 `json:"mc_samples"`
	Seed            int64               `json:"seed"`
	RunStress       bool                `json:"run_stress"`
	AllocatorMode   types.AllocatorMode `json:"allocator_mode"`
	Conservative    bool                `json:"conservative"`
}

type scanResponseBody struct {
	Opportunities []types.Opportunity `json:"opportunities"`
	Allocation    types.AllocationPlan `json:"allocation"`
	ScanMetrics   types.ScanMetrics    `json:"scan_metrics"`
}

func (s *Server) handleScan(ctx context.Context, body []byte) (interface{}, error) {
	var req scanRequestBody
	if err := sonnet.Unmarshal(body, &req); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "malformed scan request", err)
	}
	if len(req.MarketData) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "market_data must not be empty")
	}

	runMC := true
	if req.RunMonteCarlo != nil {
		runMC = *req.RunMonteCarlo
	}
	if req.MaxCycles <= 0 {
		req.MaxCycles = 10
	}
	if req.MCSamples <= 0 {
		req.MCSamples = 500
	}

	result, err := s.Engine.Scan(ctx, pipeline.Request{
		Edges:   req.MarketData,
		Capital: req.Capital,
		Options: pipeline.Options{
			MaxCycles:     req.MaxCycles,
			RunMonteCarlo: runMC,
			MCSamples:     req.MCSamples,
			RunStress:     req.RunStress,
			Seed:          req.Seed,
			AllocatorMode: req.AllocatorMode,
			Conservative:  req.Conservative,
		},
	})
	if err != nil {
		return nil, err
	}

	s.cacheOpportunities(result.Opportunities)
	return scanResponseBody{Opportunities: result.Opportunities, Allocation: result.Allocation, ScanMetrics: result.ScanMetrics}, nil
}

type quickScanRequestBody struct {
	scanRequestBody
	UseRealData bool `json:"use_real_data"`
}

func (s *Server) handleQuickScan(ctx context.Context, body []byte) (interface{}, error) {
	var req quickScanRequestBody
	if len(body) > 0 {
		if err := sonnet.Unmarshal(body, &req); err != nil {
			return nil, apperr.Wrap(apperr.InvalidInput, "malformed quick_scan request", err)
		}
	}

	source := s.Feed
	if req.UseRealData {
		return nil, apperr.New(apperr.Internal, "live source not configured for this engine instance")
	}
	if source == nil {
		source = feed.DefaultSimulated(req.Seed)
	}

	edges, err := source.Load(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "quick_scan source load failed", err)
	}

	req.MarketData = edges
	encoded, err := sonnet.Marshal(req.scanRequestBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "quick_scan re-encode failed", err)
	}
	return s.handleScan(ctx, encoded)
}

func (s *Server) handleMetrics(ctx context.Context) (interface{}, error) {
	return struct {
		TotalScans       int64 `json:"total_scans"`
		TotalCyclesFound int64 `json:"total_cycles_found"`
		TrackedCount     int   `json:"tracked_opportunities"`
	}{
		TotalScans:       s.Engine.TotalScans(),
		TotalCyclesFound: s.Engine.TotalCyclesFound(),
		TrackedCount:     s.Engine.Persistence.Count(),
	}, nil
}

type allocateRequestBody struct {
	Capital        float64             `json:"capital"`
	OpportunityIDs []string            `json:"opportunity_ids"`
	Mode           types.AllocatorMode `json:"mode"`
	MaxPosition    float64             `json:"max_position"`
	MinConfidence  float64             `json:"min_confidence"`
}

func (s *Server) handleAllocate(ctx context.Context, body []byte) (interface{}, error) {
	var req allocateRequestBody
	if err := sonnet.Unmarshal(body, &req); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "malformed allocate request", err)
	}

	candidates := make([]allocator.Candidate, 0, len(req.OpportunityIDs))
	for _, id := range req.OpportunityIDs {
		opp, ok := s.cache.byID[id]
		if !ok {
			continue
		}
		meanReturn, sharpe := opp.Cycle.RawProfit, 0.0
		if opp.Simulation != nil {
			meanReturn, sharpe = opp.Simulation.Mean, opp.Simulation.Sharpe
		}
		candidates = append(candidates, allocator.Candidate{
			OpportunityID: id,
			MeanReturn:    meanReturn,
			Sharpe:        sharpe,
			Risk:          opp.Risk.Composite,
			Confidence:    opp.Risk.Confidence,
		})
	}
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "no matching opportunity_ids in the current cache")
	}

	cfg := allocator.Config{Capital: req.Capital, MaxPosition: req.MaxPosition, MinConfidence: req.MinConfidence}
	mode := req.Mode
	if mode == "" {
		mode = types.AllocatorGreedy
	}
	return allocator.Allocate(mode, candidates, cfg), nil
}

func (s *Server) handleStressTest(ctx context.Context, body []byte) (interface{}, error) {
	var req struct {
		OpportunityID string `json:"opportunity_id"`
	}
	if err := sonnet.Unmarshal(body, &req); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "malformed stress_test request", err)
	}
	opp, ok := s.cache.byID[req.OpportunityID]
	if !ok {
		return nil, apperr.New(apperr.InvalidInput, "unknown opportunity_id")
	}
	if opp.Stress != nil {
		return opp.Stress, nil
	}
	return nil, apperr.New(apperr.InvalidInput, "opportunity was not scanned with run_stress")
}

type marketImpactRequestBody struct {
	Volume     float64 `json:"volume"`
	Liquidity  float64 `json:"liquidity"`
	BasePrice  float64 `json:"base_price"`
	K          float64 `json:"k"`
	Alpha      float64 `json:"alpha"`
	Volatility float64 `json:"volatility"`
}

type comparisonPoint struct {
	VolumeMultiplier float64 `json:"volume_multiplier"`
	ImpactPct        float64 `json:"impact_pct"`
}

type marketImpactResponseBody struct {
	ImpactPct       float64           `json:"impact_pct"`
	ImpactBps       float64           `json:"impact_bps"`
	ImpactedPrice   float64           `json:"impacted_price"`
	PriceIncrease   float64           `json:"price_increase"`
	UtilizationPct  float64           `json:"utilization_pct"`
	ComparisonData  []comparisonPoint `json:"comparison_data"`
}

func (s *Server) handleMarketImpact(ctx context.Context, body []byte) (interface{}, error) {
	var req marketImpactRequestBody
	if err := sonnet.Unmarshal(body, &req); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "malformed market_impact request", err)
	}
	if req.Liquidity <= 0 || req.BasePrice <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "liquidity and base_price must be positive")
	}
	cfg := impact.Config{K: req.K, Alpha: req.Alpha}
	if cfg.K == 0 {
		cfg.K = impact.DefaultConfig().K
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = impact.DefaultConfig().Alpha
	}

	hop := impact.Apply(cfg, 1.0, 0, req.Volume, req.Liquidity)
	impactedPrice := req.BasePrice * (1 + hop.Impact)

	comparison := make([]comparisonPoint, 0, 20)
	for i := 1; i <= 20; i++ {
		mult := float64(i) * 0.25
		h := impact.Apply(cfg, 1.0, 0, req.Volume*mult, req.Liquidity)
		comparison = append(comparison, comparisonPoint{VolumeMultiplier: mult, ImpactPct: h.Impact * 100})
	}

	return marketImpactResponseBody{
		ImpactPct:      hop.Impact * 100,
		ImpactBps:      hop.ImpactBps,
		ImpactedPrice:  impactedPrice,
		PriceIncrease:  impactedPrice - req.BasePrice,
		UtilizationPct: hop.Utilization * 100,
		ComparisonData: comparison,
	}, nil
}

type latencySensitivityRequestBody struct {
	BaseReturn     float64 `json:"base_return"`
	PathLength     int     `json:"path_length"`
	Liquidity      float64 `json:"liquidity"`
	Volatility     float64 `json:"volatility"`
	FeePerHop      float64 `json:"fee_per_hop"`
	InitialCapital float64 `json:"initial_capital"`
}

type decayPoint struct {
	LatencyMs    float64 `json:"latency_ms"`
	ReturnPct    float64 `json:"return_pct"`
	IsProfitable bool    `json:"is_profitable"`
}

type latencySensitivityResponseBody struct {
	HalfLifeMs  float64               `json:"half_life_ms"`
	DecayCurve  []decayPoint          `json:"decay_curve"`
	KeyMetrics  map[string]decayPoint `json:"key_metrics"`
	Reliability string                `json:"reliability"`
}

func (s *Server) handleLatencySensitivity(ctx context.Context, body []byte) (interface{}, error) {
	var req latencySensitivityRequestBody
	if err := sonnet.Unmarshal(body, &req); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "malformed latency_sensitivity request", err)
	}
	if req.PathLength <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "path_length must be positive")
	}

	rate := 1.0 + req.BaseReturn/float64(req.PathLength)
	impactCfg := impact.DefaultConfig()

	cumulative := 1.0
	for i := 0; i < req.PathLength; i++ {
		h := impact.Apply(impactCfg, rate, req.FeePerHop, req.InitialCapital, req.Liquidity)
		cumulative *= h.EffectiveRate
	}
	if req.Volatility > 0 {
		haircut := req.Volatility
		if haircut > 1 {
			haircut = 1
		}
		cumulative *= 1 - haircut
	}
	zeroLatencyReturn := cumulative - 1.0

	const defaultHalfLifeMs = 100.0
	halfLifeMs := defaultHalfLifeMs
	if zeroLatencyReturn <= 0 {
		halfLifeMs = 0
	}

	// decay is linear in the return itself, not in the raw multiplier:
	// return(l) = zero-latency return * (1 - l/half_life).
	decayAt := func(l float64) float64 {
		if halfLifeMs <= 0 {
			return zeroLatencyReturn
		}
		return zeroLatencyReturn * (1 - l/defaultHalfLifeMs)
	}

	latencies := []float64{0, 10, 25, 50, 100, 150, 200, 300, 500, 750, 1000}
	curve := make([]decayPoint, 0, len(latencies))
	keyMetrics := make(map[string]decayPoint)
	for _, l := range latencies {
		ret := decayAt(l)
		pt := decayPoint{LatencyMs: l, ReturnPct: ret * 100, IsProfitable: ret > 0}
		curve = append(curve, pt)
		switch l {
		case 0:
			keyMetrics["zero_latency"] = pt
		case 50:
			keyMetrics["latency_50ms"] = pt
		case 100:
			keyMetrics["baseline_100ms"] = pt
		case 200:
			keyMetrics["latency_200ms"] = pt
		}
	}

	reliability := "high"
	if halfLifeMs < 50 {
		reliability = "low"
	} else if halfLifeMs < 150 {
		reliability = "moderate"
	}

	return latencySensitivityResponseBody{HalfLifeMs: halfLifeMs, DecayCurve: curve, KeyMetrics: keyMetrics, Reliability: reliability}, nil
}

func (s *Server) cacheOpportunities(opps []types.Opportunity) {
	for _, opp := range opps {
		s.cache.byID[opp.OpportunityID] = opp
	}
}

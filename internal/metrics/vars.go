package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds one scan engine's collectors. It is constructed once
// per EngineContext and passed explicitly wherever metrics are
// recorded, in place of the arb-bot reference code's package-level
// init()-registered globals: engine state is threaded explicitly, not held ambiently.
type Registry struct {
	Reg *prometheus.Registry

	ScansTotal        prometheus.Counter
	CyclesFoundTotal  prometheus.Counter
	DetectionDuration prometheus.Histogram
	ScanDuration      prometheus.Histogram
	OpportunitiesLive prometheus.Gauge
	PortfolioSharpe   prometheus.Gauge
	AllocationErrors  prometheus.Counter
}

// NewRegistry builds a fresh Registry and registers every collector on
// its own *prometheus.Registry, so multiple engines (e.g. in tests)
// never collide on the process-wide default registerer.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Reg: reg,
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omniquant_scans_total",
			Help: "Total number of completed scan operations.",
		}),
		CyclesFoundTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omniquant_cycles_found_total",
			Help: "Total number of negative cycles emitted across all scans.",
		}),
		DetectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "omniquant_detection_duration_ms",
			Help:    "Wall-clock time spent in cycle detection per scan.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "omniquant_scan_duration_ms",
			Help:    "Wall-clock time spent in a full scan operation.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		OpportunitiesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omniquant_opportunities_tracked",
			Help: "Number of fingerprints currently tracked by the persistence tracker.",
		}),
		PortfolioSharpe: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omniquant_portfolio_sharpe",
			Help: "Expected return of the most recent allocation plan divided by its portfolio risk score / 100.",
		}),
		AllocationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omniquant_allocation_errors_total",
			Help: "Number of allocate operations that returned an error.",
		}),
	}

	reg.MustRegister(
		r.ScansTotal,
		r.CyclesFoundTotal,
		r.DetectionDuration,
		r.ScanDuration,
		r.OpportunitiesLive,
		r.PortfolioSharpe,
		r.AllocationErrors,
	)
	return r
}

// Package config holds the engine's tunable defaults, loaded from a
// yaml file the way the arb-bot reference code's internal/config.Load
// does, then overlaid by internal/cli's viper binding for a few
// environment variables.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PrunerConfig mirrors internal/pruner.Config's yaml surface.
type PrunerConfig struct {
	MinLiquidity       float64 `yaml:"min_liquidity"`
	EnableMinLiquidity bool    `yaml:"enable_min_liquidity"`
	MaxFee             float64 `yaml:"max_fee"`
	EnableMaxFee       bool    `yaml:"enable_max_fee"`
	MinRate            float64 `yaml:"min_rate"`
	EnableMinRate      bool    `yaml:"enable_min_rate"`
	MaxRate            float64 `yaml:"max_rate"`
	EnableMaxRate      bool    `yaml:"enable_max_rate"`
}

// SimulationConfig mirrors internal/simulate.Params' defaults.
type SimulationConfig struct {
	Samples        int     `yaml:"samples"`
	MaxSamples     int     `yaml:"max_samples"`
	LatencyMaxMs   float64 `yaml:"latency_max_ms"`
	LiquidityDelta float64 `yaml:"liquidity_delta"`
	HalfLifeMs     float64 `yaml:"half_life_ms"`
	ImpactK        float64 `yaml:"impact_k"`
	ImpactAlpha    float64 `yaml:"impact_alpha"`
}

// PersistenceConfig mirrors internal/persistence.Tracker's TTL.
type PersistenceConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	RedisAddr  string        `yaml:"redis_addr"`
	MirrorMode bool          `yaml:"mirror_enabled"`
}

// RegimeConfig mirrors internal/regime.Tracker's window.
type RegimeConfig struct {
	Window int `yaml:"window"`
}

// AllocatorConfig mirrors internal/allocator.Config's caps.
type AllocatorConfig struct {
	MaxPosition   float64 `yaml:"max_position"`
	MinConfidence float64 `yaml:"min_confidence"`
	Criterion     string  `yaml:"criterion"`
}

// ScanConfig bounds one scan operation.
type ScanConfig struct {
	MaxCycles         int           `yaml:"max_cycles"`
	Timeout           time.Duration `yaml:"timeout"`
	CancelPollEvery   int           `yaml:"cancel_poll_every"`
	RunStressDefault  bool          `yaml:"run_stress_default"`
	Conservative      bool          `yaml:"conservative"`
}

// ServerConfig configures cmd/omniquant-server.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LogConfig configures the zap logger the way the arb-bot reference
// code's cmd/arb-bot/main.go constructs one.
type LogConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// Config is the engine's full defaults surface.
type Config struct {
	Pruner      PrunerConfig      `yaml:"pruner"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Regime      RegimeConfig      `yaml:"regime"`
	Allocator   AllocatorConfig   `yaml:"allocator"`
	Scan        ScanConfig        `yaml:"scan"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Default returns the engine's built-in defaults, used when no config
// file is supplied and as the base every yaml/env/flag layer overlays.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Samples:        500,
			MaxSamples:     10000,
			LatencyMaxMs:   200,
			LiquidityDelta: 0.2,
			HalfLifeMs:     100,
			ImpactK:        0.5,
			ImpactAlpha:    1.5,
		},
		Persistence: PersistenceConfig{
			TTL: 30 * time.Minute,
		},
		Regime: RegimeConfig{
			Window: 100,
		},
		Allocator: AllocatorConfig{
			MaxPosition:   0.3,
			MinConfidence: 50,
			Criterion:     "composite",
		},
		Scan: ScanConfig{
			MaxCycles:       50,
			Timeout:         5 * time.Second,
			CancelPollEvery: 64,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a yaml config file from path and overlays it onto
// Default(), the same read-then-fill-zero-value-defaults shape as
// the arb-bot reference code's internal/config.Load.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

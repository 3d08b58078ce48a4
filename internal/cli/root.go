// Package cli implements the omniquant command-line surface: scan,
// serve, allocate, stress, market-impact, and latency subcommands over
// a shared *pipeline.EngineContext, grounded on
// Trader2050-price-diff-alerts/internal/cli's cobra root/PersistentPreRunE
// pattern (lazy app construction, one config load per process).
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/config"
	"github.com/Devadharshan16/OmniQuant/internal/pipeline"
)

var (
	cfgFile string
	logger  *zap.Logger
	engine  *pipeline.EngineContext
)

var rootCmd = &cobra.Command{
	Use:   "omniquant",
	Short: "Arbitrage cycle detection, simulation, and capital allocation engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if engine != nil {
			return nil
		}
		_ = godotenv.Load()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyEnvOverrides(cfg)

		l, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		engine = pipeline.NewEngineContext(cfg, logger)
		return nil
	},
}

// applyEnvOverrides layers OMNIQUANT_-prefixed environment variables
// onto a yaml-loaded Config, for the handful of settings an operator
// typically wants to flip per-deployment without editing the config
// file (listen addresses, log level, scan bound).
func applyEnvOverrides(cfg *config.Config) {
	v := viper.New()
	v.SetEnvPrefix("OMNIQUANT")
	v.AutomaticEnv()

	for _, key := range []string{"server_addr", "metrics_addr", "log_level", "max_cycles"} {
		_ = v.BindEnv(key)
	}

	if addr := v.GetString("server_addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if addr := v.GetString("metrics_addr"); addr != "" {
		cfg.Server.MetricsAddr = addr
	}
	if level := v.GetString("log_level"); level != "" {
		cfg.Log.Level = level
	}
	if n := v.GetInt("max_cycles"); n > 0 {
		cfg.Scan.MaxCycles = n
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Production {
		zcfg := zap.NewProductionConfig()
		if lvl, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
			zcfg.Level = lvl
		}
		return zcfg.Build()
	}
	zcfg := zap.NewDevelopmentConfig()
	if lvl, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

// Execute runs the root command, translating engine errors into
// process exit codes: 0 success, 2 invalid input, 3 no cycles found or
// cancelled, 4 any other internal failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.InvalidInput:
		return 2
	case apperr.NoCyclesFound, apperr.Cancelled:
		return 3
	default:
		return 4
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a yaml config file")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(marketImpactCmd)
	rootCmd.AddCommand(latencyCmd)
}

func getEngine() *pipeline.EngineContext {
	if engine == nil {
		panic("engine not initialized; PersistentPreRunE not executed")
	}
	return engine
}

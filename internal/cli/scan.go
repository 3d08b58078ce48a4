package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/Devadharshan16/OmniQuant/internal/api"
	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/feed"
)

var (
	scanInput         string
	scanCapital       float64
	scanMaxCycles     int
	scanMCSamples     int
	scanSeed          int64
	scanNoMonteCarlo  bool
	scanRunStress     bool
	scanAllocatorMode string
	scanConservative  bool
	scanQuick         bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Detect arbitrage cycles over a market snapshot and evaluate each",
	RunE: func(cmd *cobra.Command, args []string) error {
		op := "scan"
		body := map[string]interface{}{
			"capital":         scanCapital,
			"max_cycles":      scanMaxCycles,
			"mc_samples":      scanMCSamples,
			"seed":            scanSeed,
			"run_monte_carlo": !scanNoMonteCarlo,
			"run_stress":      scanRunStress,
			"allocator_mode":  scanAllocatorMode,
			"conservative":    scanConservative,
		}
		if scanQuick {
			op = "quick_scan"
		} else {
			if scanInput == "" {
				return apperr.New(apperr.InvalidInput, "--input is required unless --quick is set")
			}
			raw, err := os.ReadFile(scanInput)
			if err != nil {
				return apperr.Wrap(apperr.InvalidInput, "reading --input", err)
			}
			var edges interface{}
			if err := sonnet.Unmarshal(raw, &edges); err != nil {
				return apperr.Wrap(apperr.InvalidInput, "parsing --input as JSON", err)
			}
			body["market_data"] = edges
		}

		encoded, err := sonnet.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "encoding request", err)
		}

		srv := api.NewServer(getEngine(), feed.DefaultSimulated(scanSeed))
		env := srv.Handle(cmd.Context(), op, encoded)
		return printEnvelope(cmd, env)
	},
}

func printEnvelope(cmd *cobra.Command, env api.Envelope) error {
	out, err := sonnet.Marshal(env)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "encoding response", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if !env.Success {
		// Handle reports failures as "<kind>: <message>"; recover the
		// kind so Execute maps it to the matching exit code.
		for _, k := range []apperr.Kind{apperr.InvalidInput, apperr.NumericalDegeneracy, apperr.NoCyclesFound, apperr.Cancelled, apperr.Internal} {
			if msg, ok := strings.CutPrefix(env.Error, string(k)+": "); ok {
				return apperr.New(k, msg)
			}
		}
		return errors.New(env.Error)
	}
	return nil
}

func init() {
	scanCmd.Flags().StringVar(&scanInput, "input", "", "path to a JSON file of market_data edges")
	scanCmd.Flags().BoolVar(&scanQuick, "quick", false, "run quick_scan against the simulated feed instead of --input")
	scanCmd.Flags().Float64Var(&scanCapital, "capital", 10000, "capital available for allocation")
	scanCmd.Flags().IntVar(&scanMaxCycles, "max-cycles", 10, "maximum number of cycles to detect")
	scanCmd.Flags().IntVar(&scanMCSamples, "mc-samples", 500, "Monte Carlo samples per cycle")
	scanCmd.Flags().Int64Var(&scanSeed, "seed", 42, "deterministic simulation seed")
	scanCmd.Flags().BoolVar(&scanNoMonteCarlo, "no-monte-carlo", false, "skip Monte Carlo simulation")
	scanCmd.Flags().BoolVar(&scanRunStress, "run-stress", false, "run the stress-test battery per cycle")
	scanCmd.Flags().StringVar(&scanAllocatorMode, "allocator-mode", "greedy", "greedy | lp | risk_parity")
	scanCmd.Flags().BoolVar(&scanConservative, "conservative", false, "apply the conservative risk multiplier")
}

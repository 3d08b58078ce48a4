package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/impact"
	"github.com/Devadharshan16/OmniQuant/internal/stress"
)

var (
	stressInput        string
	stressLatencyMaxMs float64
	stressHalfLifeMs   float64
	stressSpread       float64
	stressMidPrice     float64
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run the seven-scenario shock battery over a file of cycle hops",
	RunE: func(cmd *cobra.Command, args []string) error {
		if stressInput == "" {
			return apperr.New(apperr.InvalidInput, "--input is required")
		}
		raw, err := os.ReadFile(stressInput)
		if err != nil {
			return apperr.Wrap(apperr.InvalidInput, "reading --input", err)
		}
		var hops []stress.Hop
		if err := sonnet.Unmarshal(raw, &hops); err != nil {
			return apperr.Wrap(apperr.InvalidInput, "parsing --input as a hop array", err)
		}

		report, err := stress.Run(cmd.Context(), stress.Input{
			Hops:         hops,
			LatencyMaxMs: stressLatencyMaxMs,
			HalfLifeMs:   stressHalfLifeMs,
			Spread:       stressSpread,
			MidPrice:     stressMidPrice,
			ImpactConfig: impact.DefaultConfig(),
		})
		if err != nil {
			return err
		}

		out, err := sonnet.Marshal(report)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "encoding stress report", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	stressCmd.Flags().StringVar(&stressInput, "input", "", "path to a JSON file of stress.Hop objects")
	stressCmd.Flags().Float64Var(&stressLatencyMaxMs, "latency-max-ms", 200, "maximum latency draw in milliseconds")
	stressCmd.Flags().Float64Var(&stressHalfLifeMs, "half-life-ms", 100, "opportunity decay half-life in milliseconds")
	stressCmd.Flags().Float64Var(&stressSpread, "spread", 0, "mean quoted spread across hops")
	stressCmd.Flags().Float64Var(&stressMidPrice, "mid-price", 1, "mean mid price across hops")
}

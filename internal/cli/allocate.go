package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/Devadharshan16/OmniQuant/internal/allocator"
	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

var (
	allocateInput         string
	allocateCapital       float64
	allocateMode          string
	allocateMaxPosition   float64
	allocateMinConfidence float64
)

// allocateCmd runs the allocator directly against a file of candidates
// rather than an opportunity_id cache, since a standalone CLI
// invocation has no prior scan session to reference.
var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Run capital allocation over a file of candidate opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		if allocateInput == "" {
			return apperr.New(apperr.InvalidInput, "--input is required")
		}
		raw, err := os.ReadFile(allocateInput)
		if err != nil {
			return apperr.Wrap(apperr.InvalidInput, "reading --input", err)
		}
		var candidates []allocator.Candidate
		if err := sonnet.Unmarshal(raw, &candidates); err != nil {
			return apperr.Wrap(apperr.InvalidInput, "parsing --input as a candidate array", err)
		}

		mode := types.AllocatorMode(allocateMode)
		cfg := allocator.Config{Capital: allocateCapital, MaxPosition: allocateMaxPosition, MinConfidence: allocateMinConfidence}
		plan := allocator.Allocate(mode, candidates, cfg)

		out, err := sonnet.Marshal(plan)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "encoding allocation plan", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	allocateCmd.Flags().StringVar(&allocateInput, "input", "", "path to a JSON file of allocator.Candidate objects")
	allocateCmd.Flags().Float64Var(&allocateCapital, "capital", 10000, "capital available for allocation")
	allocateCmd.Flags().StringVar(&allocateMode, "mode", "greedy", "greedy | lp | risk_parity")
	allocateCmd.Flags().Float64Var(&allocateMaxPosition, "max-position", 0, "cap on fraction of capital per candidate (0 = package default)")
	allocateCmd.Flags().Float64Var(&allocateMinConfidence, "min-confidence", 0, "minimum confidence score to be eligible (0 = package default)")
}

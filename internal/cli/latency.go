package cli

import (
	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/Devadharshan16/OmniQuant/internal/api"
	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/feed"
)

var (
	latBaseReturn     float64
	latPathLength     int
	latLiquidity      float64
	latVolatility     float64
	latFeePerHop      float64
	latInitialCapital float64
)

var latencyCmd = &cobra.Command{
	Use:   "latency",
	Short: "Compute how a cycle's expected return decays with execution latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := sonnet.Marshal(map[string]interface{}{
			"base_return":     latBaseReturn,
			"path_length":     latPathLength,
			"liquidity":       latLiquidity,
			"volatility":      latVolatility,
			"fee_per_hop":     latFeePerHop,
			"initial_capital": latInitialCapital,
		})
		if err != nil {
			return apperr.Wrap(apperr.Internal, "encoding request", err)
		}
		srv := api.NewServer(getEngine(), feed.DefaultSimulated(0))
		return printEnvelope(cmd, srv.Handle(cmd.Context(), "latency_sensitivity", body))
	},
}

func init() {
	latencyCmd.Flags().Float64Var(&latBaseReturn, "base-return", 0.01, "no-latency expected return over the whole cycle")
	latencyCmd.Flags().IntVar(&latPathLength, "path-length", 3, "number of hops in the cycle")
	latencyCmd.Flags().Float64Var(&latLiquidity, "liquidity", 100000, "liquidity available per hop")
	latencyCmd.Flags().Float64Var(&latVolatility, "volatility", 0, "per-hop volatility")
	latencyCmd.Flags().Float64Var(&latFeePerHop, "fee-per-hop", 0.001, "trading fee applied at each hop")
	latencyCmd.Flags().Float64Var(&latInitialCapital, "initial-capital", 1000, "trade volume per hop")
}

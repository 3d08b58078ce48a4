package cli

import (
	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/Devadharshan16/OmniQuant/internal/api"
	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/feed"
)

var (
	miVolume     float64
	miLiquidity  float64
	miBasePrice  float64
	miK          float64
	miAlpha      float64
	miVolatility float64
)

var marketImpactCmd = &cobra.Command{
	Use:   "market-impact",
	Short: "Compute the price-impact curve for a single hop",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := sonnet.Marshal(map[string]interface{}{
			"volume":     miVolume,
			"liquidity":  miLiquidity,
			"base_price": miBasePrice,
			"k":          miK,
			"alpha":      miAlpha,
			"volatility": miVolatility,
		})
		if err != nil {
			return apperr.Wrap(apperr.Internal, "encoding request", err)
		}
		srv := api.NewServer(getEngine(), feed.DefaultSimulated(0))
		return printEnvelope(cmd, srv.Handle(cmd.Context(), "market_impact", body))
	},
}

func init() {
	marketImpactCmd.Flags().Float64Var(&miVolume, "volume", 0, "trade volume")
	marketImpactCmd.Flags().Float64Var(&miLiquidity, "liquidity", 0, "pool/venue liquidity")
	marketImpactCmd.Flags().Float64Var(&miBasePrice, "base-price", 1, "reference price before impact")
	marketImpactCmd.Flags().Float64Var(&miK, "k", 0, "impact coefficient k (0 = package default)")
	marketImpactCmd.Flags().Float64Var(&miAlpha, "alpha", 0, "impact exponent alpha (0 = package default)")
	marketImpactCmd.Flags().Float64Var(&miVolatility, "volatility", 0, "hop volatility, unused by the impact model itself")
}

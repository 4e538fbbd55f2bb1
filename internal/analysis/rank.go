package analysis

import (
	"sort"

	"lookahead-backtest/internal/model"
)

type RankedPotential struct {
	Rank int
	ArbitragePotential
}

// RankByOracleProfit computes potentials per dataset and sorts descending by OracleProfit.
// Equal profits keep the input order.
func RankByOracleProfit(datasets []model.PriceSeries) []RankedPotential {
	out := make([]RankedPotential, 0, len(datasets))
	for _, s := range datasets {
		out = append(out, RankedPotential{ArbitragePotential: ComputePotential(s)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OracleProfit > out[j].OracleProfit
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

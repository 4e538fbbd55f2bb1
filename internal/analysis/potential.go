package analysis

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
)

// ArbitragePotential is a dataset-level summary you can use for ranking.
// It intentionally does not depend on a specific battery size; it includes
// both raw price stats and an "oracle" profit for a canonical 1MW/1MWh battery.
type ArbitragePotential struct {
	Dataset string

	Start time.Time
	End   time.Time

	Count int

	MinPrice  float64
	MaxPrice  float64
	MeanPrice float64
	StdPrice  float64
	P05Price  float64
	P95Price  float64

	SpreadP95P05 float64
	// MeanDailySpread averages max-min over each local calendar day.
	MeanDailySpread float64

	NegativeCount int

	// OracleProfit is the profit (EUR) from a canonical battery:
	// - 1 MW power, 1 MWh energy
	// - 100% efficiency, no degradation
	// - SOC bounds [0,1], initial SOC 0.5
	// - dispatch choices {-1, 0, +1} MW each interval
	OracleProfit float64
}

func ComputePotential(s model.PriceSeries) ArbitragePotential {
	p := ArbitragePotential{Dataset: s.Name}
	if s.Len() == 0 {
		return p
	}
	p.Count = s.Len()
	p.Start = s.Start()
	p.End = s.End()

	prices := stats.Float64Data(s.Prices())
	p.MinPrice, _ = prices.Min()
	p.MaxPrice, _ = prices.Max()
	p.MeanPrice, _ = prices.Mean()
	if s.Len() > 1 {
		p.StdPrice, _ = prices.StandardDeviationSample()
	}
	p.P05Price = strategy.Percentile(prices, 5)
	p.P95Price = strategy.Percentile(prices, 95)
	p.SpreadP95P05 = p.P95Price - p.P05Price

	for _, v := range prices {
		if v < 0 {
			p.NegativeCount++
		}
	}
	p.MeanDailySpread = meanDailySpread(s)

	p.OracleProfit = oracleProfitCanonical(s)
	return p
}

func meanDailySpread(s model.PriceSeries) float64 {
	var spreads stats.Float64Data
	dayStart := 0
	for i := 1; i <= s.Len(); i++ {
		if i < s.Len() && sameLocalDay(s.Points[i].Start, s.Points[dayStart].Start) {
			continue
		}
		day := stats.Float64Data(model.PriceSeries{Points: s.Points[dayStart:i]}.Prices())
		lo, _ := day.Min()
		hi, _ := day.Max()
		spreads = append(spreads, hi-lo)
		dayStart = i
	}
	mean, err := spreads.Mean()
	if err != nil {
		return 0
	}
	return mean
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// oracleProfitCanonical computes a best-effort "upper bound" using a simple DP:
// SOC discretized into steps of dt (since P=1MW, E=1MWh).
func oracleProfitCanonical(s model.PriceSeries) float64 {
	if s.Len() == 0 {
		return 0
	}
	dt := s.StepHours()
	if dt <= 0 {
		return 0
	}
	steps := int(math.Round(1.0 / dt)) // with 1MW, 1MWh => dt MWh per step => dt SOC
	if steps < 1 {
		steps = 1
	}
	// SOC grid: 0..steps (inclusive) maps to soc = i/steps.
	nStates := steps + 1
	negInf := math.Inf(-1)
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	dp[int(math.Round(0.5*float64(steps)))] = 0

	for _, pt := range s.Points {
		for i := range next {
			next[i] = negInf
		}
		price := pt.Price

		for socIdx := 0; socIdx <= steps; socIdx++ {
			if math.IsInf(dp[socIdx], -1) {
				continue
			}

			// Idle
			if dp[socIdx] > next[socIdx] {
				next[socIdx] = dp[socIdx]
			}

			// Charge: -1MW for dt hours => buy dt MWh, SOC increases by dt.
			if socIdx < steps {
				if v := dp[socIdx] - price*dt; v > next[socIdx+1] {
					next[socIdx+1] = v
				}
			}

			// Discharge: +1MW for dt hours => sell dt MWh, SOC decreases by dt.
			if socIdx > 0 {
				if v := dp[socIdx] + price*dt; v > next[socIdx-1] {
					next[socIdx-1] = v
				}
			}
		}
		dp, next = next, dp
	}

	best := negInf
	for _, v := range dp {
		if v > best {
			best = v
		}
	}
	return best
}

package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookahead-backtest/internal/model"
)

func series(name string, start time.Time, prices ...float64) model.PriceSeries {
	pts := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = model.PricePoint{Start: start.Add(time.Duration(i) * model.QuarterHour), Price: p}
	}
	return model.NewPriceSeries(name, pts)
}

func TestComputePotential(t *testing.T) {
	start := time.Date(2024, 7, 1, 23, 30, 0, 0, time.UTC)
	s := series("jul", start, 10, 50, -10, 50, 20)

	p := ComputePotential(s)
	assert.Equal(t, "jul", p.Dataset)
	assert.Equal(t, 5, p.Count)
	assert.Equal(t, -10.0, p.MinPrice)
	assert.Equal(t, 50.0, p.MaxPrice)
	assert.InDelta(t, 24, p.MeanPrice, 1e-12)
	assert.Equal(t, 1, p.NegativeCount)
	assert.InDelta(t, p.P95Price-p.P05Price, p.SpreadP95P05, 1e-12)
	assert.True(t, p.End.Equal(start.Add(75*time.Minute)))

	// Day one holds 10, 50 and day two -10, 50, 20.
	assert.InDelta(t, (40.0+60.0)/2, p.MeanDailySpread, 1e-12)

	// Start at 0.5 MWh: sell at 50, buy at -10, sell at 50, then sell at 20.
	assert.InDelta(t, 0.25*(50+10+50+20), p.OracleProfit, 1e-9)
}

func TestComputePotentialEmpty(t *testing.T) {
	p := ComputePotential(model.PriceSeries{Name: "none"})
	assert.Zero(t, p.Count)
	assert.Zero(t, p.OracleProfit)
}

func TestRankByOracleProfit(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	flat := series("flat", start, 30, 30, 30, 30)
	spiky := series("spiky", start, 0, 200, 0, 200)
	mild := series("mild", start, 20, 40, 20, 40)

	ranked := RankByOracleProfit([]model.PriceSeries{flat, spiky, mild})
	require.Len(t, ranked, 3)
	assert.Equal(t, "spiky", ranked[0].Dataset)
	assert.Equal(t, "mild", ranked[1].Dataset)
	assert.Equal(t, "flat", ranked[2].Dataset)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
}

package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookahead-backtest/internal/model"
)

func points(prices ...float64) []model.PricePoint {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = model.PricePoint{Start: start.Add(time.Duration(i) * model.QuarterHour), Price: p}
	}
	return out
}

func unitBattery(t *testing.T, soc float64) *model.Battery {
	t.Helper()
	b, err := model.NewBattery(model.BatteryParams{
		EnergyCapacityMWh:   1,
		PowerCapacityMW:     1,
		RoundTripEfficiency: 1,
		MaxSOC:              1,
	}, soc)
	require.NoError(t, err)
	return b
}

func TestPercentileMatchesLinearInterpolation(t *testing.T) {
	assert.InDelta(t, 1.8, Percentile([]float64{5, 4, 3, 2, 1}, 20), 1e-12)
	assert.InDelta(t, 4.2, Percentile([]float64{1, 2, 3, 4, 5}, 80), 1e-12)
	assert.InDelta(t, 18, Percentile([]float64{10, 50}, 20), 1e-12)
	assert.InDelta(t, 42, Percentile([]float64{50, 10}, 80), 1e-12)
	assert.Equal(t, 7.0, Percentile([]float64{7}, 35))
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestComputeThresholdsSinglePriceCollapses(t *testing.T) {
	th := ComputeThresholds(points(-12.5), DefaultThresholdParams())
	assert.Equal(t, -12.5, th.Lower)
	assert.Equal(t, -12.5, th.Upper)
}

func TestThresholdParamsValidate(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(p *ThresholdParams)
		field string
	}{
		{"lower below zero", func(p *ThresholdParams) { p.LowerPercentile = -1 }, "lower_percentile"},
		{"upper above hundred", func(p *ThresholdParams) { p.UpperPercentile = 101 }, "upper_percentile"},
		{"inverted", func(p *ThresholdParams) { p.LowerPercentile = 90 }, "lower_percentile"},
		{"negative rise", func(p *ThresholdParams) { p.RiseFactor = -0.1 }, "rise_factor"},
		{"negative fall", func(p *ThresholdParams) { p.FallFactor = -0.1 }, "fall_factor"},
		{"negative last trade factor", func(p *ThresholdParams) { p.LastTradeFactor = -0.05 }, "last_trade_factor"},
		{"last trade factor of one", func(p *ThresholdParams) { p.LastTradeFactor = 1 }, "last_trade_factor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultThresholdParams()
			tc.edit(&p)
			_, err := NewThresholdStrategy(p)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestThresholdDecideFollowsWindow(t *testing.T) {
	s, err := NewThresholdStrategy(DefaultThresholdParams())
	require.NoError(t, err)
	series := points(10, 50, 10, 50)

	b := unitBattery(t, 0)
	ctx := Context{Index: 0, Point: series[0], Window: series[0:2], Battery: b, StepH: 0.25}
	assert.Equal(t, -1.0, s.Decide(ctx).PowerMW)

	b.State.EnergyMWh = 0.25
	ctx = Context{Index: 1, Point: series[1], Window: series[1:3], Battery: b, StepH: 0.25}
	assert.Equal(t, 1.0, s.Decide(ctx).PowerMW)

	ctx = Context{Index: 3, Point: series[3], Window: series[3:4], Battery: b, StepH: 0.25}
	assert.Equal(t, 1.0, s.Decide(ctx).PowerMW, "final interval liquidates")

	ctx.Final = false
	assert.Zero(t, s.Decide(ctx).PowerMW)
	ctx.Final = true
	s.Params.LiquidateAtEnd = false
	assert.Zero(t, s.Decide(ctx).PowerMW)
}

func TestThresholdHorizonOneAlwaysHolds(t *testing.T) {
	s, err := NewThresholdStrategy(DefaultThresholdParams())
	require.NoError(t, err)
	s.Params.LiquidateAtEnd = false
	series := points(-40, 0, 300, 12)

	for i := range series {
		b := unitBattery(t, 0.5)
		d := s.Decide(Context{Index: i, Point: series[i], Window: series[i : i+1], Battery: b, StepH: 0.25})
		assert.Zero(t, d.PowerMW, "index %d", i)
	}
}

func TestThresholdRespectsBoundsAndCycleLimit(t *testing.T) {
	s, err := NewThresholdStrategy(DefaultThresholdParams())
	require.NoError(t, err)
	series := points(10, 50, 90)

	full := unitBattery(t, 1)
	assert.Zero(t, s.Decide(Context{Point: series[0], Window: series, Battery: full}).PowerMW)

	empty := unitBattery(t, 0)
	assert.Zero(t, s.Decide(Context{Point: series[2], Window: series[2:], Battery: empty, Final: true}).PowerMW)

	limited := unitBattery(t, 0)
	limited.Params.MaxCycles = 1
	limited.State.Cycles = 1
	assert.Zero(t, s.Decide(Context{Point: series[0], Window: series, Battery: limited}).PowerMW)
}

func TestThresholdTrendFilters(t *testing.T) {
	p := DefaultThresholdParams()
	p.RiseFactor = 1.2
	s, err := NewThresholdStrategy(p)
	require.NoError(t, err)

	// mean(10, 11, 12) = 11 is not above 10*1.2, so no charge.
	flat := points(10, 11, 12)
	assert.Zero(t, s.Decide(Context{Point: flat[0], Window: flat, Battery: unitBattery(t, 0)}).PowerMW)

	steep := points(10, 50, 60)
	assert.Equal(t, -1.0, s.Decide(Context{Point: steep[0], Window: steep, Battery: unitBattery(t, 0)}).PowerMW)
}

func TestThresholdLastTradeFilter(t *testing.T) {
	// Each window puts the current price clearly below (charge) or above
	// (discharge) its thresholds, or makes it idle, so only the filter varies.
	charge := func(p float64) []model.PricePoint { return points(p, 100, 100, 100, 100) }
	discharge := func(p float64) []model.PricePoint { return points(p, 0, 0, 0, 0) }
	idle := func() []model.PricePoint { return points(50, 50) }
	steps := [][]model.PricePoint{
		charge(40), discharge(60), charge(39), idle(), charge(38), charge(37), charge(37),
		discharge(60), idle(), discharge(62), discharge(64),
	}

	cases := []struct {
		name   string
		factor float64
		want   []float64
	}{
		{"off", 0, []float64{-1, 1, -1, 0, -1, -1, -1, 1, 0, 1, 1}},
		// 38 is not below 39*0.95 and 62 is not above 60*1.05; continuing blocks are not filtered.
		{"five percent", 0.05, []float64{-1, 1, -1, 0, 0, -1, -1, 1, 0, 0, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultThresholdParams()
			p.LastTradeFactor = tc.factor
			s, err := NewThresholdStrategy(p)
			require.NoError(t, err)
			b := unitBattery(t, 0)

			got := make([]float64, len(steps))
			for i, w := range steps {
				d := s.Decide(Context{Index: i, Point: w[0], Window: w, Battery: b, StepH: 0.25})
				res, err := b.ApplyDispatch(w[0].Price, d, 0.25)
				require.NoError(t, err)
				got[i] = res.PowerMW
			}
			assert.InDeltaSlice(t, tc.want, got, 1e-9)
		})
	}
}

func TestThresholdLastTradeMemoryResetsPerRun(t *testing.T) {
	p := DefaultThresholdParams()
	p.LastTradeFactor = 0.05
	s, err := NewThresholdStrategy(p)
	require.NoError(t, err)

	w := points(40, 100, 100, 100, 100)
	require.Equal(t, -1.0, s.Decide(Context{Index: 0, Point: w[0], Window: w, Battery: unitBattery(t, 0)}).PowerMW)
	require.Zero(t, s.Decide(Context{Index: 1, Point: points(50)[0], Window: points(50, 50), Battery: unitBattery(t, 0)}).PowerMW)
	assert.Zero(t, s.Decide(Context{Index: 2, Point: w[0], Window: w, Battery: unitBattery(t, 0)}).PowerMW,
		"40 does not beat the last charge at 40")

	assert.Equal(t, -1.0, s.Decide(Context{Index: 0, Point: w[0], Window: w, Battery: unitBattery(t, 0)}).PowerMW,
		"a new run starts without memory")
}

func TestOracleStrategyBuysLowSellsHigh(t *testing.T) {
	series := model.NewPriceSeries("oracle", points(10, 50, 10, 50))
	params := model.BatteryParams{EnergyCapacityMWh: 1, PowerCapacityMW: 1, RoundTripEfficiency: 1, MaxSOC: 1}

	o, err := NewOracleStrategy(series, params, 0, OracleParams{SocSteps: 4, PowerSteps: 4})
	require.NoError(t, err)
	assert.Equal(t, "oracle", o.Name())

	want := []float64{-1, 1, -1, 1}
	for i, w := range want {
		assert.InDelta(t, w, o.Decide(Context{Index: i}).PowerMW, 1e-9, "index %d", i)
	}
	assert.Zero(t, o.Decide(Context{Index: 99}).PowerMW)
}

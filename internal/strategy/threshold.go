package strategy

import (
	"math"
	"sort"

	"lookahead-backtest/internal/model"
)

const (
	DefaultLowerPercentile = 20.0
	DefaultUpperPercentile = 80.0
)

// ThresholdParams configures the percentile threshold heuristic.
//
// The battery charges at full power when the current price is strictly below the
// LowerPercentile of the visible window and discharges at full power when it is
// strictly above the UpperPercentile. RiseFactor/FallFactor are optional trend
// filters: with RiseFactor > 0 a charge additionally needs mean(window) > price*RiseFactor,
// with FallFactor > 0 a discharge needs mean(window) < price*FallFactor.
//
// LastTradeFactor (0 = off) filters against the previous trade: a new charge block
// needs a price below lastCharge*(1-LastTradeFactor) and a new discharge block a
// price above lastDischarge*(1+LastTradeFactor). A discharge forgets the last charge
// price and a charge forgets the last discharge price.
type ThresholdParams struct {
	LowerPercentile float64
	UpperPercentile float64
	RiseFactor      float64
	FallFactor      float64
	LastTradeFactor float64
	// LiquidateAtEnd sells whatever is left on the last interval of the series
	// when the price is positive.
	LiquidateAtEnd bool
}

// DefaultThresholdParams returns the 20th/80th percentile heuristic with end-of-series liquidation.
func DefaultThresholdParams() ThresholdParams {
	return ThresholdParams{
		LowerPercentile: DefaultLowerPercentile,
		UpperPercentile: DefaultUpperPercentile,
		LiquidateAtEnd:  true,
	}
}

func (p ThresholdParams) Validate() error {
	if p.LowerPercentile < 0 || p.LowerPercentile > 100 {
		return model.Invalid("lower_percentile", "must be in [0, 100]")
	}
	if p.UpperPercentile < 0 || p.UpperPercentile > 100 {
		return model.Invalid("upper_percentile", "must be in [0, 100]")
	}
	if p.LowerPercentile > p.UpperPercentile {
		return model.Invalid("lower_percentile", "must be <= upper_percentile")
	}
	if p.RiseFactor < 0 {
		return model.Invalid("rise_factor", "must be >= 0")
	}
	if p.FallFactor < 0 {
		return model.Invalid("fall_factor", "must be >= 0")
	}
	if p.LastTradeFactor < 0 || p.LastTradeFactor >= 1 {
		return model.Invalid("last_trade_factor", "must be in [0, 1)")
	}
	return nil
}

// WindowThresholds are derived from the prices visible in one rolling window.
type WindowThresholds struct {
	Lower float64
	Upper float64
	Mean  float64
}

// ComputeThresholds derives the thresholds of a window. With a single visible
// price both thresholds collapse onto that price.
func ComputeThresholds(window []model.PricePoint, p ThresholdParams) WindowThresholds {
	if len(window) == 0 {
		return WindowThresholds{Lower: math.NaN(), Upper: math.NaN(), Mean: math.NaN()}
	}
	sorted := make([]float64, len(window))
	sum := 0.0
	for i, pt := range window {
		sorted[i] = pt.Price
		sum += pt.Price
	}
	sort.Float64s(sorted)
	return WindowThresholds{
		Lower: percentileSorted(sorted, p.LowerPercentile/100),
		Upper: percentileSorted(sorted, p.UpperPercentile/100),
		Mean:  sum / float64(len(window)),
	}
}

// ThresholdStrategy is the rolling-window percentile dispatch heuristic.
// It remembers the previous trade for LastTradeFactor, so an instance serves
// one run at a time; the memory is cleared at Index 0.
type ThresholdStrategy struct {
	Params ThresholdParams

	last tradeMemory
}

type tradeMemory struct {
	prev         model.Action
	charge       float64
	hasCharge    bool
	discharge    float64
	hasDischarge bool
}

func NewThresholdStrategy(p ThresholdParams) (*ThresholdStrategy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &ThresholdStrategy{Params: p}, nil
}

func (s *ThresholdStrategy) Name() string { return "threshold" }

func (s *ThresholdStrategy) Decide(ctx Context) model.Dispatch {
	if ctx.Index == 0 {
		s.last = tradeMemory{}
	}
	d := s.decide(ctx)
	s.remember(ctx.Point.Price, d)
	return d
}

func (s *ThresholdStrategy) decide(ctx Context) model.Dispatch {
	batt := ctx.Battery
	if batt == nil || len(ctx.Window) == 0 || batt.CycleLimitReached() {
		return model.Dispatch{}
	}
	price := ctx.Point.Price
	th := ComputeThresholds(ctx.Window, s.Params)
	pmax := batt.Params.PowerCapacityMW

	if price < th.Lower && batt.CanCharge() && s.expectsRise(price, th) && s.beatsLastCharge(price) {
		return model.Dispatch{PowerMW: -pmax}
	}
	if price > th.Upper && batt.CanDischarge() && s.expectsFall(price, th) && s.beatsLastDischarge(price) {
		return model.Dispatch{PowerMW: pmax}
	}
	if ctx.Final && s.Params.LiquidateAtEnd && price > 0 && batt.CanDischarge() {
		return model.Dispatch{PowerMW: pmax}
	}
	return model.Dispatch{}
}

// remember records the price at which a charge or discharge block starts.
func (s *ThresholdStrategy) remember(price float64, d model.Dispatch) {
	action := model.ActionFromPowerMW(d.PowerMW)
	switch {
	case action == model.ActionCharging && s.last.prev != model.ActionCharging:
		s.last.charge, s.last.hasCharge = price, true
		s.last.hasDischarge = false
	case action == model.ActionDischarging && s.last.prev != model.ActionDischarging:
		s.last.discharge, s.last.hasDischarge = price, true
		s.last.hasCharge = false
	}
	s.last.prev = action
}

// beatsLastCharge only filters the first interval of a charge block.
func (s *ThresholdStrategy) beatsLastCharge(price float64) bool {
	f := s.Params.LastTradeFactor
	if f <= 0 || !s.last.hasCharge || s.last.prev == model.ActionCharging {
		return true
	}
	return price < s.last.charge*(1-f)
}

func (s *ThresholdStrategy) beatsLastDischarge(price float64) bool {
	f := s.Params.LastTradeFactor
	if f <= 0 || !s.last.hasDischarge || s.last.prev == model.ActionDischarging {
		return true
	}
	return price > s.last.discharge*(1+f)
}

func (s *ThresholdStrategy) expectsRise(price float64, th WindowThresholds) bool {
	if s.Params.RiseFactor <= 0 {
		return true
	}
	return th.Mean > price*s.Params.RiseFactor
}

func (s *ThresholdStrategy) expectsFall(price float64, th WindowThresholds) bool {
	if s.Params.FallFactor <= 0 {
		return true
	}
	return th.Mean < price*s.Params.FallFactor
}

package backtest

import (
	"fmt"

	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
)

type Engine struct{}

func New() *Engine { return &Engine{} }

// Run executes a backtest over a validated price series.
//
// At step t the strategy sees series.Points[t:min(t+horizon, T)] and nothing else,
// so no decision can depend on a price beyond its window.
func (e *Engine) Run(series model.PriceSeries, batt *model.Battery, strat strategy.Strategy, horizon int) (*Result, error) {
	if batt == nil {
		return nil, fmt.Errorf("battery is nil")
	}
	if strat == nil {
		return nil, fmt.Errorf("strategy is nil")
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if horizon <= 0 || horizon > series.Len() {
		return nil, model.Invalid("horizon", fmt.Sprintf("must be in [1, %d], got %d", series.Len(), horizon))
	}

	n := series.Len()
	dtH := series.StepHours()
	ledger := make([]LedgerRow, 0, n)
	out := &Result{Strategy: strat.Name(), Horizon: horizon}
	cum := 0.0

	for idx, pt := range series.Points {
		end := idx + horizon
		if end > n {
			end = n
		}
		// Cap the slice so a strategy cannot re-slice past its window.
		window := series.Points[idx:end:end]

		req := strat.Decide(strategy.Context{
			Index:   idx,
			Point:   pt,
			Window:  window,
			Final:   idx == n-1,
			StepH:   dtH,
			Battery: batt,
		})

		res, err := batt.ApplyDispatch(pt.Price, req, dtH)
		if err != nil {
			return nil, fmt.Errorf("interval %d apply dispatch: %w", idx, err)
		}
		cum += res.PNL
		out.EnergyChargedMWh += res.EnergyFromGridMWh
		out.EnergyDischargedMWh += res.EnergyToGridMWh

		capMWh := batt.Params.EnergyCapacityMWh
		ledger = append(ledger, LedgerRow{
			Index: idx,

			IntervalStart: pt.Start,
			IntervalEnd:   pt.Start.Add(series.Step),

			Price: pt.Price,

			Action: model.ActionFromPowerMW(res.PowerMW),

			RequestedPowerMW: req.PowerMW,
			PowerMW:          res.PowerMW,

			EnergyFromGridMWh: res.EnergyFromGridMWh,
			EnergyToGridMWh:   res.EnergyToGridMWh,
			ThroughputMWh:     res.ThroughputMWh,

			EnergyStartMWh: res.EnergyStartMWh,
			EnergyEndMWh:   res.EnergyEndMWh,
			SOCStart:       res.EnergyStartMWh / capMWh,
			SOCEnd:         res.EnergyEndMWh / capMWh,

			Cycles: batt.State.Cycles,

			PNL:    res.PNL,
			CumPNL: cum,
		})
	}

	out.Ledger = ledger
	out.TotalPNL = cum
	out.Cycles = batt.State.Cycles
	out.FinalEnergyMWh = batt.State.EnergyMWh
	out.FinalSOC = batt.SOC()
	return out, nil
}

// Simulate runs the threshold heuristic on a fresh battery.
func Simulate(series model.PriceSeries, params model.BatteryParams, initialSOC float64, cfg strategy.ThresholdParams, horizon int) (*Result, error) {
	batt, err := model.NewBattery(params, initialSOC)
	if err != nil {
		return nil, err
	}
	strat, err := strategy.NewThresholdStrategy(cfg)
	if err != nil {
		return nil, err
	}
	return New().Run(series, batt, strat, horizon)
}

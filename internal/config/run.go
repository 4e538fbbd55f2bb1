package config

import (
	"fmt"

	"lookahead-backtest/internal/backtest"
	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
)

// BuildStrategy returns the configured strategy and the horizon to run it with.
// The oracle plans over the whole series up-front, so its horizon is 1.
func (c *Config) BuildStrategy(series model.PriceSeries) (strategy.Strategy, int, error) {
	switch c.Strategy.Name {
	case "oracle":
		op, err := c.OracleParams()
		if err != nil {
			return nil, 0, err
		}
		s, err := strategy.NewOracleStrategy(series, c.Battery.ToModelParams(), c.Battery.InitialSOC, op)
		if err != nil {
			return nil, 0, err
		}
		return s, 1, nil
	case "threshold", "":
		th, err := c.ThresholdParams()
		if err != nil {
			return nil, 0, err
		}
		s, err := strategy.NewThresholdStrategy(th)
		if err != nil {
			return nil, 0, err
		}
		return s, c.Strategy.HorizonValue(), nil
	}
	return nil, 0, model.Invalid("strategy.name", fmt.Sprintf("unknown strategy %q", c.Strategy.Name))
}

// Simulate runs the configured strategy over series on a fresh battery.
func (c *Config) Simulate(series model.PriceSeries) (*backtest.Result, error) {
	batt, err := model.NewBattery(c.Battery.ToModelParams(), c.Battery.InitialSOC)
	if err != nil {
		return nil, err
	}
	strat, horizon, err := c.BuildStrategy(series)
	if err != nil {
		return nil, err
	}
	return backtest.New().Run(series, batt, strat, horizon)
}

package models

import "time"

// SimulateRequest represents the request body for a single rolling-window simulation
type SimulateRequest struct {
	DataSource DataSource      `json:"data_source" binding:"required"`
	Config     RunConfig       `json:"config"`
	Options    SimulateOptions `json:"options,omitempty"`
}

// DataSource names a catalog dataset or carries the prices inline
type DataSource struct {
	Dataset string       `json:"dataset,omitempty"`
	Period  string       `json:"period,omitempty"` // year, q1..q4, winter, summer
	Name    string       `json:"name,omitempty"`   // name for inline prices
	Prices  []PricePoint `json:"prices,omitempty"`
}

// PricePoint is one inline price
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// RunConfig contains battery and strategy configuration
type RunConfig struct {
	BatteryFile string         `json:"battery_file,omitempty"` // preset id, e.g. "1mwh_05c"
	Battery     BatteryConfig  `json:"battery,omitempty"`
	Strategy    StrategyConfig `json:"strategy,omitempty"`
}

// BatteryConfig defines battery parameters. Zero fields keep the preset or default value,
// except round_trip_efficiency: an explicit 0 is passed on and rejected.
type BatteryConfig struct {
	Name                string   `json:"name,omitempty"`
	EnergyCapacityMWh   float64  `json:"energy_capacity_mwh"`
	PowerCapacityMW     float64  `json:"power_capacity_mw"`
	CRate               float64  `json:"c_rate,omitempty"`
	RoundTripEfficiency *float64 `json:"round_trip_efficiency,omitempty"`
	MinSOC              float64  `json:"min_soc"`
	MaxSOC              float64  `json:"max_soc"`
	InitialSOC          float64  `json:"initial_soc,omitempty"`
	FeePerMWh           float64  `json:"fee_per_mwh,omitempty"`
	MaxCycles           float64  `json:"max_cycles,omitempty"`
}

// StrategyConfig defines strategy, lookahead and its parameters
type StrategyConfig struct {
	Name    string         `json:"name,omitempty"` // default: "threshold"
	Horizon *int           `json:"horizon,omitempty"` // omitted: default, 0: rejected
	Params  map[string]any `json:"params,omitempty"`
}

// SimulateOptions contains optional simulation parameters
type SimulateOptions struct {
	LimitIntervals int  `json:"limit_intervals,omitempty"` // 0 = all
	IncludeLedger  bool `json:"include_ledger,omitempty"`
	IncludeTrades  bool `json:"include_trades,omitempty"`
	Economics      bool `json:"economics,omitempty"`
}

// SweepRequest represents a grid search over horizons for one or more datasets
type SweepRequest struct {
	DataSources []DataSource `json:"data_sources" binding:"required,min=1"`
	Config      RunConfig    `json:"config"`
	Horizons    string       `json:"horizons" binding:"required"` // e.g. "1-12,16:96:8"
	Concurrency int          `json:"concurrency,omitempty"`
	Archive     bool         `json:"archive,omitempty"`
	Label       string       `json:"label,omitempty"`
}

// RankRequest represents a request to rank catalog datasets
type RankRequest struct {
	Datasets string `form:"datasets,omitempty"` // comma-separated, default: whole catalog
	Period   string `form:"period,omitempty"`
	Limit    int    `form:"limit,omitempty"` // default: 10
}

// RunsRequest lists archived sweeps
type RunsRequest struct {
	Dataset string `form:"dataset,omitempty"` // best horizon per run for this dataset
	Limit   int    `form:"limit,omitempty"`   // default: 20
}

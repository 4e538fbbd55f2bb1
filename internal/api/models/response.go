package models

import "time"

// SimulateResponse represents the response from a simulation run
type SimulateResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Summary   SimulateSummary   `json:"summary"`
	Ledger    []LedgerRow       `json:"ledger,omitempty"`
	Trades    []Trade           `json:"trades,omitempty"`
	Economics *EconomicsSummary `json:"economics,omitempty"`
}

// SimulateSummary contains aggregated simulation results
type SimulateSummary struct {
	Dataset             string     `json:"dataset"`
	Strategy            string     `json:"strategy"`
	Horizon             int        `json:"horizon"`
	TotalPNL            float64    `json:"total_pnl"`
	Cycles              float64    `json:"cycles"`
	FinalSOC            float64    `json:"final_soc"`
	TotalIntervals      int        `json:"total_intervals"`
	Window              TimeWindow `json:"window"`
	EnergyChargedMWh    float64    `json:"energy_charged_mwh"`
	EnergyDischargedMWh float64    `json:"energy_discharged_mwh"`
	TradeCount          int        `json:"trade_count"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LedgerRow represents one interval in the simulation ledger
type LedgerRow struct {
	Index             int       `json:"index"`
	IntervalStart     time.Time `json:"interval_start"`
	IntervalEnd       time.Time `json:"interval_end"`
	Price             float64   `json:"price"`
	Action            string    `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
	RequestedPowerMW  float64   `json:"requested_power_mw"`
	PowerMW           float64   `json:"power_mw"`
	EnergyFromGridMWh float64   `json:"energy_from_grid_mwh"`
	EnergyToGridMWh   float64   `json:"energy_to_grid_mwh"`
	SOCStart          float64   `json:"soc_start"`
	SOCEnd            float64   `json:"soc_end"`
	Cycles            float64   `json:"cycles"`
	PNL               float64   `json:"pnl"`
	CumPNL            float64   `json:"cum_pnl"`
}

// Trade is a block of consecutive charge or discharge intervals
type Trade struct {
	TimeWindow
	Action    string  `json:"action"`
	Intervals int     `json:"intervals"`
	EnergyMWh float64 `json:"energy_mwh"`
	AvgPrice  float64 `json:"avg_price"`
	CashFlow  float64 `json:"cash_flow"`
}

// EconomicsSummary projects the simulated profit over the battery lifetime
type EconomicsSummary struct {
	AnnualProfit float64 `json:"annual_profit"`
	AnnualCycles float64 `json:"annual_cycles"`
	Capex        float64 `json:"capex"`
	NPV          float64 `json:"npv"`
	PaybackYear  int     `json:"payback_year"` // 0 = never
	TotalRevenue float64 `json:"total_revenue"`
}

// SweepResponse represents the result of a horizon grid search
type SweepResponse struct {
	RunID   string         `json:"run_id,omitempty"`
	Results []DatasetSweep `json:"results"`
}

// DatasetSweep holds the profit per horizon for one dataset
type DatasetSweep struct {
	Dataset string         `json:"dataset"`
	Best    HorizonEntry   `json:"best"`
	Entries []HorizonEntry `json:"entries"`
}

// HorizonEntry is one cell of the grid search
type HorizonEntry struct {
	Horizon             int     `json:"horizon"`
	Profit              float64 `json:"profit"`
	Cycles              float64 `json:"cycles"`
	EnergyChargedMWh    float64 `json:"energy_charged_mwh"`
	EnergyDischargedMWh float64 `json:"energy_discharged_mwh"`
}

// RankResponse represents the response from ranking datasets
type RankResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked dataset
type Ranking struct {
	Rank            int     `json:"rank"`
	Dataset         string  `json:"dataset"`
	Count           int     `json:"count"`
	SpreadP95P05    float64 `json:"spread_p95_p05"`
	MeanDailySpread float64 `json:"mean_daily_spread"`
	MinPrice        float64 `json:"min_price"`
	MaxPrice        float64 `json:"max_price"`
	NegativeCount   int     `json:"negative_count"`
	OracleProfit    float64 `json:"oracle_profit"`
}

// BatteryInfo represents information about a battery preset
type BatteryInfo struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	File  string       `json:"file"`
	Specs BatterySpecs `json:"specs"`
}

// BatterySpecs contains battery specifications
type BatterySpecs struct {
	EnergyCapacityMWh   float64 `json:"energy_capacity_mwh"`
	PowerCapacityMW     float64 `json:"power_capacity_mw"`
	RoundTripEfficiency float64 `json:"round_trip_efficiency"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "float", "int", "bool"
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// DatasetInfo represents one price file from the catalog
type DatasetInfo struct {
	Name      string    `json:"name"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Intervals int       `json:"intervals"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

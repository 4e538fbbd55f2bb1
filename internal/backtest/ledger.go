package backtest

import (
	"time"

	"lookahead-backtest/internal/model"
)

// LedgerRow is one row of per-interval output.
// This is the primary artifact for "what happened" in a backtest.
type LedgerRow struct {
	Index int

	IntervalStart time.Time
	IntervalEnd   time.Time

	Price float64

	Action model.Action

	RequestedPowerMW float64
	PowerMW          float64

	EnergyFromGridMWh float64
	EnergyToGridMWh   float64
	ThroughputMWh     float64

	EnergyStartMWh float64
	EnergyEndMWh   float64
	SOCStart       float64
	SOCEnd         float64

	// Cycles is cumulative at the end of the interval.
	Cycles float64

	PNL    float64
	CumPNL float64
}

type Result struct {
	Strategy string
	Horizon  int

	Ledger []LedgerRow

	TotalPNL            float64
	Cycles              float64
	EnergyChargedMWh    float64 // grid side
	EnergyDischargedMWh float64 // grid side
	FinalEnergyMWh      float64
	FinalSOC            float64
}

package model

import (
	"errors"
	"math"
)

// energyEpsilonMWh absorbs float drift when comparing stored energy to its bounds.
const energyEpsilonMWh = 1e-9

// BatteryParams defines the physical and economic parameters of the battery.
// Units:
// - EnergyCapacityMWh: MWh
// - PowerCapacityMW: MW, grid side, applies to both charge and discharge
// - RoundTripEfficiency: 0..1, split evenly as sqrt(eta) on each leg
// - MinSOC/MaxSOC: fraction 0..1 of capacity
// - FeePerMWh: EUR/MWh of grid-side throughput (charge + discharge)
// - MaxCycles: equivalent full cycles after which the battery stops trading (0 = unlimited)
type BatteryParams struct {
	EnergyCapacityMWh   float64
	PowerCapacityMW     float64
	RoundTripEfficiency float64
	MinSOC              float64
	MaxSOC              float64
	FeePerMWh           float64
	MaxCycles           float64
}

func (p BatteryParams) Validate() error {
	if !(p.EnergyCapacityMWh > 0) {
		return Invalid("energy_capacity_mwh", "must be > 0")
	}
	if !(p.PowerCapacityMW > 0) {
		return Invalid("power_capacity_mw", "must be > 0")
	}
	if !(p.RoundTripEfficiency > 0) || p.RoundTripEfficiency > 1 {
		return Invalid("round_trip_efficiency", "must be in (0, 1]")
	}
	if p.MinSOC < 0 || p.MinSOC > 1 || p.MaxSOC < 0 || p.MaxSOC > 1 || p.MinSOC > p.MaxSOC {
		return Invalid("min_soc/max_soc", "must satisfy 0<=min_soc<=max_soc<=1")
	}
	if p.FeePerMWh < 0 {
		return Invalid("fee_per_mwh", "must be >= 0")
	}
	if p.MaxCycles < 0 {
		return Invalid("max_cycles", "must be >= 0")
	}
	return nil
}

// LegEfficiency is the one-way efficiency applied on the charge leg and again on
// the discharge leg, so that a full round trip realizes RoundTripEfficiency.
func (p BatteryParams) LegEfficiency() float64 {
	return math.Sqrt(p.RoundTripEfficiency)
}

func (p BatteryParams) MinEnergyMWh() float64 { return p.MinSOC * p.EnergyCapacityMWh }
func (p BatteryParams) MaxEnergyMWh() float64 { return p.MaxSOC * p.EnergyCapacityMWh }

// BatteryState captures mutable state.
type BatteryState struct {
	// EnergyMWh is the stored energy, within [MinEnergyMWh, MaxEnergyMWh].
	EnergyMWh float64
	// Cycles counts equivalent full cycles: withdrawn stored energy / capacity.
	Cycles float64
}

// Battery is a convenience wrapper bundling params + state.
type Battery struct {
	Params BatteryParams
	State  BatteryState
}

// NewBattery validates params and starts the battery at initialSOC (fraction of capacity).
func NewBattery(params BatteryParams, initialSOC float64) (*Battery, error) {
	b := &Battery{Params: params}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := b.Reset(initialSOC); err != nil {
		return nil, err
	}
	return b, nil
}

// Reset puts the battery back to initialSOC with a zero cycle count.
func (b *Battery) Reset(initialSOC float64) error {
	if initialSOC < b.Params.MinSOC || initialSOC > b.Params.MaxSOC {
		return Invalid("initial_soc", "must be within [min_soc, max_soc]")
	}
	b.State = BatteryState{EnergyMWh: initialSOC * b.Params.EnergyCapacityMWh}
	return nil
}

// SOC returns the state of charge as a fraction of capacity.
func (b *Battery) SOC() float64 {
	return b.State.EnergyMWh / b.Params.EnergyCapacityMWh
}

// HeadroomMWh is the stored energy that can still be added before MaxSOC.
func (b *Battery) HeadroomMWh() float64 {
	return math.Max(0, b.Params.MaxEnergyMWh()-b.State.EnergyMWh)
}

// AvailableMWh is the stored energy that can still be withdrawn before MinSOC.
func (b *Battery) AvailableMWh() float64 {
	return math.Max(0, b.State.EnergyMWh-b.Params.MinEnergyMWh())
}

func (b *Battery) CanCharge() bool    { return b.HeadroomMWh() > energyEpsilonMWh }
func (b *Battery) CanDischarge() bool { return b.AvailableMWh() > energyEpsilonMWh }

// CycleLimitReached reports whether the optional cycle-life limit is exhausted.
func (b *Battery) CycleLimitReached() bool {
	return b.Params.MaxCycles > 0 && b.State.Cycles >= b.Params.MaxCycles
}

// Dispatch represents a requested power setpoint for an interval.
// Convention: positive MW = discharge to grid, negative MW = charge from grid.
type Dispatch struct {
	PowerMW float64
}

// IntervalResult captures what happened in one interval.
type IntervalResult struct {
	PowerMW           float64 // realized power (may be clipped)
	EnergyToGridMWh   float64 // discharge energy delivered to grid
	EnergyFromGridMWh float64 // charge energy pulled from grid
	ThroughputMWh     float64 // EnergyFromGridMWh + EnergyToGridMWh
	EnergyStartMWh    float64
	EnergyEndMWh      float64
	Cycles            float64 // equivalent cycles added by this interval
	PNL               float64 // EUR for this interval (incl fees)
}

// ClipDispatch enforces the power limit, without applying SOC constraints.
func (b *Battery) ClipDispatch(d Dispatch) Dispatch {
	return Dispatch{PowerMW: clipPower(d.PowerMW, b.Params.PowerCapacityMW)}
}

// ApplyDispatch applies a dispatch for a single interval, enforcing:
// - power capacity
// - SOC bounds (by clipping the requested power)
//
// price is EUR/MWh for the interval.
// durationHours is the interval length in hours.
func (b *Battery) ApplyDispatch(price float64, d Dispatch, durationHours float64) (IntervalResult, error) {
	if durationHours <= 0 {
		return IntervalResult{}, errors.New("durationHours must be > 0")
	}
	next, res := StepInterval(b.Params, b.State, d.PowerMW, price, durationHours)
	b.State = next
	return res, nil
}

// StepInterval is the pure battery physics + PnL for one interval. The battery
// model and the oracle planner both go through here so they cannot disagree.
func StepInterval(p BatteryParams, s BatteryState, powerMW, price, dtH float64) (BatteryState, IntervalResult) {
	power := clipPower(powerMW, p.PowerCapacityMW)
	eff := p.LegEfficiency()
	limitByPower := p.PowerCapacityMW * dtH

	res := IntervalResult{EnergyStartMWh: s.EnergyMWh}
	next := s

	switch {
	case power < 0:
		// Grid energy required to fill the headroom = stored / eff.
		headroom := math.Max(0, p.MaxEnergyMWh()-s.EnergyMWh)
		fromGrid := math.Min(-power*dtH, math.Min(headroom/eff, limitByPower))
		if fromGrid <= energyEpsilonMWh {
			fromGrid = 0
		}
		next.EnergyMWh = s.EnergyMWh + fromGrid*eff
		res.PowerMW = -fromGrid / dtH
		res.EnergyFromGridMWh = fromGrid
	case power > 0:
		// Grid energy deliverable from the stored energy above the floor = stored * eff.
		available := math.Max(0, s.EnergyMWh-p.MinEnergyMWh())
		toGrid := math.Min(power*dtH, math.Min(available*eff, limitByPower))
		if toGrid <= energyEpsilonMWh {
			toGrid = 0
		}
		withdrawn := toGrid / eff
		next.EnergyMWh = s.EnergyMWh - withdrawn
		next.Cycles = s.Cycles + withdrawn/p.EnergyCapacityMWh
		res.PowerMW = toGrid / dtH
		res.EnergyToGridMWh = toGrid
		res.Cycles = withdrawn / p.EnergyCapacityMWh
	}

	// Clamp numeric drift.
	next.EnergyMWh = math.Min(math.Max(next.EnergyMWh, p.MinEnergyMWh()), p.MaxEnergyMWh())

	res.ThroughputMWh = res.EnergyFromGridMWh + res.EnergyToGridMWh
	res.EnergyEndMWh = next.EnergyMWh
	res.PNL = CalculateIntervalPnL(p, price, res.EnergyFromGridMWh, res.EnergyToGridMWh)
	return next, res
}

// CalculateIntervalPnL computes interval PnL given the *grid-side* energies.
// - energyFromGridMWh: MWh purchased to charge (cost)
// - energyToGridMWh: MWh sold when discharging (revenue)
func CalculateIntervalPnL(p BatteryParams, price, energyFromGridMWh, energyToGridMWh float64) float64 {
	revenue := price * energyToGridMWh
	cost := price * energyFromGridMWh
	fees := p.FeePerMWh * (energyFromGridMWh + energyToGridMWh)
	return revenue - cost - fees
}

func clipPower(p, limit float64) float64 {
	if p > limit {
		return limit
	}
	if p < -limit {
		return -limit
	}
	return p
}

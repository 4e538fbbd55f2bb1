// Package economics turns simulated trading profit into an investment view:
// capital cost, yearly operating cost, cycle degradation and net present value.
package economics

import (
	"math"
	"time"

	"lookahead-backtest/internal/backtest"
	"lookahead-backtest/internal/model"
)

// Params holds the cost assumptions. Percentages are given in percent (0.75 = 0.75 %),
// DiscountRate is a fraction (0.05 = 5 %).
type Params struct {
	BatteryCostPerMWh     float64 `yaml:"battery_cost_per_mwh" json:"battery_cost_per_mwh"`
	InverterCostPerMW     float64 `yaml:"inverter_cost_per_mw" json:"inverter_cost_per_mw"`
	AdditionalCostsPct    float64 `yaml:"additional_costs_pct" json:"additional_costs_pct"`
	AnnualOpexPct         float64 `yaml:"annual_opex_pct" json:"annual_opex_pct"`
	InsurancePct          float64 `yaml:"insurance_pct" json:"insurance_pct"`
	MaintenanceCostPerMWh float64 `yaml:"maintenance_cost_per_mwh" json:"maintenance_cost_per_mwh"`
	InflationPct          float64 `yaml:"inflation_pct" json:"inflation_pct"`
	DiscountRate          float64 `yaml:"discount_rate" json:"discount_rate"`
	Years                 int     `yaml:"years" json:"years"`
	MaxLifetimeCycles     float64 `yaml:"max_lifetime_cycles" json:"max_lifetime_cycles"`
	MaxCycleDegradation   float64 `yaml:"max_cycle_degradation" json:"max_cycle_degradation"`
	DefaultAnnualCycles   float64 `yaml:"default_annual_cycles" json:"default_annual_cycles"`
}

// DefaultParams are 2024 cost assumptions for a German grid-scale lithium-ion system.
func DefaultParams() Params {
	return Params{
		BatteryCostPerMWh:     85000,
		InverterCostPerMW:     75000,
		AdditionalCostsPct:    67,
		AnnualOpexPct:         0.75,
		InsurancePct:          0.5,
		MaintenanceCostPerMWh: 2500,
		InflationPct:          2,
		DiscountRate:          0.05,
		Years:                 15,
		MaxLifetimeCycles:     8000,
		MaxCycleDegradation:   0.3,
		DefaultAnnualCycles:   300,
	}
}

func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"battery_cost_per_mwh", p.BatteryCostPerMWh},
		{"inverter_cost_per_mw", p.InverterCostPerMW},
		{"additional_costs_pct", p.AdditionalCostsPct},
		{"annual_opex_pct", p.AnnualOpexPct},
		{"insurance_pct", p.InsurancePct},
		{"maintenance_cost_per_mwh", p.MaintenanceCostPerMWh},
		{"default_annual_cycles", p.DefaultAnnualCycles},
	} {
		if f.v < 0 {
			return model.Invalid(f.name, "must be >= 0")
		}
	}
	if p.DiscountRate <= -1 {
		return model.Invalid("discount_rate", "must be > -1")
	}
	if p.Years <= 0 {
		return model.Invalid("years", "must be > 0")
	}
	if !(p.MaxLifetimeCycles > 0) {
		return model.Invalid("max_lifetime_cycles", "must be > 0")
	}
	if p.MaxCycleDegradation < 0 || p.MaxCycleDegradation > 1 {
		return model.Invalid("max_cycle_degradation", "must be in [0, 1]")
	}
	return nil
}

type Capex struct {
	BatteryCost     float64 `json:"battery_cost"`
	InverterCost    float64 `json:"inverter_cost"`
	BaseCapex       float64 `json:"base_capex"`
	AdditionalCosts float64 `json:"additional_costs"`
	Total           float64 `json:"total"`
}

// CalculateCapex prices storage by energy and the inverter by power.
func CalculateCapex(p Params, b model.BatteryParams) Capex {
	c := Capex{
		BatteryCost:  b.EnergyCapacityMWh * p.BatteryCostPerMWh,
		InverterCost: b.PowerCapacityMW * p.InverterCostPerMW,
	}
	c.BaseCapex = c.BatteryCost + c.InverterCost
	c.AdditionalCosts = c.BaseCapex * p.AdditionalCostsPct / 100
	c.Total = c.BaseCapex + c.AdditionalCosts
	return c
}

type Opex struct {
	Operations  float64 `json:"operations"`
	Insurance   float64 `json:"insurance"`
	Maintenance float64 `json:"maintenance"`
	Total       float64 `json:"total"`
}

// CalculateOpex returns the operating cost of year (1-based), inflated from year 1.
func CalculateOpex(p Params, b model.BatteryParams, capex Capex, year int) Opex {
	inflation := math.Pow(1+p.InflationPct/100, float64(year-1))
	o := Opex{
		Operations:  capex.Total * p.AnnualOpexPct / 100 * inflation,
		Insurance:   capex.Total * p.InsurancePct / 100 * inflation,
		Maintenance: b.EnergyCapacityMWh * p.MaintenanceCostPerMWh * inflation,
	}
	o.Total = o.Operations + o.Insurance + o.Maintenance
	return o
}

// Year is one row of the projection.
type Year struct {
	Year             int     `json:"year"`
	CapacityFactor   float64 `json:"capacity_factor"`
	CumulativeCycles float64 `json:"cumulative_cycles"`
	Revenue          float64 `json:"revenue"`
	Opex             float64 `json:"opex"`
	CashFlow         float64 `json:"cash_flow"`
	Cumulative       float64 `json:"cumulative"`
}

type Projection struct {
	Capex Capex   `json:"capex"`
	Years []Year  `json:"years"`
	NPV   float64 `json:"npv"`
	// PaybackYear is the first year the cumulative cash flow is >= 0, or 0 if never.
	PaybackYear  int     `json:"payback_year"`
	TotalRevenue float64 `json:"total_revenue"`
}

// Project builds the yearly cash flows for an annual trading profit. Revenue shrinks
// with cycle degradation, linear in cumulative cycles up to MaxCycleDegradation at
// MaxLifetimeCycles. annualCycles <= 0 falls back to DefaultAnnualCycles.
func Project(p Params, b model.BatteryParams, annualProfit, annualCycles float64) (Projection, error) {
	if err := p.Validate(); err != nil {
		return Projection{}, err
	}
	if err := b.Validate(); err != nil {
		return Projection{}, err
	}
	if annualCycles <= 0 {
		annualCycles = p.DefaultAnnualCycles
	}

	capex := CalculateCapex(p, b)
	proj := Projection{Capex: capex, Years: make([]Year, 0, p.Years)}
	proj.NPV = -capex.Total
	cumulative := -capex.Total
	cycles := 0.0

	for y := 1; y <= p.Years; y++ {
		cycles += annualCycles
		degradation := math.Min(p.MaxCycleDegradation, cycles/p.MaxLifetimeCycles*p.MaxCycleDegradation)
		factor := 1 - degradation

		revenue := annualProfit * factor
		opex := CalculateOpex(p, b, capex, y).Total
		cf := revenue - opex
		cumulative += cf

		proj.Years = append(proj.Years, Year{
			Year:             y,
			CapacityFactor:   factor,
			CumulativeCycles: cycles,
			Revenue:          revenue,
			Opex:             opex,
			CashFlow:         cf,
			Cumulative:       cumulative,
		})
		proj.TotalRevenue += revenue
		proj.NPV += cf / math.Pow(1+p.DiscountRate, float64(y))
		if proj.PaybackYear == 0 && cumulative >= 0 {
			proj.PaybackYear = y
		}
	}
	return proj, nil
}

// Annualize scales a simulation over a shorter (or longer) period to 365 days.
func Annualize(res *backtest.Result, duration time.Duration) (profit, cycles float64) {
	if res == nil || duration <= 0 {
		return 0, 0
	}
	scale := (365 * 24 * time.Hour).Hours() / duration.Hours()
	return res.TotalPNL * scale, res.Cycles * scale
}

package strategy

import (
	"fmt"
	"math"
	"time"

	"lookahead-backtest/internal/model"
)

// OracleStrategy is a (near) profit-maximizing "perfect foresight" benchmark.
// It computes a dispatch plan up-front using dynamic programming on a discretized SOC grid,
// optimizing each local calendar day independently starting from initialSOC.
//
// It reads the whole series, so it ignores the rolling window on purpose: it is an
// upper bound to compare the threshold heuristic against, never a candidate in a sweep.
type OracleStrategy struct {
	plan []model.Dispatch
}

type OracleParams struct {
	// SocSteps controls SOC discretization between [MinSOC, MaxSOC].
	// Higher = more accurate, slower.
	SocSteps int

	// PowerSteps controls action discretization between [-Pmax, +Pmax].
	// Higher = more accurate, slower.
	PowerSteps int
}

func NewOracleStrategy(series model.PriceSeries, params model.BatteryParams, initialSOC float64, cfg OracleParams) (*OracleStrategy, error) {
	if series.Len() == 0 {
		return nil, fmt.Errorf("no intervals")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if cfg.SocSteps <= 0 {
		cfg.SocSteps = 200
	}
	if cfg.PowerSteps <= 0 {
		cfg.PowerSteps = 10
	}

	plan, err := optimizeDPByDay(series, params, initialSOC, cfg.SocSteps, cfg.PowerSteps)
	if err != nil {
		return nil, err
	}
	return &OracleStrategy{plan: plan}, nil
}

func (s *OracleStrategy) Name() string { return "oracle" }

func (s *OracleStrategy) Decide(ctx Context) model.Dispatch {
	if ctx.Index < 0 || ctx.Index >= len(s.plan) {
		return model.Dispatch{}
	}
	return s.plan[ctx.Index]
}

// optimizeDPByDay groups intervals by local day and optimizes each day independently.
// Intervals are already sorted chronologically, so grouping is a single pass.
func optimizeDPByDay(series model.PriceSeries, p model.BatteryParams, initialSOC float64, socSteps int, powerSteps int) ([]model.Dispatch, error) {
	dtH := series.StepHours()
	if dtH <= 0 {
		return nil, fmt.Errorf("non-positive step %s", series.Step)
	}

	fullPlan := make([]model.Dispatch, 0, series.Len())
	dayStart := 0
	for i := 1; i <= series.Len(); i++ {
		if i < series.Len() && sameDay(series.Points[i].Start, series.Points[dayStart].Start) {
			continue
		}
		day := series.Points[dayStart:i]
		dayPlan := optimizeDP(day, p, initialSOC, dtH, socSteps, powerSteps)
		fullPlan = append(fullPlan, dayPlan...)
		dayStart = i
	}

	if len(fullPlan) != series.Len() {
		return nil, fmt.Errorf("plan length (%d) does not match intervals length (%d)", len(fullPlan), series.Len())
	}
	return fullPlan, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func optimizeDP(points []model.PricePoint, p model.BatteryParams, initialSOC, dtH float64, socSteps int, powerSteps int) []model.Dispatch {
	if socSteps < 2 {
		socSteps = 2
	}
	nStates := socSteps + 1
	span := p.MaxEnergyMWh() - p.MinEnergyMWh()

	energyToIdx := func(e float64) int {
		if span <= 0 || e <= p.MinEnergyMWh() {
			return 0
		}
		if e >= p.MaxEnergyMWh() {
			return socSteps
		}
		f := (e - p.MinEnergyMWh()) / span
		return int(math.Round(f * float64(socSteps)))
	}
	idxToEnergy := func(idx int) float64 {
		return p.MinEnergyMWh() + float64(idx)/float64(socSteps)*span
	}

	negInf := math.Inf(-1)
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	initIdx := energyToIdx(initialSOC * p.EnergyCapacityMWh)
	dp[initIdx] = 0

	// Backpointers: for each step and reached state, where we came from and with which power.
	from := make([][]int, len(points))
	power := make([][]float64, len(points))

	step := p.PowerCapacityMW / float64(powerSteps)
	actions := make([]float64, 0, 2*powerSteps+1)
	for k := -powerSteps; k <= powerSteps; k++ {
		actions = append(actions, float64(k)*step)
	}

	for t, pt := range points {
		from[t] = make([]int, nStates)
		power[t] = make([]float64, nStates)
		for i := range next {
			next[i] = negInf
			from[t][i] = -1
		}
		for sIdx := 0; sIdx < nStates; sIdx++ {
			if math.IsInf(dp[sIdx], -1) {
				continue
			}
			state := model.BatteryState{EnergyMWh: idxToEnergy(sIdx)}
			for _, a := range actions {
				ns, res := model.StepInterval(p, state, a, pt.Price, dtH)
				nIdx := energyToIdx(ns.EnergyMWh)
				v := dp[sIdx] + res.PNL
				if v > next[nIdx] {
					next[nIdx] = v
					from[t][nIdx] = sIdx
					power[t][nIdx] = res.PowerMW
				}
			}
		}
		dp, next = next, dp
	}

	best := 0
	for i, v := range dp {
		if v > dp[best] {
			best = i
		}
	}

	plan := make([]model.Dispatch, len(points))
	cur := best
	for t := len(points) - 1; t >= 0; t-- {
		prev := from[t][cur]
		if prev < 0 {
			// Unreachable in practice: idle always keeps a reached state alive.
			plan[t] = model.Dispatch{}
			continue
		}
		plan[t] = model.Dispatch{PowerMW: power[t][cur]}
		cur = prev
	}
	return plan
}

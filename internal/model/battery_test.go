package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() BatteryParams {
	return BatteryParams{
		EnergyCapacityMWh:   1,
		PowerCapacityMW:     1,
		RoundTripEfficiency: 1,
		MinSOC:              0,
		MaxSOC:              1,
	}
}

func TestBatteryParamsValidate(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(p *BatteryParams)
		field string
	}{
		{"zero capacity", func(p *BatteryParams) { p.EnergyCapacityMWh = 0 }, "energy_capacity_mwh"},
		{"negative power", func(p *BatteryParams) { p.PowerCapacityMW = -1 }, "power_capacity_mw"},
		{"zero efficiency", func(p *BatteryParams) { p.RoundTripEfficiency = 0 }, "round_trip_efficiency"},
		{"efficiency above one", func(p *BatteryParams) { p.RoundTripEfficiency = 1.01 }, "round_trip_efficiency"},
		{"soc bounds inverted", func(p *BatteryParams) { p.MinSOC = 0.8; p.MaxSOC = 0.2 }, "min_soc/max_soc"},
		{"negative fee", func(p *BatteryParams) { p.FeePerMWh = -1 }, "fee_per_mwh"},
		{"negative cycles", func(p *BatteryParams) { p.MaxCycles = -1 }, "max_cycles"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams()
			tc.edit(&p)
			err := p.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	assert.NoError(t, testParams().Validate())
}

func TestNewBatteryRejectsInitialSOCOutsideBounds(t *testing.T) {
	p := testParams()
	p.MinSOC = 0.1
	_, err := NewBattery(p, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "initial_soc", verr.Field)
}

func TestApplyDispatchClipsToPowerAndCapacity(t *testing.T) {
	b, err := NewBattery(testParams(), 0)
	require.NoError(t, err)

	// 5 MW requested for 15 minutes on a 1 MW battery.
	res, err := b.ApplyDispatch(10, Dispatch{PowerMW: -5}, 0.25)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.PowerMW, 1e-12)
	assert.InDelta(t, 0.25, res.EnergyFromGridMWh, 1e-12)
	assert.InDelta(t, 0.25, b.State.EnergyMWh, 1e-12)
	assert.InDelta(t, -2.5, res.PNL, 1e-12)

	// Charging for a full hour only fills the remaining 0.75 MWh.
	res, err = b.ApplyDispatch(10, Dispatch{PowerMW: -1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.EnergyFromGridMWh, 1e-12)
	assert.InDelta(t, 1.0, b.State.EnergyMWh, 1e-12)
	assert.False(t, b.CanCharge())

	// Full battery: nothing more is accepted.
	res, err = b.ApplyDispatch(10, Dispatch{PowerMW: -1}, 0.25)
	require.NoError(t, err)
	assert.Zero(t, res.EnergyFromGridMWh)
	assert.Equal(t, ActionIdle, ActionFromPowerMW(res.PowerMW))
}

func TestApplyDispatchSplitsEfficiency(t *testing.T) {
	p := testParams()
	p.RoundTripEfficiency = 0.81
	b, err := NewBattery(p, 0)
	require.NoError(t, err)

	res, err := b.ApplyDispatch(0, Dispatch{PowerMW: -1}, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.EnergyFromGridMWh, 1e-12)
	assert.InDelta(t, 0.45, b.State.EnergyMWh, 1e-12)

	res, err = b.ApplyDispatch(100, Dispatch{PowerMW: 1}, 1)
	require.NoError(t, err)
	// 0.45 MWh stored delivers 0.45 * 0.9 to the grid: 0.5 * 0.81 overall.
	assert.InDelta(t, 0.405, res.EnergyToGridMWh, 1e-12)
	assert.InDelta(t, 40.5, res.PNL, 1e-9)
	assert.InDelta(t, 0, b.State.EnergyMWh, 1e-12)
	assert.InDelta(t, 0.45, b.State.Cycles, 1e-12)
}

func TestApplyDispatchChargesFees(t *testing.T) {
	p := testParams()
	p.FeePerMWh = 2
	b, err := NewBattery(p, 0.5)
	require.NoError(t, err)

	res, err := b.ApplyDispatch(-20, Dispatch{PowerMW: -1}, 0.25)
	require.NoError(t, err)
	// Negative price: charging earns money, the fee still applies.
	assert.InDelta(t, 0.25*20-0.25*2, res.PNL, 1e-12)
}

func TestApplyDispatchRejectsBadDuration(t *testing.T) {
	b, err := NewBattery(testParams(), 0)
	require.NoError(t, err)
	_, err = b.ApplyDispatch(10, Dispatch{PowerMW: 1}, 0)
	assert.Error(t, err)
}

func TestCycleLimitReached(t *testing.T) {
	p := testParams()
	p.MaxCycles = 0.5
	b, err := NewBattery(p, 1)
	require.NoError(t, err)
	assert.False(t, b.CycleLimitReached())

	_, err = b.ApplyDispatch(50, Dispatch{PowerMW: 1}, 0.5)
	require.NoError(t, err)
	assert.True(t, b.CycleLimitReached())
	assert.False(t, math.IsNaN(b.SOC()))
}

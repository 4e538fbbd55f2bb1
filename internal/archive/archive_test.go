package archive

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
	"lookahead-backtest/internal/sweep"
)

func testDriver() *sweep.Driver {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return sweep.NewDriver(
		model.BatteryParams{EnergyCapacityMWh: 1, PowerCapacityMW: 0.5, RoundTripEfficiency: 0.85, MaxSOC: 1},
		0, strategy.DefaultThresholdParams(), 1, l,
	)
}

func results(profitQ1, profitQ3 float64) []sweep.DatasetResult {
	q1 := []sweep.Entry{{Horizon: 4, Profit: profitQ1 - 1, Cycles: 1}, {Horizon: 8, Profit: profitQ1, Cycles: 2}}
	q3 := []sweep.Entry{{Horizon: 4, Profit: profitQ3, Cycles: 3}, {Horizon: 8, Profit: profitQ3 - 1, Cycles: 4}}
	return []sweep.DatasetResult{
		{Dataset: "q1", Entries: q1, Best: q1[1]},
		{Dataset: "q3", Entries: q3, Best: q3[0]},
	}
}

func openTemp(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSaveAndGetRun(t *testing.T) {
	a := openTemp(t)
	d := testDriver()

	run, err := a.SaveSweep("first", d, results(10, 20))
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, res, err := a.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Label)
	assert.Equal(t, d.Battery, got.Battery)
	assert.Equal(t, d.Threshold, got.Threshold)
	assert.Equal(t, 2, got.Datasets)
	assert.Equal(t, results(10, 20), res)

	_, _, err = a.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsAndBestByDataset(t *testing.T) {
	a := openTemp(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { now = now.Add(time.Hour); return now }

	first, err := a.SaveSweep("first", testDriver(), results(10, 20))
	require.NoError(t, err)
	second, err := a.SaveSweep("second", testDriver(), results(30, 40))
	require.NoError(t, err)

	runs, err := a.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")

	runs, err = a.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	best, err := a.BestByDataset("q1")
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, first.ID, best[0].RunID)
	assert.Equal(t, 8, best[0].Horizon)
	assert.Equal(t, 30.0, best[1].Profit)

	all, err := a.BestByDataset("")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, a.DeleteRun(first.ID))
	all, err = a.BestByDataset("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.ErrorIs(t, a.DeleteRun(first.ID), ErrNotFound)
}

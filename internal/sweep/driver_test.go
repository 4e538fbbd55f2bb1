package sweep

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func dataset(name string, n int, phase float64) Dataset {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]model.PricePoint, n)
	for i := range pts {
		pts[i] = model.PricePoint{
			Start: start.Add(time.Duration(i) * model.QuarterHour),
			Price: 70 + 50*math.Sin(float64(i)/6+phase) + 10*math.Cos(float64(i)/2),
		}
	}
	return Dataset{Name: name, Series: model.NewPriceSeries(name, pts)}
}

func unitParams() model.BatteryParams {
	return model.BatteryParams{EnergyCapacityMWh: 1, PowerCapacityMW: 1, RoundTripEfficiency: 0.9, MaxSOC: 1}
}

func TestBestPrefersSmallestHorizonOnTie(t *testing.T) {
	entries := []Entry{
		{Horizon: 8, Profit: 100},
		{Horizon: 4, Profit: 100 + 1e-12},
		{Horizon: 16, Profit: 99},
	}
	assert.Equal(t, 4, Best(entries).Horizon)

	entries = append(entries, Entry{Horizon: 32, Profit: 101})
	assert.Equal(t, 32, Best(entries).Horizon)

	assert.Equal(t, Entry{}, Best(nil))
}

func TestRunSequentialMatchesParallel(t *testing.T) {
	datasets := []Dataset{dataset("q1", 600, 0), dataset("q3", 600, 1.3)}
	horizons := []int{1, 2, 4, 8, 16, 32, 64, 96}

	seq := NewDriver(unitParams(), 0, strategy.DefaultThresholdParams(), 1, quietLogger())
	par := NewDriver(unitParams(), 0, strategy.DefaultThresholdParams(), 8, quietLogger())

	a, err := seq.Run(context.Background(), datasets, horizons)
	require.NoError(t, err)
	b, err := par.Run(context.Background(), datasets, horizons)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.Len(t, a, 2)
	for _, r := range a {
		require.Len(t, r.Entries, len(horizons))
		for j, e := range r.Entries {
			assert.Equal(t, horizons[j], e.Horizon, "entries keep evaluation order")
		}
		assert.Equal(t, Best(r.Entries), r.Best)
	}
}

func TestRunValidatesUpFront(t *testing.T) {
	d := NewDriver(unitParams(), 0, strategy.DefaultThresholdParams(), 2, quietLogger())
	ds := []Dataset{dataset("short", 10, 0)}

	_, err := d.Run(context.Background(), ds, []int{4, 11})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "horizon", verr.Field)

	_, err = d.Run(context.Background(), ds, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "horizons", verr.Field)

	_, err = d.Run(context.Background(), []Dataset{dataset("q1", 10, 0), dataset("q3", 10, 1), dataset("q1", 12, 2)}, []int{1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "datasets", verr.Field)
	assert.Contains(t, verr.Reason, `"q1"`)

	d.InitialSOC = 2
	_, err = d.Run(context.Background(), ds, []int{1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "initial_soc", verr.Field)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDriver(unitParams(), 0, strategy.DefaultThresholdParams(), 1, quietLogger())
	_, err := d.Run(ctx, []Dataset{dataset("x", 50, 0)}, []int{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseHorizons(t *testing.T) {
	got, err := ParseHorizons("1-4, 24,48:96:24,2")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 24, 48, 72, 96}, got)

	for _, bad := range []string{"", "0", "5-2", "a", "1:4", "4:8:0"} {
		_, err := ParseHorizons(bad)
		var verr *model.ValidationError
		assert.ErrorAs(t, err, &verr, "input %q", bad)
	}
}

func TestParseHorizonsBoundsRangesBeforeExpanding(t *testing.T) {
	for _, bad := range []string{"1-5000000", "1:2147483647:1", "-999999999:1:1", "0-3", "99999999999"} {
		got, err := ParseHorizons(bad)
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr, "input %q", bad)
		assert.Equal(t, "horizons", verr.Field)
		assert.Nil(t, got)
	}

	got, err := ParseHorizons(fmt.Sprintf("%d:%d:96", MaxHorizon-96, MaxHorizon))
	require.NoError(t, err)
	assert.Equal(t, []int{MaxHorizon - 96, MaxHorizon}, got)
}

func TestWriteSummaryFlagsBest(t *testing.T) {
	results := []DatasetResult{{
		Dataset: "q1",
		Entries: []Entry{{Horizon: 4, Profit: 10}, {Horizon: 8, Profit: 12.5}},
		Best:    Entry{Horizon: 8, Profit: 12.5},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], ",false"))
	assert.Equal(t, "q1,8,12.50,0.0000,0.0000,0.0000,true", lines[2])
}

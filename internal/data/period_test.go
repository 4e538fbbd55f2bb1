package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookahead-backtest/internal/model"
)

func yearSeries(t *testing.T) model.PriceSeries {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, Berlin)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, Berlin)
	var pts []model.PricePoint
	for ts := start; ts.Before(end); ts = ts.Add(model.QuarterHour) {
		pts = append(pts, model.PricePoint{Start: ts, Price: float64(ts.Month())})
	}
	s := model.NewPriceSeries("2024", pts)
	require.NoError(t, s.Validate())
	return s
}

func TestSelectPeriod(t *testing.T) {
	s := yearSeries(t)

	summer, err := SelectPeriod(s, PeriodSummer)
	require.NoError(t, err)
	assert.Equal(t, "2024-summer", summer.Name)
	assert.Equal(t, time.July, summer.Start().In(Berlin).Month())
	assert.True(t, time.Date(2024, 10, 1, 0, 0, 0, 0, Berlin).Equal(summer.End()))
	assert.Equal(t, 92*96, summer.Len())
	assert.NoError(t, summer.Validate())

	q1, err := SelectPeriod(s, PeriodQ1)
	require.NoError(t, err)
	winter, err := SelectPeriod(s, PeriodWinter)
	require.NoError(t, err)
	assert.Equal(t, q1.Points, winter.Points)

	// March has 31*96-4 intervals because of the clock change.
	assert.Equal(t, (31+29+31)*96-4, q1.Len())

	full, err := SelectPeriod(s, PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, s.Len(), full.Len())
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Summer ")
	require.NoError(t, err)
	assert.Equal(t, PeriodSummer, p)

	p, err = ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodYear, p)

	_, err = ParsePeriod("spring")
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSelectPeriodOutsideSeries(t *testing.T) {
	s := yearSeries(t)
	q1, err := SelectPeriod(s, PeriodQ1)
	require.NoError(t, err)
	_, err = SelectPeriod(q1, PeriodQ4)
	assert.Error(t, err)
}

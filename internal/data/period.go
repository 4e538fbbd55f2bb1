package data

import (
	"fmt"
	"strings"
	"time"

	"lookahead-backtest/internal/model"
)

// Period selects a sub-range of a one-year series.
type Period string

const (
	PeriodYear   Period = "year"
	PeriodQ1     Period = "q1"
	PeriodQ2     Period = "q2"
	PeriodQ3     Period = "q3"
	PeriodQ4     Period = "q4"
	PeriodWinter Period = "winter" // Q1
	PeriodSummer Period = "summer" // Q3
)

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PeriodYear, nil
	}
	if _, ok := periodStartMonth(p); !ok && p != PeriodYear {
		return "", model.Invalid("period", fmt.Sprintf("unknown period %q", s))
	}
	return p, nil
}

func periodStartMonth(p Period) (time.Month, bool) {
	switch p {
	case PeriodQ1, PeriodWinter:
		return time.January, true
	case PeriodQ2:
		return time.April, true
	case PeriodQ3, PeriodSummer:
		return time.July, true
	case PeriodQ4:
		return time.October, true
	}
	return 0, false
}

// SelectPeriod cuts the quarter of the series' first (Berlin) calendar year.
// The sub-series is named "<name>-<period>".
func SelectPeriod(s model.PriceSeries, p Period) (model.PriceSeries, error) {
	if p == "" || p == PeriodYear {
		return s, nil
	}
	month, ok := periodStartMonth(p)
	if !ok {
		return model.PriceSeries{}, model.Invalid("period", fmt.Sprintf("unknown period %q", p))
	}
	year := s.Start().In(Berlin).Year()
	from := time.Date(year, month, 1, 0, 0, 0, 0, Berlin)
	to := from.AddDate(0, 3, 0)

	sub := s.Between(fmt.Sprintf("%s-%s", s.Name, p), from, to)
	if sub.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("series %q has no prices in %s %d", s.Name, p, year)
	}
	return sub, nil
}

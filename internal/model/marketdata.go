package model

import (
	"fmt"
	"time"
)

// QuarterHour is the settlement resolution of the German day-ahead auction data.
const QuarterHour = 15 * time.Minute

// PricePoint is one settlement interval. Prices are EUR/MWh and may be negative.
type PricePoint struct {
	Start time.Time `json:"timestamp"`
	Price float64   `json:"price"`
}

// PriceSeries is a strictly time-ordered, gap-free price sequence.
// Points must not be mutated once the series has been validated.
type PriceSeries struct {
	Name   string        `json:"name"`
	Step   time.Duration `json:"-"`
	Points []PricePoint  `json:"prices"`
}

// NewPriceSeries builds a quarter-hourly series from points.
func NewPriceSeries(name string, points []PricePoint) PriceSeries {
	return PriceSeries{Name: name, Step: QuarterHour, Points: points}
}

func (s PriceSeries) Len() int { return len(s.Points) }

func (s PriceSeries) StepHours() float64 { return s.Step.Hours() }

// Start returns the start of the first interval.
func (s PriceSeries) Start() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Start
}

// End returns the end of the last interval.
func (s PriceSeries) End() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Start.Add(s.Step)
}

// Validate asserts the fixed-step invariant: no gaps, no duplicates, strictly increasing.
func (s PriceSeries) Validate() error {
	if len(s.Points) == 0 {
		return fmt.Errorf("series %q: no prices", s.Name)
	}
	if s.Step <= 0 {
		return fmt.Errorf("series %q: step must be > 0", s.Name)
	}
	for i := 1; i < len(s.Points); i++ {
		prev, cur := s.Points[i-1].Start, s.Points[i].Start
		switch d := cur.Sub(prev); {
		case d == 0:
			return fmt.Errorf("series %q: duplicate timestamp %s at index %d", s.Name, cur.Format(time.RFC3339), i)
		case d < 0:
			return fmt.Errorf("series %q: timestamp %s at index %d is before %s", s.Name, cur.Format(time.RFC3339), i, prev.Format(time.RFC3339))
		case d != s.Step:
			return fmt.Errorf("series %q: gap of %s before %s at index %d", s.Name, d, cur.Format(time.RFC3339), i)
		}
	}
	return nil
}

// Between returns the sub-series with from <= Start < to. The points slice is shared.
func (s PriceSeries) Between(name string, from, to time.Time) PriceSeries {
	lo, hi := len(s.Points), len(s.Points)
	for i, p := range s.Points {
		if lo == len(s.Points) && !p.Start.Before(from) {
			lo = i
		}
		if !p.Start.Before(to) {
			hi = i
			break
		}
	}
	if lo > hi {
		lo = hi
	}
	return PriceSeries{Name: name, Step: s.Step, Points: s.Points[lo:hi]}
}

// Prices returns the raw price values.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

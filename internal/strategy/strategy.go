package strategy

import "lookahead-backtest/internal/model"

// Context is everything a strategy may look at when deciding step Index.
// Window holds the prices visible at that step: the current interval first,
// followed by at most horizon-1 future intervals. Nothing beyond it is reachable.
type Context struct {
	Index   int
	Point   model.PricePoint
	Window  []model.PricePoint
	Final   bool // last interval of the series
	StepH   float64
	Battery *model.Battery
}

type Strategy interface {
	Name() string
	Decide(ctx Context) model.Dispatch
}

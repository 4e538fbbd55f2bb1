package backtest

import (
	"time"

	"lookahead-backtest/internal/model"
)

// Trade is a run of consecutive intervals with the same non-idle action.
type Trade struct {
	Action    model.Action
	Start     time.Time
	End       time.Time
	Intervals int
	EnergyMWh float64 // grid side
	AvgPrice  float64 // energy weighted
	CashFlow  float64
}

// Trades collapses the ledger into charge and discharge blocks. Idle rows end a block.
func Trades(ledger []LedgerRow) []Trade {
	var out []Trade
	var cur *Trade
	var priceEnergy float64

	closeTrade := func() {
		if cur == nil {
			return
		}
		if cur.EnergyMWh > 0 {
			cur.AvgPrice = priceEnergy / cur.EnergyMWh
		}
		out = append(out, *cur)
		cur = nil
		priceEnergy = 0
	}

	for _, r := range ledger {
		if r.Action == model.ActionIdle {
			closeTrade()
			continue
		}
		if cur != nil && cur.Action != r.Action {
			closeTrade()
		}
		if cur == nil {
			cur = &Trade{Action: r.Action, Start: r.IntervalStart}
		}
		energy := r.EnergyFromGridMWh + r.EnergyToGridMWh
		cur.End = r.IntervalEnd
		cur.Intervals++
		cur.EnergyMWh += energy
		cur.CashFlow += r.PNL
		priceEnergy += r.Price * energy
	}
	closeTrade()
	return out
}

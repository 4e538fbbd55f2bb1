package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var ledgerHeader = []string{
	"index",
	"interval_start",
	"interval_end",
	"price",
	"action",
	"requested_power_mw",
	"power_mw",
	"energy_from_grid_mwh",
	"energy_to_grid_mwh",
	"throughput_mwh",
	"energy_start_mwh",
	"energy_end_mwh",
	"soc_start",
	"soc_end",
	"cycles",
	"pnl",
	"cum_pnl",
}

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteLedger(f, ledger)
}

// WriteLedger writes the ledger as CSV to w.
func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(ledgerHeader); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.IntervalStart),
			fmtTime(r.IntervalEnd),
			fmtFloat(r.Price),
			string(r.Action),
			fmtFloat(r.RequestedPowerMW),
			fmtFloat(r.PowerMW),
			fmtFloat(r.EnergyFromGridMWh),
			fmtFloat(r.EnergyToGridMWh),
			fmtFloat(r.ThroughputMWh),
			fmtFloat(r.EnergyStartMWh),
			fmtFloat(r.EnergyEndMWh),
			fmtFloat(r.SOCStart),
			fmtFloat(r.SOCEnd),
			fmtFloat(r.Cycles),
			fmtFloat(r.PNL),
			fmtFloat(r.CumPNL),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteTradesCSV writes one row per trade.
func WriteTradesCSV(path string, trades []Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"start", "end", "action", "intervals", "energy_mwh", "avg_price", "cash_flow"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			fmtTime(t.Start),
			fmtTime(t.End),
			string(t.Action),
			strconv.Itoa(t.Intervals),
			fmtFloat(t.EnergyMWh),
			fmtFloat(t.AvgPrice),
			fmtFloat(t.CashFlow),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

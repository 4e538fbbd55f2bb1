package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"lookahead-backtest/internal/backtest"
	"lookahead-backtest/internal/config"
	"lookahead-backtest/internal/data"
	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
)

// Demo:
// - Build the four-interval price pulse [10, 50, 10, 50] (or load a price file)
// - Instantiate a 1 MWh / 1 MW lossless battery
// - Run the threshold strategy with a short lookahead and print every ledger row
func main() {
	dataPath := flag.String("data", "", "Optional price file (SMARD CSV or JSON) instead of the synthetic pulse")
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	horizon := flag.Int("horizon", 2, "Lookahead horizon in intervals")
	n := flag.Int("n", 12, "Number of ledger rows to print")
	outCSV := flag.String("out", "", "Optional path to write ledger CSV (e.g. out/ledger.csv)")
	flag.Parse()

	series := pulse()
	if *dataPath != "" {
		s, err := data.LoadSeries(*dataPath)
		if err != nil {
			panic(err)
		}
		series = s
	}

	// Defaults (can be overridden via --config).
	params := model.BatteryParams{
		EnergyCapacityMWh:   1,
		PowerCapacityMW:     1,
		RoundTripEfficiency: 1,
		MinSOC:              0,
		MaxSOC:              1,
	}
	initialSOC := 0.0
	th := strategy.DefaultThresholdParams()

	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		params = cfg.Battery.ToModelParams()
		initialSOC = cfg.Battery.InitialSOC
		if th, err = cfg.ThresholdParams(); err != nil {
			panic(err)
		}
	}

	h := *horizon
	if h > series.Len() {
		h = series.Len()
	}
	result, err := backtest.Simulate(series, params, initialSOC, th, h)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Loaded %d intervals of %s\n", series.Len(), series.Name)
	fmt.Printf("Strategy=%s Horizon=%d\n", result.Strategy, result.Horizon)
	fmt.Printf("Starting SOC=%.3f\n\n", result.Ledger[0].SOCStart)

	for i := 0; i < min(*n, len(result.Ledger)); i++ {
		r := result.Ledger[i]
		fmt.Printf(
			"%s price=%8.2f  action=%-11s  req=%6.2f  p=%6.2f  soc=%.3f->%.3f  pnl=%8.2f  cum=%8.2f\n",
			r.IntervalStart.In(data.Berlin).Format("2006-01-02 15:04"),
			r.Price,
			string(r.Action),
			r.RequestedPowerMW,
			r.PowerMW,
			r.SOCStart,
			r.SOCEnd,
			r.PNL,
			r.CumPNL,
		)
	}

	if *outCSV != "" {
		if err := backtest.WriteLedgerCSV(*outCSV, result.Ledger); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nDone. Final SOC=%.3f  Cycles=%.3f  Total PnL=%.2f EUR\n", result.FinalSOC, result.Cycles, result.TotalPNL)
}

// pulse is the four-interval example: cheap, dear, cheap, dear.
func pulse() model.PriceSeries {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, data.Berlin)
	prices := []float64{10, 50, 10, 50}
	pts := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = model.PricePoint{Start: start.Add(time.Duration(i) * model.QuarterHour), Price: p}
	}
	return model.NewPriceSeries("pulse", pts)
}

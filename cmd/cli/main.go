package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"lookahead-backtest/internal/analysis"
	"lookahead-backtest/internal/archive"
	"lookahead-backtest/internal/backtest"
	"lookahead-backtest/internal/config"
	"lookahead-backtest/internal/data"
	"lookahead-backtest/internal/economics"
	"lookahead-backtest/internal/logging"
	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/sweep"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "simulate":
		err = cmdSimulate(os.Args[2:])
	case "sweep":
		err = cmdSweep(os.Args[2:])
	case "rank":
		err = cmdRank(os.Args[2:])
	case "runs":
		err = cmdRuns(os.Args[2:])
	case "scan":
		err = cmdScan(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli simulate --config configs/example.yaml [--data prices.csv] [--horizon 6] --out out/ledger.csv")
	fmt.Println("  cli sweep --config configs/example.yaml [--horizons 1-96] [--out out/summary.csv]")
	fmt.Println("  cli rank --data data/ [--period q3]")
	fmt.Println("  cli runs [--db out/runs.db] [--dataset de-2024-summer] [--show <id>] [--delete <id>]")
	fmt.Println("  cli scan --dir data/ [--catalog data/datasets.json]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - simulate writes one ledger row per interval with action=CHARGING/IDLE/DISCHARGING")
	fmt.Println("  - sweep runs the threshold strategy for every horizon on every dataset and reports the best")
	fmt.Println("  - rank computes an 'arbitrage potential' oracle score per dataset")
}

// loadConfig loads the config and builds the logger it asks for.
func loadConfig(path string) (*config.Config, *logrus.Logger, func() error, error) {
	if path == "" {
		return nil, nil, nil, errors.New("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, closeLog, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logging: %w", err)
	}
	return cfg, logger, closeLog, nil
}

func defaultLogger() (*logrus.Logger, error) {
	logger, _, err := logging.New("info", "")
	return logger, err
}

// loadDatasets reads the config datasets, or the --data paths when given.
func loadDatasets(cfg *config.Config, dataPaths, period string, logger *logrus.Logger) ([]sweep.Dataset, error) {
	dcs := cfg.Datasets
	if dataPaths != "" {
		dcs = nil
		paths, err := expandPaths(dataPaths)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			dcs = append(dcs, config.DatasetConfig{Path: p})
		}
	}
	if len(dcs) == 0 {
		return nil, model.Invalid("datasets", "no datasets in config and no --data given")
	}

	out := make([]sweep.Dataset, 0, len(dcs))
	for _, dc := range dcs {
		p := dc.Period
		if period != "" {
			p = period
		}
		s, err := loadSeries(dc.Path, dc.Name, p)
		if err != nil {
			return nil, err
		}
		data.LogSummary(logger, s)
		out = append(out, sweep.Dataset{Name: s.Name, Series: s})
	}
	return out, nil
}

// loadSeries loads path and cuts the period. A set name replaces the series name.
func loadSeries(path, name, period string) (model.PriceSeries, error) {
	p, err := data.ParsePeriod(period)
	if err != nil {
		return model.PriceSeries{}, err
	}
	s, err := data.LoadSeries(path)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("load %s: %w", path, err)
	}
	s, err = data.SelectPeriod(s, p)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if name != "" {
		s.Name = name
	}
	return s, nil
}

func cmdSimulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	dataPath := fs.String("data", "", "Price file (SMARD CSV or JSON); default: first dataset in the config")
	period := fs.String("period", "", "Period: year, q1..q4, winter, summer")
	horizon := fs.Int("horizon", 0, "Lookahead horizon in intervals (default: config value)")
	strategyName := fs.String("strategy", "", "threshold or oracle (default: config value)")
	outPath := fs.String("out", "", "Optional ledger CSV path")
	tradesPath := fs.String("trades", "", "Optional trades CSV path")
	n := fs.Int("n", 0, "Optional: limit to first N intervals (0=all)")
	withEconomics := fs.Bool("economics", false, "Project the annualised profit over the battery lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, closeLog, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closeLog()

	// An explicit --horizon 0 is passed through and rejected by the simulator.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "horizon" {
			cfg.Strategy.Horizon = config.IntPtr(*horizon)
		}
	})
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}

	datasets, err := loadDatasets(cfg, *dataPath, *period, logger)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	series := datasets[0].Series
	if *n > 0 && *n < series.Len() {
		series.Points = series.Points[:*n]
	}

	res, err := cfg.Simulate(series)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			return err
		}
		if err := backtest.WriteLedgerCSV(*outPath, res.Ledger); err != nil {
			return fmt.Errorf("write ledger: %w", err)
		}
		logger.Infof("Wrote %d rows to %s", len(res.Ledger), *outPath)
	}
	trades := backtest.Trades(res.Ledger)
	if *tradesPath != "" {
		if err := os.MkdirAll(filepath.Dir(*tradesPath), 0o755); err != nil {
			return err
		}
		if err := backtest.WriteTradesCSV(*tradesPath, trades); err != nil {
			return fmt.Errorf("write trades: %w", err)
		}
		logger.Infof("Wrote %d trades to %s", len(trades), *tradesPath)
	}

	fmt.Printf("Dataset=%s Strategy=%s Horizon=%d Intervals=%d\n", series.Name, res.Strategy, res.Horizon, len(res.Ledger))
	fmt.Printf("Total PnL=%.2f EUR Cycles=%.3f Trades=%d Final SOC=%.3f\n", res.TotalPNL, res.Cycles, len(trades), res.FinalSOC)
	fmt.Printf("Charged=%.3f MWh Discharged=%.3f MWh\n", res.EnergyChargedMWh, res.EnergyDischargedMWh)

	if *withEconomics {
		profit, cycles := economics.Annualize(res, series.End().Sub(series.Start()))
		proj, err := economics.Project(*cfg.Economics, cfg.Battery.ToModelParams(), profit, cycles)
		if err != nil {
			return fmt.Errorf("economics: %w", err)
		}
		printProjection(profit, cycles, proj)
	}
	return nil
}

func printProjection(profit, cycles float64, proj economics.Projection) {
	fmt.Printf("\nAnnualised profit=%.2f EUR at %.1f cycles/year\n", profit, cycles)
	fmt.Printf("Capex=%.2f EUR NPV=%.2f EUR", proj.Capex.Total, proj.NPV)
	if proj.PaybackYear > 0 {
		fmt.Printf(" Payback=year %d\n", proj.PaybackYear)
	} else {
		fmt.Printf(" Payback=never\n")
	}
	fmt.Printf("%-5s %-8s %-12s %-12s %-12s %-14s\n", "year", "factor", "revenue", "opex", "cash flow", "cumulative")
	for _, y := range proj.Years {
		fmt.Printf("%-5d %-8.3f %-12.2f %-12.2f %-12.2f %-14.2f\n", y.Year, y.CapacityFactor, y.Revenue, y.Opex, y.CashFlow, y.Cumulative)
	}
}

func cmdSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	dataPaths := fs.String("data", "", "Comma-separated price files or directories (default: config datasets)")
	period := fs.String("period", "", "Period applied to every dataset (default: per dataset)")
	horizons := fs.String("horizons", "", "Horizons, e.g. 1-12,16:96:8 (default: config value)")
	concurrency := fs.Int("concurrency", 0, "Parallel runs (0 = config value)")
	outPath := fs.String("out", "", "Summary CSV path (default: config value)")
	label := fs.String("label", "", "Label for the archived run")
	noArchive := fs.Bool("no-archive", false, "Do not store the run in the archive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, closeLog, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closeLog()

	horizonList := cfg.Sweep.Horizons
	if *horizons != "" {
		horizonList = *horizons
	}
	hs, err := sweep.ParseHorizons(horizonList)
	if err != nil {
		return err
	}
	if *concurrency > 0 {
		cfg.Sweep.Concurrency = *concurrency
	}
	if *outPath != "" {
		cfg.Sweep.SummaryFile = *outPath
	}
	th, err := cfg.ThresholdParams()
	if err != nil {
		return err
	}

	datasets, err := loadDatasets(cfg, *dataPaths, *period, logger)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver := sweep.NewDriver(cfg.Battery.ToModelParams(), cfg.Battery.InitialSOC, th, cfg.Sweep.Concurrency, logger)
	results, err := driver.Run(ctx, datasets, hs)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("%-24s %-8s %-12s %-8s\n", "dataset", "best h", "profit", "cycles")
	for _, r := range results {
		fmt.Printf("%-24s %-8d %-12.2f %-8.3f\n", r.Dataset, r.Best.Horizon, r.Best.Profit, r.Best.Cycles)
	}

	if cfg.Sweep.SummaryFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Sweep.SummaryFile), 0o755); err != nil {
			return err
		}
		if err := sweep.WriteSummaryCSV(cfg.Sweep.SummaryFile, results); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		logger.Infof("Wrote summary to %s", cfg.Sweep.SummaryFile)
	}

	if cfg.Archive.Enabled && !*noArchive {
		a, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer a.Close()
		run, err := a.SaveSweep(*label, driver, results)
		if err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
		logger.WithField("run_id", run.ID).Info("Archived sweep")
	}
	return nil
}

func cmdRank(args []string) error {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	dataPaths := fs.String("data", "data", "Comma-separated price files or directories")
	period := fs.String("period", "", "Period: year, q1..q4, winter, summer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	paths, err := expandPaths(*dataPaths)
	if err != nil {
		return err
	}

	series := make([]model.PriceSeries, 0, len(paths))
	for _, p := range paths {
		s, err := loadSeries(p, "", *period)
		if err != nil {
			return err
		}
		series = append(series, s)
	}

	ranked := analysis.RankByOracleProfit(series)
	fmt.Printf("%-4s %-24s %-8s %-10s %-10s %-14s %-6s %-12s\n", "rank", "dataset", "count", "p95-p05", "daily", "min/max", "neg", "oracle EUR")
	for _, r := range ranked {
		fmt.Printf(
			"%-4d %-24s %-8d %-10.2f %-10.2f %-6.1f/%-7.1f %-6d %-12.2f\n",
			r.Rank,
			r.Dataset,
			r.Count,
			r.SpreadP95P05,
			r.MeanDailySpread,
			r.MinPrice,
			r.MaxPrice,
			r.NegativeCount,
			r.OracleProfit,
		)
	}
	return nil
}

func cmdRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Archive database (default: $TMPDIR/lookahead-backtest/runs.db)")
	dataset := fs.String("dataset", "", "Show the best horizon of every run for this dataset")
	show := fs.String("show", "", "Print the summary CSV of one run")
	del := fs.String("delete", "", "Delete one run")
	limit := fs.Int("limit", 20, "Number of runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := archive.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer a.Close()

	switch {
	case *del != "":
		if err := a.DeleteRun(*del); err != nil {
			return err
		}
		fmt.Printf("Deleted run %s\n", *del)
	case *show != "":
		run, results, err := a.GetRun(*show)
		if err != nil {
			return err
		}
		fmt.Printf("# run %s %q %s\n", run.ID, run.Label, run.CreatedAt.Format("2006-01-02 15:04:05"))
		if err := sweep.WriteSummary(os.Stdout, results); err != nil {
			return err
		}
	case *dataset != "":
		rows, err := a.BestByDataset(*dataset)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s %-20s %-20s %-8s %-12s\n", "run", "label", "created", "horizon", "profit")
		for _, r := range rows {
			fmt.Printf("%-36s %-20s %-20s %-8d %-12.2f\n", r.RunID, r.Label, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Horizon, r.Profit)
		}
	default:
		runs, err := a.ListRuns(*limit)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s %-20s %-20s %-8s %-10s\n", "run", "label", "created", "datasets", "capacity")
		for _, r := range runs {
			fmt.Printf("%-36s %-20s %-20s %-8d %-10.2f\n", r.ID, r.Label, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Datasets, r.Battery.EnergyCapacityMWh)
		}
	}
	return nil
}

func cmdScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	dir := fs.String("dir", "data", "Directory with price files")
	catalogPath := fs.String("catalog", "", "Catalog to write (default: $DATASETS_FILE or ./data/datasets.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := defaultLogger()
	if err != nil {
		return err
	}
	if *catalogPath == "" {
		*catalogPath = data.GetDefaultCatalogPath()
	}
	cat, err := data.ScanDatasets(*dir)
	if err != nil {
		if cat == nil {
			return err
		}
		logger.Warn(err)
	}
	if err := data.SaveCatalog(cat, *catalogPath); err != nil {
		return err
	}
	for _, d := range cat.Datasets {
		logger.WithFields(logrus.Fields{"intervals": d.Intervals, "path": d.Path}).Infof("Dataset %s", d.Name)
	}
	logger.Infof("Wrote %d datasets to %s", len(cat.Datasets), *catalogPath)
	return nil
}

// expandPaths splits a comma-separated list; directories expand to their .csv and .json files.
func expandPaths(s string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".csv" && ext != ".json") || e.Name() == filepath.Base(data.GetDefaultCatalogPath()) {
				continue
			}
			out = append(out, filepath.Join(p, e.Name()))
		}
	}
	return out, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"lookahead-backtest/internal/data"
	"lookahead-backtest/internal/logging"
	"lookahead-backtest/internal/model"
)

func main() {
	var (
		from        = flag.String("from", "", "First day to fetch (YYYY-MM-DD, Berlin time)")
		to          = flag.String("to", "", "Day after the last day to fetch (YYYY-MM-DD), default: from + 1 year")
		outputPath  = flag.String("output", "", "Output SMARD CSV (default: ./data/smard_de_<from>_<to>.csv)")
		name        = flag.String("name", "", "Dataset name in the catalog (default: output file name)")
		catalogPath = flag.String("catalog", "", "Dataset catalog to update (default: $DATASETS_FILE or ./data/datasets.json)")
		baseURL     = flag.String("base-url", "", "SMARD base URL (default: https://www.smard.de/app)")
		resolution  = flag.String("resolution", data.SMARDQuarterHour, "quarterhour or hour")
		logLevel    = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	logger, closeLog, err := logging.New(*logLevel, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeLog()

	if *from == "" {
		logger.Fatal("--from is required")
	}
	start, err := time.ParseInLocation("2006-01-02", *from, data.Berlin)
	if err != nil {
		logger.Fatalf("--from must be YYYY-MM-DD: %v", err)
	}
	end := start.AddDate(1, 0, 0)
	if *to != "" {
		if end, err = time.ParseInLocation("2006-01-02", *to, data.Berlin); err != nil {
			logger.Fatalf("--to must be YYYY-MM-DD: %v", err)
		}
	}
	if !end.After(start) {
		logger.Fatal("--to must be after --from")
	}

	if *outputPath == "" {
		*outputPath = filepath.Join("data", fmt.Sprintf("smard_de_%s_%s.csv", start.Format("20060102"), end.Format("20060102")))
	}
	if *catalogPath == "" {
		*catalogPath = data.GetDefaultCatalogPath()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := data.NewSMARDClient(*baseURL, logger)
	client.Resolution = *resolution

	logger.Infof("Fetching SMARD day-ahead prices from %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	series, err := client.FetchRange(ctx, start, end)
	if err != nil {
		var apiErr *data.APIError
		if errors.As(err, &apiErr) {
			logger.Fatalf("SMARD API error (status %d, %s): %s", apiErr.StatusCode, apiErr.Code, apiErr.Message)
		}
		logger.Fatalf("Failed to fetch prices: %v", err)
	}
	if *name != "" {
		series.Name = *name
	} else {
		base := filepath.Base(*outputPath)
		series.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	data.LogSummary(logger, series)

	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}
	if err := data.WriteSMARDCSV(*outputPath, series); err != nil {
		logger.Fatalf("Failed to write prices: %v", err)
	}
	logger.Infof("Wrote %d intervals to %s", series.Len(), *outputPath)

	if err := updateCatalog(*catalogPath, *outputPath, series); err != nil {
		logger.Fatalf("Failed to update catalog: %v", err)
	}
	logger.Infof("Updated catalog %s", *catalogPath)
}

// updateCatalog adds or replaces the dataset entry for path. A missing catalog is created.
func updateCatalog(catalogPath, path string, series model.PriceSeries) error {
	cat, err := data.LoadCatalog(catalogPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cat = &data.Catalog{}
	}
	cat.Upsert(data.DatasetInfo{
		Name:      series.Name,
		Path:      path,
		Start:     series.Start(),
		End:       series.End(),
		Intervals: series.Len(),
	})
	cat.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return data.SaveCatalog(cat, catalogPath)
}

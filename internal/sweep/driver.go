package sweep

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"lookahead-backtest/internal/backtest"
	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
)

// profitTieTolerance is the relative profit difference under which two horizons count as tied.
const profitTieTolerance = 1e-9

type Dataset struct {
	Name   string
	Series model.PriceSeries
}

// Entry is the outcome of one (dataset, horizon) run.
type Entry struct {
	Horizon             int
	Profit              float64
	Cycles              float64
	EnergyChargedMWh    float64
	EnergyDischargedMWh float64
}

// DatasetResult keeps entries in the order the horizons were given.
type DatasetResult struct {
	Dataset string
	Entries []Entry
	Best    Entry
}

// Driver runs the threshold simulation for every horizon on every dataset.
type Driver struct {
	Battery    model.BatteryParams
	InitialSOC float64
	Threshold  strategy.ThresholdParams

	// Concurrency bounds the number of simultaneous runs. <= 1 runs sequentially.
	Concurrency int

	logger *logrus.Logger
}

func NewDriver(battery model.BatteryParams, initialSOC float64, threshold strategy.ThresholdParams, concurrency int, logger *logrus.Logger) *Driver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Driver{
		Battery:     battery,
		InitialSOC:  initialSOC,
		Threshold:   threshold,
		Concurrency: concurrency,
		logger:      logger,
	}
}

// Validate rejects the whole sweep before any run starts.
func (d *Driver) Validate(datasets []Dataset, horizons []int) error {
	if err := d.Battery.Validate(); err != nil {
		return err
	}
	if d.InitialSOC < d.Battery.MinSOC || d.InitialSOC > d.Battery.MaxSOC {
		return model.Invalid("initial_soc", "must be within [min_soc, max_soc]")
	}
	if err := d.Threshold.Validate(); err != nil {
		return err
	}
	if len(datasets) == 0 {
		return model.Invalid("datasets", "at least one dataset is required")
	}
	if len(horizons) == 0 {
		return model.Invalid("horizons", "at least one horizon is required")
	}
	// Names key the archive rows and the summary, so they must be unique.
	names := make(map[string]bool, len(datasets))
	for _, ds := range datasets {
		if names[ds.Name] {
			return model.Invalid("datasets", fmt.Sprintf("duplicate dataset name %q", ds.Name))
		}
		names[ds.Name] = true
		if err := ds.Series.Validate(); err != nil {
			return fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		for _, h := range horizons {
			if h <= 0 || h > ds.Series.Len() {
				return model.Invalid("horizon", fmt.Sprintf("%d out of range [1, %d] for dataset %s", h, ds.Series.Len(), ds.Name))
			}
		}
	}
	return nil
}

// Run evaluates every (dataset, horizon) pair. Each run starts from a fresh battery,
// and results land in pre-indexed slots, so the output does not depend on Concurrency.
func (d *Driver) Run(ctx context.Context, datasets []Dataset, horizons []int) ([]DatasetResult, error) {
	if err := d.Validate(datasets, horizons); err != nil {
		return nil, err
	}

	results := make([]DatasetResult, len(datasets))
	for i, ds := range datasets {
		results[i] = DatasetResult{Dataset: ds.Name, Entries: make([]Entry, len(horizons))}
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := d.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range datasets {
		for j := range horizons {
			i, j := i, j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				entry, err := d.runOne(datasets[i], horizons[j])
				if err != nil {
					return err
				}
				results[i].Entries[j] = entry
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range results {
		results[i].Best = Best(results[i].Entries)
		d.logger.WithFields(logrus.Fields{
			"dataset": results[i].Dataset,
			"horizon": results[i].Best.Horizon,
			"profit":  fmt.Sprintf("%.2f", results[i].Best.Profit),
			"cycles":  fmt.Sprintf("%.2f", results[i].Best.Cycles),
		}).Info("Best horizon")
	}
	return results, nil
}

func (d *Driver) runOne(ds Dataset, horizon int) (Entry, error) {
	res, err := backtest.Simulate(ds.Series, d.Battery, d.InitialSOC, d.Threshold, horizon)
	if err != nil {
		return Entry{}, fmt.Errorf("dataset %s horizon %d: %w", ds.Name, horizon, err)
	}
	d.logger.Debugf("%s: horizon=%d profit=%.2f cycles=%.2f", ds.Name, horizon, res.TotalPNL, res.Cycles)
	return Entry{
		Horizon:             horizon,
		Profit:              res.TotalPNL,
		Cycles:              res.Cycles,
		EnergyChargedMWh:    res.EnergyChargedMWh,
		EnergyDischargedMWh: res.EnergyDischargedMWh,
	}, nil
}

// Best returns the most profitable entry. Profits within profitTieTolerance
// (relative) are ties and go to the smallest horizon.
func Best(entries []Entry) Entry {
	if len(entries) == 0 {
		return Entry{}
	}
	best := entries[0]
	for _, e := range entries[1:] {
		switch {
		case tied(e.Profit, best.Profit):
			if e.Horizon < best.Horizon {
				best = e
			}
		case e.Profit > best.Profit:
			best = e
		}
	}
	return best
}

func tied(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= profitTieTolerance*scale
}

package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lookahead-backtest/internal/api/models"
	"lookahead-backtest/internal/archive"
	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/sweep"
)

// SweepHandler runs horizon grid searches
type SweepHandler struct {
	store     *DatasetStore
	batteries *BatteryHandler
	archive   *archive.Archive // nil when archiving is off
	logger    *logrus.Logger
}

// NewSweepHandler creates a new sweep handler. arch may be nil.
func NewSweepHandler(store *DatasetStore, batteries *BatteryHandler, arch *archive.Archive, logger *logrus.Logger) *SweepHandler {
	return &SweepHandler{store: store, batteries: batteries, archive: arch, logger: logger}
}

// RunSweep handles POST /api/v1/sweep
func (h *SweepHandler) RunSweep(c *gin.Context) {
	var req models.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}
	if req.Archive && h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "ARCHIVE_DISABLED",
				Message: "the run archive is not enabled on this server",
			},
		})
		return
	}

	horizons, err := sweep.ParseHorizons(req.Horizons)
	if err != nil {
		writeError(c, err, "INVALID_CONFIG")
		return
	}

	cfg, err := buildConfig(h.batteries, req.Config)
	if err != nil {
		writeError(c, err, "INVALID_CONFIG")
		return
	}
	if cfg.Strategy.Name != "threshold" {
		writeError(c, model.Invalid("strategy.name", "only the threshold strategy has a horizon to sweep"), "INVALID_CONFIG")
		return
	}
	th, err := cfg.ThresholdParams()
	if err != nil {
		writeError(c, err, "INVALID_CONFIG")
		return
	}

	datasets := make([]sweep.Dataset, 0, len(req.DataSources))
	for _, src := range req.DataSources {
		series, err := h.store.Resolve(src)
		if err != nil {
			writeError(c, err, "DATA_LOAD_ERROR")
			return
		}
		datasets = append(datasets, sweep.Dataset{Name: series.Name, Series: series})
	}

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Sweep.Concurrency
	}
	if limit := runtime.GOMAXPROCS(0); concurrency > limit {
		concurrency = limit
	}

	driver := sweep.NewDriver(cfg.Battery.ToModelParams(), cfg.Battery.InitialSOC, th, concurrency, h.logger)
	results, err := driver.Run(c.Request.Context(), datasets, horizons)
	if err != nil {
		writeError(c, err, "SWEEP_ERROR")
		return
	}

	resp := models.SweepResponse{Results: convertSweep(results)}
	if req.Archive {
		run, err := h.archive.SaveSweep(req.Label, driver, results)
		if err != nil {
			writeError(c, err, "ARCHIVE_ERROR")
			return
		}
		resp.RunID = run.ID
	}
	c.JSON(http.StatusOK, resp)
}

func convertSweep(results []sweep.DatasetResult) []models.DatasetSweep {
	out := make([]models.DatasetSweep, len(results))
	for i, r := range results {
		entries := make([]models.HorizonEntry, len(r.Entries))
		for j, e := range r.Entries {
			entries[j] = convertEntry(e)
		}
		out[i] = models.DatasetSweep{Dataset: r.Dataset, Best: convertEntry(r.Best), Entries: entries}
	}
	return out
}

func convertEntry(e sweep.Entry) models.HorizonEntry {
	return models.HorizonEntry{
		Horizon:             e.Horizon,
		Profit:              e.Profit,
		Cycles:              e.Cycles,
		EnergyChargedMWh:    e.EnergyChargedMWh,
		EnergyDischargedMWh: e.EnergyDischargedMWh,
	}
}

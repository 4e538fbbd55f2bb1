package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lookahead-backtest/internal/api/models"
	"lookahead-backtest/internal/backtest"
	"lookahead-backtest/internal/config"
	"lookahead-backtest/internal/economics"
	"lookahead-backtest/internal/model"
)

// SimulateHandler runs single simulations
type SimulateHandler struct {
	store     *DatasetStore
	batteries *BatteryHandler
	logger    *logrus.Logger
}

// NewSimulateHandler creates a new simulate handler
func NewSimulateHandler(store *DatasetStore, batteries *BatteryHandler, logger *logrus.Logger) *SimulateHandler {
	return &SimulateHandler{store: store, batteries: batteries, logger: logger}
}

// RunSimulation handles POST /api/v1/simulate
func (h *SimulateHandler) RunSimulation(c *gin.Context) {
	var req models.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	series, err := h.store.Resolve(req.DataSource)
	if err != nil {
		writeError(c, err, "DATA_LOAD_ERROR")
		return
	}

	// Apply interval limit if specified
	if req.Options.LimitIntervals > 0 && req.Options.LimitIntervals < series.Len() {
		series.Points = series.Points[:req.Options.LimitIntervals]
	}

	cfg, err := buildConfig(h.batteries, req.Config)
	if err != nil {
		writeError(c, err, "INVALID_CONFIG")
		return
	}

	result, err := cfg.Simulate(series)
	if err != nil {
		writeError(c, err, "SIMULATION_ERROR")
		return
	}

	trades := backtest.Trades(result.Ledger)
	resp := models.SimulateResponse{
		ID:     uuid.NewString(),
		Status: "completed",
		Summary: models.SimulateSummary{
			Dataset:             series.Name,
			Strategy:            result.Strategy,
			Horizon:             result.Horizon,
			TotalPNL:            result.TotalPNL,
			Cycles:              result.Cycles,
			FinalSOC:            result.FinalSOC,
			TotalIntervals:      len(result.Ledger),
			Window:              models.TimeWindow{Start: series.Start(), End: series.End()},
			EnergyChargedMWh:    result.EnergyChargedMWh,
			EnergyDischargedMWh: result.EnergyDischargedMWh,
			TradeCount:          len(trades),
		},
	}
	if req.Options.IncludeLedger {
		resp.Ledger = convertLedger(result.Ledger)
	}
	if req.Options.IncludeTrades {
		resp.Trades = convertTrades(trades)
	}
	if req.Options.Economics {
		profit, cycles := economics.Annualize(result, series.End().Sub(series.Start()))
		proj, err := economics.Project(*cfg.Economics, cfg.Battery.ToModelParams(), profit, cycles)
		if err != nil {
			writeError(c, err, "ECONOMICS_ERROR")
			return
		}
		resp.Economics = &models.EconomicsSummary{
			AnnualProfit: profit,
			AnnualCycles: cycles,
			Capex:        proj.Capex.Total,
			NPV:          proj.NPV,
			PaybackYear:  proj.PaybackYear,
			TotalRevenue: proj.TotalRevenue,
		}
	}

	h.logger.WithFields(logrus.Fields{
		"id":       resp.ID,
		"dataset":  series.Name,
		"strategy": result.Strategy,
		"horizon":  result.Horizon,
		"profit":   result.TotalPNL,
	}).Info("simulation finished")

	c.JSON(http.StatusOK, resp)
}

// buildConfig turns the request config into a validated config, a preset first
// and the explicit battery fields on top.
func buildConfig(batteries *BatteryHandler, req models.RunConfig) (*config.Config, error) {
	cfg := &config.Config{
		Strategy: config.StrategyConfig{
			Name:    req.Strategy.Name,
			Horizon: req.Strategy.Horizon,
			Params:  req.Strategy.Params,
		},
	}

	override := config.BatteryConfig{
		Name:                req.Battery.Name,
		EnergyCapacityMWh:   req.Battery.EnergyCapacityMWh,
		PowerCapacityMW:     req.Battery.PowerCapacityMW,
		CRate:               req.Battery.CRate,
		RoundTripEfficiency: req.Battery.RoundTripEfficiency,
		MinSOC:              req.Battery.MinSOC,
		MaxSOC:              req.Battery.MaxSOC,
		InitialSOC:          req.Battery.InitialSOC,
		FeePerMWh:           req.Battery.FeePerMWh,
		MaxCycles:           req.Battery.MaxCycles,
	}
	if req.BatteryFile != "" {
		base, err := batteries.LoadPreset(req.BatteryFile)
		if err != nil {
			return nil, err
		}
		cfg.Battery = config.MergeBattery(base, override)
	} else {
		cfg.Battery = override
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeError maps err to a status and error code. Validation errors carry the field.
func writeError(c *gin.Context, err error, fallbackCode string) {
	status, code := http.StatusInternalServerError, fallbackCode
	detail := models.ErrorDetail{Message: err.Error()}

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		status, code = http.StatusBadRequest, "INVALID_CONFIG"
		detail.Details = map[string]any{"field": verr.Field}
	case errors.Is(err, errDatasetNotFound):
		status, code = http.StatusNotFound, "DATASET_NOT_FOUND"
	case errors.Is(err, errPresetNotFound):
		status, code = http.StatusNotFound, "BATTERY_NOT_FOUND"
	}
	detail.Code = code
	c.JSON(status, models.ErrorResponse{Error: detail})
}

func convertLedger(ledger []backtest.LedgerRow) []models.LedgerRow {
	out := make([]models.LedgerRow, len(ledger))
	for i, r := range ledger {
		out[i] = models.LedgerRow{
			Index:             r.Index,
			IntervalStart:     r.IntervalStart,
			IntervalEnd:       r.IntervalEnd,
			Price:             r.Price,
			Action:            string(r.Action),
			RequestedPowerMW:  r.RequestedPowerMW,
			PowerMW:           r.PowerMW,
			EnergyFromGridMWh: r.EnergyFromGridMWh,
			EnergyToGridMWh:   r.EnergyToGridMWh,
			SOCStart:          r.SOCStart,
			SOCEnd:            r.SOCEnd,
			Cycles:            r.Cycles,
			PNL:               r.PNL,
			CumPNL:            r.CumPNL,
		}
	}
	return out
}

func convertTrades(trades []backtest.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	for i, t := range trades {
		out[i] = models.Trade{
			TimeWindow: models.TimeWindow{Start: t.Start, End: t.End},
			Action:     string(t.Action),
			Intervals:  t.Intervals,
			EnergyMWh:  t.EnergyMWh,
			AvgPrice:   t.AvgPrice,
			CashFlow:   t.CashFlow,
		}
	}
	return out
}

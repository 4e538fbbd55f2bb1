package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lookahead-backtest/internal/api/models"
	"lookahead-backtest/internal/config"
	"lookahead-backtest/internal/strategy"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct{}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	def := strategy.DefaultThresholdParams()
	strategies := []models.StrategyInfo{
		{
			Name:        "threshold",
			Description: "Rolling-window percentile strategy. Charges below the lower percentile of the next horizon prices and discharges above the upper one.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "horizon",
					Type:        "int",
					Description: "Lookahead window in intervals, including the current one",
					Default:     config.DefaultHorizon,
				},
				{
					Name:        "lower_percentile",
					Type:        "float",
					Description: "Charge when the price is strictly below this window percentile",
					Default:     def.LowerPercentile,
				},
				{
					Name:        "upper_percentile",
					Type:        "float",
					Description: "Discharge when the price is strictly above this window percentile",
					Default:     def.UpperPercentile,
				},
				{
					Name:        "rise_factor",
					Type:        "float",
					Description: "Only charge if the window mean exceeds price * rise_factor (0 disables)",
					Default:     def.RiseFactor,
				},
				{
					Name:        "fall_factor",
					Type:        "float",
					Description: "Only discharge if the window mean is below price * fall_factor (0 disables)",
					Default:     def.FallFactor,
				},
				{
					Name:        "last_trade_factor",
					Type:        "float",
					Description: "A new charge needs a price below the last charge price * (1 - last_trade_factor), a new discharge one above the last discharge price * (1 + last_trade_factor) (0 disables)",
					Default:     def.LastTradeFactor,
				},
				{
					Name:        "liquidate_at_end",
					Type:        "bool",
					Description: "Discharge what is left on the last interval when the price is positive",
					Default:     def.LiquidateAtEnd,
				},
			},
		},
		{
			Name:        "oracle",
			Description: "Perfect-foresight benchmark. Dynamic programming over each local day; ignores the horizon.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "soc_steps",
					Type:        "int",
					Description: "SOC grid resolution",
					Default:     200,
				},
				{
					Name:        "power_steps",
					Type:        "int",
					Description: "Power levels per direction",
					Default:     10,
				},
			},
		},
	}

	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lookahead-backtest/internal/analysis"
	"lookahead-backtest/internal/api/models"
	"lookahead-backtest/internal/model"
)

// RankHandler ranks catalog datasets by arbitrage potential
type RankHandler struct {
	store *DatasetStore
}

// NewRankHandler creates a new rank handler
func NewRankHandler(store *DatasetStore) *RankHandler {
	return &RankHandler{store: store}
}

// RankDatasets handles GET /api/v1/rank
func (h *RankHandler) RankDatasets(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	var names []string
	if req.Datasets != "" {
		for _, n := range strings.Split(req.Datasets, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	} else {
		cat, err := h.store.Catalog()
		if err != nil {
			writeError(c, err, "CATALOG_LOAD_ERROR")
			return
		}
		for _, d := range cat.Datasets {
			names = append(names, d.Name)
		}
	}

	series := make([]model.PriceSeries, 0, len(names))
	for _, n := range names {
		s, err := h.store.Resolve(models.DataSource{Dataset: n, Period: req.Period})
		if err != nil {
			writeError(c, err, "DATA_LOAD_ERROR")
			return
		}
		series = append(series, s)
	}

	ranked := analysis.RankByOracleProfit(series)
	if len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}

	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.Ranking{
			Rank:            r.Rank,
			Dataset:         r.Dataset,
			Count:           r.Count,
			SpreadP95P05:    r.SpreadP95P05,
			MeanDailySpread: r.MeanDailySpread,
			MinPrice:        r.MinPrice,
			MaxPrice:        r.MaxPrice,
			NegativeCount:   r.NegativeCount,
			OracleProfit:    r.OracleProfit,
		}
	}
	c.JSON(http.StatusOK, models.RankResponse{Rankings: rankings})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lookahead-backtest/internal/api/models"
	"lookahead-backtest/internal/archive"
)

// RunsHandler serves archived sweeps
type RunsHandler struct {
	archive *archive.Archive
}

// NewRunsHandler creates a new runs handler. arch may be nil.
func NewRunsHandler(arch *archive.Archive) *RunsHandler {
	return &RunsHandler{archive: arch}
}

func (h *RunsHandler) enabled(c *gin.Context) bool {
	if h.archive != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "ARCHIVE_DISABLED",
			Message: "the run archive is not enabled on this server",
		},
	})
	return false
}

// ListRuns handles GET /api/v1/runs. With ?dataset= it returns the best horizon per run.
func (h *RunsHandler) ListRuns(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	var req models.RunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	if req.Dataset != "" {
		best, err := h.archive.BestByDataset(req.Dataset)
		if err != nil {
			writeError(c, err, "ARCHIVE_ERROR")
			return
		}
		if best == nil {
			best = []archive.BestRow{}
		}
		c.JSON(http.StatusOK, gin.H{"best": best, "count": len(best)})
		return
	}

	if req.Limit <= 0 {
		req.Limit = 20
	}
	runs, err := h.archive.ListRuns(req.Limit)
	if err != nil {
		writeError(c, err, "ARCHIVE_ERROR")
		return
	}
	if runs == nil {
		runs = []archive.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunsHandler) GetRun(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	run, results, err := h.archive.GetRun(c.Param("id"))
	if err != nil {
		h.writeArchiveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "results": convertSweep(results)})
}

// DeleteRun handles DELETE /api/v1/runs/:id
func (h *RunsHandler) DeleteRun(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	if err := h.archive.DeleteRun(c.Param("id")); err != nil {
		h.writeArchiveError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RunsHandler) writeArchiveError(c *gin.Context, err error) {
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "RUN_NOT_FOUND",
				Message: err.Error(),
			},
		})
		return
	}
	writeError(c, err, "ARCHIVE_ERROR")
}

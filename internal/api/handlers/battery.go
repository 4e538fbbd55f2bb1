package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lookahead-backtest/internal/api/models"
	"lookahead-backtest/internal/config"
)

var errPresetNotFound = errors.New("battery preset not found")

// BatteryHandler serves the battery presets in a directory of YAML files
type BatteryHandler struct {
	batteryDir string
	logger     *logrus.Logger
}

// NewBatteryHandler creates a new battery handler. An empty dir falls back to
// $BATTERY_DIR, then ./configs/batteries.
func NewBatteryHandler(dir string, logger *logrus.Logger) *BatteryHandler {
	if dir == "" {
		dir = os.Getenv("BATTERY_DIR")
	}
	if dir == "" {
		dir = filepath.Join("configs", "batteries")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	logger.Infof("BatteryHandler: using battery directory %s", dir)
	return &BatteryHandler{batteryDir: dir, logger: logger}
}

// ListBatteries handles GET /api/v1/batteries
func (h *BatteryHandler) ListBatteries(c *gin.Context) {
	batteries := []models.BatteryInfo{}

	entries, err := os.ReadDir(h.batteryDir)
	if err != nil {
		h.logger.Warnf("BatteryHandler: failed to read battery directory %s: %v", h.batteryDir, err)
		c.JSON(http.StatusOK, gin.H{"batteries": batteries})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		b, err := h.LoadPreset(id)
		if err != nil {
			h.logger.Warnf("BatteryHandler: skipping %s: %v", entry.Name(), err)
			continue
		}
		name := b.Name
		if name == "" {
			name = id
		}
		batteries = append(batteries, models.BatteryInfo{
			ID:   id,
			Name: name,
			File: filepath.Join(h.batteryDir, entry.Name()),
			Specs: models.BatterySpecs{
				EnergyCapacityMWh:   b.EnergyCapacityMWh,
				PowerCapacityMW:     b.PowerCapacityMW,
				RoundTripEfficiency: b.ToModelParams().RoundTripEfficiency,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"batteries": batteries})
}

// LoadPreset reads the preset with the given id (file name without .yaml), defaults applied.
func (h *BatteryHandler) LoadPreset(id string) (config.BatteryConfig, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return config.BatteryConfig{}, fmt.Errorf("%w: %q", errPresetNotFound, id)
	}
	b, err := config.LoadBatteryFile(filepath.Join(h.batteryDir, id+".yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.BatteryConfig{}, fmt.Errorf("%w: %q", errPresetNotFound, id)
		}
		return config.BatteryConfig{}, err
	}
	b.ApplyDefaults()
	return b, nil
}

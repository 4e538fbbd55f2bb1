package data

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"lookahead-backtest/internal/model"
)

// LoadSeriesJSON reads {"name": ..., "prices": [{"timestamp": ..., "price": ...}]}.
func LoadSeriesJSON(path string) (model.PriceSeries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	var s model.PriceSeries
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.PriceSeries{}, err
	}
	if s.Name == "" {
		s.Name = seriesName(path)
	}
	s.Step = model.QuarterHour
	if err := s.Validate(); err != nil {
		return model.PriceSeries{}, err
	}
	return s, nil
}

// LoadSeries picks the loader from the file extension. Anything but .json is SMARD CSV.
func LoadSeries(path string) (model.PriceSeries, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadSeriesJSON(path)
	}
	return LoadSMARDCSV(path)
}

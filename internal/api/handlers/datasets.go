package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"lookahead-backtest/internal/api/models"
	"lookahead-backtest/internal/data"
	"lookahead-backtest/internal/model"
)

var errDatasetNotFound = errors.New("dataset not found")

// DatasetStore resolves request data sources against the dataset catalog.
// Parsed files are kept in a SeriesCache.
type DatasetStore struct {
	catalogPath string
	cache       *data.SeriesCache
}

// NewDatasetStore creates a store. An empty catalogPath uses data.GetDefaultCatalogPath.
func NewDatasetStore(catalogPath string, cache *data.SeriesCache) *DatasetStore {
	if catalogPath == "" {
		catalogPath = data.GetDefaultCatalogPath()
	}
	return &DatasetStore{catalogPath: catalogPath, cache: cache}
}

// Catalog reads the catalog file. A missing file is an empty catalog.
func (s *DatasetStore) Catalog() (*data.Catalog, error) {
	cat, err := data.LoadCatalog(s.catalogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &data.Catalog{}, nil
		}
		return nil, err
	}
	return cat, nil
}

// Resolve returns the series for src: inline prices win over a catalog name.
// The period cut is applied last.
func (s *DatasetStore) Resolve(src models.DataSource) (model.PriceSeries, error) {
	period, err := data.ParsePeriod(src.Period)
	if err != nil {
		return model.PriceSeries{}, err
	}

	var series model.PriceSeries
	switch {
	case len(src.Prices) > 0:
		name := src.Name
		if name == "" {
			name = "inline"
		}
		pts := make([]model.PricePoint, len(src.Prices))
		for i, p := range src.Prices {
			pts[i] = model.PricePoint{Start: p.Timestamp, Price: p.Price}
		}
		series = model.NewPriceSeries(name, pts)
	case src.Dataset != "":
		cat, err := s.Catalog()
		if err != nil {
			return model.PriceSeries{}, err
		}
		info, ok := cat.Find(src.Dataset)
		if !ok {
			return model.PriceSeries{}, fmt.Errorf("%w: %s", errDatasetNotFound, src.Dataset)
		}
		series, err = s.cache.Load(info.Path)
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("failed to load dataset %s: %w", src.Dataset, err)
		}
		series.Name = info.Name
	default:
		return model.PriceSeries{}, model.Invalid("data_source", "needs a dataset name or inline prices")
	}

	series, err = data.SelectPeriod(series, period)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if err := series.Validate(); err != nil {
		return model.PriceSeries{}, model.Invalid("data_source", err.Error())
	}
	return series, nil
}

// DatasetHandler lists catalog datasets
type DatasetHandler struct {
	store *DatasetStore
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(store *DatasetStore) *DatasetHandler {
	return &DatasetHandler{store: store}
}

// ListDatasets handles GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	cat, err := h.store.Catalog()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "CATALOG_LOAD_ERROR",
				Message: fmt.Sprintf("Failed to load catalog: %v", err),
			},
		})
		return
	}

	datasets := make([]models.DatasetInfo, len(cat.Datasets))
	for i, d := range cat.Datasets {
		datasets[i] = models.DatasetInfo{
			Name:      d.Name,
			Start:     d.Start,
			End:       d.End,
			Intervals: d.Intervals,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"datasets":   datasets,
		"updated_at": cat.UpdatedAt,
		"count":      len(datasets),
	})
}

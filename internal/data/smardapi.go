package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"lookahead-backtest/internal/model"
)

const (
	// SMARDDayAheadFilter is the chart-data filter of the day-ahead auction price.
	SMARDDayAheadFilter = 4169
	SMARDRegionDELU     = "DE-LU"
	SMARDQuarterHour    = "quarterhour"
	SMARDHour           = "hour"
)

// SMARDClient fetches price series from the public SMARD chart-data API.
type SMARDClient struct {
	BaseURL    string
	Filter     int
	Region     string
	Resolution string
	Client     *http.Client

	logger *logrus.Logger
}

// NewSMARDClient creates a client for German day-ahead quarter-hour prices.
// If baseURL is empty, defaults to "https://www.smard.de/app".
func NewSMARDClient(baseURL string, logger *logrus.Logger) *SMARDClient {
	if baseURL == "" {
		baseURL = "https://www.smard.de/app"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SMARDClient{
		BaseURL:    baseURL,
		Filter:     SMARDDayAheadFilter,
		Region:     SMARDRegionDELU,
		Resolution: SMARDQuarterHour,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// APIError represents a non-200 answer from the SMARD API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type smardIndex struct {
	Timestamps []int64 `json:"timestamps"`
}

type smardChunk struct {
	Series [][]*float64 `json:"series"`
}

// FetchRange downloads all prices with from <= start < to. Missing values inside
// the range are interpolated like in the CSV exports.
func (c *SMARDClient) FetchRange(ctx context.Context, from, to time.Time) (model.PriceSeries, error) {
	if from.IsZero() || to.IsZero() {
		return model.PriceSeries{}, fmt.Errorf("from and to are required")
	}
	if !from.Before(to) {
		return model.PriceSeries{}, fmt.Errorf("from must be before to")
	}
	step, err := c.step()
	if err != nil {
		return model.PriceSeries{}, err
	}

	var idx smardIndex
	indexPath := fmt.Sprintf("/chart_data/%d/%s/index_%s.json", c.Filter, c.Region, c.Resolution)
	if err := c.getJSON(ctx, indexPath, &idx); err != nil {
		return model.PriceSeries{}, err
	}
	chunks := chunksCovering(idx.Timestamps, from, to)
	if len(chunks) == 0 {
		return model.PriceSeries{}, fmt.Errorf("no SMARD data between %s and %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	seen := map[int64]bool{}
	var points []model.PricePoint
	for _, ts := range chunks {
		var chunk smardChunk
		path := fmt.Sprintf("/chart_data/%d/%s/%d_%s_%s_%d.json", c.Filter, c.Region, c.Filter, c.Region, c.Resolution, ts)
		if err := c.getJSON(ctx, path, &chunk); err != nil {
			return model.PriceSeries{}, err
		}
		for _, pair := range chunk.Series {
			if len(pair) < 2 || pair[0] == nil {
				continue
			}
			ms := int64(*pair[0])
			start := time.UnixMilli(ms).In(Berlin)
			if start.Before(from) || !start.Before(to) || seen[ms] {
				continue
			}
			seen[ms] = true
			price := math.NaN()
			if pair[1] != nil {
				price = *pair[1]
			}
			points = append(points, model.PricePoint{Start: start, Price: price})
		}
	}
	if len(points) == 0 {
		return model.PriceSeries{}, fmt.Errorf("no SMARD prices between %s and %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
	if err := fillMissing(points); err != nil {
		return model.PriceSeries{}, err
	}

	name := fmt.Sprintf("smard-%s-%s", from.In(Berlin).Format("20060102"), to.In(Berlin).Format("20060102"))
	s := model.PriceSeries{Name: name, Step: step, Points: points}
	if err := s.Validate(); err != nil {
		return model.PriceSeries{}, err
	}
	c.logger.Infof("[SMARD] Received %d intervals (%s to %s)", s.Len(), s.Start().Format(time.RFC3339), s.End().Format(time.RFC3339))
	return s, nil
}

func (c *SMARDClient) step() (time.Duration, error) {
	switch c.Resolution {
	case SMARDQuarterHour:
		return model.QuarterHour, nil
	case SMARDHour:
		return time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported resolution %q", c.Resolution)
}

// chunksCovering returns the chunk timestamps whose chunk may hold data in [from, to).
// A chunk runs until the next timestamp.
func chunksCovering(timestamps []int64, from, to time.Time) []int64 {
	sorted := append([]int64(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var out []int64
	for i, ts := range sorted {
		start := time.UnixMilli(ts)
		if !start.Before(to) {
			break
		}
		if i+1 < len(sorted) && !time.UnixMilli(sorted[i+1]).After(from) {
			continue
		}
		out = append(out, ts)
	}
	return out
}

func (c *SMARDClient) getJSON(ctx context.Context, path string, out any) error {
	u := c.BaseURL + path
	c.logger.Debugf("[SMARD] Request: GET %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warnf("[SMARD] Request failed: %v (duration: %v)", err, duration)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debugf("[SMARD] Response: %s (duration: %v)", resp.Status, duration)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "NOT_FOUND",
			Message:    fmt.Sprintf("SMARD has no data at %s", path),
		}
	case http.StatusTooManyRequests:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", resp.Header.Get("Retry-After")),
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

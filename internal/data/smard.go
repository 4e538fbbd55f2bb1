package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"lookahead-backtest/internal/model"
)

const (
	smardTimeLayout  = "02.01.2006 15:04"
	smardStartColumn = "Datum von"
	smardEndColumn   = "Datum bis"
	smardPriceColumn = "Deutschland/Luxemburg [€/MWh] Berechnete Auflösungen"
)

// Berlin is the market time zone of the SMARD exports.
var Berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// LoadSMARDCSV reads a SMARD market data export ("Großhandelspreise", quarter-hour resolution).
// The series is named after the file.
func LoadSMARDCSV(path string) (model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	defer f.Close()
	return ReadSMARDCSV(f, seriesName(path))
}

// ReadSMARDCSV parses a ';' separated export with decimal commas. Missing prices
// ("-" or empty) are filled by linear interpolation between their neighbours.
func ReadSMARDCSV(r io.Reader, name string) (model.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	timeCol, priceCol, err := smardColumns(header)
	if err != nil {
		return model.PriceSeries{}, err
	}

	var points []model.PricePoint
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= timeCol || len(rec) <= priceCol {
			return model.PriceSeries{}, fmt.Errorf("line %d: expected at least %d columns, got %d", line, max(timeCol, priceCol)+1, len(rec))
		}

		ts, err := time.ParseInLocation(smardTimeLayout, strings.TrimSpace(rec[timeCol]), Berlin)
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("line %d: timestamp %q: %w", line, rec[timeCol], err)
		}
		if len(points) > 0 {
			ts = resolveRepeatedHour(ts, points[len(points)-1].Start)
		}

		price, err := parseGermanDecimal(rec[priceCol])
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("line %d: price %q: %w", line, rec[priceCol], err)
		}
		points = append(points, model.PricePoint{Start: ts, Price: price})
	}
	if len(points) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%s: no rows", name)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
	if err := fillMissing(points); err != nil {
		return model.PriceSeries{}, fmt.Errorf("%s: %w", name, err)
	}

	s := model.NewPriceSeries(name, points)
	if err := s.Validate(); err != nil {
		return model.PriceSeries{}, err
	}
	return s, nil
}

// WriteSMARDCSV writes the series in the SMARD export format.
func WriteSMARDCSV(path string, s model.PriceSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSMARD(f, s)
}

func WriteSMARD(out io.Writer, s model.PriceSeries) error {
	w := csv.NewWriter(out)
	w.Comma = ';'
	if err := w.Write([]string{smardStartColumn, smardEndColumn, smardPriceColumn}); err != nil {
		return err
	}
	for _, p := range s.Points {
		row := []string{
			p.Start.In(Berlin).Format(smardTimeLayout),
			p.Start.Add(s.Step).In(Berlin).Format(smardTimeLayout),
			formatGermanDecimal(p.Price),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func smardColumns(header []string) (int, int, error) {
	timeCol, priceCol := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == smardStartColumn:
			timeCol = i
		case h == smardPriceColumn:
			priceCol = i
		}
	}
	if timeCol < 0 {
		return 0, 0, fmt.Errorf("missing %q column", smardStartColumn)
	}
	if priceCol < 0 {
		for i, h := range header {
			if i != timeCol && (strings.Contains(h, "MWh") || strings.Contains(h, "€")) {
				priceCol = i
				break
			}
		}
	}
	if priceCol < 0 {
		priceCol = len(header) - 1
	}
	if priceCol == timeCol {
		return 0, 0, fmt.Errorf("no price column in header %v", header)
	}
	return timeCol, priceCol, nil
}

// resolveRepeatedHour picks the occurrence of an ambiguous local time (the hour
// repeated when clocks fall back) that comes first after prev.
func resolveRepeatedHour(ts, prev time.Time) time.Time {
	wall := ts.In(Berlin).Format(smardTimeLayout)
	for _, c := range []time.Time{ts.Add(-time.Hour), ts, ts.Add(time.Hour)} {
		if c.After(prev) && c.In(Berlin).Format(smardTimeLayout) == wall {
			return c
		}
	}
	return ts
}

// parseGermanDecimal parses "1.234,56" style numbers. "-" and "" are missing (NaN).
func parseGermanDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return math.NaN(), nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func formatGermanDecimal(x float64) string {
	return strings.Replace(decimal.NewFromFloat(x).StringFixed(2), ".", ",", 1)
}

// fillMissing interpolates NaN prices linearly. Leading gaps take the first
// known price and trailing gaps the last one.
func fillMissing(points []model.PricePoint) error {
	prev := -1
	for i := range points {
		if math.IsNaN(points[i].Price) {
			continue
		}
		switch {
		case prev < 0:
			for j := 0; j < i; j++ {
				points[j].Price = points[i].Price
			}
		case i-prev > 1:
			a, b := points[prev].Price, points[i].Price
			for j := prev + 1; j < i; j++ {
				f := float64(j-prev) / float64(i-prev)
				points[j].Price = a + (b-a)*f
			}
		}
		prev = i
	}
	if prev < 0 {
		return fmt.Errorf("no prices")
	}
	for j := prev + 1; j < len(points); j++ {
		points[j].Price = points[prev].Price
	}
	return nil
}

func seriesName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

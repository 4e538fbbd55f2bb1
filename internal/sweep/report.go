package sweep

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// WriteSummaryCSV writes one row per (dataset, horizon) with the best horizon flagged.
func WriteSummaryCSV(path string, results []DatasetResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSummary(f, results)
}

func WriteSummary(out io.Writer, results []DatasetResult) error {
	w := csv.NewWriter(out)
	header := []string{"dataset", "horizon", "profit", "cycles", "energy_charged_mwh", "energy_discharged_mwh", "best"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		for _, e := range r.Entries {
			row := []string{
				r.Dataset,
				strconv.Itoa(e.Horizon),
				strconv.FormatFloat(e.Profit, 'f', 2, 64),
				strconv.FormatFloat(e.Cycles, 'f', 4, 64),
				strconv.FormatFloat(e.EnergyChargedMWh, 'f', 4, 64),
				strconv.FormatFloat(e.EnergyDischargedMWh, 'f', 4, 64),
				strconv.FormatBool(e.Horizon == r.Best.Horizon),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

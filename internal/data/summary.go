package data

import (
	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"lookahead-backtest/internal/model"
)

// LogSummary logs the range, mean and volatility of a freshly loaded series.
func LogSummary(logger *logrus.Logger, s model.PriceSeries) {
	prices := stats.Float64Data(s.Prices())
	minP, _ := prices.Min()
	maxP, _ := prices.Max()
	mean, _ := prices.Mean()
	std, _ := prices.StandardDeviationSample()

	days := map[string]bool{}
	for _, p := range s.Points {
		days[p.Start.In(Berlin).Format("2006-01-02")] = true
	}

	logger.WithFields(logrus.Fields{
		"series":    s.Name,
		"from":      s.Start().In(Berlin).Format("02.01.2006 15:04"),
		"to":        s.End().In(Berlin).Format("02.01.2006 15:04"),
		"intervals": s.Len(),
		"days":      len(days),
	}).Infof("Prices %.2f to %.2f EUR/MWh, mean %.2f, std %.2f", minP, maxP, mean, std)
}

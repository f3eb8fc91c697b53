package simulation

import (
	"math"
	"sort"

	"github.com/aristath/cryptosim/internal/domain"
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// atrPeriod is the longest ATR window used in summaries.
const atrPeriod = 14

// Aggregate wraps one symbol's paths into its result document.
func Aggregate(symbol string, paths []domain.PricePath) domain.SimulationResult {
	return domain.SimulationResult{
		Symbol: symbol,
		Paths:  paths,
	}
}

// Summary describes the distribution of a symbol's simulated paths.
type Summary struct {
	Symbol           string  `json:"symbol"`
	Paths            int     `json:"paths"`
	Days             int     `json:"days"`
	MeanFinalClose   float64 `json:"mean_final_close"`
	MedianFinalClose float64 `json:"median_final_close"`
	P05FinalClose    float64 `json:"p05_final_close"`
	P95FinalClose    float64 `json:"p95_final_close"`
	MinLow           float64 `json:"min_low"`
	MaxHigh          float64 `json:"max_high"`
	MeanATR          float64 `json:"mean_atr"`
}

// Summarize computes final-close quantiles, the price envelope and the mean
// of each path's last ATR value. ATR uses min(14, days-1) periods and is 0
// for single-candle paths.
func Summarize(result domain.SimulationResult) Summary {
	summary := Summary{
		Symbol: result.Symbol,
		Paths:  len(result.Paths),
		Days:   result.Days(),
	}
	if summary.Paths == 0 || summary.Days == 0 {
		return summary
	}

	finals := make([]float64, 0, summary.Paths)
	atrs := make([]float64, 0, summary.Paths)
	summary.MinLow = math.Inf(1)
	summary.MaxHigh = math.Inf(-1)

	for _, path := range result.Paths {
		if len(path) == 0 {
			continue
		}
		finals = append(finals, path.FinalClose())
		for _, c := range path {
			summary.MinLow = math.Min(summary.MinLow, c.Low)
			summary.MaxHigh = math.Max(summary.MaxHigh, c.High)
		}
		if atr, ok := lastATR(path); ok {
			atrs = append(atrs, atr)
		}
	}

	sort.Float64s(finals)
	summary.MeanFinalClose = stat.Mean(finals, nil)
	summary.MedianFinalClose = stat.Quantile(0.5, stat.Empirical, finals, nil)
	summary.P05FinalClose = stat.Quantile(0.05, stat.Empirical, finals, nil)
	summary.P95FinalClose = stat.Quantile(0.95, stat.Empirical, finals, nil)
	if len(atrs) > 0 {
		summary.MeanATR = stat.Mean(atrs, nil)
	}

	return summary
}

func lastATR(path domain.PricePath) (float64, bool) {
	if len(path) < 2 {
		return 0, false
	}
	period := atrPeriod
	if len(path)-1 < period {
		period = len(path) - 1
	}

	highs := make([]float64, len(path))
	lows := make([]float64, len(path))
	closes := make([]float64, len(path))
	for i, c := range path {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}

	atr := talib.Atr(highs, lows, closes, period)
	return atr[len(atr)-1], true
}

package testing

import (
	"math"

	"github.com/aristath/cryptosim/internal/domain"
)

// DefaultSymbols is the symbol set used by batch fixtures.
var DefaultSymbols = []string{"BTC-USD", "ETH-USD", "BNB-USD", "ADA-USD", "XRP-USD", "LTC-USD"}

// NewPriceSeries returns n time-ascending prices starting at start that grow
// by growth per step with a small deterministic wobble.
func NewPriceSeries(start, growth float64, n int) []float64 {
	prices := make([]float64, n)
	price := start
	for i := range prices {
		prices[i] = price * (1 + 0.01*math.Sin(float64(i)))
		price *= 1 + growth
	}
	return prices
}

// NewSeedFixtures returns seed data with 48 points of history for each symbol.
func NewSeedFixtures(symbols ...string) map[string]domain.SeedData {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}

	seeds := make(map[string]domain.SeedData, len(symbols))
	for i, symbol := range symbols {
		history := NewPriceSeries(100*float64(i+1), 0.001, 48)
		seeds[symbol] = domain.SeedData{
			Symbol:  symbol,
			Price:   history[len(history)-1],
			History: history,
		}
	}
	return seeds
}

// Package domain provides core domain models and types.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// MinPrice is the floor applied to every simulated close.
const MinPrice = 0.01

// Candle is one simulated interval summarised as open, high, low, close.
// It serializes as a JSON array of four numbers in that order.
type Candle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Array returns the candle as [open, high, low, close].
func (c Candle) Array() [4]float64 {
	return [4]float64{c.Open, c.High, c.Low, c.Close}
}

// CandleFromArray builds a candle from [open, high, low, close].
func CandleFromArray(a [4]float64) Candle {
	return Candle{Open: a[0], High: a[1], Low: a[2], Close: a[3]}
}

// MarshalJSON encodes the candle as [open, high, low, close].
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Array())
}

// UnmarshalJSON decodes a candle from [open, high, low, close].
func (c *Candle) UnmarshalJSON(data []byte) error {
	var a [4]float64
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("candle must be an array of 4 numbers: %w", err)
	}
	*c = CandleFromArray(a)
	return nil
}

// IsFinite reports whether all four fields are finite numbers.
func (c Candle) IsFinite() bool {
	for _, v := range c.Array() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PricePath is one Monte Carlo path, one candle per simulated day.
type PricePath []Candle

// Closes returns the close of every candle in order.
func (p PricePath) Closes() []float64 {
	closes := make([]float64, len(p))
	for i, c := range p {
		closes[i] = c.Close
	}
	return closes
}

// FinalClose returns the close of the last candle, or 0 for an empty path.
func (p PricePath) FinalClose() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].Close
}

// SimulationResult is the stored document for one symbol.
type SimulationResult struct {
	Symbol string      `json:"symbol"`
	Paths  []PricePath `json:"simulation"`
}

// Days returns the path length, taken from the first path.
func (r SimulationResult) Days() int {
	if len(r.Paths) == 0 {
		return 0
	}
	return len(r.Paths[0])
}

// Arrays returns the paths as a simulations x days x 4 numeric structure.
func (r SimulationResult) Arrays() [][][4]float64 {
	out := make([][][4]float64, len(r.Paths))
	for i, path := range r.Paths {
		out[i] = make([][4]float64, len(path))
		for j, c := range path {
			out[i][j] = c.Array()
		}
	}
	return out
}

// PathsFromArrays converts a simulations x days x 4 structure back into paths.
func PathsFromArrays(arrays [][][4]float64) []PricePath {
	paths := make([]PricePath, len(arrays))
	for i, path := range arrays {
		paths[i] = make(PricePath, len(path))
		for j, a := range path {
			paths[i][j] = CandleFromArray(a)
		}
	}
	return paths
}

// SeedData is what the market data collaborator supplies for one symbol.
// History is time-ascending and may be empty.
type SeedData struct {
	Symbol  string    `json:"symbol"`
	Price   float64   `json:"price"`
	History []float64 `json:"history"`
}

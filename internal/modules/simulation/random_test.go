package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func drawSequence(rng RandomSource, n int) []float64 {
	out := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		out = append(out,
			rng.Normal(0, 1),
			rng.Uniform(0.02, 0.1),
			float64(rng.Poisson(3)),
		)
	}
	return out
}

func TestNewRandomSource_Reproducible(t *testing.T) {
	a := drawSequence(NewRandomSource(42, 7), 100)
	b := drawSequence(NewRandomSource(42, 7), 100)
	assert.Equal(t, a, b)
}

func TestNewRandomSource_StreamsDiffer(t *testing.T) {
	a := drawSequence(NewRandomSource(42, SymbolStream("BTC-USD")), 20)
	b := drawSequence(NewRandomSource(42, SymbolStream("ETH-USD")), 20)
	assert.NotEqual(t, a, b)
}

func TestNewRandomSource_Ranges(t *testing.T) {
	rng := NewRandomSource(1, 1)
	for i := 0; i < 1000; i++ {
		u := rng.Uniform(0.009, 0.03)
		assert.GreaterOrEqual(t, u, 0.009)
		assert.Less(t, u, 0.03)
		assert.GreaterOrEqual(t, rng.Poisson(0.5), 0)
	}
}

func TestNewRandomSource_Degenerate(t *testing.T) {
	rng := NewRandomSource(1, 1)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"normal with zero sigma returns mu", rng.Normal(5, 0), 5},
		{"uniform with empty range returns min", rng.Uniform(0.3, 0.3), 0.3},
		{"uniform with inverted range returns min", rng.Uniform(0.5, 0.1), 0.5},
		{"poisson with zero rate", float64(rng.Poisson(0)), 0},
		{"poisson with negative rate", float64(rng.Poisson(-1)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestSymbolStream_Stable(t *testing.T) {
	assert.Equal(t, SymbolStream("BTC-USD"), SymbolStream("BTC-USD"))
	assert.NotEqual(t, SymbolStream("BTC-USD"), SymbolStream("ETH-USD"))
}

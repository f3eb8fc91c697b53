package simulation

import (
	"hash/fnv"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomSource supplies every random draw the engine makes.
// A source must not be shared between goroutines.
type RandomSource interface {
	Normal(mu, sigma float64) float64
	Uniform(lo, hi float64) float64
	Poisson(lambda float64) int
}

// distSource draws from gonum distributions over one PCG stream.
type distSource struct {
	src rand.Source
}

// NewRandomSource returns a reproducible source. Two sources built from the
// same seed and stream produce identical draw sequences.
func NewRandomSource(seed, stream uint64) RandomSource {
	return &distSource{src: rand.NewPCG(seed, stream)}
}

// SymbolStream derives a per-symbol stream id so that concurrent symbols in
// one batch get independent sequences from a single batch seed.
func SymbolStream(symbol string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

func (s *distSource) Normal(mu, sigma float64) float64 {
	if sigma == 0 {
		return mu
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

func (s *distSource) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: s.src}.Rand()
}

func (s *distSource) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: s.src}.Rand())
}

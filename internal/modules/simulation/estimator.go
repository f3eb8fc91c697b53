package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/cryptosim/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// InsufficientDataPolicy decides what a batch does when history is too short.
type InsufficientDataPolicy string

const (
	// PolicyAbort skips the symbol.
	PolicyAbort InsufficientDataPolicy = "abort"
	// PolicyFallback substitutes the configured fallback drift and volatility.
	PolicyFallback InsufficientDataPolicy = "fallback"
)

// Estimate is the drift and volatility selected for a symbol.
type Estimate struct {
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
	Points   int     `json:"points"`
	Fallback bool    `json:"fallback"`
}

// Estimator derives drift and volatility from log returns of a price series.
type Estimator struct {
	policy        InsufficientDataPolicy
	fallbackMu    float64
	fallbackSigma float64
}

// NewEstimator creates an estimator that applies policy on short histories.
func NewEstimator(policy InsufficientDataPolicy, fallbackMu, fallbackSigma float64) *Estimator {
	if policy == "" {
		policy = PolicyAbort
	}
	return &Estimator{
		policy:        policy,
		fallbackMu:    fallbackMu,
		fallbackSigma: fallbackSigma,
	}
}

// EstimateDriftVolatility returns the mean and population standard deviation
// of ln(P_i / P_{i-1}). It never substitutes defaults.
func EstimateDriftVolatility(history []float64) (mu, sigma float64, err error) {
	if len(history) < 2 {
		return 0, 0, &domain.InsufficientDataError{Points: len(history)}
	}

	returns := make([]float64, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		if !(prev > 0) || !(cur > 0) || math.IsInf(prev, 0) || math.IsInf(cur, 0) {
			return 0, 0, &domain.InvalidParameterError{
				Field:  fmt.Sprintf("history[%d]", i),
				Value:  cur,
				Reason: "prices must be positive and finite",
			}
		}
		returns[i-1] = math.Log(cur / prev)
	}

	mu, sigma = stat.PopMeanStdDev(returns, nil)
	return mu, sigma, nil
}

// Resolve estimates from history and applies the insufficient-data policy.
// Any error other than InsufficientDataError is returned unchanged.
func (e *Estimator) Resolve(history []float64) (Estimate, error) {
	mu, sigma, err := EstimateDriftVolatility(history)
	if err == nil {
		return Estimate{Mu: mu, Sigma: sigma, Points: len(history)}, nil
	}

	var short *domain.InsufficientDataError
	if errors.As(err, &short) && e.policy == PolicyFallback {
		return Estimate{
			Mu:       e.fallbackMu,
			Sigma:    e.fallbackSigma,
			Points:   len(history),
			Fallback: true,
		}, nil
	}
	return Estimate{}, err
}

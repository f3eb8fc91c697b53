package simulation

import (
	"math"

	"github.com/aristath/cryptosim/internal/domain"
	"github.com/rs/zerolog"
)

// seedNoise is the stddev of the per-path perturbation of the initial price.
const seedNoise = 0.1

// maxPrice caps prices that overflow float64.
const maxPrice = math.MaxFloat64

// RunReport collects non-fatal events from a run.
type RunReport struct {
	// Clamped lists every price that was non-positive or NaN and was
	// replaced by domain.MinPrice.
	Clamped []domain.NumericDegeneracyError
}

// Engine runs independent Monte Carlo paths. It holds no state between
// calls and is safe for concurrent use as long as each call gets its own
// RandomSource.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new simulation engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "simulation_engine").Logger(),
	}
}

// Run produces params.Simulations paths of params.Days candles each.
// Parameters are validated before the first draw from rng.
func (e *Engine) Run(initialPrice float64, params Parameters, rng RandomSource) ([]domain.PricePath, error) {
	paths, _, err := e.RunWithReport(initialPrice, params, rng)
	return paths, err
}

// RunWithReport is Run that also returns the clamped prices.
func (e *Engine) RunWithReport(initialPrice float64, params Parameters, rng RandomSource) ([]domain.PricePath, RunReport, error) {
	params = params.WithDefaults()
	if err := params.Validate(initialPrice); err != nil {
		return nil, RunReport{}, err
	}

	var report RunReport
	paths := make([]domain.PricePath, params.Simulations)
	for i := range paths {
		paths[i] = e.runPath(i, initialPrice, params, rng, &report)
	}

	if len(report.Clamped) > 0 {
		e.log.Debug().
			Int("clamped", len(report.Clamped)).
			Int("paths", params.Simulations).
			Msg("Clamped degenerate prices to floor")
	}

	return paths, report, nil
}

func (e *Engine) runPath(pathIdx int, initialPrice float64, p Parameters, rng RandomSource, report *RunReport) domain.PricePath {
	path := make(domain.PricePath, p.Days)

	seed := floorPrice(initialPrice*(1+rng.Normal(0, seedNoise)), pathIdx, 0, report)
	path[0] = firstCandle(seed, p.FirstCandle, rng)

	step := newStepper(p)
	for t := 1; t < p.Days; t++ {
		open := path[t-1].Close
		closePrice := floorPrice(step.next(open, rng), pathIdx, t, report)

		path[t] = domain.Candle{
			Open:  open,
			High:  math.Max(open, math.Min(maxPrice, closePrice*(1+rng.Uniform(p.Bands.High.Min, p.Bands.High.Max)))),
			Low:   math.Min(open, closePrice*(1-rng.Uniform(p.Bands.Low.Min, p.Bands.Low.Max))),
			Close: closePrice,
		}
	}

	return path
}

// firstCandle builds candle 0 with open == close == seed.
func firstCandle(seed float64, policy FirstCandlePolicy, rng RandomSource) domain.Candle {
	c := domain.Candle{Open: seed, High: seed, Low: seed, Close: seed}
	if policy == FirstCandleBanded {
		high := seed * (0.8 + rng.Uniform(0, 0.02))
		low := seed * (0.8 - rng.Uniform(0, 0.02))
		// The band sits below the seed, so only low survives the clamp.
		c.High = math.Max(seed, high)
		c.Low = math.Min(seed, low)
	}
	return c
}

// floorPrice applies the domain.MinPrice floor and caps overflow at maxPrice.
// Non-positive and NaN prices are additionally recorded in report.
func floorPrice(price float64, pathIdx, step int, report *RunReport) float64 {
	if price > maxPrice {
		return maxPrice
	}
	if price >= domain.MinPrice {
		return price
	}
	if !(price > 0) {
		report.Clamped = append(report.Clamped, domain.NumericDegeneracyError{
			Path:  pathIdx,
			Step:  step,
			Price: price,
		})
	}
	return domain.MinPrice
}

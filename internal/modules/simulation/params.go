// Package simulation generates synthetic OHLC price paths with a
// jump-diffusion Monte Carlo model and manages batch runs over a symbol set.
package simulation

import (
	"fmt"
	"math"

	"github.com/aristath/cryptosim/internal/domain"
)

// VolatilityModel selects how the per-step variance evolves.
type VolatilityModel string

const (
	// ModelConstant uses sigma^2 every step plus a multiplicative noise factor.
	ModelConstant VolatilityModel = "constant"
	// ModelStochastic evolves a mean-reverting square-root variance process.
	ModelStochastic VolatilityModel = "stochastic"
)

// FirstCandlePolicy selects how high/low of candle 0 are initialised.
type FirstCandlePolicy string

const (
	// FirstCandleFlat sets high = low = seed price.
	FirstCandleFlat FirstCandlePolicy = "flat"
	// FirstCandleBanded draws high/low from a band around 0.8 x seed price,
	// then clamps them so the candle still brackets open and close.
	FirstCandleBanded FirstCandlePolicy = "banded"
)

// Band is the range of the uniform jitter applied to a close when deriving
// a high or low.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Bands holds the jitter ranges for highs and lows.
type Bands struct {
	High Band `json:"high"`
	Low  Band `json:"low"`
}

// IsZero reports whether no band has been configured.
func (b Bands) IsZero() bool {
	return b == Bands{}
}

// DefaultBands returns the jitter bands historically used by each model.
func DefaultBands(model VolatilityModel) Bands {
	if model == ModelStochastic {
		return Bands{
			High: Band{Min: 0.009, Max: 0.025},
			Low:  Band{Min: 0.009, Max: 0.03},
		}
	}
	return Bands{
		High: Band{Min: 0.02, Max: 0.1},
		Low:  Band{Min: 0.02, Max: 0.1},
	}
}

// Parameters configure one engine run. Mu and Sigma are per symbol, the
// rest usually comes from batch configuration.
type Parameters struct {
	Mu          float64 `json:"mu"`
	Sigma       float64 `json:"sigma"`
	Lambda      float64 `json:"lambda"`
	JumpMu      float64 `json:"jump_mu"`    // a: mean of log jump size
	JumpSigma   float64 `json:"jump_sigma"` // b: stddev of log jump size
	Days        int     `json:"days"`
	Simulations int     `json:"simulations"`

	Model       VolatilityModel   `json:"model"`
	FirstCandle FirstCandlePolicy `json:"first_candle"`
	Bands       Bands             `json:"bands"`

	// Stochastic model only
	Kappa    float64 `json:"kappa,omitempty"`
	Theta    float64 `json:"theta,omitempty"`
	VolOfVol float64 `json:"vol_of_vol,omitempty"`
}

// WithDefaults fills unset enum and band fields.
func (p Parameters) WithDefaults() Parameters {
	if p.Model == "" {
		p.Model = ModelConstant
	}
	if p.FirstCandle == "" {
		p.FirstCandle = FirstCandleFlat
	}
	if p.Bands.IsZero() {
		p.Bands = DefaultBands(p.Model)
	}
	return p
}

// Validate checks the parameters together with the initial price.
// The first violation found is returned as *domain.InvalidParameterError.
func (p Parameters) Validate(initialPrice float64) error {
	if !isFinite(initialPrice) || initialPrice <= 0 {
		return invalid("initial_price", initialPrice, "must be a positive finite number")
	}
	if p.Days < 1 {
		return invalid("days", float64(p.Days), "must be >= 1")
	}
	if p.Simulations < 1 {
		return invalid("simulations", float64(p.Simulations), "must be >= 1")
	}
	if !isFinite(p.Mu) {
		return invalid("mu", p.Mu, "must be finite")
	}

	nonNegative := []namedValue{
		{"sigma", p.Sigma},
		{"lambda", p.Lambda},
		{"jump_sigma", p.JumpSigma},
	}
	if p.Model == ModelStochastic {
		nonNegative = append(nonNegative,
			namedValue{"kappa", p.Kappa},
			namedValue{"theta", p.Theta},
			namedValue{"vol_of_vol", p.VolOfVol},
		)
	}
	for _, nn := range nonNegative {
		if !isFinite(nn.value) || nn.value < 0 {
			return invalid(nn.field, nn.value, "must be a non-negative finite number")
		}
	}
	if !isFinite(p.JumpMu) {
		return invalid("jump_mu", p.JumpMu, "must be finite")
	}

	switch p.Model {
	case ModelConstant, ModelStochastic:
	default:
		return &domain.InvalidParameterError{Field: "model", Reason: fmt.Sprintf("unknown volatility model %q", p.Model)}
	}
	switch p.FirstCandle {
	case FirstCandleFlat, FirstCandleBanded:
	default:
		return &domain.InvalidParameterError{Field: "first_candle", Reason: fmt.Sprintf("unknown first candle policy %q", p.FirstCandle)}
	}

	if err := validateBand("bands.high", p.Bands.High, math.Inf(1)); err != nil {
		return err
	}
	// 1 - U must stay positive for lows
	return validateBand("bands.low", p.Bands.Low, 1)
}

type namedValue struct {
	field string
	value float64
}

func validateBand(field string, b Band, upper float64) error {
	if !isFinite(b.Min) || b.Min < 0 {
		return invalid(field+".min", b.Min, "must be a non-negative finite number")
	}
	if !isFinite(b.Max) || b.Max < b.Min {
		return invalid(field+".max", b.Max, "must be finite and >= min")
	}
	if b.Max >= upper {
		return invalid(field+".max", b.Max, fmt.Sprintf("must be < %v", upper))
	}
	return nil
}

func invalid(field string, value float64, reason string) error {
	return &domain.InvalidParameterError{Field: field, Value: value, Reason: reason}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

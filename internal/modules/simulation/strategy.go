package simulation

import (
	"math"
)

// stepper advances one path by one day and returns the next close before
// flooring. Steppers hold per-path state and are not reused across paths.
type stepper interface {
	next(prevClose float64, rng RandomSource) float64
}

// newStepper selects the variance model for one path.
func newStepper(p Parameters) stepper {
	dt := 1 / float64(p.Days)
	if p.Model == ModelStochastic {
		return &stochasticVariance{p: p, dt: dt, v: p.Sigma * p.Sigma}
	}
	return &constantVariance{p: p, dt: dt}
}

// constantVariance uses Var = sigma^2 and a (1 + N(0, 0.1)) noise factor.
type constantVariance struct {
	p  Parameters
	dt float64
}

func (s *constantVariance) next(prevClose float64, rng RandomSource) float64 {
	eps := rng.Normal(0, 1)
	jump := jumpMultiplier(s.p, s.dt, rng)
	variance := s.p.Sigma * s.p.Sigma
	noise := 1 + rng.Normal(0, 0.1)

	return diffuse(prevClose, s.p.Mu, variance, eps, s.dt) * jump * noise
}

// stochasticVariance evolves V with a discretised square-root process,
// truncated at zero. V starts at sigma^2.
type stochasticVariance struct {
	p  Parameters
	dt float64
	v  float64
}

func (s *stochasticVariance) next(prevClose float64, rng RandomSource) float64 {
	eps := rng.Normal(0, 1)
	jump := jumpMultiplier(s.p, s.dt, rng)

	z := rng.Normal(0, 1)
	s.v = math.Max(s.v+s.p.Kappa*(s.p.Theta-s.v)*s.dt+s.p.VolOfVol*math.Sqrt(s.v)*z*math.Sqrt(s.dt), 0)

	return diffuse(prevClose, s.p.Mu, s.v, eps, s.dt) * jump
}

// diffuse applies one log-normal diffusion step.
func diffuse(prev, mu, variance, eps, dt float64) float64 {
	return prev * math.Exp((mu-0.5*variance)*dt+math.Sqrt(variance)*eps*math.Sqrt(dt))
}

// jumpMultiplier draws J ~ Poisson(lambda*dt) and returns exp(a + b*Z) when
// at least one jump arrives, 1 otherwise. Z is drawn only on a jump.
func jumpMultiplier(p Parameters, dt float64, rng RandomSource) float64 {
	if rng.Poisson(p.Lambda*dt) == 0 {
		return 1
	}
	return math.Exp(p.JumpMu + p.JumpSigma*rng.Normal(0, 1))
}

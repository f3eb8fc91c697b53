package simulation

// scriptedSource replays fixed draws in order. Once a list is exhausted
// every further draw of that kind returns 0.
type scriptedSource struct {
	normals  []float64
	uniforms []float64
	poissons []int
	draws    int
}

func (s *scriptedSource) Normal(_, _ float64) float64 {
	s.draws++
	if len(s.normals) == 0 {
		return 0
	}
	v := s.normals[0]
	s.normals = s.normals[1:]
	return v
}

func (s *scriptedSource) Uniform(_, _ float64) float64 {
	s.draws++
	if len(s.uniforms) == 0 {
		return 0
	}
	v := s.uniforms[0]
	s.uniforms = s.uniforms[1:]
	return v
}

func (s *scriptedSource) Poisson(_ float64) int {
	s.draws++
	if len(s.poissons) == 0 {
		return 0
	}
	v := s.poissons[0]
	s.poissons = s.poissons[1:]
	return v
}

// zeroSource returns 0 for every draw.
func zeroSource() *scriptedSource {
	return &scriptedSource{}
}

// nominalParams matches the production batch defaults.
func nominalParams() Parameters {
	return Parameters{
		Mu:          0.01,
		Sigma:       0.2,
		Lambda:      0.1,
		JumpMu:      0.1,
		JumpSigma:   0.2,
		Days:        30,
		Simulations: 10,
	}
}

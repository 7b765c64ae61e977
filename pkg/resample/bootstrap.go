package resample

import "math/rand/v2"

// Sampler draws resampling index vectors from its own generator.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded with seed.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, ^seed))}
}

// Bootstrap returns n row indices drawn uniformly with replacement from [0, n).
func (s *Sampler) Bootstrap(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = s.rng.IntN(n)
	}
	return idx
}

package engine

import (
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// sampler draws from a single seeded source so that runs with the same
// seed produce the same sequence regardless of which goroutine executes
// the sampling operation.
type sampler struct {
	mu  sync.Mutex
	src rand.Source
}

func newSampler(seed uint64) sampler {
	return sampler{src: rand.NewSource(seed)}
}

// Gaussian fills out with draws from N(mean, stddev).
func (s *sampler) Gaussian(mean, stddev float64, out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dist := distuv.Normal{Mu: mean, Sigma: stddev, Src: s.src}
	for i := range out {
		out[i] = float32(dist.Rand())
	}
}

// Uniform fills out with draws from [low, high).
func (s *sampler) Uniform(low, high float64, out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dist := distuv.Uniform{Min: low, Max: high, Src: s.src}
	for i := range out {
		out[i] = float32(dist.Rand())
	}
}

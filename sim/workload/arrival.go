// Package workload generates synthetic request streams for the cluster
// driver: an arrival process (Poisson or Gamma inter-arrival times) paired
// with normal-clamped prefill/decode token counts.
package workload

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ArrivalSampler generates inter-arrival times for a request stream.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in ticks.
	// Always returns a positive value (>= 1).
	SampleIAT(rng *rand.Rand) int64
}

// PoissonSampler generates exponentially-distributed inter-arrival times (CV=1).
type PoissonSampler struct {
	rateTicks float64 // requests per tick
}

// NewPoissonSampler creates a Poisson sampler for the given rate in
// requests per tick.
func NewPoissonSampler(rateTicks float64) *PoissonSampler {
	if rateTicks <= 0 {
		logrus.Panicf("NewPoissonSampler: rate must be positive, got %v", rateTicks)
	}
	return &PoissonSampler{rateTicks: rateTicks}
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) int64 {
	iat := int64(rng.ExpFloat64() / s.rateTicks)
	if iat < 1 {
		return 1
	}
	return iat
}

// GammaSampler generates Gamma-distributed inter-arrival times.
// CV > 1 produces bursty arrivals, the interesting regime for autoscaling.
// Implemented using Marsaglia-Tsang's method for shape >= 1,
// with transformation for shape < 1.
type GammaSampler struct {
	shape float64 // 1/CV² (alpha parameter)
	scale float64 // CV²/rate in ticks (beta parameter)
}

// NewGammaSampler creates a Gamma sampler for the given rate in requests per
// tick and coefficient of variation.
func NewGammaSampler(rateTicks, cv float64) *GammaSampler {
	if rateTicks <= 0 || cv <= 0 {
		logrus.Panicf("NewGammaSampler: rate and CV must be positive, got rate=%v cv=%v", rateTicks, cv)
	}
	return &GammaSampler{
		shape: 1.0 / (cv * cv),
		scale: cv * cv / rateTicks,
	}
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) int64 {
	sample := gammaRand(rng, s.shape, s.scale)
	iat := int64(sample)
	if iat < 1 {
		return 1
	}
	return iat
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape >= 1: direct method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

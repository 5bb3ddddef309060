package workload

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/capacity-sim/sim"
)

// Arrival process names accepted by Spec.ArrivalProcess.
const (
	ProcessPoisson = "poisson"
	ProcessGamma   = "gamma"
)

// TokenSpec describes a normal-clamped token-count distribution.
type TokenSpec struct {
	Mean  int `yaml:"mean"`
	Stdev int `yaml:"stdev"`
	Min   int `yaml:"min"`
	Max   int `yaml:"max"`
}

// Spec describes a synthetic workload: an arrival process and per-request
// token-count distributions.
type Spec struct {
	Rate           float64   `yaml:"rate"`            // requests per second
	MaxRequests    int       `yaml:"max_requests"`    // number of requests to generate
	ArrivalProcess string    `yaml:"arrival_process"` // "poisson" (default) or "gamma"
	CV             float64   `yaml:"cv"`              // coefficient of variation (gamma only)
	PrefillTokens  TokenSpec `yaml:"prefill_tokens"`
	DecodeTokens   TokenSpec `yaml:"decode_tokens"`
}

// DefaultSpec returns a moderate Poisson workload.
func DefaultSpec() Spec {
	return Spec{
		Rate:           1.0,
		MaxRequests:    100,
		ArrivalProcess: ProcessPoisson,
		CV:             1.0,
		PrefillTokens:  TokenSpec{Mean: 512, Stdev: 256, Min: 2, Max: 7000},
		DecodeTokens:   TokenSpec{Mean: 128, Stdev: 64, Min: 2, Max: 2048},
	}
}

// Validate checks the spec for values Generate cannot work with.
func (s Spec) Validate() error {
	if s.Rate <= 0 {
		return fmt.Errorf("workload: rate must be positive, got %v", s.Rate)
	}
	if s.MaxRequests <= 0 {
		return fmt.Errorf("workload: max requests must be positive, got %d", s.MaxRequests)
	}
	switch s.ArrivalProcess {
	case "", ProcessPoisson:
	case ProcessGamma:
		if s.CV <= 0 {
			return fmt.Errorf("workload: gamma arrivals require positive CV, got %v", s.CV)
		}
	default:
		return fmt.Errorf("workload: unknown arrival process %q", s.ArrivalProcess)
	}
	for _, ts := range []TokenSpec{s.PrefillTokens, s.DecodeTokens} {
		if ts.Mean <= 0 || ts.Min < 1 || ts.Max < ts.Min {
			return fmt.Errorf("workload: invalid token spec %+v", ts)
		}
	}
	return nil
}

// TicksPerSecond converts wall-clock seconds to simulation ticks (microseconds).
const TicksPerSecond = 1_000_000

// Generate produces MaxRequests requests with timestamps from the configured
// arrival process, ordered by arrival time. Deterministic for a given rng
// state.
func Generate(spec Spec, rng *rand.Rand) []*sim.Request {
	sampler := newSampler(spec)
	requests := make([]*sim.Request, 0, spec.MaxRequests)
	var clock int64
	for i := 0; i < spec.MaxRequests; i++ {
		clock += sampler.SampleIAT(rng)
		requests = append(requests, &sim.Request{
			ID:            fmt.Sprintf("req_%d", i),
			ArrivalTime:   clock,
			PrefillTokens: sampleTokens(spec.PrefillTokens, rng),
			DecodeTokens:  sampleTokens(spec.DecodeTokens, rng),
			State:         sim.StateQueued,
		})
	}
	return requests
}

func newSampler(spec Spec) ArrivalSampler {
	rateTicks := spec.Rate / TicksPerSecond
	switch spec.ArrivalProcess {
	case "", ProcessPoisson:
		return NewPoissonSampler(rateTicks)
	case ProcessGamma:
		return NewGammaSampler(rateTicks, spec.CV)
	default:
		logrus.Panicf("unknown arrival process: %s", spec.ArrivalProcess)
		return nil
	}
}

func sampleTokens(ts TokenSpec, rng *rand.Rand) int64 {
	n := int(rng.NormFloat64()*float64(ts.Stdev) + float64(ts.Mean))
	if n < ts.Min {
		n = ts.Min
	}
	if n > ts.Max {
		n = ts.Max
	}
	return int64(n)
}

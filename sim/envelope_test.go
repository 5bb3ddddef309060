package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelopeUnderTest builds each strategy with a bucket width fine enough that
// both must agree on the property tests below.
func envelopeUnderTest(t *testing.T, kind string) RateEnvelope {
	t.Helper()
	return NewRateEnvelope(kind, 1)
}

func TestRateEnvelope_ColdStart(t *testing.T) {
	for _, kind := range GetAvailableEnvelopes() {
		t.Run(kind, func(t *testing.T) {
			env := envelopeUnderTest(t, kind)
			assert.Equal(t, 0.0, env.MaxRate(100, 10, 50))
		})
	}
}

func TestRateEnvelope_ZeroOrNegativeWindow(t *testing.T) {
	for _, kind := range GetAvailableEnvelopes() {
		t.Run(kind, func(t *testing.T) {
			env := envelopeUnderTest(t, kind)
			env.RecordArrival(10, 100)
			assert.Equal(t, 0.0, env.MaxRate(20, 0, 15))
			assert.Equal(t, 0.0, env.MaxRate(20, -5, 15))
		})
	}
}

func TestRateEnvelope_SingleArrivalExactness(t *testing.T) {
	// One arrival of weight 101 at t=10, queried at t+windowSize with
	// lookback >= windowSize, yields 101/windowSize.
	for _, kind := range GetAvailableEnvelopes() {
		t.Run(kind, func(t *testing.T) {
			env := envelopeUnderTest(t, kind)
			env.RecordArrival(10, 101)
			rate := env.MaxRate(20, 10, 15)
			assert.InDelta(t, 101.0/10.0, rate, 1e-9)
		})
	}
}

func TestRateEnvelope_LookbackFiltering(t *testing.T) {
	for _, kind := range GetAvailableEnvelopes() {
		t.Run(kind, func(t *testing.T) {
			env := envelopeUnderTest(t, kind)
			env.RecordArrival(10, 100)
			// Lookback of 5 at t=100 excludes the arrival entirely.
			assert.Equal(t, 0.0, env.MaxRate(100, 10, 5))
		})
	}
}

func TestRateEnvelope_PruningIsPermanent(t *testing.T) {
	// GIVEN a query at time T with lookback L
	// WHEN a second query runs at T2 >= T+L with no new arrivals
	// THEN it returns 0 and the internal log is empty.
	t.Run(EnvelopeSampled, func(t *testing.T) {
		env := &SampledEnvelope{}
		env.RecordArrival(10, 5)
		require.Greater(t, env.MaxRate(20, 10, 15), 0.0)

		assert.Equal(t, 0.0, env.MaxRate(100, 10, 15))
		assert.Equal(t, 0, env.Len())
	})
	t.Run(EnvelopeBucketed, func(t *testing.T) {
		env := &BucketedEnvelope{width: 1}
		env.RecordArrival(10, 5)
		require.Greater(t, env.MaxRate(20, 10, 15), 0.0)

		assert.Equal(t, 0.0, env.MaxRate(100, 10, 15))
		assert.Equal(t, 0, env.Len())
	})
}

func TestRateEnvelope_DetectsDensePeriod(t *testing.T) {
	// Five arrivals of weight 100 packed into [1000,1160], two stragglers at
	// 2000 and 2250. The peak window of width 300 should capture the dense
	// cluster: 500 tokens over 300 ticks.
	for _, kind := range GetAvailableEnvelopes() {
		t.Run(kind, func(t *testing.T) {
			var env RateEnvelope
			if kind == EnvelopeBucketed {
				env = NewRateEnvelope(kind, 100)
			} else {
				env = NewRateEnvelope(kind, 0)
			}
			for i := int64(0); i < 5; i++ {
				env.RecordArrival(1000+40*i, 100)
			}
			env.RecordArrival(2000, 100)
			env.RecordArrival(2250, 100)

			rate := env.MaxRate(3000, 300, 2500)
			assert.InDelta(t, 500.0/300.0, rate, 1e-9)
		})
	}
}

func TestSampledEnvelope_TruncatedWindowUsesActualDuration(t *testing.T) {
	// A window sliding past `now` is truncated; the rate divides by the
	// actual duration, so a fresh arrival near `now` reads as a high rate.
	env := &SampledEnvelope{}
	env.RecordArrival(95, 100)
	// Candidate start 95 covers [95,100): 100 tokens over 5 ticks.
	rate := env.MaxRate(100, 10, 100)
	assert.InDelta(t, 100.0/5.0, rate, 1e-9)
}

func TestBucketedEnvelope_AccumulatesWithinBucket(t *testing.T) {
	env := &BucketedEnvelope{width: 10}
	env.RecordArrival(12, 30)
	env.RecordArrival(17, 20)
	env.RecordArrival(19, 50)
	assert.Equal(t, 1, env.Len())

	// All 100 tokens sit in bucket [10,20); window of one bucket.
	rate := env.MaxRate(20, 10, 20)
	assert.InDelta(t, 100.0/10.0, rate, 1e-9)
}

func TestBucketedEnvelope_EvictsOnlyFullyExpiredBuckets(t *testing.T) {
	env := &BucketedEnvelope{width: 10}
	env.RecordArrival(5, 10)  // bucket [0,10)
	env.RecordArrival(25, 10) // bucket [20,30)

	// Cutoff at 8: bucket [0,10) straddles it and must be retained.
	require.Greater(t, env.MaxRate(30, 10, 22), 0.0)
	assert.Equal(t, 2, env.Len())

	// Cutoff at 15: bucket [0,10) is now fully expired.
	env.MaxRate(30, 10, 15)
	assert.Equal(t, 1, env.Len())
}

func TestNewRateEnvelope_DefaultsToSampled(t *testing.T) {
	env := NewRateEnvelope("", 0)
	_, ok := env.(*SampledEnvelope)
	assert.True(t, ok, "expected SampledEnvelope for empty strategy name, got %T", env)
}

func TestNewRateEnvelope_UnknownKind_Panics(t *testing.T) {
	assert.Panics(t, func() { NewRateEnvelope("histogram", 0) })
}

func TestNewRateEnvelope_BucketedRequiresWidth_Panics(t *testing.T) {
	assert.Panics(t, func() { NewRateEnvelope(EnvelopeBucketed, 0) })
}

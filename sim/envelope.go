// envelope.go
//
// Sliding-window peak arrival-rate estimation. A RateEnvelope records
// (timestamp, token-weight) arrival events and answers "what was the maximum
// sustained token rate over any window of size W within the last L ticks?".
// Two strategies are provided:
//
//   - SampledEnvelope keeps the raw event log and evaluates candidate windows
//     at fixed starts spaced windowSize/10 apart. Bounded query cost
//     (11 window positions per lookback span), but the reported maximum can
//     miss the true peak by up to one step of window placement.
//   - BucketedEnvelope accumulates weight into fixed-width time buckets and
//     slides a window measured in whole buckets. Query cost is independent of
//     arrival density and eviction is incremental; the reported rate is
//     accurate to within one bucket width of window placement and duration.
//
// Both prune eagerly: after a query at time T with lookback L, no retained
// event predates T-L. Entries pruned by a short-lookback query are gone for
// good, even if a later query asks for a longer lookback. That asymmetry is
// accepted; callers that need independent horizons keep independent envelopes
// (see Autoscaler).

package sim

import "fmt"

// RateEnvelope is a sliding-window estimator of peak arrival rate over a
// recent horizon.
type RateEnvelope interface {
	// RecordArrival appends an arrival event. Timestamps must be
	// non-decreasing across calls (simulation order). O(1) amortized.
	RecordArrival(time int64, weight int64)

	// MaxRate returns the maximum sustained rate (weight per tick) over any
	// candidate window of width windowSize within [now-lookback, now).
	// Returns 0 for non-positive windowSize or an empty/cold log.
	// Prunes events older than now-lookback as a permanent side effect.
	MaxRate(now, windowSize, lookback int64) float64
}

// Envelope strategy names accepted by NewRateEnvelope.
const (
	EnvelopeSampled  = "sampled"
	EnvelopeBucketed = "bucketed"
)

// NewRateEnvelope creates a rate envelope by strategy name.
// Empty string defaults to sampled. bucketWidth is only consumed by the
// bucketed strategy and must be positive for it.
// Panics on unrecognized names.
func NewRateEnvelope(kind string, bucketWidth int64) RateEnvelope {
	switch kind {
	case "", EnvelopeSampled:
		return &SampledEnvelope{}
	case EnvelopeBucketed:
		if bucketWidth <= 0 {
			panic(fmt.Sprintf("NewRateEnvelope: bucketed strategy requires positive bucket width, got %d", bucketWidth))
		}
		return &BucketedEnvelope{width: bucketWidth}
	default:
		panic(fmt.Sprintf("unknown envelope strategy %q", kind))
	}
}

// GetAvailableEnvelopes returns the list of supported envelope strategies.
func GetAvailableEnvelopes() []string {
	return []string{EnvelopeSampled, EnvelopeBucketed}
}

type arrivalPoint struct {
	time   int64
	weight int64
}

// SampledEnvelope is the raw-log strategy. Events are retained individually
// and candidate windows are sampled at windowSize/10 increments.
type SampledEnvelope struct {
	arrivals []arrivalPoint
}

// RecordArrival implements RateEnvelope.
func (e *SampledEnvelope) RecordArrival(time int64, weight int64) {
	e.arrivals = append(e.arrivals, arrivalPoint{time: time, weight: weight})
}

// Len returns the number of retained arrival events.
func (e *SampledEnvelope) Len() int {
	return len(e.arrivals)
}

// MaxRate implements RateEnvelope.
func (e *SampledEnvelope) MaxRate(now, windowSize, lookback int64) float64 {
	if windowSize <= 0 {
		return 0
	}

	cutoff := now - lookback
	e.prune(cutoff)

	if len(e.arrivals) == 0 {
		return 0
	}
	if e.arrivals[len(e.arrivals)-1].time < cutoff {
		// Cold log: nothing recorded inside the lookback horizon.
		return 0
	}

	step := windowSize / 10
	if step < 1 {
		step = 1
	}

	maxRate := 0.0
	for start := cutoff; start < now; start += step {
		end := start + windowSize
		if end > now {
			end = now
		}
		duration := end - start
		if duration <= 0 {
			continue
		}
		var tokens int64
		for _, a := range e.arrivals {
			if a.time >= start && a.time < end {
				tokens += a.weight
			}
		}
		if rate := float64(tokens) / float64(duration); rate > maxRate {
			maxRate = rate
		}
	}
	return maxRate
}

func (e *SampledEnvelope) prune(cutoff int64) {
	i := 0
	for i < len(e.arrivals) && e.arrivals[i].time < cutoff {
		i++
	}
	if i == 0 {
		return
	}
	// Copy down instead of reslicing so pruned entries do not pin the
	// backing array.
	n := copy(e.arrivals, e.arrivals[i:])
	e.arrivals = e.arrivals[:n]
}

type bucketEntry struct {
	start  int64 // inclusive bucket start; bucket spans [start, start+width)
	weight int64
}

// BucketedEnvelope is the quantized strategy. Arrival weight is accumulated
// into fixed-width buckets and the window slides in whole buckets.
// Buckets are stored sparsely in time order; empty stretches cost nothing.
type BucketedEnvelope struct {
	width   int64
	buckets []bucketEntry
}

// RecordArrival implements RateEnvelope.
func (e *BucketedEnvelope) RecordArrival(time int64, weight int64) {
	start := (time / e.width) * e.width
	if n := len(e.buckets); n > 0 && e.buckets[n-1].start == start {
		e.buckets[n-1].weight += weight
		return
	}
	e.buckets = append(e.buckets, bucketEntry{start: start, weight: weight})
}

// Len returns the number of retained (non-empty) buckets.
func (e *BucketedEnvelope) Len() int {
	return len(e.buckets)
}

// MaxRate implements RateEnvelope.
// A bucket is evicted only once it falls entirely outside the lookback
// horizon, so the oldest retained bucket may straddle the cutoff.
func (e *BucketedEnvelope) MaxRate(now, windowSize, lookback int64) float64 {
	if windowSize <= 0 {
		return 0
	}

	cutoff := now - lookback
	e.prune(cutoff)

	if len(e.buckets) == 0 {
		return 0
	}

	// Whole buckets per window, rounded up.
	windowBuckets := (windowSize + e.width - 1) / e.width
	span := windowBuckets * e.width

	// Every maximal window aligns with some retained bucket's start: shifting
	// a window left of a bucket start only adds duration, never weight.
	maxRate := 0.0
	for i := range e.buckets {
		start := e.buckets[i].start
		end := start + span
		if end > now {
			end = now
		}
		duration := end - start
		if duration <= 0 {
			continue
		}
		var tokens int64
		for j := i; j < len(e.buckets) && e.buckets[j].start < end; j++ {
			tokens += e.buckets[j].weight
		}
		if rate := float64(tokens) / float64(duration); rate > maxRate {
			maxRate = rate
		}
	}
	return maxRate
}

func (e *BucketedEnvelope) prune(cutoff int64) {
	i := 0
	for i < len(e.buckets) && e.buckets[i].start+e.width <= cutoff {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(e.buckets, e.buckets[i:])
	e.buckets = e.buckets[:n]
}

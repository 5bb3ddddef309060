// autoscaler.go
//
// The capacity decision loop. The Autoscaler watches arrival-rate history
// through two rate envelopes (independent up/down tunables), tracks measured
// replica throughput through an EMA, and emits a signed replica delta from
// Tune. Hysteresis keeps it from flapping: scale-down is blocked for a
// stabilization delay after any scale-up, and consecutive scale-downs are
// spaced by half that delay.

package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Autoscaler decides, at discrete evaluation points, whether the replica pool
// should grow or shrink.
//
// Pending-action counters are owned by the instance and mutated only by its
// own methods: Tune increments them when it returns a nonzero delta, and the
// driver calls OnScaleUpComplete / OnScaleDownComplete once an action lands.
// The effective replica count used for decisions is
// live + pendingScaleUps - pendingScaleDowns.
//
// Not safe for concurrent use: all calls must be serialized by the owner.
type Autoscaler struct {
	cfg      AutoscalerConfig
	replicas ReplicaSet

	// Separate envelopes so that pruning with the shorter lookback cannot
	// starve queries with the longer one. Both see every arrival.
	envUp   RateEnvelope
	envDown RateEnvelope

	throughput *ThroughputEstimator

	lastScaleUpTime   int64
	lastScaleDownTime int64
	scaledUp          bool // whether lastScaleUpTime has been set
	scaledDown        bool // whether lastScaleDownTime has been set

	pendingScaleUps   int
	pendingScaleDowns int
}

// NewAutoscaler creates an Autoscaler over the given live-replica view.
// Panics if the config does not validate; call cfg.Validate() first for a
// recoverable error.
func NewAutoscaler(cfg AutoscalerConfig, replicas ReplicaSet) *Autoscaler {
	if err := cfg.Validate(); err != nil {
		logrus.Panicf("NewAutoscaler: %v", err)
	}
	return &Autoscaler{
		cfg:        cfg,
		replicas:   replicas,
		envUp:      NewRateEnvelope(cfg.Envelope, cfg.BucketWidth),
		envDown:    NewRateEnvelope(cfg.Envelope, cfg.BucketWidth),
		throughput: NewThroughputEstimator(cfg.ThroughputAlpha, cfg.InitialThroughput),
	}
}

// OnRequestArrival records an arrival in both rate envelopes.
// Weight is the request's prefill+decode token count.
func (a *Autoscaler) OnRequestArrival(r *Request) {
	a.envUp.RecordArrival(r.ArrivalTime, r.Weight())
	a.envDown.RecordArrival(r.ArrivalTime, r.Weight())
}

// OnBatchEnd folds a completed batch into the throughput estimate.
// Malformed batches are ignored (see ThroughputEstimator.OnBatchEnd).
func (a *Autoscaler) OnBatchEnd(b *Batch) {
	a.throughput.OnBatchEnd(b)
}

// Tune evaluates demand against capacity at time now and returns a signed
// replica delta: positive to scale up, negative to scale down, zero to hold.
//
// Scale-up always takes precedence: it is checked first and is never gated by
// the stabilization delay. Scale-down is only considered once
// StabilizationDelay has elapsed since the last scale-up and half of it since
// the last scale-down, and never brings the effective count below MinReplicas.
func (a *Autoscaler) Tune(now int64) int {
	demandUp := a.envUp.MaxRate(now, a.cfg.WindowSizeUp, a.cfg.LookbackUp)
	demandDown := a.envDown.MaxRate(now, a.cfg.WindowSizeDown, a.cfg.LookbackDown)

	throughput := a.throughput.Estimate()
	if throughput <= 0 {
		// No meaningful capacity estimate; hold.
		return 0
	}

	effective := len(a.replicas.LiveReplicaIDs()) + a.pendingScaleUps - a.pendingScaleDowns

	// Scale-up check.
	target := int(math.Ceil(demandUp / throughput))
	if target > effective && a.passesScaleUpThreshold(target, effective) {
		delta := target - effective
		if a.cfg.MaxScalePerDecision > 0 && delta > a.cfg.MaxScalePerDecision {
			delta = a.cfg.MaxScalePerDecision
		}
		a.lastScaleUpTime = now
		a.scaledUp = true
		a.pendingScaleUps += delta
		logrus.Infof("autoscaler: scale up +%d (demand=%.3f tok/tick, throughput=%.3f, effective=%d)",
			delta, demandUp, throughput, effective)
		return delta
	}

	// Scale-down check, gated by stabilization.
	if a.scaledUp && now-a.lastScaleUpTime < a.cfg.StabilizationDelay {
		return 0
	}
	if a.scaledDown && now-a.lastScaleDownTime < a.cfg.StabilizationDelay/2 {
		return 0
	}

	target = int(math.Ceil(demandDown / throughput))
	if target < a.cfg.MinReplicas {
		target = a.cfg.MinReplicas
	}
	if target >= effective || !a.passesScaleDownThreshold(target, effective) {
		return 0
	}
	delta := effective - target
	if a.cfg.MaxScalePerDecision > 0 && delta > a.cfg.MaxScalePerDecision {
		delta = a.cfg.MaxScalePerDecision
	}
	a.lastScaleDownTime = now
	a.scaledDown = true
	a.pendingScaleDowns += delta
	logrus.Infof("autoscaler: scale down -%d (demand=%.3f tok/tick, throughput=%.3f, effective=%d)",
		delta, demandDown, throughput, effective)
	return -delta
}

func (a *Autoscaler) passesScaleUpThreshold(target, effective int) bool {
	if a.cfg.ScaleUpThreshold == 0 {
		return true
	}
	return float64(target) > a.cfg.ScaleUpThreshold*float64(effective)
}

func (a *Autoscaler) passesScaleDownThreshold(target, effective int) bool {
	if a.cfg.ScaleDownThreshold == 0 {
		return true
	}
	return float64(target) < a.cfg.ScaleDownThreshold*float64(effective)
}

// OnScaleUpComplete tells the autoscaler a previously requested scale-up has
// landed (the replica is live in the ReplicaSet).
func (a *Autoscaler) OnScaleUpComplete() {
	if a.pendingScaleUps > 0 {
		a.pendingScaleUps--
	}
}

// OnScaleDownComplete tells the autoscaler a previously requested scale-down
// has landed (the replica left the ReplicaSet).
func (a *Autoscaler) OnScaleDownComplete() {
	if a.pendingScaleDowns > 0 {
		a.pendingScaleDowns--
	}
}

// PendingScaleUps returns the count of requested-but-incomplete scale-ups.
func (a *Autoscaler) PendingScaleUps() int { return a.pendingScaleUps }

// PendingScaleDowns returns the count of requested-but-incomplete scale-downs.
func (a *Autoscaler) PendingScaleDowns() int { return a.pendingScaleDowns }

// Throughput returns the current per-replica throughput estimate (tokens/tick).
func (a *Autoscaler) Throughput() float64 { return a.throughput.Estimate() }

package sim

// ThroughputEstimator maintains an exponential-moving-average estimate of
// per-replica token throughput (tokens per tick), fed by batch completions.
// All replicas are assumed to have comparable capacity, so a single estimate
// covers the replica class.
type ThroughputEstimator struct {
	ema   float64
	alpha float64
}

// NewThroughputEstimator creates an estimator with the given smoothing factor
// alpha in (0,1] and initial estimate. The initial estimate must be positive
// for the autoscaler's division steps to be meaningful.
func NewThroughputEstimator(alpha, initial float64) *ThroughputEstimator {
	return &ThroughputEstimator{ema: initial, alpha: alpha}
}

// OnBatchEnd folds a completed batch into the estimate:
//
//	ema = alpha * (totalTokens / executionTime) + (1-alpha) * ema
//
// Batches with an absent scheduled or completed timestamp, a non-positive
// execution time, or a non-positive token total are ignored with no state
// change.
func (te *ThroughputEstimator) OnBatchEnd(b *Batch) {
	if b == nil || !b.ScheduledSet || !b.CompletedSet {
		return
	}
	executionTime := b.CompletedAt - b.ScheduledAt
	if executionTime <= 0 {
		return
	}
	totalTokens := b.TotalTokens()
	if totalTokens <= 0 {
		return
	}
	observed := float64(totalTokens) / float64(executionTime)
	te.ema = te.alpha*observed + (1-te.alpha)*te.ema
}

// Estimate returns the current throughput estimate in tokens per tick.
func (te *ThroughputEstimator) Estimate() float64 {
	return te.ema
}

// batch.go
//
// Defines the Batch struct which represents a group of requests processed
// together in a single forward pass on one replica.

package sim

// Batch represents a group of requests executed together on one replica.
// ScheduledAt and CompletedAt are stamped by the driver; either may be absent
// (the corresponding Set flag is false) for batches that never ran, and such
// batches are ignored by the throughput estimator.
type Batch struct {
	Requests  []*Request // Requests included in the batch
	NumTokens []int64    // Per-request token counts, same order as Requests

	ScheduledAt  int64 // Timestamp in ticks when the batch started executing
	CompletedAt  int64 // Timestamp in ticks when the batch finished
	ScheduledSet bool  // Tracks whether ScheduledAt has been stamped
	CompletedSet bool  // Tracks whether CompletedAt has been stamped
}

// NewBatch creates a Batch from the given requests. Token counts are derived
// from each request's prefill+decode weight.
func NewBatch(reqs []*Request) *Batch {
	tokens := make([]int64, len(reqs))
	for i, r := range reqs {
		tokens[i] = r.Weight()
	}
	return &Batch{Requests: reqs, NumTokens: tokens}
}

// OnSchedule stamps the batch's execution start time.
func (b *Batch) OnSchedule(now int64) {
	b.ScheduledAt = now
	b.ScheduledSet = true
}

// OnBatchEnd stamps the batch's completion time.
func (b *Batch) OnBatchEnd(now int64) {
	b.CompletedAt = now
	b.CompletedSet = true
}

// TotalTokens returns the sum of per-request token counts.
func (b *Batch) TotalTokens() int64 {
	var total int64
	for _, n := range b.NumTokens {
		total += n
	}
	return total
}

// ExecutionTime returns CompletedAt - ScheduledAt in ticks, or 0 if either
// timestamp is absent.
func (b *Batch) ExecutionTime() int64 {
	if !b.ScheduledSet || !b.CompletedSet {
		return 0
	}
	return b.CompletedAt - b.ScheduledAt
}

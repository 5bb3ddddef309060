package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func completedBatch(n int, scheduledAt, completedAt int64) *Batch {
	reqs := make([]*Request, n)
	for i := range reqs {
		reqs[i] = makeRequest("r", 0) // weight 30 each
	}
	b := NewBatch(reqs)
	b.OnSchedule(scheduledAt)
	b.OnBatchEnd(completedAt)
	return b
}

func TestThroughputEstimator_EMAFolding(t *testing.T) {
	// GIVEN alpha=0.5 and an initial estimate of 1 token/tick
	te := NewThroughputEstimator(0.5, 1.0)
	assert.Equal(t, 1.0, te.Estimate())

	// WHEN a batch of 90 tokens completes in 10 ticks (observed 9 tok/tick)
	te.OnBatchEnd(completedBatch(3, 100, 110))

	// THEN ema = 0.5*9 + 0.5*1
	assert.InDelta(t, 5.0, te.Estimate(), 1e-9)

	// AND a second identical observation moves it halfway again
	te.OnBatchEnd(completedBatch(3, 110, 120))
	assert.InDelta(t, 7.0, te.Estimate(), 1e-9)
}

func TestThroughputEstimator_SingleBatchObservation(t *testing.T) {
	// 225 tokens over 10 ticks observes 22.5 tok/tick:
	// ema = 0.5*22.5 + 0.5*1.0
	te := NewThroughputEstimator(0.5, 1.0)
	b := NewBatch([]*Request{{ID: "big", PrefillTokens: 100, DecodeTokens: 125}})
	b.OnSchedule(0)
	b.OnBatchEnd(10)
	te.OnBatchEnd(b)
	assert.InDelta(t, 11.75, te.Estimate(), 1e-9)
}

func TestThroughputEstimator_IgnoresMalformedBatches(t *testing.T) {
	te := NewThroughputEstimator(0.5, 4.0)

	// Nil batch.
	te.OnBatchEnd(nil)

	// Never scheduled.
	unscheduled := NewBatch([]*Request{makeRequest("a", 0)})
	unscheduled.OnBatchEnd(50)
	te.OnBatchEnd(unscheduled)

	// Never completed.
	uncompleted := NewBatch([]*Request{makeRequest("a", 0)})
	uncompleted.OnSchedule(10)
	te.OnBatchEnd(uncompleted)

	// Zero execution time.
	te.OnBatchEnd(completedBatch(2, 77, 77))

	// Zero tokens.
	empty := NewBatch(nil)
	empty.OnSchedule(10)
	empty.OnBatchEnd(20)
	te.OnBatchEnd(empty)

	assert.Equal(t, 4.0, te.Estimate())
}

func TestBatch_TokenAccountingAndTimestamps(t *testing.T) {
	reqs := []*Request{makeRequest("a", 1), makeRequest("b", 2)}
	b := NewBatch(reqs)
	assert.Equal(t, []int64{30, 30}, b.NumTokens)
	assert.Equal(t, int64(60), b.TotalTokens())

	// ExecutionTime is zero until both timestamps are stamped.
	assert.Equal(t, int64(0), b.ExecutionTime())
	b.OnSchedule(100)
	assert.Equal(t, int64(0), b.ExecutionTime())
	b.OnBatchEnd(160)
	assert.Equal(t, int64(60), b.ExecutionTime())
}

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQueue_DrainSortedByArrival(t *testing.T) {
	var pq PendingQueue
	pq.Enqueue(makeRequest("c", 30))
	pq.Enqueue(makeRequest("a", 10))
	pq.Enqueue(makeRequest("b", 20))
	require.Equal(t, 3, pq.Len())

	reqs := pq.DrainSorted()
	require.Len(t, reqs, 3)
	assert.Equal(t, "a", reqs[0].ID)
	assert.Equal(t, "b", reqs[1].ID)
	assert.Equal(t, "c", reqs[2].ID)

	// Drain empties the queue.
	assert.Equal(t, 0, pq.Len())
	assert.Empty(t, pq.DrainSorted())
}

func TestPendingQueue_StableOnEqualTimestamps(t *testing.T) {
	var pq PendingQueue
	pq.Enqueue(makeRequest("first", 100))
	pq.Enqueue(makeRequest("second", 100))
	pq.Enqueue(makeRequest("third", 100))

	reqs := pq.DrainSorted()
	require.Len(t, reqs, 3)
	assert.Equal(t, "first", reqs[0].ID)
	assert.Equal(t, "second", reqs[1].ID)
	assert.Equal(t, "third", reqs[2].ID)
}

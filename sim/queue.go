// Implements the pending-request queue owned by the global scheduler.
// Requests are enqueued on arrival and drained whole by Schedule().

package sim

import (
	"fmt"
	"sort"
	"strings"
)

// PendingQueue holds requests waiting for a global scheduling decision.
// Ordering at drain time is by arrival timestamp, ties broken by insertion
// order, so replay is deterministic even if additions interleave with other
// calls out of arrival order.
type PendingQueue struct {
	queue []*Request
}

// Enqueue adds a request to the back of the queue.
func (pq *PendingQueue) Enqueue(r *Request) {
	pq.queue = append(pq.queue, r)
}

// Len returns the number of requests in the queue.
func (pq *PendingQueue) Len() int {
	return len(pq.queue)
}

// DrainSorted removes and returns all queued requests in non-decreasing
// arrival-timestamp order. The sort is stable, so requests with equal arrival
// timestamps keep their insertion order.
func (pq *PendingQueue) DrainSorted() []*Request {
	reqs := pq.queue
	pq.queue = nil
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].ArrivalTime < reqs[j].ArrivalTime
	})
	return reqs
}

func (pq *PendingQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range pq.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(pq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

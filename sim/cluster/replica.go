package cluster

import (
	"math/rand"

	"github.com/inference-sim/capacity-sim/sim"
)

// Replica is one unit of serving capacity in the driver's pool. It holds a
// pending queue of routed requests and at most one in-flight batch.
//
// The execution model is deliberately simple: a batch of T total tokens takes
// T / (serviceRate * jitter) ticks. Batch formation fidelity, KV-cache
// pressure, and per-step latency modeling are collaborator concerns outside
// this simulator.
type Replica struct {
	id          sim.ReplicaID
	pending     []*sim.Request
	inFlight    *sim.Batch
	serviceRate float64 // tokens per tick
	jitter      float64 // fractional service-time jitter, [0,1)
	rng         *rand.Rand
}

// NewReplica creates a replica with the given service model.
func NewReplica(id sim.ReplicaID, serviceRate, jitter float64, rng *rand.Rand) *Replica {
	return &Replica{
		id:          id,
		serviceRate: serviceRate,
		jitter:      jitter,
		rng:         rng,
	}
}

// ID returns the replica's identity.
func (r *Replica) ID() sim.ReplicaID { return r.id }

// PendingCount returns the number of routed-but-not-started requests.
func (r *Replica) PendingCount() int { return len(r.pending) }

// InFlightCount returns the number of requests in the executing batch.
func (r *Replica) InFlightCount() int {
	if r.inFlight == nil {
		return 0
	}
	return len(r.inFlight.Requests)
}

// Idle reports whether the replica has no pending and no in-flight work.
func (r *Replica) Idle() bool {
	return len(r.pending) == 0 && r.inFlight == nil
}

// Push appends an assigned request to the replica's pending queue.
func (r *Replica) Push(req *sim.Request) {
	req.AssignedReplica = r.id
	r.pending = append(r.pending, req)
}

// StartBatch forms a batch of up to maxBatchSize pending requests, stamps its
// schedule time, and returns it together with its service duration in ticks.
// Returns nil if the replica is busy or has nothing pending.
func (r *Replica) StartBatch(now int64, maxBatchSize int) (*sim.Batch, int64) {
	if r.inFlight != nil || len(r.pending) == 0 {
		return nil, 0
	}
	n := len(r.pending)
	if maxBatchSize > 0 && n > maxBatchSize {
		n = maxBatchSize
	}
	reqs := r.pending[:n:n]
	r.pending = r.pending[n:]

	batch := sim.NewBatch(reqs)
	batch.OnSchedule(now)
	for _, req := range reqs {
		req.State = sim.StateRunning
	}
	r.inFlight = batch
	return batch, r.serviceDuration(batch)
}

// FinishBatch completes the in-flight batch at time now and returns it.
func (r *Replica) FinishBatch(now int64) *sim.Batch {
	batch := r.inFlight
	if batch == nil {
		return nil
	}
	batch.OnBatchEnd(now)
	for _, req := range batch.Requests {
		req.State = sim.StateCompleted
		req.CompletedTime = now
	}
	r.inFlight = nil
	return batch
}

// serviceDuration models batch execution time: totalTokens over the jittered
// service rate, minimum one tick.
func (r *Replica) serviceDuration(batch *sim.Batch) int64 {
	rate := r.serviceRate
	if r.jitter > 0 {
		rate *= 1 + r.jitter*(2*r.rng.Float64()-1)
	}
	d := int64(float64(batch.TotalTokens()) / rate)
	if d < 1 {
		return 1
	}
	return d
}

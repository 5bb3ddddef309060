// scheduler.go
//
// Global scheduling: policies that map the pending-request queue onto live,
// non-draining replicas. Two policies are provided, round-robin and
// least-outstanding-requests (LOR), behind one GlobalScheduler contract.

package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Assignment pairs a request with the replica chosen to serve it.
type Assignment struct {
	ReplicaID ReplicaID
	Request   *Request
}

// GlobalScheduler owns the pending-request queue and the draining set.
//
// Draining replicas receive zero new assignments from Schedule() but may still
// be completing previously assigned work. The scheduler only ever adds to the
// draining set; removal (once a replica has fully drained and is taken out of
// the live set) is the driver's job.
//
// Not safe for concurrent use: all calls must be serialized by the owner.
type GlobalScheduler interface {
	// AddRequest appends a request to the pending queue. No other side effects.
	AddRequest(r *Request)

	// Schedule consumes the entire pending queue and returns assignments in
	// non-decreasing arrival-timestamp order. When no non-draining replica
	// exists it returns nil and leaves the queue untouched.
	Schedule() []Assignment

	// MarkReplicaDraining adds the replica to the draining set. Idempotent.
	MarkReplicaDraining(id ReplicaID)

	// IsDraining reports whether the replica is marked for removal.
	IsDraining(id ReplicaID) bool

	// MarkReplicaToFree selects a victim replica for scale-down, adds it to
	// the draining set, and returns it. Returns false when every live replica
	// is already draining.
	MarkReplicaToFree() (ReplicaID, bool)

	// QueueLen returns the number of requests awaiting assignment.
	QueueLen() int
}

// Scheduler policy names accepted by NewGlobalScheduler.
const (
	PolicyRoundRobin = "round-robin"
	PolicyLOR        = "lor"
)

// NewGlobalScheduler creates a global scheduler by policy name.
// Empty string defaults to round-robin. replicas supplies the authoritative
// live-replica enumeration; loads supplies per-replica outstanding load
// (consumed by LOR, ignored by round-robin).
// Panics on unrecognized names.
func NewGlobalScheduler(name string, replicas ReplicaSet, loads ReplicaLoadView) GlobalScheduler {
	base := schedulerBase{
		replicas: replicas,
		loads:    loads,
		draining: make(map[ReplicaID]bool),
	}
	switch name {
	case "", PolicyRoundRobin:
		return &RoundRobinScheduler{schedulerBase: base}
	case PolicyLOR:
		return &LORScheduler{schedulerBase: base}
	default:
		logrus.Panicf("unknown scheduler policy: %s", name)
		return nil
	}
}

// GetAvailableSchedulerPolicies returns the list of supported policy names.
func GetAvailableSchedulerPolicies() []string {
	return []string{PolicyRoundRobin, PolicyLOR}
}

// schedulerBase carries the state shared by all policies: the pending queue,
// the draining set, and the replica views.
type schedulerBase struct {
	queue    PendingQueue
	draining map[ReplicaID]bool
	replicas ReplicaSet
	loads    ReplicaLoadView
}

func (sb *schedulerBase) AddRequest(r *Request) {
	sb.queue.Enqueue(r)
}

func (sb *schedulerBase) MarkReplicaDraining(id ReplicaID) {
	sb.draining[id] = true
}

func (sb *schedulerBase) IsDraining(id ReplicaID) bool {
	return sb.draining[id]
}

func (sb *schedulerBase) QueueLen() int {
	return sb.queue.Len()
}

// candidates returns the live, non-draining replica IDs sorted ascending.
// Sorting by identity (not insertion order) keeps cycling and tie-breaking
// reproducible regardless of map iteration order in the replica pool.
func (sb *schedulerBase) candidates() []ReplicaID {
	live := sb.replicas.LiveReplicaIDs()
	ids := make([]ReplicaID, 0, len(live))
	for _, id := range live {
		if !sb.draining[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RoundRobinScheduler cycles assignments across the candidate set in
// ascending-identity order.
type RoundRobinScheduler struct {
	schedulerBase
	counter int64
}

// Schedule implements GlobalScheduler for RoundRobinScheduler.
//
// The counter is monotonic across calls and never reset, and the modulo is
// always taken against the current candidate count. When the candidate set
// grows or shrinks between calls the cycle position shifts; historical
// affinity is deliberately not preserved.
func (rr *RoundRobinScheduler) Schedule() []Assignment {
	candidates := rr.candidates()
	if len(candidates) == 0 {
		return nil
	}

	reqs := rr.queue.DrainSorted()
	assignments := make([]Assignment, 0, len(reqs))
	for _, req := range reqs {
		target := candidates[rr.counter%int64(len(candidates))]
		rr.counter++
		assignments = append(assignments, Assignment{ReplicaID: target, Request: req})
		logrus.Debugf("round-robin: %s -> replica %d", req.ID, target)
	}
	return assignments
}

// MarkReplicaToFree implements GlobalScheduler for RoundRobinScheduler.
// Round-robin has no load signal, so the victim is simply the lowest-ID
// non-draining replica.
func (rr *RoundRobinScheduler) MarkReplicaToFree() (ReplicaID, bool) {
	candidates := rr.candidates()
	if len(candidates) == 0 {
		return 0, false
	}
	victim := candidates[0]
	rr.draining[victim] = true
	return victim, true
}

// LORScheduler assigns each request to the replica with the least outstanding
// load (pending + in-flight), read from the external load view.
type LORScheduler struct {
	schedulerBase
}

// Schedule implements GlobalScheduler for LORScheduler.
//
// All requests in one call are scored against the load snapshot taken at call
// time: the chosen replica's load is NOT adjusted after an assignment, so a
// burst of k requests arriving together all land on the currently
// least-loaded replica. This is the policy's contract, not an oversight; see
// TestLOR_GreedySnapshot.
func (lor *LORScheduler) Schedule() []Assignment {
	candidates := lor.candidates()
	if len(candidates) == 0 {
		return nil
	}

	loads := make([]int, len(candidates))
	for i, id := range candidates {
		loads[i] = OutstandingLoad(lor.loads, id)
	}

	reqs := lor.queue.DrainSorted()
	assignments := make([]Assignment, 0, len(reqs))
	for _, req := range reqs {
		best := 0
		for i := 1; i < len(candidates); i++ {
			// Strict < keeps ties on the first-seen (lowest-ID) candidate.
			if loads[i] < loads[best] {
				best = i
			}
		}
		assignments = append(assignments, Assignment{ReplicaID: candidates[best], Request: req})
		logrus.Debugf("lor: %s -> replica %d (load=%d)", req.ID, candidates[best], loads[best])
	}
	return assignments
}

// MarkReplicaToFree implements GlobalScheduler for LORScheduler.
// Selects the non-draining replica with minimum outstanding load, ties to the
// lowest identity.
func (lor *LORScheduler) MarkReplicaToFree() (ReplicaID, bool) {
	candidates := lor.candidates()
	if len(candidates) == 0 {
		return 0, false
	}
	victim := candidates[0]
	minLoad := OutstandingLoad(lor.loads, victim)
	for _, id := range candidates[1:] {
		if load := OutstandingLoad(lor.loads, id); load < minLoad {
			minLoad = load
			victim = id
		}
	}
	lor.draining[victim] = true
	logrus.Debugf("lor: marking replica %d to free (load=%d)", victim, minLoad)
	return victim, true
}

var _ GlobalScheduler = (*RoundRobinScheduler)(nil)
var _ GlobalScheduler = (*LORScheduler)(nil)

// PolicyName names the policy of a scheduler instance, for logs and metrics.
func PolicyName(gs GlobalScheduler) string {
	switch gs.(type) {
	case *RoundRobinScheduler:
		return PolicyRoundRobin
	case *LORScheduler:
		return PolicyLOR
	default:
		return fmt.Sprintf("%T", gs)
	}
}

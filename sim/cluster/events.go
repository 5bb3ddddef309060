package cluster

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/capacity-sim/sim"
)

// Event defines the interface for cluster-level events. Events are processed
// in (timestamp, priority, sequence) order for deterministic replay.
type Event interface {
	Timestamp() int64
	Priority() int
	Execute(*ClusterSimulator)
}

// Event priorities at equal timestamps: arrivals land first, completions free
// capacity before dispatch reads the load views, scale actions apply before
// dispatch, and tuning observes the settled state last.
const (
	priorityArrival  = 0
	priorityBatchEnd = 1
	priorityScale    = 2
	priorityDispatch = 3
	priorityTune     = 4
)

// eventEntry wraps an Event with a sequence ID for deterministic FIFO
// tie-breaking when timestamp and priority are equal.
type eventEntry struct {
	event Event
	seqID int64
}

// EventQueue is a min-heap ordered by (Timestamp, Priority, seqID).
// Implements heap.Interface.
type EventQueue []eventEntry

func (q EventQueue) Len() int { return len(q) }

func (q EventQueue) Less(i, j int) bool {
	if q[i].event.Timestamp() != q[j].event.Timestamp() {
		return q[i].event.Timestamp() < q[j].event.Timestamp()
	}
	if q[i].event.Priority() != q[j].event.Priority() {
		return q[i].event.Priority() < q[j].event.Priority()
	}
	return q[i].seqID < q[j].seqID
}

func (q EventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *EventQueue) Push(x any) {
	*q = append(*q, x.(eventEntry))
}

func (q *EventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// RequestArrivalEvent fans a new request out to the global scheduler's
// pending queue and the autoscaler's rate envelopes (same arrival, both
// consumers).
type RequestArrivalEvent struct {
	time    int64
	request *sim.Request
}

func (e *RequestArrivalEvent) Timestamp() int64 { return e.time }
func (e *RequestArrivalEvent) Priority() int    { return priorityArrival }

func (e *RequestArrivalEvent) Execute(cs *ClusterSimulator) {
	logrus.Debugf("<< Arrival: %s at %d ticks", e.request.ID, e.time)
	cs.scheduler.AddRequest(e.request)
	cs.autoscaler.OnRequestArrival(e.request)
	cs.metrics.ArrivedRequests++
}

// DispatchEvent flushes the global scheduler's pending queue into replica
// assignments, then re-schedules itself at the dispatch interval.
type DispatchEvent struct {
	time int64
}

func (e *DispatchEvent) Timestamp() int64 { return e.time }
func (e *DispatchEvent) Priority() int    { return priorityDispatch }

func (e *DispatchEvent) Execute(cs *ClusterSimulator) {
	assignments := cs.scheduler.Schedule()
	for _, a := range assignments {
		replica, ok := cs.replicas[a.ReplicaID]
		if !ok {
			// Schedule() only returns live replicas; a miss is a wiring bug.
			logrus.Panicf("DispatchEvent: assignment to unknown replica %d", a.ReplicaID)
		}
		replica.Push(a.Request)
	}
	for _, id := range cs.LiveReplicaIDs() {
		cs.maybeStartBatch(cs.replicas[id], e.time)
	}
	cs.scheduleAt(&DispatchEvent{time: e.time + cs.cfg.DispatchInterval})
}

// BatchEndEvent completes a replica's in-flight batch: metrics, throughput
// feedback, the next batch if work is pending, and physical removal of a
// fully drained replica.
type BatchEndEvent struct {
	time      int64
	replicaID sim.ReplicaID
}

func (e *BatchEndEvent) Timestamp() int64 { return e.time }
func (e *BatchEndEvent) Priority() int    { return priorityBatchEnd }

func (e *BatchEndEvent) Execute(cs *ClusterSimulator) {
	replica, ok := cs.replicas[e.replicaID]
	if !ok {
		logrus.Panicf("BatchEndEvent: unknown replica %d", e.replicaID)
	}
	batch := replica.FinishBatch(e.time)
	if batch == nil {
		return
	}
	logrus.Debugf("<< BatchEnd: replica %d, %d requests at %d ticks",
		e.replicaID, len(batch.Requests), e.time)

	cs.autoscaler.OnBatchEnd(batch)
	cs.metrics.onBatchEnd(batch, e.time)

	if replica.PendingCount() > 0 {
		cs.maybeStartBatch(replica, e.time)
		return
	}
	if cs.scheduler.IsDraining(e.replicaID) {
		cs.removeReplica(e.replicaID, e.time)
		cs.autoscaler.OnScaleDownComplete()
	}
}

// AutoscaleTuneEvent evaluates the autoscaler and converts its delta into
// delayed scale actions, then re-schedules itself at the tune interval.
type AutoscaleTuneEvent struct {
	time int64
}

func (e *AutoscaleTuneEvent) Timestamp() int64 { return e.time }
func (e *AutoscaleTuneEvent) Priority() int    { return priorityTune }

func (e *AutoscaleTuneEvent) Execute(cs *ClusterSimulator) {
	delta := cs.autoscaler.Tune(e.time)
	switch {
	case delta > 0:
		for i := 0; i < delta; i++ {
			cs.scheduleAt(&ReplicaScaleUpEvent{time: e.time + cs.cfg.ScaleUpDelay})
		}
		cs.metrics.ScaleUpActions += delta
	case delta < 0:
		for i := 0; i < -delta; i++ {
			cs.scheduleAt(&ReplicaScaleDownEvent{time: e.time + cs.cfg.ScaleDownDelay})
		}
		cs.metrics.ScaleDownActions += -delta
	}
	cs.scheduleAt(&AutoscaleTuneEvent{time: e.time + cs.cfg.TuneInterval})
}

// ReplicaScaleUpEvent adds a fresh replica to the pool once the provisioning
// delay has elapsed, completing a pending scale-up.
type ReplicaScaleUpEvent struct {
	time int64
}

func (e *ReplicaScaleUpEvent) Timestamp() int64 { return e.time }
func (e *ReplicaScaleUpEvent) Priority() int    { return priorityScale }

func (e *ReplicaScaleUpEvent) Execute(cs *ClusterSimulator) {
	id := cs.addReplica(e.time)
	cs.autoscaler.OnScaleUpComplete()
	logrus.Infof("<< ScaleUp: replica %d live at %d ticks (%d total)",
		id, e.time, len(cs.replicas))
}

// ReplicaScaleDownEvent frees one replica: an idle replica is removed
// immediately, otherwise the scheduler marks a victim draining and removal
// happens when its last batch completes.
type ReplicaScaleDownEvent struct {
	time int64
}

func (e *ReplicaScaleDownEvent) Timestamp() int64 { return e.time }
func (e *ReplicaScaleDownEvent) Priority() int    { return priorityScale }

func (e *ReplicaScaleDownEvent) Execute(cs *ClusterSimulator) {
	// Prefer an idle, not-yet-draining replica: it can leave right away.
	for _, id := range cs.LiveReplicaIDs() {
		if !cs.scheduler.IsDraining(id) && cs.replicas[id].Idle() {
			cs.scheduler.MarkReplicaDraining(id)
			cs.removeReplica(id, e.time)
			cs.autoscaler.OnScaleDownComplete()
			logrus.Infof("<< ScaleDown: idle replica %d removed at %d ticks (%d total)",
				id, e.time, len(cs.replicas))
			return
		}
	}

	id, ok := cs.scheduler.MarkReplicaToFree()
	if !ok {
		// Every live replica is already draining: the action has no victim,
		// so it is cancelled rather than left pending forever.
		cs.autoscaler.OnScaleDownComplete()
		logrus.Warnf("<< ScaleDown: no replica available to free at %d ticks", e.time)
		return
	}
	logrus.Infof("<< ScaleDown: replica %d draining at %d ticks", id, e.time)
}

// Package cluster provides the simulation driver around the control core:
// a shared-clock event loop over a replica pool, with periodic dispatch and
// autoscale-tune events, request arrivals, and batch completions.
//
// The cluster owns all replica lifecycle: the core's GlobalScheduler and
// Autoscaler only read replica state through the ReplicaSet and
// ReplicaLoadView interfaces and return decisions that the event handlers
// here apply.
package cluster

import (
	"container/heap"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/capacity-sim/sim"
)

// ClusterSimulator orchestrates replicas, the global scheduler, and the
// autoscaler behind a shared clock. Events are processed in (timestamp,
// priority, sequence) order; identical seed and configuration reproduce
// identical runs.
//
// Thread-safety: NOT thread-safe. All methods must be called from the same
// goroutine; per-cluster state is fully isolated, so independent clusters may
// run on independent goroutines.
type ClusterSimulator struct {
	cfg   Config
	clock int64

	events EventQueue
	seqID  int64

	replicas      map[sim.ReplicaID]*Replica
	nextReplicaID sim.ReplicaID

	scheduler  sim.GlobalScheduler
	autoscaler *sim.Autoscaler
	rng        *sim.PartitionedRNG
	metrics    *Metrics

	hasRun bool
}

// NewClusterSimulator creates a cluster with cfg.InitialReplicas live
// replicas and the configured scheduling policy and autoscaler.
// Panics if the config does not validate.
func NewClusterSimulator(cfg Config) *ClusterSimulator {
	if err := cfg.Validate(); err != nil {
		logrus.Panicf("NewClusterSimulator: %v", err)
	}
	cs := &ClusterSimulator{
		cfg:      cfg,
		events:   make(EventQueue, 0),
		replicas: make(map[sim.ReplicaID]*Replica),
		rng:      sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
		metrics:  NewMetrics(),
	}
	cs.scheduler = sim.NewGlobalScheduler(cfg.Scheduler.Policy, cs, cs)
	cs.autoscaler = sim.NewAutoscaler(cfg.Autoscaler, cs)
	for i := 0; i < cfg.InitialReplicas; i++ {
		cs.addReplica(0)
	}
	return cs
}

// LiveReplicaIDs implements sim.ReplicaSet: the identities of all live
// replicas, sorted ascending. Identities are monotonic and never reused, so
// the set is not contiguous once any replica has been removed.
func (cs *ClusterSimulator) LiveReplicaIDs() []sim.ReplicaID {
	ids := make([]sim.ReplicaID, 0, len(cs.replicas))
	for id := range cs.replicas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PendingCount implements sim.ReplicaLoadView.
func (cs *ClusterSimulator) PendingCount(id sim.ReplicaID) int {
	if r, ok := cs.replicas[id]; ok {
		return r.PendingCount()
	}
	return 0
}

// InFlightCount implements sim.ReplicaLoadView.
func (cs *ClusterSimulator) InFlightCount(id sim.ReplicaID) int {
	if r, ok := cs.replicas[id]; ok {
		return r.InFlightCount()
	}
	return 0
}

// Run executes the simulation over the given requests (sorted or not; events
// order themselves) until the event queue drains or the horizon passes.
// Panics if called more than once.
func (cs *ClusterSimulator) Run(requests []*sim.Request) {
	if cs.hasRun {
		panic("ClusterSimulator.Run() called more than once")
	}
	cs.hasRun = true

	heap.Init(&cs.events)
	for _, req := range requests {
		cs.scheduleAt(&RequestArrivalEvent{time: req.ArrivalTime, request: req})
	}
	cs.scheduleAt(&DispatchEvent{time: cs.cfg.DispatchInterval})
	cs.scheduleAt(&AutoscaleTuneEvent{time: cs.cfg.TuneInterval})

	for len(cs.events) > 0 {
		entry := heap.Pop(&cs.events).(eventEntry)
		if entry.event.Timestamp() > cs.cfg.Horizon {
			break
		}
		cs.clock = entry.event.Timestamp()
		entry.event.Execute(cs)
	}

	cs.metrics.finalize(cs.clock, len(cs.replicas), cs.scheduler.QueueLen())
	logrus.Infof("cluster: simulation ended at %d ticks with %d replicas", cs.clock, len(cs.replicas))
}

// Clock returns the current simulation time in ticks.
func (cs *ClusterSimulator) Clock() int64 { return cs.clock }

// Metrics returns the simulation metrics.
func (cs *ClusterSimulator) Metrics() *Metrics { return cs.metrics }

// Scheduler exposes the global scheduler (for tests and inspection).
func (cs *ClusterSimulator) Scheduler() sim.GlobalScheduler { return cs.scheduler }

// Autoscaler exposes the autoscaler (for tests and inspection).
func (cs *ClusterSimulator) Autoscaler() *sim.Autoscaler { return cs.autoscaler }

// scheduleAt pushes an event, skipping events past the horizon so periodic
// events stop re-arming themselves at the end of the run.
func (cs *ClusterSimulator) scheduleAt(ev Event) {
	if ev.Timestamp() > cs.cfg.Horizon {
		return
	}
	heap.Push(&cs.events, eventEntry{event: ev, seqID: cs.seqID})
	cs.seqID++
}

// addReplica creates a fresh replica with the next monotonic identity.
func (cs *ClusterSimulator) addReplica(now int64) sim.ReplicaID {
	id := cs.nextReplicaID
	cs.nextReplicaID++
	cs.replicas[id] = NewReplica(
		id,
		cs.cfg.ServiceRate,
		cs.cfg.ServiceJitter,
		cs.rng.ForSubsystem(sim.SubsystemReplica(id)),
	)
	cs.metrics.onReplicaCountChange(now, len(cs.replicas))
	return id
}

// removeReplica takes a drained replica out of the live set. The draining-set
// entry in the scheduler is left behind; identities are never reused, so a
// stale entry can never match a future replica.
func (cs *ClusterSimulator) removeReplica(id sim.ReplicaID, now int64) {
	replica, ok := cs.replicas[id]
	if !ok {
		logrus.Panicf("removeReplica: unknown replica %d", id)
	}
	if !replica.Idle() {
		logrus.Panicf("removeReplica: replica %d still has work", id)
	}
	delete(cs.replicas, id)
	cs.metrics.onReplicaCountChange(now, len(cs.replicas))
}

// maybeStartBatch starts a batch on the replica if it is idle with pending
// work, and schedules the corresponding BatchEndEvent.
func (cs *ClusterSimulator) maybeStartBatch(r *Replica, now int64) {
	batch, duration := r.StartBatch(now, cs.cfg.MaxBatchSize)
	if batch == nil {
		return
	}
	cs.scheduleAt(&BatchEndEvent{time: now + duration, replicaID: r.ID()})
}

var _ sim.ReplicaSet = (*ClusterSimulator)(nil)
var _ sim.ReplicaLoadView = (*ClusterSimulator)(nil)

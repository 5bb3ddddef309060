package cluster

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/capacity-sim/sim"
	"github.com/inference-sim/capacity-sim/sim/workload"
)

// testClusterConfig returns a small-tick deterministic cluster: 1 token/tick
// replicas with no jitter, so batch durations equal their token totals.
func testClusterConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 1
	cfg.Horizon = 5_000
	cfg.InitialReplicas = 2
	cfg.MaxBatchSize = 4
	cfg.ServiceRate = 1.0
	cfg.ServiceJitter = 0
	cfg.DispatchInterval = 10
	cfg.TuneInterval = 1_000
	cfg.ScaleUpDelay = 10
	cfg.ScaleDownDelay = 10
	cfg.Autoscaler = sim.AutoscalerConfig{
		WindowSizeUp:       100,
		WindowSizeDown:     100,
		LookbackUp:         1_000,
		LookbackDown:       1_000,
		ThroughputAlpha:    0.5,
		InitialThroughput:  1.0,
		StabilizationDelay: 100,
		MinReplicas:        2,
		Envelope:           sim.EnvelopeSampled,
	}
	return cfg
}

func weightedRequest(id string, at, weight int64) *sim.Request {
	return &sim.Request{
		ID:            id,
		ArrivalTime:   at,
		PrefillTokens: weight / 2,
		DecodeTokens:  weight - weight/2,
		State:         sim.StateQueued,
	}
}

func TestClusterSimulator_CompletesAllRequests(t *testing.T) {
	// GIVEN 6 requests of 30 tokens arriving in ticks 1..6 on 2 replicas
	cs := NewClusterSimulator(testClusterConfig())
	var requests []*sim.Request
	for i := 0; i < 6; i++ {
		requests = append(requests, weightedRequest("req", int64(i+1), 30))
	}

	// WHEN the simulation runs
	cs.Run(requests)

	// THEN the first dispatch at t=10 splits them 3/3 round-robin, each
	// replica runs one 90-token batch, and everything completes at t=100
	m := cs.Metrics()
	assert.Equal(t, 6, m.ArrivedRequests)
	assert.Equal(t, 6, m.CompletedRequests)
	assert.Equal(t, int64(180), m.CompletedTokens)
	assert.Equal(t, 2, m.CompletedBatches)
	assert.Equal(t, 0, m.UnscheduledRequests)
	assert.Equal(t, int64(579), m.TotalLatency) // sum of (100 - arrival)
	for _, r := range requests {
		assert.Equal(t, sim.StateCompleted, r.State)
		assert.Equal(t, int64(100), r.CompletedTime)
	}

	// Demand never exceeded capacity and MinReplicas matches the pool.
	assert.Equal(t, 0, m.ScaleUpActions)
	assert.Equal(t, 0, m.ScaleDownActions)
	assert.Equal(t, 2, m.FinalReplicas)
}

func TestClusterSimulator_ScaleUpUnderLoad(t *testing.T) {
	// GIVEN 1 replica at 1 token/tick facing a 1000-token burst
	cfg := testClusterConfig()
	cfg.InitialReplicas = 1
	cfg.TuneInterval = 50
	cfg.Autoscaler.MinReplicas = 1
	cfg.Autoscaler.StabilizationDelay = 1_000_000 // keep scale-down out of the picture
	cs := NewClusterSimulator(cfg)

	var requests []*sim.Request
	for i := 0; i < 10; i++ {
		requests = append(requests, weightedRequest("req", int64(i+1), 100))
	}

	cs.Run(requests)

	// THEN the first tune sees peak demand 20 tok/tick against throughput 1,
	// targets 20 replicas, and provisions the missing 19
	m := cs.Metrics()
	assert.Equal(t, 19, m.ScaleUpActions)
	assert.Equal(t, 0, m.ScaleDownActions)
	assert.Equal(t, 20, m.PeakReplicas)
	assert.Equal(t, 20, m.FinalReplicas)
	assert.Equal(t, 0, cs.Autoscaler().PendingScaleUps())

	// The burst itself still finishes on the original replica.
	assert.Equal(t, 10, m.CompletedRequests)
	assert.Equal(t, 0, m.UnscheduledRequests)
}

func TestClusterSimulator_ScaleDownIdleReplicasToFloor(t *testing.T) {
	// GIVEN 4 idle replicas and a MinReplicas floor of 1
	cfg := testClusterConfig()
	cfg.InitialReplicas = 4
	cfg.TuneInterval = 50
	cfg.Horizon = 500
	cfg.Autoscaler.MinReplicas = 1
	cs := NewClusterSimulator(cfg)

	// WHEN the simulation runs with no demand
	cs.Run(nil)

	// THEN the first tune sheds 3 replicas, all removed immediately because
	// they are idle, and the lowest identities go first
	m := cs.Metrics()
	assert.Equal(t, 3, m.ScaleDownActions)
	assert.Equal(t, 1, m.FinalReplicas)
	assert.Equal(t, 4, m.PeakReplicas)
	assert.Equal(t, 0, cs.Autoscaler().PendingScaleDowns())
	assert.Equal(t, []sim.ReplicaID{3}, cs.LiveReplicaIDs())
}

func TestClusterSimulator_BusyVictimDrainsBeforeRemoval(t *testing.T) {
	// GIVEN 2 replicas busy with 1000-token batches (MaxBatchSize 1) when a
	// scale-down decision arrives
	cfg := testClusterConfig()
	cfg.MaxBatchSize = 1
	cfg.TuneInterval = 200
	cfg.Horizon = 3_000
	cfg.Autoscaler.MinReplicas = 1
	cfg.Autoscaler.LookbackUp = 100 // prune the burst fast so demand collapses
	cfg.Autoscaler.LookbackDown = 100
	cs := NewClusterSimulator(cfg)

	requests := []*sim.Request{
		weightedRequest("a", 1, 1000),
		weightedRequest("b", 2, 1000),
		weightedRequest("c", 3, 1000),
		weightedRequest("d", 4, 1000),
	}

	cs.Run(requests)

	// THEN round-robin split the work 2/2, the tune at t=200 found no idle
	// victim and marked replica 0 draining, and replica 0 left only after
	// finishing both of its batches
	m := cs.Metrics()
	assert.Equal(t, 1, m.ScaleDownActions)
	assert.Equal(t, 4, m.CompletedRequests)
	assert.Equal(t, 0, m.UnscheduledRequests)
	assert.Equal(t, 1, m.FinalReplicas)
	assert.Equal(t, []sim.ReplicaID{1}, cs.LiveReplicaIDs())

	assert.Equal(t, sim.ReplicaID(0), requests[0].AssignedReplica)
	assert.Equal(t, sim.ReplicaID(1), requests[1].AssignedReplica)
	assert.Equal(t, sim.ReplicaID(0), requests[2].AssignedReplica)
	assert.Equal(t, sim.ReplicaID(1), requests[3].AssignedReplica)

	// The drained replica served its second batch to completion at t=2010.
	assert.Equal(t, int64(2010), requests[2].CompletedTime)
}

func TestClusterSimulator_LORRoutesAroundBusyReplica(t *testing.T) {
	cfg := testClusterConfig()
	cfg.Scheduler.Policy = sim.PolicyLOR
	cfg.MaxBatchSize = 0      // unbounded
	cfg.TuneInterval = 10_000 // past the horizon: no autoscaling
	cs := NewClusterSimulator(cfg)

	// One heavy request first, three light ones after the first dispatch.
	heavy := weightedRequest("heavy", 1, 2000)
	light := []*sim.Request{
		weightedRequest("l1", 15, 30),
		weightedRequest("l2", 16, 30),
		weightedRequest("l3", 17, 30),
	}
	cs.Run(append([]*sim.Request{heavy}, light...))

	// The heavy request ties onto replica 0; by the next dispatch replica 0
	// has an in-flight batch, so LOR sends every light request to replica 1.
	assert.Equal(t, sim.ReplicaID(0), heavy.AssignedReplica)
	for _, r := range light {
		assert.Equal(t, sim.ReplicaID(1), r.AssignedReplica)
		assert.Equal(t, int64(110), r.CompletedTime)
	}
	assert.Equal(t, 4, cs.Metrics().CompletedRequests)
}

func TestClusterSimulator_DeterministicForSeed(t *testing.T) {
	run := func() (*Metrics, []*sim.Request) {
		cfg := DefaultConfig()
		spec := workload.DefaultSpec()
		requests := workload.Generate(spec,
			sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemWorkload))
		cs := NewClusterSimulator(cfg)
		cs.Run(requests)
		return cs.Metrics(), requests
	}

	m1, r1 := run()
	m2, r2 := run()
	assert.Equal(t, *m1, *m2)
	require.Equal(t, len(r1), len(r2))
	for i := range r1 {
		assert.Equal(t, r1[i].CompletedTime, r2[i].CompletedTime)
		assert.Equal(t, r1[i].AssignedReplica, r2[i].AssignedReplica)
	}
}

func TestClusterSimulator_RunTwicePanics(t *testing.T) {
	cs := NewClusterSimulator(testClusterConfig())
	cs.Run(nil)
	assert.Panics(t, func() { cs.Run(nil) })
}

func TestNewClusterSimulator_InvalidConfigPanics(t *testing.T) {
	cfg := testClusterConfig()
	cfg.InitialReplicas = 0
	assert.Panics(t, func() { NewClusterSimulator(cfg) })
}

func TestEventQueue_OrdersByTimestampPrioritySequence(t *testing.T) {
	var q EventQueue
	heap.Init(&q)

	push := func(ev Event, seq int64) {
		heap.Push(&q, eventEntry{event: ev, seqID: seq})
	}
	// Same timestamp, mixed priorities, plus a later event pushed first.
	push(&DispatchEvent{time: 200}, 0)
	push(&AutoscaleTuneEvent{time: 100}, 1)
	push(&DispatchEvent{time: 100}, 2)
	push(&RequestArrivalEvent{time: 100, request: weightedRequest("a", 100, 30)}, 3)
	push(&ReplicaScaleUpEvent{time: 100}, 4)
	push(&DispatchEvent{time: 100}, 5)

	pop := func() eventEntry { return heap.Pop(&q).(eventEntry) }

	// t=100: arrival (0) < scale (2) < dispatch (3) < tune (4); the two
	// dispatches come out in push order.
	assert.IsType(t, &RequestArrivalEvent{}, pop().event)
	assert.IsType(t, &ReplicaScaleUpEvent{}, pop().event)
	first, second := pop(), pop()
	assert.IsType(t, &DispatchEvent{}, first.event)
	assert.Equal(t, int64(2), first.seqID)
	assert.Equal(t, int64(5), second.seqID)
	assert.IsType(t, &AutoscaleTuneEvent{}, pop().event)

	last := pop()
	assert.Equal(t, int64(200), last.event.Timestamp())
	assert.Equal(t, 0, q.Len())
}

// Tracks cluster-wide performance and capacity metrics for final reporting.

package cluster

import (
	"fmt"

	"github.com/inference-sim/capacity-sim/sim"
)

// Metrics aggregates statistics about a cluster run: request completion,
// latency, and capacity (replica-count over time and scaling actions).
type Metrics struct {
	ArrivedRequests   int   // Number of requests that arrived
	CompletedRequests int   // Number of requests completed
	CompletedTokens   int64 // Total tokens across completed batches
	CompletedBatches  int   // Number of batches completed
	TotalLatency      int64 // Sum of (completion - arrival) across requests

	ScaleUpActions   int   // Scale-up actions requested by the tuner
	ScaleDownActions int   // Scale-down actions requested by the tuner
	PeakReplicas     int   // Max simultaneous live replicas
	FinalReplicas    int   // Live replicas at end of run
	ReplicaTicks     int64 // Integral of replica count over time (capacity cost proxy)

	UnscheduledRequests int // Requests still in the global queue at end of run

	lastReplicaChange int64
	replicaCount      int
}

// NewMetrics creates an empty metrics aggregate.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) onBatchEnd(batch *sim.Batch, now int64) {
	m.CompletedBatches++
	m.CompletedTokens += batch.TotalTokens()
	m.CompletedRequests += len(batch.Requests)
	for _, req := range batch.Requests {
		m.TotalLatency += now - req.ArrivalTime
	}
}

func (m *Metrics) onReplicaCountChange(now int64, count int) {
	m.ReplicaTicks += int64(m.replicaCount) * (now - m.lastReplicaChange)
	m.lastReplicaChange = now
	m.replicaCount = count
	if count > m.PeakReplicas {
		m.PeakReplicas = count
	}
}

func (m *Metrics) finalize(now int64, liveReplicas, queued int) {
	m.ReplicaTicks += int64(m.replicaCount) * (now - m.lastReplicaChange)
	m.lastReplicaChange = now
	m.FinalReplicas = liveReplicas
	m.UnscheduledRequests = queued
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(horizon int64) {
	fmt.Println("=== Cluster Metrics ===")
	fmt.Printf("Arrived Requests     : %d\n", m.ArrivedRequests)
	fmt.Printf("Completed Requests   : %d\n", m.CompletedRequests)
	fmt.Printf("Completed Tokens     : %d\n", m.CompletedTokens)
	if m.CompletedRequests > 0 {
		fmt.Printf("Average Latency      : %.2f ticks\n", float64(m.TotalLatency)/float64(m.CompletedRequests))
	}
	fmt.Printf("Scale Ups / Downs    : %d / %d\n", m.ScaleUpActions, m.ScaleDownActions)
	fmt.Printf("Peak / Final Replicas: %d / %d\n", m.PeakReplicas, m.FinalReplicas)
	if horizon > 0 {
		fmt.Printf("Mean Replicas        : %.2f\n", float64(m.ReplicaTicks)/float64(horizon))
	}
	fmt.Printf("Unscheduled Requests : %d\n", m.UnscheduledRequests)
}

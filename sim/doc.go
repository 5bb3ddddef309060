// Package sim provides the routing-and-capacity control core for a
// multi-replica inference-serving simulation.
//
// # Reading Guide
//
// Start with these three files to understand the control loop:
//   - scheduler.go: GlobalScheduler policies (round-robin, LOR) and the draining set
//   - envelope.go: sliding-window peak arrival-rate estimation
//   - autoscaler.go: the scale up/down decision loop with hysteresis
//
// # Architecture
//
// The sim package defines the control core and its boundary interfaces; the
// collaborators live in sub-packages:
//   - sim/cluster/: shared-clock event loop, replica pool, and the service model
//     that feeds batch completions back into the core
//   - sim/workload/: arrival-process and token-count generation
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - GlobalScheduler: map pending requests to replicas, excluding draining ones
//   - RateEnvelope: answer "peak sustained arrival rate over any recent window"
//   - ReplicaSet / ReplicaLoadView: read-only views over the authoritative
//     replica pool, supplied by the driver
//
// All core state is single-owner and step-driven: the driver advances a logical
// clock and invokes AddRequest, Schedule, OnBatchEnd, and Tune at instants of
// its choosing. No method blocks or performs I/O. Calling mutating methods
// concurrently without external serialization is a caller contract violation.
package sim

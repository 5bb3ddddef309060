package sim

// ReplicaID uniquely identifies a replica within a cluster.
// Uses distinct type (not alias) to prevent accidental int mixing.
// Identities are opaque and stable: the core never assumes they are contiguous
// or start at zero, and never reconstructs them from a count.
type ReplicaID int

// ReplicaSet enumerates the live replicas in the cluster. Implemented by the
// driver's replica pool; the core always reads the live set through this
// interface rather than caching a count.
type ReplicaSet interface {
	// LiveReplicaIDs returns the identities of all live replicas, sorted
	// ascending. Includes replicas that are draining.
	LiveReplicaIDs() []ReplicaID
}

// ReplicaLoadView is a read-only accessor over per-replica load, supplied by
// the replica-scheduler component. All replicas queried within one Schedule()
// call observe the same instant.
type ReplicaLoadView interface {
	// PendingCount returns the number of requests queued on the replica but
	// not yet started.
	PendingCount(id ReplicaID) int
	// InFlightCount returns the number of requests currently executing on
	// the replica.
	InFlightCount(id ReplicaID) int
}

// OutstandingLoad returns the replica's total outstanding load:
// queued-but-not-started plus in-flight request counts.
// Used by the LOR policy and by scale-down victim selection.
func OutstandingLoad(view ReplicaLoadView, id ReplicaID) int {
	return view.PendingCount(id) + view.InFlightCount(id)
}

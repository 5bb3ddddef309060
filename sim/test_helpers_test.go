package sim

// stubReplicaPool is a test double for the driver's replica pool: a fixed set
// of live IDs with per-replica pending and in-flight counts.
type stubReplicaPool struct {
	ids      []ReplicaID
	pending  map[ReplicaID]int
	inFlight map[ReplicaID]int
}

func newStubReplicaPool(ids ...ReplicaID) *stubReplicaPool {
	return &stubReplicaPool{
		ids:      ids,
		pending:  make(map[ReplicaID]int),
		inFlight: make(map[ReplicaID]int),
	}
}

func (p *stubReplicaPool) LiveReplicaIDs() []ReplicaID {
	return append([]ReplicaID(nil), p.ids...)
}

func (p *stubReplicaPool) PendingCount(id ReplicaID) int { return p.pending[id] }

func (p *stubReplicaPool) InFlightCount(id ReplicaID) int { return p.inFlight[id] }

// makeRequest builds a minimal queued request for scheduler tests.
func makeRequest(id string, arrivedAt int64) *Request {
	return &Request{
		ID:            id,
		ArrivalTime:   arrivedAt,
		PrefillTokens: 10,
		DecodeTokens:  20,
		State:         StateQueued,
	}
}

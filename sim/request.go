// Defines the Request struct that models an individual inference request in the
// simulation. The control core only reads arrival time and token counts; the
// lifecycle state is maintained by the cluster driver.

package sim

import "fmt"

// RequestState represents the lifecycle state of a request.
type RequestState string

const (
	StateQueued    RequestState = "queued"
	StateRunning   RequestState = "running"
	StateCompleted RequestState = "completed"
)

// Request models a single inference request. PrefillTokens and DecodeTokens are
// pre-specified for the simulation (output length is known up front).
type Request struct {
	ID string // Unique identifier for the request

	ArrivalTime   int64 // Timestamp in ticks when the request arrives at the cluster
	PrefillTokens int64 // Prompt token count
	DecodeTokens  int64 // Output token count (pre-specified)

	State RequestState // queued, running, completed

	// Routing metadata. Zero-valued until the global scheduler assigns the
	// request; only meaningful inside the cluster driver.
	AssignedReplica ReplicaID
	CompletedTime   int64 // Timestamp in ticks when the request's batch completed
}

// Weight returns the request's token weight for rate accounting:
// prefill plus decode tokens.
func (req *Request) Weight() int64 {
	return req.PrefillTokens + req.DecodeTokens
}

func (req *Request) String() string {
	return fmt.Sprintf("Request: (ID: %s, State: %s, ArrivalTime: %d, Weight: %d)",
		req.ID, req.State, req.ArrivalTime, req.Weight())
}

package refresh

import "time"

// State is one library's position in the refresh cycle.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateMapping  State = "mapping"
	StateLoading  State = "loading"
	StateFailed   State = "failed"
)

// Status is the observable condition of one library, served by /libs and
// exported as metrics.
type Status struct {
	Library     string    `json:"library"`
	Graph       string    `json:"graph"`
	State       State     `json:"state"`
	LastRun     time.Time `json:"last_run,omitzero"`
	LastTriples int       `json:"last_triples"`
	LastError   string    `json:"last_error,omitempty"`
}

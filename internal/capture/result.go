package capture

import (
	"time"

	"snapvault/internal/resolver"
)

// Result is the structured outcome of one capture. Failures are recorded here
// rather than returned so the caller can log or journal them and move on.
type Result struct {
	ID       string
	Strategy string
	State    State
	// FailedIn is the last state reached before an abort.
	FailedIn State
	Failure  string
	Err      error

	Rows  int
	Bytes int64

	OpenedAt        time.Time
	Created         time.Time
	TimestampSource string
	Temp            string
	Final           string
	Duration        time.Duration

	// Eviction is set when duplicate eviction ran. Its failure never changes
	// State.
	Eviction    *resolver.Result
	EvictionErr error
}

// Published reports whether the capture reached its archive path.
func (r Result) Published() bool {
	return r.State == StatePublished
}

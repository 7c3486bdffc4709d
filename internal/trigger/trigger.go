// Package trigger produces the events that start daemon captures.
package trigger

import (
	"context"
	"time"
)

// Event names one capture request.
type Event struct {
	Source string
	Detail string
	At     time.Time
}

// Source emits events until ctx is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- Event) error
}

// offer hands ev to the loop without blocking. A loop that is still busy with
// the previous capture absorbs at most one pending event, so bursts collapse
// into a single follow-up capture.
func offer(out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	default:
		return false
	}
}

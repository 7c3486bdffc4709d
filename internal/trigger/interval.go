package trigger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"snapvault/internal/logging"
)

// SourceInterval names events from the interval ticker.
const SourceInterval = "interval"

// Interval fires every period.
type Interval struct {
	period time.Duration
	logger *slog.Logger
}

// NewInterval returns nil when period is not positive.
func NewInterval(period time.Duration, logger *slog.Logger) *Interval {
	if period <= 0 {
		return nil
	}
	return &Interval{period: period, logger: logging.NewComponentLogger(logger, "trigger-interval")}
}

func (i *Interval) Name() string { return SourceInterval }

// Run ticks until ctx is done.
func (i *Interval) Run(ctx context.Context, out chan<- Event) error {
	if i == nil {
		return errors.New("interval trigger not configured")
	}
	ticker := time.NewTicker(i.period)
	defer ticker.Stop()
	i.logger.Info("interval trigger started",
		logging.Duration("period", i.period),
		logging.String(logging.FieldEventType, "trigger_started"),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case at := <-ticker.C:
			if !offer(out, Event{Source: SourceInterval, At: at}) {
				i.logger.Debug("capture still pending, tick coalesced")
			}
		}
	}
}

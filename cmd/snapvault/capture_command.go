package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"snapvault/internal/capture"
	"snapvault/internal/captureexec"
	"snapvault/internal/config"
)

type captureView struct {
	ID              string `json:"id"`
	State           string `json:"state"`
	Failure         string `json:"failure,omitempty"`
	FailedIn        string `json:"failed_in,omitempty"`
	Error           string `json:"error,omitempty"`
	Final           string `json:"final,omitempty"`
	Created         string `json:"created,omitempty"`
	TimestampSource string `json:"timestamp_source,omitempty"`
	Rows            int    `json:"rows"`
	Bytes           int64  `json:"bytes"`
	DurationMS      int64  `json:"duration_ms"`
	Evicted         string `json:"evicted,omitempty"`
	EvictionError   string `json:"eviction_error,omitempty"`
}

func newCaptureView(res capture.Result) captureView {
	view := captureView{
		ID:              res.ID,
		State:           res.State.String(),
		Failure:         res.Failure,
		Final:           res.Final,
		TimestampSource: res.TimestampSource,
		Rows:            res.Rows,
		Bytes:           res.Bytes,
		DurationMS:      res.Duration.Milliseconds(),
	}
	if res.State == capture.StateAborted {
		view.FailedIn = res.FailedIn.String()
	}
	if res.Err != nil {
		view.Error = res.Err.Error()
	}
	if !res.Created.IsZero() {
		view.Created = res.Created.Format("2006-01-02T15:04:05Z07:00")
	}
	if res.Eviction != nil && res.Eviction.Deleted {
		view.Evicted = res.Eviction.Path
	}
	if res.EvictionErr != nil {
		view.EvictionError = res.EvictionErr.Error()
	}
	return view
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var keep bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one frame into the archive",
		Long: "Capture one frame from the configured source, publish it under archive.dir, " +
			"and evict the nearest duplicate unless the marker file is present.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(cfg *config.Config, runner *captureexec.Runner, logger *slog.Logger) error {
				evict, err := cfg.EvictDuplicates()
				if err != nil {
					return err
				}
				if keep {
					evict = false
				}

				res, err := runner.Run(cmd.Context(), "cli", evict)
				if err != nil {
					return err
				}

				if jsonOut {
					if err := writeJSON(cmd, newCaptureView(res)); err != nil {
						return err
					}
				} else {
					printCapture(cmd, res)
				}
				if !res.Published() {
					return errors.New("capture aborted")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keep, "keep-duplicates", false, "Skip duplicate eviction for this capture")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the capture result as JSON")
	return cmd
}

func printCapture(cmd *cobra.Command, res capture.Result) {
	out := cmd.OutOrStdout()
	if !res.Published() {
		fmt.Fprintf(out, "Capture %s aborted in %s: %s\n", shortID(res.ID), res.FailedIn, humanLabel(res.Failure))
		if res.Err != nil {
			fmt.Fprintf(out, "  %v\n", res.Err)
		}
		return
	}
	fmt.Fprintf(out, "Published %s (%d rows, %s, %s)\n", res.Final, res.Rows, formatBytes(res.Bytes), res.Duration.Round(time.Millisecond))
	switch {
	case res.EvictionErr != nil:
		fmt.Fprintf(out, "Duplicate eviction failed: %v\n", res.EvictionErr)
	case res.Eviction == nil:
	case res.Eviction.Deleted:
		fmt.Fprintf(out, "Evicted duplicate %s (%ds apart)\n", res.Eviction.Path, res.Eviction.Delta)
	default:
		fmt.Fprintln(out, "No duplicate found")
	}
}

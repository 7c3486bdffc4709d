package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/journal"
)

type historyView struct {
	ID         string `json:"id"`
	RecordedAt string `json:"recorded_at"`
	Trigger    string `json:"trigger"`
	State      string `json:"state"`
	Failure    string `json:"failure,omitempty"`
	FailedIn   string `json:"failed_in,omitempty"`
	Final      string `json:"final,omitempty"`
	Bytes      int64  `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	Evicted    string `json:"evicted,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent captures from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(_ *config.Config, store *journal.Store) error {
				entries, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]historyView, 0, len(entries))
					for _, e := range entries {
						views = append(views, historyView{
							ID:         e.ID,
							RecordedAt: e.RecordedAt.Format("2006-01-02T15:04:05Z07:00"),
							Trigger:    e.Trigger,
							State:      e.State,
							Failure:    e.Failure,
							FailedIn:   e.FailedIn,
							Final:      e.FinalPath,
							Bytes:      e.Bytes,
							DurationMS: e.Duration.Milliseconds(),
							Evicted:    e.EvictedPath,
							Error:      e.ErrorMessage,
						})
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No captures recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					outcome := humanLabel(e.State)
					detail := e.FinalPath
					if !e.Published() {
						outcome = humanLabel(e.Failure)
						detail = "in " + e.FailedIn
					}
					rows = append(rows, []string{
						shortID(e.ID),
						formatTime(e.RecordedAt),
						orDash(e.Trigger),
						outcome,
						orDash(detail),
						formatBytes(e.Bytes),
						orDash(e.EvictedPath),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "ID"},
					{header: "Recorded"},
					{header: "Trigger"},
					{header: "Outcome"},
					{header: "Archive", maxWidth: 56},
					{header: "Size", right: true},
					{header: "Evicted", maxWidth: 40},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of captures to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

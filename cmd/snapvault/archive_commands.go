package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"snapvault/internal/archive"
	"snapvault/internal/captureexec"
	"snapvault/internal/config"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and maintain the PNG archive",
	}
	archiveCmd.AddCommand(newArchiveListCommand(ctx))
	archiveCmd.AddCommand(newArchiveCleanTempCommand(ctx))
	return archiveCmd
}

func newArchiveListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archive days with file counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(_ *config.Config, runner *captureexec.Runner, _ *slog.Logger) error {
				days, err := archive.ListDays(runner.FS(), runner.Layout())
				if err != nil {
					return err
				}
				if jsonOut {
					type dayView struct {
						Date   string `json:"date"`
						Path   string `json:"path"`
						Files  int    `json:"files"`
						Latest string `json:"latest"`
					}
					views := make([]dayView, 0, len(days))
					for _, d := range days {
						views = append(views, dayView{Date: d.Label(), Path: d.Path, Files: d.Files, Latest: d.Latest})
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(days) == 0 {
					fmt.Fprintln(out, "Archive is empty")
					return nil
				}
				rows := make([][]string, 0, len(days))
				total := 0
				for _, d := range days {
					total += d.Files
					rows = append(rows, []string{d.Label(), strconv.Itoa(d.Files), d.Latest, d.Path})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Day"},
					{header: "Files", right: true},
					{header: "Latest"},
					{header: "Directory"},
				}, rows))
				fmt.Fprintf(out, "%d files across %d days\n", total, len(days))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newArchiveCleanTempCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean-temp",
		Short: "Remove a temp file left by an aborted capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(cfg *config.Config, runner *captureexec.Runner, logger *slog.Logger) error {
				lock := flock.New(cfg.CaptureLockPath())
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire capture lock: %w", err)
				}
				if !ok {
					return errors.New("a capture is in progress; try again when it finishes")
				}
				defer lock.Unlock()

				removed, err := archive.RemoveOrphanTemp(runner.FS(), runner.Layout(), logger)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if removed {
					fmt.Fprintf(out, "Removed %s\n", runner.Layout().TempPath())
				} else {
					fmt.Fprintln(out, "No temp file present")
				}
				return nil
			})
		},
	}
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"snapvault/internal/captureexec"
	"snapvault/internal/config"
	"snapvault/internal/resolver"
)

func newEvictCommand(ctx *commandContext) *cobra.Command {
	var at string
	var dryRun bool
	var ext string

	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Delete the duplicate nearest to a timestamp",
		Long: "Walk duplicates.root for files with the duplicate extension and delete the one whose " +
			"timestamp is closest to --at (default: now). The marker file is not consulted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(cfg *config.Config, runner *captureexec.Runner, _ *slog.Logger) error {
				reference := time.Now()
				if at != "" {
					parsed, err := parseReference(at, cfg.Location())
					if err != nil {
						return err
					}
					reference = parsed
				}
				extension := cfg.Duplicates.Extension
				if ext != "" {
					extension = ext
				}

				var (
					res resolver.Result
					err error
				)
				if dryRun {
					res, err = runner.Resolver().FindNearest(cmd.Context(), reference, extension)
				} else {
					res, err = runner.Resolver().EvictNearest(cmd.Context(), reference, extension)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, skipped := range res.Skipped {
					fmt.Fprintf(out, "Skipped unreadable directory %s\n", skipped)
				}
				if !res.Found {
					fmt.Fprintf(out, "No .%s file found (%d candidates)\n", extension, res.Candidates)
					return nil
				}
				verb := "Evicted"
				if dryRun {
					verb = "Would evict"
				}
				fmt.Fprintf(out, "%s %s (%s via %s, %ds from %s)\n",
					verb, res.Path, formatTime(res.Timestamp), res.Source, res.Delta, formatTime(reference))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Reference time (RFC 3339 or YYYYMMDDHHMMSS in archive.timezone)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the nearest file without deleting it")
	cmd.Flags().StringVar(&ext, "ext", "", "Override duplicates.extension")
	return cmd
}

func parseReference(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("20060102150405", value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --at %q: use RFC 3339 or YYYYMMDDHHMMSS", value)
}

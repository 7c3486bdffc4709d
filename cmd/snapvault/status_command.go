package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/journal"
	"snapvault/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show readiness checks and capture totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, store *journal.Store) error {
				p := newStatusPrinter(cmd.OutOrStdout())

				p.section("Configuration")
				p.line("Config file", statusInfo, orDash(ctx.configPath))
				p.line("Archive", statusInfo, filepath.Join(cfg.Paths.AlbumRoot, cfg.Archive.Dir))
				p.line("Strategy", statusInfo, fmt.Sprintf("%s, %dx%d, level %d",
					cfg.Capture.Strategy, cfg.Capture.Width, cfg.Capture.Height, cfg.Capture.CompressionLevel))

				p.section("Checks")
				for _, r := range preflight.RunAll(cmd.Context(), cfg) {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					p.line(r.Name, kind, r.Detail)
				}

				p.section("Captures")
				sum, err := store.Summary(cmd.Context())
				if err != nil {
					p.line("Journal", statusError, err.Error())
					return nil
				}
				printCaptureSummary(p, sum)
				return nil
			})
		},
	}
}

func printCaptureSummary(p *statusPrinter, sum journal.Summary) {
	p.line("Total", statusInfo, fmt.Sprintf("%d (%d published, %d aborted, %d evictions)",
		sum.Total, sum.Published, sum.Aborted, sum.Evicted))
	if !sum.LastPublished.IsZero() {
		p.line("Last published", statusOK, fmt.Sprintf("%s %s", formatTime(sum.LastPublished), sum.LastFinal))
	}
	labels := make([]string, 0, len(sum.Failures))
	for label := range sum.Failures {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		p.line(humanLabel(label), statusWarn, fmt.Sprintf("%d aborted", sum.Failures[label]))
	}
}

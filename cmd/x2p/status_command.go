package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"xia2pipe/internal/logs"
	"xia2pipe/internal/reconcile"
	"xia2pipe/internal/status"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showFailed bool

	cmd := &cobra.Command{
		Use:   "status [stage ...]",
		Short: "Show per-stage progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := parseStages(args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(cmd, pipelineOptions{}, func(p *pipeline) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				reports := make([]reconcile.Report, 0, len(stages))
				for _, stage := range stages {
					_, report, err := p.reconciler.Compute(cmd.Context(), stage)
					if err != nil {
						return fmt.Errorf("%s status: %w", stage, err)
					}
					reports = append(reports, report)
				}
				fmt.Fprintln(out, renderReports(reports))

				if !showFailed {
					return nil
				}
				tri := p.triage()
				for _, stage := range stages {
					failures, err := tri.Failed(cmd.Context(), stage)
					if err != nil {
						return fmt.Errorf("%s failures: %w", stage, err)
					}
					fmt.Fprintln(out)
					for _, line := range renderSectionHeader(stageTitle(stage)+" failures", colorize) {
						fmt.Fprintln(out, line)
					}
					if len(failures) == 0 {
						fmt.Fprintln(out, renderStatusLine("failed items", kindOK, "none", colorize))
						continue
					}
					for _, f := range failures {
						fmt.Fprintln(out, renderStatusLine(f.Item.String(), lifecycleKind(status.Failed), lastErrorLine(f.Markers), colorize))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showFailed, "failed", false, "List failed items and their error markers")
	return cmd
}

// lastErrorLine summarises a failure by the final line of its first
// non-empty error file.
func lastErrorLine(markers []string) string {
	for _, path := range markers {
		lines, _, err := logs.Last(path, 1)
		if err == nil && len(lines) == 1 && strings.TrimSpace(lines[0]) != "" {
			return filepath.Base(path) + ": " + strings.TrimSpace(lines[0])
		}
	}
	if len(markers) > 0 {
		return filepath.Base(markers[0])
	}
	return ""
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"xia2pipe/internal/layout"
	"xia2pipe/internal/triage"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "retry <stage> [sample/run ...]",
		Short: "Clear error markers so failed items are resubmitted",
		Long: "Clear error markers so failed items are resubmitted.\n\n" +
			"Only failed items without a queued job are touched. Named items restrict\n" +
			"the set; the next reduce/refine pass submits them again.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := layout.ParseStage(args[0])
			if err != nil {
				return err
			}
			only, err := parseItems(args[1:])
			if err != nil {
				return err
			}
			return ctx.withPipeline(cmd, pipelineOptions{}, func(p *pipeline) error {
				out := cmd.OutOrStdout()
				tri := p.triage()
				failures, err := tri.Failed(cmd.Context(), stage)
				if err != nil {
					return err
				}
				failures = restrictFailures(failures, only)
				if len(failures) == 0 {
					fmt.Fprintf(out, "No failed %s items\n", stage)
					return nil
				}
				for _, f := range failures {
					fmt.Fprintf(out, "%s  %s\n", f.Item, strings.Join(f.Markers, " "))
				}
				if !dryRun && !assumeYes && !confirm(cmd.InOrStdin(), out, len(failures)) {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
				cleared := 0
				for _, f := range failures {
					removed, err := tri.ClearMarkers(cmd.Context(), f.Item, stage, dryRun)
					if err != nil {
						return fmt.Errorf("%s: %w", f.Item, err)
					}
					cleared += len(removed)
				}
				verb := "Removed"
				if dryRun {
					verb = "Would remove"
				}
				fmt.Fprintf(out, "%s %d marker(s) for %d item(s)\n", verb, cleared, len(failures))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the markers that would be removed")
	return cmd
}

func restrictFailures(failures []triage.Failure, only []layout.WorkItem) []triage.Failure {
	if len(only) == 0 {
		return failures
	}
	wanted := layout.NewSet(only...)
	kept := failures[:0]
	for _, f := range failures {
		if wanted.Has(f.Item) {
			kept = append(kept, f)
		}
	}
	return kept
}

func confirm(in io.Reader, out io.Writer, count int) bool {
	fmt.Fprintf(out, "Clear error markers of %d item(s)? Are you sure? [y/N] ", count)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

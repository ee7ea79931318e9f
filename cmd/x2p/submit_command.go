package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xia2pipe/internal/layout"
	"xia2pipe/internal/services"
)

func newSubmitCommand(ctx *commandContext, use, short string, stage layout.Stage) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   use + " [sample/run ...]",
		Short: short,
		Long: short + ".\n\nWithout arguments every eligible, unfinished item that has no job in the\n" +
			"queue is submitted, up to --limit. Named items are submitted unconditionally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(cmd, pipelineOptions{}, func(p *pipeline) error {
				driver, err := p.driver()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) > 0 {
					failed := 0
					for _, item := range items {
						if err := driver.Submit(cmd.Context(), item, stage); err != nil {
							if services.IsFatal(err) {
								return err
							}
							fmt.Fprintf(out, "%s: %v\n", item, err)
							failed++
							continue
						}
						fmt.Fprintf(out, "%s: submitted\n", item)
					}
					if failed > 0 {
						return fmt.Errorf("%d of %d submissions failed", failed, len(items))
					}
					return nil
				}

				if !cmd.Flags().Changed("limit") {
					limit = p.cfg.Workflow.SubmitLimit
				}
				summary, err := driver.SubmitUnfinished(cmd.Context(), stage, limit)
				if err != nil {
					return err
				}
				r := summary.Report
				fmt.Fprintf(out, "%s: %d eligible, %d finished, %d failed, %d in flight, %d to submit\n",
					stageTitle(stage), r.Eligible, r.Finished, r.Failed, r.InFlight, r.ToSubmit)
				fmt.Fprintf(out, "Submitted %d, skipped %d, failed %d\n", summary.Submitted, summary.Skipped, summary.Failed)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to submit (0 = no limit; default from workflow.submit_limit)")
	return cmd
}

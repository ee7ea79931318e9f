package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"xia2pipe/internal/daemon"
	"xia2pipe/internal/preflight"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync and submit periodically until interrupted",
		Long: "Sync and submit periodically until interrupted.\n\n" +
			"Each pass syncs reduction and refinement results, then submits reduction\n" +
			"and refinement jobs, as enabled in [workflow]. Only one watcher may run per\n" +
			"pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, pipelineOptions{}, func(p *pipeline) error {
				if res := preflight.CheckDirectoryAccess("Results root", p.cfg.Pipeline.ResultsRoot); !res.Passed {
					return fmt.Errorf("results root: %s", res.Detail)
				}
				driver, err := p.driver()
				if err != nil {
					return err
				}
				d, err := daemon.New(p.cfg, driver, p.syncer(nil), p.logger)
				if err != nil {
					return err
				}
				if !once {
					return d.Run(cmd.Context())
				}
				result, err := d.RunPass(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pass %s finished in %s with %d step error(s)\n",
					result.ID, result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond), result.StepErrors)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

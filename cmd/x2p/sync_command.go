package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var trace bool

	cmd := &cobra.Command{
		Use:   "sync [stage ...]",
		Short: "Record finished results in the catalogue",
		Long: "Record finished results in the catalogue.\n\n" +
			"Items already present are left alone, so repeated runs insert nothing new.\n" +
			"With --dry-run the INSERT statements are printed instead of executed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := parseStages(args)
			if err != nil {
				return err
			}
			opts := pipelineOptions{}
			if trace {
				opts.trace = cmd.ErrOrStderr()
			}
			return ctx.withPipeline(cmd, opts, func(p *pipeline) error {
				var statements io.Writer
				report := cmd.OutOrStdout()
				if dryRun {
					statements = cmd.OutOrStdout()
					report = cmd.ErrOrStderr()
				}
				syncer := p.syncer(statements)
				for _, stage := range stages {
					summary, err := syncer.Sync(cmd.Context(), stage)
					if err != nil {
						return fmt.Errorf("sync %s: %w", stage, err)
					}
					fmt.Fprintf(report, "%s: inserted %d, already present %d, skipped %d, failed %d\n",
						stageTitle(stage), summary.Inserted, summary.AlreadyPresent, summary.Skipped, summary.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print INSERT statements instead of executing them")
	cmd.Flags().BoolVar(&trace, "trace", false, "Echo executed insert statements to stderr")
	return cmd
}

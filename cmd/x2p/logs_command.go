package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/logs"
	"xia2pipe/internal/slurm"
	"xia2pipe/internal/status"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [<stage> <sample/run>]",
		Short: "Show the pipeline log or the job error files of an item",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				path := filepath.Join(cfg.Logging.Dir, logging.LogFileName(cfg.Pipeline.Name))
				tail, offset, err := logs.Last(path, lines)
				if err != nil {
					return err
				}
				for _, line := range tail {
					fmt.Fprintln(out, line)
				}
				if !follow {
					return nil
				}
				err = logs.Follow(cmd.Context(), path, offset, 0, func(line string) { fmt.Fprintln(out, line) })
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			if len(args) != 2 {
				return errors.New("logs needs both a stage and a work item")
			}
			if follow {
				return errors.New("--follow only applies to the pipeline log")
			}
			stage, err := layout.ParseStage(args[0])
			if err != nil {
				return err
			}
			item, err := layout.ParseWorkItem(args[1])
			if err != nil {
				return err
			}
			l := layout.New(cfg)
			classifier := status.NewClassifier(l)
			evidence := classifier.Evidence(item, stage)
			colorize := shouldColorize(out)

			queued := false
			inFlight, err := slurm.NewInspector(l, cfg).InFlight(cmd.Context(), stage)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Scheduler", kindWarn, err.Error(), colorize))
			} else {
				queued = inFlight.Has(item)
			}
			shown := evidence.Displayed(queued)
			fmt.Fprintln(out, renderStatusLine(item.String(), lifecycleKind(shown), fmt.Sprintf("%s %s", stage, shown), colorize))

			markers := classifier.Markers(item, stage)
			if len(markers) == 0 {
				fmt.Fprintf(out, "No error files for %s %s\n", item, stage)
				return nil
			}
			for _, path := range markers {
				for _, line := range renderSectionHeader(path, colorize) {
					fmt.Fprintln(out, line)
				}
				tail, _, err := logs.Last(path, lines)
				if err != nil {
					return err
				}
				for _, line := range tail {
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines appended to the pipeline log")
	return cmd
}

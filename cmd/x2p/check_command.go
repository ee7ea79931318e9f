package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check scheduler tools, disk space and catalogue access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var pinger preflight.Pinger
			db, openErr := catalogue.Open(cmd.Context(), cfg)
			if openErr == nil {
				defer db.Close()
				pinger = db
			}
			results := preflight.RunAll(cmd.Context(), cfg, pinger)
			if openErr != nil {
				results = append(results, preflight.Result{Name: "Catalogue", Detail: openErr.Error()})
			}

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			if ctx.configPath != "" {
				fmt.Fprintln(out, renderStatusLine("Config", kindInfo, ctx.configPath, colorize))
			}
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, checkKind(r), r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

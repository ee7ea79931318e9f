package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xia2pipe/internal/catalogue"
)

func newCatalogueCommand(ctx *commandContext) *cobra.Command {
	catCmd := &cobra.Command{
		Use:     "catalogue",
		Aliases: []string{"db"},
		Short:   "Catalogue maintenance",
	}
	catCmd.AddCommand(newCatalogueInitCommand(ctx))
	catCmd.AddCommand(newRecordDiffractionCommand(ctx))
	return catCmd
}

func newCatalogueInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalogue tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, pipelineOptions{}, func(p *pipeline) error {
				if err := p.db.InitSchema(cmd.Context(), p.cfg.Catalogue); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Catalogue tables ready (%s)\n", p.db.Driver())
				return nil
			})
		},
	}
}

func newRecordDiffractionCommand(ctx *commandContext) *cobra.Command {
	var outcome string

	cmd := &cobra.Command{
		Use:   "record-diffraction <sample/run> ...",
		Short: "Record diffraction outcomes for runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(cmd, pipelineOptions{}, func(p *pipeline) error {
				for _, item := range items {
					if err := p.catalogue.RecordDiffraction(cmd.Context(), item, outcome); err != nil {
						return fmt.Errorf("%s: %w", item, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d diffraction row(s)\n", len(items))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&outcome, "outcome", catalogue.DiffractionSuccess, "Diffraction outcome value")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"worklist/internal/logging"
	"worklist/internal/store"
)

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and migrate the database schema",
	}
	schemaCmd.AddCommand(newSchemaStatusCommand(ctx))
	schemaCmd.AddCommand(newSchemaApplyCommand(ctx))
	return schemaCmd
}

func newSchemaStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the deployed schema version and the store revision serving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := store.Status(ctx.requestContext(cmd), cfg)
			if err != nil {
				return err
			}

			revision := status.Revision
			if revision == "" {
				revision = "none (run `worklist schema apply`)"
			}
			rows := [][]string{
				{"Database", cfg.Database.Path},
				{"Driver", cfg.Database.Driver},
				{"Deployed version", strconv.Itoa(status.Deployed)},
				{"Latest version", strconv.Itoa(status.Latest)},
				{"Store revision", revision},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Property", "Value"}, rows, nil, shouldColorize(out)))
			if status.Deployed < status.Latest {
				fmt.Fprintf(out, "%d migration(s) pending\n", status.Latest-status.Deployed)
			}
			return nil
		},
	}
}

func newSchemaApplyCommand(ctx *commandContext) *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Migrate the database schema forward",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			before, after, err := store.ApplySchema(ctx.requestContext(cmd), cfg, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if before == after {
				fmt.Fprintf(out, "Schema already at version %d\n", after)
				return nil
			}
			logger.Info("schema migrated", logging.Int("from", before), logging.Int("to", after))
			fmt.Fprintf(out, "Schema migrated from version %d to %d\n", before, after)
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "version", 0, "Target schema version (0 for latest)")
	return cmd
}

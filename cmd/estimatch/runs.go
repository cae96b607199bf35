package main

import (
	"fmt"

	"github.com/Veraticus/estimatch/internal/cli"
	"github.com/Veraticus/estimatch/internal/service"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent matching runs",
		Long: `List recorded bulk matching runs, newest first, with their item counts
and quality scores. Use --project to limit the list to one project.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, _ := cmd.Flags().GetString("project")
			limit, _ := cmd.Flags().GetInt("limit")

			return withStorage(cmd.Context(), func(store service.Storage) error {
				runs, err := store.ListRuns(cmd.Context(), project, limit)
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No runs recorded"))
					return nil
				}
				return cli.RenderRuns(cmd.OutOrStdout(), runs)
			})
		},
	}

	cmd.Flags().StringP("project", "p", "", "Only show runs for this project")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

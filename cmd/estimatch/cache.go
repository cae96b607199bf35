package main

import (
	"fmt"

	"github.com/Veraticus/estimatch/internal/cli"
	"github.com/Veraticus/estimatch/internal/service"
	"github.com/spf13/cobra"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persisted result cache",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show how many matches are cached",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd.Context(), func(store service.Storage) error {
				entries, err := store.LoadCacheEntries(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%d cached matches", len(entries))))
				return nil
			})
		},
	}

	purge := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached match",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd.Context(), func(store service.Storage) error {
				if err := store.ClearCacheEntries(cmd.Context()); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Result cache cleared"))
				return nil
			})
		},
	}

	cmd.AddCommand(stats, purge)
	return cmd
}

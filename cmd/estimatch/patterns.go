package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/estimatch/internal/cli"
	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/service"
	"github.com/Veraticus/estimatch/internal/storage"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Manage learned matching patterns",
		Long: `Inspect and prune the invoice-to-estimate description patterns learned
from confident matches in earlier runs.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List learned patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			supplier, _ := cmd.Flags().GetString("supplier")
			return withStorage(cmd.Context(), func(store service.Storage) error {
				patterns, err := store.LoadPatterns(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load patterns: %w", err)
				}
				patterns = filterBySupplier(patterns, supplier)
				if len(patterns) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No patterns learned yet"))
					return nil
				}
				return cli.RenderPatterns(cmd.OutOrStdout(), patterns)
			})
		},
	}
	list.Flags().StringP("supplier", "s", "", "Only show patterns learned from this supplier")

	show := &cobra.Command{
		Use:   "show <key>",
		Short: "Show pattern details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(store service.Storage) error {
				p, err := findPattern(cmd, store, args[0])
				if err != nil {
					return err
				}
				return cli.RenderPattern(cmd.OutOrStdout(), p)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a learned pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(store service.Storage) error {
				err := store.DeletePattern(cmd.Context(), args[0])
				switch {
				case storage.IsNotFound(err):
					return fmt.Errorf("pattern %q: %w", args[0], common.ErrNotFound)
				case err != nil:
					return fmt.Errorf("failed to delete pattern: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted pattern "+args[0]))
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func findPattern(cmd *cobra.Command, store service.PatternRepository, key string) (model.MatchingPattern, error) {
	patterns, err := store.LoadPatterns(cmd.Context())
	if err != nil {
		return model.MatchingPattern{}, fmt.Errorf("failed to load patterns: %w", err)
	}
	for _, p := range patterns {
		if p.Key == key {
			return p, nil
		}
	}
	return model.MatchingPattern{}, fmt.Errorf("pattern %q: %w", key, common.ErrNotFound)
}

// filterBySupplier keeps patterns whose supplier matches case-insensitively.
// An empty supplier keeps everything.
func filterBySupplier(patterns []model.MatchingPattern, supplier string) []model.MatchingPattern {
	if supplier == "" {
		return patterns
	}
	filtered := patterns[:0]
	for _, p := range patterns {
		if strings.EqualFold(p.Supplier, supplier) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

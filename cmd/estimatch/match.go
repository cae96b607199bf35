package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/estimatch/internal/cache"
	"github.com/Veraticus/estimatch/internal/cli"
	"github.com/Veraticus/estimatch/internal/config"
	"github.com/Veraticus/estimatch/internal/engine"
	"github.com/Veraticus/estimatch/internal/input"
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/pattern"
	"github.com/Veraticus/estimatch/internal/service"
	"github.com/Veraticus/estimatch/internal/sheets"
	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match invoice line items to estimate line items",
		Long: `Match every invoice line item in a bundle against the project's estimate.

A bundle is a JSON or YAML file holding the project id, the invoices, the
estimate line items and optional run options. Flags override bundle options,
which override the matching section of the config file.

Examples:
  estimatch match --input tower-april.yaml
  estimatch match -i tower-april.json --batch-size 20 --concurrency 5
  estimatch match -i tower-april.yaml --show-matches --output result.json
  estimatch match -i tower-april.yaml --export-sheets`,
		RunE: runMatch,
	}

	cmd.Flags().StringP("input", "i", "", "Bundle file to match (json or yaml)")
	cmd.Flags().StringP("project", "p", "", "Override the bundle's project id")
	cmd.Flags().StringP("output", "o", "", "Write the full result as JSON to this file")
	cmd.Flags().Int("batch-size", 0, "Line items per collaborator batch")
	cmd.Flags().Int("concurrency", 0, "Maximum concurrent collaborator batches")
	cmd.Flags().Float64("threshold", 0, "Confidence below which matches are flagged for review")
	cmd.Flags().Bool("no-cache", false, "Skip the result cache")
	cmd.Flags().Bool("no-learning", false, "Do not learn patterns from this run")
	cmd.Flags().Bool("strict-supplier", false, "Only apply patterns learned from the same supplier")
	cmd.Flags().Bool("show-matches", false, "Print every match")
	cmd.Flags().Bool("export-sheets", false, "Export the result to Google Sheets")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	path, _ := cmd.Flags().GetString("input")
	showMatches, _ := cmd.Flags().GetBool("show-matches")

	bundle, err := input.LoadFileWithDefaults(config.ExpandPath(path), config.LoadBulkOptions())
	if err != nil {
		return err
	}
	if project, _ := cmd.Flags().GetString("project"); project != "" {
		bundle.ProjectID = project
	}
	opts := applyOptionFlags(cmd, bundle.Options)

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	var results cache.Store
	var rc *resultCache
	if opts.EnableCache {
		rc, err = initResultCache(ctx, store)
		if err != nil {
			return err
		}
		results = rc
	}

	matcher, err := createMatcher()
	if err != nil {
		return err
	}
	defer func() { _ = matcher.Close() }()

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx = interrupts.HandleInterrupts(ctx, rc != nil)
	progress := cli.NewBatchProgress(cmd.ErrOrStderr())

	eng := engine.NewWithConfig(matcher, pattern.NewMemoryStore(), results, engine.Config{
		Persister: store,
		Logger:    slog.Default(),
		Progress:  progress.Update,
	})
	if err := eng.LoadPatterns(ctx); err != nil {
		return err
	}

	slog.Info("Starting bulk matching", "project_id", bundle.ProjectID, "bundle", path)
	result := eng.BulkMatchInvoices(ctx, bundle.Invoices, bundle.Estimates, bundle.ProjectID, &opts)

	// Completed work is kept even when the run was interrupted.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if rc != nil {
		if err := rc.flush(saveCtx); err != nil {
			slog.Warn("Failed to save result cache", "error", err)
		}
	}
	recordRun(saveCtx, store, result)

	if err := cli.RenderResult(cmd.OutOrStdout(), result, showMatches); err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		if err := writeResultFile(config.ExpandPath(out), result); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Result written to "+out))
	}

	if export, _ := cmd.Flags().GetBool("export-sheets"); export && result.Success {
		if err := exportToSheets(saveCtx, cmd, sheets.Report{
			Result:    result,
			Invoices:  bundle.Invoices,
			Estimates: bundle.Estimates,
		}); err != nil {
			return err
		}
	}

	if interrupts.WasInterrupted() || ctx.Err() != nil {
		return fmt.Errorf("matching interrupted")
	}
	if !result.Success {
		return fmt.Errorf("bulk matching failed: %s", result.Error)
	}
	return nil
}

func applyOptionFlags(cmd *cobra.Command, opts model.BulkProcessingOptions) model.BulkProcessingOptions {
	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		opts.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("concurrency") {
		opts.MaxConcurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("threshold") {
		opts.ConfidenceThreshold, _ = flags.GetFloat64("threshold")
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		opts.EnableCache = false
	}
	if noLearning, _ := flags.GetBool("no-learning"); noLearning {
		opts.EnablePatternLearning = false
	}
	if strict, _ := flags.GetBool("strict-supplier"); strict {
		opts.StrictSupplierScope = true
	}
	return opts.Normalize()
}

func recordRun(ctx context.Context, runs service.RunRepository, result model.BulkMatchingResult) {
	if !result.Success {
		return
	}
	err := runs.SaveRun(ctx, model.RunSummary{
		CreatedAt:    time.Now(),
		RunID:        result.RunID,
		ProjectID:    result.ProjectID,
		Metrics:      result.Metrics,
		QualityScore: result.QualityScore,
		Success:      result.Success,
	})
	if err != nil {
		slog.Warn("Failed to record run", "run_id", result.RunID, "error", err)
	}
}

func writeResultFile(path string, result model.BulkMatchingResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func exportToSheets(ctx context.Context, cmd *cobra.Command, report sheets.Report) error {
	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("sheets export not configured: %w", err)
	}

	writer, err := sheets.NewWriter(ctx, *cfg, slog.Default())
	if err != nil {
		return err
	}

	spreadsheetID, err := writer.Export(ctx, report)
	if err != nil {
		return fmt.Errorf("sheets export failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		"Exported to https://docs.google.com/spreadsheets/d/"+spreadsheetID))
	return nil
}

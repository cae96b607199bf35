package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Veraticus/estimatch/internal/api"
	"github.com/Veraticus/estimatch/internal/certs"
	"github.com/Veraticus/estimatch/internal/config"
	"github.com/Veraticus/estimatch/internal/engine"
	"github.com/Veraticus/estimatch/internal/pattern"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching API over HTTP",
		Long: `Start an HTTP server exposing bulk matching, learned patterns, run
history, a health check and Prometheus metrics.

  POST /api/projects/{projectID}/bulk-match
  GET  /api/projects/{projectID}/runs
  GET  /api/patterns
  GET  /health
  GET  /metrics`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "Address to listen on")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed certificate")
	cmd.Flags().StringSlice("tls-host", nil, "Hosts the certificate covers (default localhost)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("server.tls_hosts", cmd.Flags().Lookup("tls-host"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	addr := viper.GetString("server.addr")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := initResultCache(ctx, store)
	if err != nil {
		return err
	}

	matcher, err := createMatcher()
	if err != nil {
		return err
	}
	defer func() { _ = matcher.Close() }()

	eng := engine.NewWithConfig(matcher, pattern.NewMemoryStore(), results, engine.Config{
		Persister: store,
		Logger:    slog.Default(),
	})
	if err := eng.LoadPatterns(ctx); err != nil {
		return err
	}

	handler := api.NewHandler(eng,
		api.WithRuns(store),
		api.WithLogger(slog.Default()),
		api.WithVersion(version))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := viper.GetBool("server.tls")
	if useTLS {
		cert, err := certs.NewStore(filepath.Join(config.Dir(), "certs"), viper.GetStringSlice("server.tls_hosts")...).LoadOrCreate()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr, "tls", useTLS)
		if useTLS {
			errCh <- server.ListenAndServeTLS("", "")
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Server shutdown incomplete", "error", err)
	}
	if err := results.flush(shutdownCtx); err != nil {
		slog.Warn("Failed to save result cache", "error", err)
	}
	return nil
}

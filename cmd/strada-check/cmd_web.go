// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strada-check/internal/store"
	"strada-check/internal/suppressions"
	"strada-check/internal/web"
)

type webFlags struct {
	addr            string
	database        string
	noStore         bool
	suppressionFile string
}

func newWebCmd(a *app) *cobra.Command {
	f := &webFlags{}
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the verification and classification API over HTTP",
		Long: `Starts the HTTP server. Uploads are verified or classified in memory;
runs are recorded in the SQLite run database unless --no-store is given.

Endpoints:
  GET  /health
  GET  /api/checks, /api/formats
  POST /api/verify, /api/classify, /api/export
  GET|POST /api/suppressions
  GET  /api/runs, /api/runs/:id`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWeb(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address (default: web.addr from the config, 127.0.0.1:8080)")
	cmd.Flags().StringVar(&f.database, "sqlite", "", "Run database (default: defaults.database or runs.db in the config directory)")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "Do not record runs")
	cmd.Flags().StringVar(&f.suppressionFile, "suppressions", "", "Path to suppression rules file")
	return cmd
}

func (a *app) runWeb(cmd *cobra.Command, f *webFlags) error {
	cfg := *a.cfg
	if f.addr != "" {
		cfg.Web.Addr = f.addr
	}

	opts := web.Options{
		Logger:       a.logger,
		Suppressions: suppressions.NewSuppressionManager(f.suppressionFile),
		Debug:        a.debug,
	}
	if !f.noStore {
		s, err := store.Open(a.databasePath(f.database))
		if err != nil {
			return fmt.Errorf("failed to open run database: %w", err)
		}
		defer s.Close()
		opts.Store = s
		a.logger.Info("recording runs", zap.String("database", s.Path()))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(&cfg, opts)
	fmt.Fprintf(cmd.OutOrStdout(), "Starting web server on %s (Ctrl+C to stop)\n", cfg.Web.Addr)
	return srv.Start(ctx)
}

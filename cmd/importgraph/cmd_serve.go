// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/importgraph/cmd/importgraph/config"
	"github.com/AleutianAI/importgraph/pkg/logging"
	"github.com/AleutianAI/importgraph/services/importgraph"
	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/loader"
	"github.com/AleutianAI/importgraph/services/importgraph/storage"
	"github.com/AleutianAI/importgraph/services/importgraph/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	serveHost   string
	servePort   int
	serveFiles  []string
	serveSquash []string
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve import graphs over HTTP",
	Long: `Start the import graph HTTP API.

Graphs are created and queried under /v1/importgraph. When snapshot storage
is enabled, graphs can be persisted to and restored from BadgerDB. Metrics
are served at /metrics when the Prometheus exporter is configured.

With --file (or server.preload in the config), the files are loaded into
the graph "default" and reloaded whenever they change.

Examples:
  importgraph serve
  importgraph serve --port 9000 --debug
  importgraph serve -f imports.yaml --squash vendor`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"Listen address (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"Listen port (overrides server.port)")
	serveCmd.Flags().StringArrayVarP(&serveFiles, "file", "f", nil,
		"Import file to preload and watch (overrides server.preload)")
	serveCmd.Flags().StringArrayVar(&serveSquash, "squash", nil,
		"Module to squash in the preloaded graph (overrides server.squash)")

	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyServeFlags(cfg)

	logger, err := newServeLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	opts := []importgraph.ServiceOption{importgraph.WithLogger(logger.Slog())}
	if cfg.Storage.Enabled {
		storeCfg := cfg.Storage.Config
		storeCfg.Logger = logger.Slog()
		db, err := storage.Open(storeCfg)
		if err != nil {
			return fmt.Errorf("snapshot storage: %w", err)
		}
		defer db.Close()
		opts = append(opts, importgraph.WithSnapshotStore(storage.NewSnapshotStore(db)))
	}

	svc, err := importgraph.NewService(cfg.Service, opts...)
	if err != nil {
		return err
	}

	if len(cfg.Server.Preload) > 0 {
		watcher, err := startPreload(ctx, cfg.Server, svc, logger.With("component", "preload").Slog())
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	router := newRouter(cfg, svc, logger.Slog())
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting import graph server",
			slog.String("address", srv.Addr),
			slog.Bool("snapshots", svc.SnapshotsEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down import graph server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// applyServeFlags lets command-line flags override the config file.
func applyServeFlags(cfg *config.Config) {
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if len(serveFiles) > 0 {
		cfg.Server.Preload = serveFiles
	}
	if len(serveSquash) > 0 {
		cfg.Server.Squash = serveSquash
	}
}

func newServeLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if debugMode {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "importgraph",
		JSON:    cfg.Logging.JSON,
	}), nil
}

// newRouter builds the gin engine: recovery, tracing, /metrics and the
// /v1/importgraph API.
func newRouter(cfg *config.Config, svc *importgraph.Service, logger *slog.Logger) *gin.Engine {
	if debugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	if debugMode {
		router.Use(gin.Logger())
	}

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	v1 := router.Group("/v1")
	importgraph.RegisterRoutes(v1, importgraph.NewHandlers(svc, logger))
	return router
}

// startPreload loads the preload files into config.PreloadGraphID and
// replaces that graph on every successful rebuild. A failed rebuild
// keeps the previous graph.
func startPreload(ctx context.Context, server config.ServerConfig, svc *importgraph.Service, logger *slog.Logger) (*loader.Watcher, error) {
	opts := loader.DefaultWatcherOptions()
	opts.Logger = logger
	opts.Load = []loader.Option{
		loader.WithSquash(server.Squash...),
		loader.WithLogger(logger),
	}

	onRebuild := func(g *graph.Graph, err error) {
		if err != nil {
			logger.Warn("preload failed, keeping previous graph", slog.String("error", err.Error()))
			return
		}
		summary := svc.PutGraph(ctx, config.PreloadGraphID, g)
		logger.Info("preloaded graph updated",
			slog.String("graph_id", summary.GraphID),
			slog.Int("modules", summary.Modules),
			slog.Int("imports", summary.Imports),
		)
	}

	watcher, err := loader.NewWatcher(server.Preload, onRebuild, &opts)
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return nil, err
	}
	return watcher, nil
}

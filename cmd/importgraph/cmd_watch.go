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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/importgraph/pkg/ux"
	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/loader"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	watchFiles    []string
	watchSquash   []string
	watchDebounce time.Duration
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the graph whenever an import file changes",
	Long: `Load the import files, print a summary, and print a new summary every
time one of the files changes. Stops on Ctrl-C.

A rebuild that fails is reported and the previous graph stays current.

Examples:
  importgraph watch -f imports.yaml
  importgraph watch -f a.yaml -f b.yaml --squash vendor --json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	watchCmd.Flags().StringArrayVarP(&watchFiles, "file", "f", nil,
		"Import file to watch (repeatable)")
	watchCmd.Flags().StringArrayVar(&watchSquash, "squash", nil,
		"Module to squash after each rebuild (repeatable)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond,
		"Quiet period after the last change before rebuilding")

	rootCmd.AddCommand(watchCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

// watchEvent is the JSON form of one rebuild.
type watchEvent struct {
	Rebuild int    `json:"rebuild"`
	Modules int    `json:"modules,omitempty"`
	Imports int    `json:"imports,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(watchFiles) == 0 {
		return errNoFiles
	}

	logger := newCLILogger(cmd)
	defer logger.Close()
	printer := newPrinter(cmd)

	opts := loader.DefaultWatcherOptions()
	opts.Debounce = watchDebounce
	opts.Logger = logger.Slog()
	opts.Load = []loader.Option{
		loader.WithSquash(watchSquash...),
		loader.WithLogger(logger.Slog()),
	}

	var watcher *loader.Watcher
	watcher, err := loader.NewWatcher(watchFiles, func(g *graph.Graph, err error) {
		reportRebuild(printer, watcher.Rebuilds(), g, err)
	}, &opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return err
	}
	defer watcher.Stop()

	<-ctx.Done()
	return nil
}

// reportRebuild prints one rebuild result.
func reportRebuild(p *ux.Printer, n int, g *graph.Graph, err error) {
	event := watchEvent{Rebuild: n}
	if err != nil {
		event.Error = err.Error()
	} else {
		event.Modules = g.CountModules()
		event.Imports = g.CountImports()
	}

	_ = p.Emit(event, func(p *ux.Printer) {
		if err != nil {
			p.Error(fmt.Sprintf("rebuild %d failed: %v", n, err))
			return
		}
		p.Title(fmt.Sprintf("Rebuild %d at %s", n, time.Now().Format(time.TimeOnly)))
		p.KeyValue("modules", event.Modules)
		p.KeyValue("imports", event.Imports)
		p.Muted(g.String())
	})
}

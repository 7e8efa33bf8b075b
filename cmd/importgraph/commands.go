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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/importgraph/pkg/logging"
	"github.com/AleutianAI/importgraph/pkg/ux"
)

// --- Global Command Variables ---
var (
	configPath string
	debugMode  bool
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "importgraph",
		Short: "Build and query hierarchical import graphs",
		Long: `importgraph answers dependency questions about a codebase's modules:
who imports whom, which chains connect two packages, and what a package
looks like when squashed into a single node.

Import files (YAML or JSON) list modules and the imports between them.
Query them directly with 'importgraph query', keep a graph fresh with
'importgraph watch', or serve graphs over HTTP with 'importgraph serve'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default ~/.importgraph/importgraph.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output results as JSON")
}

// newPrinter returns a printer for the command's stdout and stderr.
func newPrinter(cmd *cobra.Command) *ux.Printer {
	out := cmd.OutOrStdout()
	return ux.NewPrinter(out, cmd.ErrOrStderr(), ux.DetectMode(out, jsonOutput))
}

// newCLILogger returns the logger used by one-shot commands. It stays
// quiet below Warn unless --debug is set.
func newCLILogger(cmd *cobra.Command) *logging.Logger {
	level := logging.LevelWarn
	if debugMode {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		Service: "importgraph",
		Output:  cmd.ErrOrStderr(),
	})
}

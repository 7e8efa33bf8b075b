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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/importgraph/pkg/logging"
	"github.com/AleutianAI/importgraph/pkg/ux"
	"github.com/AleutianAI/importgraph/services/importgraph"
	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/loader"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// Shared flags
	queryFiles   []string
	querySquash  []string
	queryTimeout time.Duration
	queryWorkers int

	// direct, downstream, upstream, exists
	queryAsPackages bool

	// all-chains
	queryLimit int
)

// queryGraphID names the single graph a query session holds.
const queryGraphID = "cli"

// errNoFiles is returned when a query runs without --file.
var errNoFiles = errors.New("at least one --file is required")

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

// queryCmd is the parent query command.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query import files without a server",
	Long: `Load one or more import files, optionally squash modules, and answer
a single question about the resulting graph.

Subcommands:
  modules      - List every module
  summary      - Module and import counts
  module       - Presence, squash flag and parent of one module
  imports      - Modules a module imports directly
  importers    - Modules that import a module directly
  direct       - Does A directly import B?
  downstream   - Modules that depend on a module
  upstream     - Modules a module depends on
  children     - Immediate children of a module
  descendants  - All descendants of a module
  chain        - Shortest chain from A to B
  chains       - Shortest chain per module pair between two packages
  all-chains   - Every simple chain from A to B
  exists       - Is there any chain from A to B?
  details      - Import statements behind A -> B

Examples:
  importgraph query modules -f imports.yaml
  importgraph query downstream mypackage.green -f imports.yaml
  importgraph query chain mypackage.green mypackage.blue.two -f a.yaml -f b.yaml
  importgraph query direct mypackage.green mypackage.blue --as-packages -f imports.yaml
  importgraph query modules -f imports.yaml --squash vendor --json`,
}

var queryModulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List every module in the graph",
	Args:  cobra.NoArgs,
	RunE:  runQueryModules,
}

var querySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show module and import counts",
	Args:  cobra.NoArgs,
	RunE:  runQuerySummary,
}

var queryModuleCmd = &cobra.Command{
	Use:   "module MODULE",
	Short: "Show whether MODULE is present or squashed, and its parent",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryModule,
}

var queryImportsCmd = &cobra.Command{
	Use:   "imports MODULE",
	Short: "List the modules MODULE imports directly",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryImports,
}

var queryImportersCmd = &cobra.Command{
	Use:   "importers MODULE",
	Short: "List the modules that import MODULE directly",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryImporters,
}

// queryDirectCmd checks for a direct import.
var queryDirectCmd = &cobra.Command{
	Use:   "direct IMPORTER IMPORTED",
	Short: "Check whether IMPORTER directly imports IMPORTED",
	Long: `Check whether IMPORTER directly imports IMPORTED.

With --as-packages, any module in the IMPORTER package importing any module
in the IMPORTED package counts. The two packages must not overlap.

Examples:
  importgraph query direct mypackage.green mypackage.yellow -f imports.yaml
  importgraph query direct mypackage.green mypackage.blue --as-packages -f imports.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runQueryDirect,
}

var queryDownstreamCmd = &cobra.Command{
	Use:   "downstream MODULE",
	Short: "List modules that depend on MODULE",
	Long: `List every module that imports MODULE, directly or indirectly.

With --as-packages, MODULE and its descendants are treated as one package
and the package's own members are excluded from the result.

Examples:
  importgraph query downstream mypackage.blue.two -f imports.yaml
  importgraph query downstream mypackage.blue --as-packages -f imports.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runQueryDownstream,
}

var queryUpstreamCmd = &cobra.Command{
	Use:   "upstream MODULE",
	Short: "List modules MODULE depends on",
	Long: `List every module MODULE imports, directly or indirectly.

Examples:
  importgraph query upstream mypackage.green -f imports.yaml
  importgraph query upstream mypackage --as-packages -f imports.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runQueryUpstream,
}

var queryChildrenCmd = &cobra.Command{
	Use:   "children MODULE",
	Short: "List the immediate children of MODULE",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryChildren,
}

var queryDescendantsCmd = &cobra.Command{
	Use:   "descendants MODULE",
	Short: "List every descendant of MODULE",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryDescendants,
}

var queryChainCmd = &cobra.Command{
	Use:   "chain IMPORTER IMPORTED",
	Short: "Find the shortest chain from IMPORTER to IMPORTED",
	Long: `Find the shortest import chain from IMPORTER to IMPORTED.

Uses bidirectional BFS. Reports no chain when none exists or when either
module is absent.

Examples:
  importgraph query chain mypackage.green mypackage.blue.two -f imports.yaml
  importgraph query chain mypackage.green mypackage.blue.two -f imports.yaml --json`,
	Args: cobra.ExactArgs(2),
	RunE: runQueryChain,
}

var queryChainsCmd = &cobra.Command{
	Use:   "chains IMPORTER IMPORTED",
	Short: "Find shortest chains between two packages",
	Long: `Find, for every pair of modules across the IMPORTER and IMPORTED
packages, the shortest chain between them. Chains never pass through
either package along the way.

Examples:
  importgraph query chains mypackage.green mypackage.blue -f imports.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runQueryChains,
}

var queryAllChainsCmd = &cobra.Command{
	Use:   "all-chains IMPORTER IMPORTED",
	Short: "Enumerate every simple chain from IMPORTER to IMPORTED",
	Long: `Enumerate every simple import chain from IMPORTER to IMPORTED.

The number of chains grows quickly on dense graphs. Enumeration stops at
--limit chains and when --timeout elapses.

Examples:
  importgraph query all-chains app.views app.db -f imports.yaml
  importgraph query all-chains app.views app.db -f imports.yaml --limit 500`,
	Args: cobra.ExactArgs(2),
	RunE: runQueryAllChains,
}

var queryExistsCmd = &cobra.Command{
	Use:   "exists IMPORTER IMPORTED",
	Short: "Check whether any chain leads from IMPORTER to IMPORTED",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryExists,
}

var queryDetailsCmd = &cobra.Command{
	Use:   "details IMPORTER IMPORTED",
	Short: "Show the import statements behind IMPORTER -> IMPORTED",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryDetails,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	// Parent command flags (inherited by subcommands)
	queryCmd.PersistentFlags().StringArrayVarP(&queryFiles, "file", "f", nil,
		"Import file to load (repeatable)")
	queryCmd.PersistentFlags().StringArrayVar(&querySquash, "squash", nil,
		"Module to squash after loading (repeatable)")
	queryCmd.PersistentFlags().IntVar(&queryWorkers, "concurrency", 0,
		"Files decoded in parallel (0 = one per CPU)")
	queryCmd.PersistentFlags().DurationVar(&queryTimeout, "timeout", 30*time.Second,
		"Overall time limit (0 = none)")

	for _, c := range []*cobra.Command{queryDirectCmd, queryDownstreamCmd, queryUpstreamCmd, queryExistsCmd} {
		c.Flags().BoolVarP(&queryAsPackages, "as-packages", "p", false,
			"Treat modules as packages including their descendants")
	}

	queryAllChainsCmd.Flags().IntVar(&queryLimit, "limit", 0,
		"Maximum chains to return (0 = default 100)")

	queryCmd.AddCommand(
		queryModulesCmd,
		querySummaryCmd,
		queryModuleCmd,
		queryImportsCmd,
		queryImportersCmd,
		queryDirectCmd,
		queryDownstreamCmd,
		queryUpstreamCmd,
		queryChildrenCmd,
		queryDescendantsCmd,
		queryChainCmd,
		queryChainsCmd,
		queryAllChainsCmd,
		queryExistsCmd,
		queryDetailsCmd,
	)
	rootCmd.AddCommand(queryCmd)
}

// querySession holds one loaded graph behind a service.
type querySession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	svc     *importgraph.Service
	printer *ux.Printer
	logger  *logging.Logger
}

// queryContext derives the session context from parent, bounded by
// timeout when it is positive.
func queryContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// openQuerySession loads --file into a fresh service under queryGraphID.
func openQuerySession(cmd *cobra.Command) (*querySession, error) {
	if len(queryFiles) == 0 {
		return nil, errNoFiles
	}

	ctx, cancel := queryContext(cmd.Context(), queryTimeout)
	logger := newCLILogger(cmd)

	g, err := loader.LoadFiles(ctx, queryFiles,
		loader.WithConcurrency(queryWorkers),
		loader.WithSquash(querySquash...),
		loader.WithLogger(logger.Slog()),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	cfg := importgraph.DefaultServiceConfig()
	cfg.MaxGraphs = 1
	cfg.QueryTimeout = queryTimeout
	if queryLimit > cfg.MaxChainLimit {
		cfg.MaxChainLimit = queryLimit
	}
	svc, err := importgraph.NewService(cfg, importgraph.WithLogger(logger.Slog()))
	if err != nil {
		cancel()
		return nil, err
	}
	svc.PutGraph(ctx, queryGraphID, g)

	return &querySession{
		ctx:     ctx,
		cancel:  cancel,
		svc:     svc,
		printer: newPrinter(cmd),
		logger:  logger,
	}, nil
}

func (s *querySession) Close() {
	s.cancel()
	s.logger.Close()
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runQueryModules(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.svc.Modules(s.ctx, queryGraphID)
	if err != nil {
		return err
	}
	return emitModules(s.printer, fmt.Sprintf("%d modules", len(modules)), modules)
}

func runQuerySummary(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := s.svc.Summary(s.ctx, queryGraphID)
	if err != nil {
		return err
	}
	return s.printer.Emit(summary, func(p *ux.Printer) {
		p.Title("Import graph")
		p.KeyValue("modules", summary.Modules)
		p.KeyValue("imports", summary.Imports)
		p.Muted(summary.Description)
	})
}

func runQueryModule(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.svc.ModuleInfo(s.ctx, queryGraphID, args[0])
	if err != nil {
		return err
	}
	return s.printer.Emit(info, func(p *ux.Printer) {
		p.Title(info.Module)
		p.KeyValue("present", info.Present)
		p.KeyValue("squashed", info.Squashed)
		if info.Parent != "" {
			p.KeyValue("parent", info.Parent)
		}
		p.KeyValue("root", info.Root)
	})
}

func runQueryImports(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.svc.DirectImports(s.ctx, queryGraphID, args[0])
	if err != nil {
		return err
	}
	return emitModules(s.printer, fmt.Sprintf("%s imports", args[0]), modules)
}

func runQueryImporters(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.svc.DirectImporters(s.ctx, queryGraphID, args[0])
	if err != nil {
		return err
	}
	return emitModules(s.printer, fmt.Sprintf("Modules importing %s", args[0]), modules)
}

func runQueryDirect(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	q := importgraph.PairQuery{Importer: args[0], Imported: args[1], AsPackages: queryAsPackages}
	exists, err := s.svc.DirectImportExists(s.ctx, queryGraphID, q)
	if err != nil {
		return err
	}
	verb := "directly imports"
	if !exists {
		verb = "does not directly import"
	}
	return emitExists(s.printer, exists, fmt.Sprintf("%s %s %s", args[0], verb, args[1]))
}

func runQueryDownstream(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.svc.Downstream(s.ctx, queryGraphID, importgraph.ModuleQuery{Module: args[0], AsPackage: queryAsPackages})
	if err != nil {
		return err
	}
	return emitModules(s.printer, fmt.Sprintf("%d modules depend on %s", len(modules), args[0]), modules)
}

func runQueryUpstream(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.svc.Upstream(s.ctx, queryGraphID, importgraph.ModuleQuery{Module: args[0], AsPackage: queryAsPackages})
	if err != nil {
		return err
	}
	return emitModules(s.printer, fmt.Sprintf("%s depends on %d modules", args[0], len(modules)), modules)
}

func runQueryChildren(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.svc.Children(s.ctx, queryGraphID, args[0])
	if err != nil {
		return err
	}
	return emitModules(s.printer, fmt.Sprintf("Children of %s", args[0]), modules)
}

func runQueryDescendants(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.svc.Descendants(s.ctx, queryGraphID, args[0])
	if err != nil {
		return err
	}
	return emitModules(s.printer, fmt.Sprintf("Descendants of %s", args[0]), modules)
}

func runQueryChain(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	chain, err := s.svc.ShortestChain(s.ctx, queryGraphID, args[0], args[1])
	if err != nil {
		return err
	}
	resp := importgraph.ChainResponse{Chain: chain, Found: chain != nil}
	if chain == nil {
		resp.Chain = []string{}
	}
	return s.printer.Emit(resp, func(p *ux.Printer) {
		if !resp.Found {
			p.Muted(fmt.Sprintf("no chain from %s to %s", args[0], args[1]))
			return
		}
		p.Title(fmt.Sprintf("Shortest chain (%d imports)", len(chain)-1))
		p.Chain(chain)
	})
}

func runQueryChains(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	chains, err := s.svc.ShortestChains(s.ctx, queryGraphID, args[0], args[1])
	if err != nil {
		return err
	}
	return emitChains(s.printer, importgraph.ChainsResponse{Chains: chains, Count: len(chains)})
}

func runQueryAllChains(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	q := importgraph.AllChainsQuery{Importer: args[0], Imported: args[1], Limit: queryLimit}
	chains, truncated, err := s.svc.AllChains(s.ctx, queryGraphID, q)
	if err != nil {
		return err
	}
	resp := importgraph.ChainsResponse{Chains: chains, Count: len(chains), Truncated: truncated}
	if err := emitChains(s.printer, resp); err != nil {
		return err
	}
	if truncated {
		s.printer.Warning(fmt.Sprintf("stopped after %d chains; raise --limit to see more", len(chains)))
	}
	return nil
}

func runQueryExists(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	q := importgraph.PairQuery{Importer: args[0], Imported: args[1], AsPackages: queryAsPackages}
	exists, err := s.svc.ChainExists(s.ctx, queryGraphID, q)
	if err != nil {
		return err
	}
	label := fmt.Sprintf("%s reaches %s", args[0], args[1])
	if !exists {
		label = fmt.Sprintf("no chain from %s to %s", args[0], args[1])
	}
	return emitExists(s.printer, exists, label)
}

func runQueryDetails(cmd *cobra.Command, args []string) error {
	s, err := openQuerySession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	details, err := s.svc.ImportDetails(s.ctx, queryGraphID, args[0], args[1])
	if err != nil {
		return err
	}
	return s.printer.Emit(importgraph.DetailsResponse{Details: details}, func(p *ux.Printer) {
		if len(details) == 0 {
			p.Muted(fmt.Sprintf("no recorded import statements for %s -> %s", args[0], args[1]))
			return
		}
		p.Title(fmt.Sprintf("%s -> %s", args[0], args[1]))
		for _, d := range details {
			p.KeyValue(detailLine(d), detailContents(d))
		}
	})
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func emitModules(p *ux.Printer, title string, modules []string) error {
	return p.Emit(importgraph.ModulesResponse{Modules: modules, Count: len(modules)}, func(p *ux.Printer) {
		p.Title(title)
		p.Items(modules)
	})
}

func emitExists(p *ux.Printer, exists bool, label string) error {
	return p.Emit(importgraph.ExistsResponse{Exists: exists}, func(p *ux.Printer) {
		p.Answer(exists, label)
	})
}

func emitChains(p *ux.Printer, resp importgraph.ChainsResponse) error {
	return p.Emit(resp, func(p *ux.Printer) {
		p.Title(fmt.Sprintf("%d chains", resp.Count))
		if resp.Count == 0 {
			p.Muted("(none)")
		}
		for _, chain := range resp.Chains {
			p.Chain(chain)
		}
	})
}

func detailLine(d graph.ImportDetail) string {
	if d.LineNumber == nil {
		return "line ?"
	}
	return fmt.Sprintf("line %d", *d.LineNumber)
}

func detailContents(d graph.ImportDetail) string {
	if d.LineContents == nil {
		return ""
	}
	return *d.LineContents
}

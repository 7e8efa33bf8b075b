// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package importgraph provides the import graph HTTP service.
//
// The service holds any number of graphs, each addressed by a UUID, and
// exposes endpoints for:
//   - Building graphs from snapshots or individual module/import calls
//   - Hierarchy-aware import queries and chain searches
//   - Squashing packages
//   - Persisting and restoring snapshots
package importgraph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/storage"
	"github.com/AleutianAI/importgraph/services/importgraph/telemetry"
)

// ServiceVersion is the import graph service version.
const ServiceVersion = "0.1.0"

var serviceValidate = validator.New()

// ServiceConfig configures the import graph service.
type ServiceConfig struct {
	// MaxGraphs is the maximum number of graphs held at once. When a new
	// graph would exceed it, the oldest graph is evicted.
	// Default: 16
	MaxGraphs int `yaml:"max_graphs" json:"max_graphs" validate:"gte=1"`

	// DefaultChainLimit caps FindAllSimpleChains results when the request
	// gives no limit.
	// Default: 100
	DefaultChainLimit int `yaml:"default_chain_limit" json:"default_chain_limit" validate:"gte=1"`

	// MaxChainLimit is the largest limit a request may ask for.
	// Default: 10000
	MaxChainLimit int `yaml:"max_chain_limit" json:"max_chain_limit" validate:"gtefield=DefaultChainLimit"`

	// QueryTimeout bounds each chain enumeration. 0 disables it.
	// Default: 30s
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout" validate:"gte=0"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxGraphs:         16,
		DefaultChainLimit: 100,
		MaxChainLimit:     10000,
		QueryTimeout:      30 * time.Second,
	}
}

// storedGraph is one graph plus its lock.
//
// graph.Graph is not safe for concurrent use, so every access goes
// through mu: queries take the read lock, mutations the write lock.
type storedGraph struct {
	id        string
	mu        sync.RWMutex
	graph     *graph.Graph
	createdAt time.Time
}

// ServiceOption configures optional Service dependencies.
type ServiceOption func(*Service)

// WithSnapshotStore enables snapshot persistence.
func WithSnapshotStore(store *storage.SnapshotStore) ServiceOption {
	return func(s *Service) {
		s.snapshots = store
	}
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service is the import graph service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Operations on different graphs
//	never block each other; operations on the same graph serialize only
//	against mutations of that graph.
type Service struct {
	config    ServiceConfig
	graphs    map[string]*storedGraph
	mu        sync.RWMutex
	snapshots *storage.SnapshotStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new import graph service.
//
// Inputs:
//
//	config - Service configuration. Validated.
//	opts - WithSnapshotStore, WithLogger.
//
// Outputs:
//
//	*Service - The configured service with no graphs.
//	error - Non-nil if config is invalid.
func NewService(config ServiceConfig, opts ...ServiceOption) (*Service, error) {
	if err := serviceValidate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid service config: %w", err)
	}

	svc := &Service{
		config: config,
		graphs: make(map[string]*storedGraph),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SnapshotsEnabled reports whether a snapshot store is configured.
func (s *Service) SnapshotsEnabled() bool {
	return s.snapshots != nil
}

// GraphCount returns the number of graphs held.
func (s *Service) GraphCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs)
}

// =============================================================================
// Graph lifecycle
// =============================================================================

// CreateGraph stores a new graph built from snap.
//
// Description:
//
//	A nil snapshot creates an empty graph. The snapshot is validated and
//	applied before the graph becomes visible, so a rejected snapshot
//	leaves no graph behind.
//
// Errors:
//
//	ErrInvalidRequest - a record is missing a module name
//	graph.ErrInvalidState, graph.ErrInvalidModuleName - from FromSnapshot
func (s *Service) CreateGraph(ctx context.Context, snap *graph.Snapshot) (*GraphSummary, error) {
	ctx, span := startOperationSpan(ctx, "CreateGraph", "")
	defer span.End()
	start := time.Now()

	summary, err := s.createGraph(ctx, snap)

	recordOperationMetrics(ctx, "CreateGraph", time.Since(start), moduleCount(summary), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetSpanOK(span)
	return summary, nil
}

func (s *Service) createGraph(ctx context.Context, snap *graph.Snapshot) (*GraphSummary, error) {
	if snap != nil {
		if err := serviceValidate.Struct(snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return s.PutGraph(ctx, uuid.NewString(), g), nil
}

// PutGraph stores g under id, replacing any graph already there.
//
// The service takes ownership of g. Used to publish graphs built outside
// the service, such as those produced by a file watcher.
func (s *Service) PutGraph(ctx context.Context, id string, g *graph.Graph) *GraphSummary {
	stored := &storedGraph{id: id, graph: g, createdAt: s.now()}
	summary := summarize(stored)

	s.mu.Lock()
	_, replaced := s.graphs[id]
	s.graphs[id] = stored
	evicted := s.evictIfNeeded(id)
	s.mu.Unlock()

	delta := 1 - len(evicted)
	if replaced {
		delta--
	}
	recordGraphsDelta(ctx, delta)
	for _, old := range evicted {
		s.logger.Info("graph evicted", slog.String("graph_id", old))
	}
	return summary
}

// evictIfNeeded removes the oldest graphs while over capacity, never
// evicting keep. Caller must hold the write lock.
func (s *Service) evictIfNeeded(keep string) []string {
	var evicted []string
	for len(s.graphs) > s.config.MaxGraphs {
		var oldestID string
		var oldest time.Time
		for id, stored := range s.graphs {
			if id == keep {
				continue
			}
			if oldestID == "" || stored.createdAt.Before(oldest) {
				oldestID = id
				oldest = stored.createdAt
			}
		}
		if oldestID == "" {
			break
		}
		delete(s.graphs, oldestID)
		evicted = append(evicted, oldestID)
	}
	return evicted
}

// DeleteGraph drops a graph.
//
// Errors:
//
//	ErrGraphNotFound - no graph has this ID
func (s *Service) DeleteGraph(ctx context.Context, graphID string) error {
	ctx, span := startOperationSpan(ctx, "DeleteGraph", graphID)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	_, ok := s.graphs[graphID]
	delete(s.graphs, graphID)
	s.mu.Unlock()

	var err error
	if ok {
		recordGraphsDelta(ctx, -1)
	} else {
		err = fmt.Errorf("%w: %s", ErrGraphNotFound, graphID)
	}

	recordOperationMetrics(ctx, "DeleteGraph", time.Since(start), 0, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanOK(span)
	return nil
}

// Summary describes a graph.
func (s *Service) Summary(ctx context.Context, graphID string) (*GraphSummary, error) {
	var summary *GraphSummary
	err := s.read(ctx, "Summary", graphID, func(stored *storedGraph) (int, error) {
		summary = summarize(stored)
		return summary.Modules, nil
	})
	return summary, err
}

// Graph returns a deep copy of a stored graph.
func (s *Service) Graph(ctx context.Context, graphID string) (*graph.Graph, error) {
	var out *graph.Graph
	err := s.read(ctx, "Graph", graphID, func(stored *storedGraph) (int, error) {
		out = stored.graph.Clone()
		return out.CountModules(), nil
	})
	return out, err
}

// =============================================================================
// Mutations
// =============================================================================

// AddModule adds a module, squashed or not.
//
// Errors:
//
//	graph.ErrInvalidState - conflicting squashed flag or squash invariant
//	graph.ErrInvalidModuleName - malformed name
func (s *Service) AddModule(ctx context.Context, graphID, name string, squashed bool) error {
	return s.write(ctx, "AddModule", graphID, func(g *graph.Graph) error {
		if squashed {
			return g.AddSquashedModule(name)
		}
		return g.AddModule(name)
	})
}

// RemoveModule removes a module and its imports. Absent modules are a no-op.
func (s *Service) RemoveModule(ctx context.Context, graphID, name string) error {
	return s.write(ctx, "RemoveModule", graphID, func(g *graph.Graph) error {
		g.RemoveModule(name)
		return nil
	})
}

// AddImport records that importer imports imported, with an optional detail.
func (s *Service) AddImport(ctx context.Context, graphID string, req AddImportRequest) error {
	return s.write(ctx, "AddImport", graphID, func(g *graph.Graph) error {
		detail := graph.ImportDetail{LineNumber: req.LineNumber, LineContents: req.LineContents}
		if detail.IsZero() {
			return g.AddImport(req.Importer, req.Imported)
		}
		return g.AddImport(req.Importer, req.Imported, detail)
	})
}

// RemoveImport removes one import. Absent imports are a no-op.
func (s *Service) RemoveImport(ctx context.Context, graphID, importer, imported string) error {
	return s.write(ctx, "RemoveImport", graphID, func(g *graph.Graph) error {
		g.RemoveImport(importer, imported)
		return nil
	})
}

// SquashModule contracts a module's descendants into it.
//
// Errors:
//
//	graph.ErrModuleNotPresent - the module is absent
func (s *Service) SquashModule(ctx context.Context, graphID, module string) error {
	return s.write(ctx, "SquashModule", graphID, func(g *graph.Graph) error {
		return g.SquashModule(module)
	})
}

// =============================================================================
// Queries
// =============================================================================

// Modules lists every module in lexical order.
func (s *Service) Modules(ctx context.Context, graphID string) ([]string, error) {
	var modules []string
	err := s.query(ctx, "Modules", graphID, func(g *graph.Graph) (int, error) {
		modules = g.Modules()
		return len(modules), nil
	})
	return modules, err
}

// ImportDetails returns the import statements recorded for a pair.
func (s *Service) ImportDetails(ctx context.Context, graphID, importer, imported string) ([]graph.ImportDetail, error) {
	var details []graph.ImportDetail
	err := s.query(ctx, "ImportDetails", graphID, func(g *graph.Graph) (int, error) {
		details = g.ImportDetails(importer, imported)
		return len(details), nil
	})
	return details, err
}

// DirectImportExists reports whether importer directly imports imported.
func (s *Service) DirectImportExists(ctx context.Context, graphID string, q PairQuery) (bool, error) {
	var exists bool
	err := s.query(ctx, "DirectImportExists", graphID, func(g *graph.Graph) (int, error) {
		var err error
		exists, err = g.DirectImportExists(q.Importer, q.Imported, q.AsPackages)
		return boolCount(exists), err
	})
	return exists, err
}

// Downstream lists the modules that depend on a module or package,
// directly or transitively.
func (s *Service) Downstream(ctx context.Context, graphID string, q ModuleQuery) ([]string, error) {
	var modules []string
	err := s.query(ctx, "FindDownstreamModules", graphID, func(g *graph.Graph) (int, error) {
		modules = g.FindDownstreamModules(q.Module, q.AsPackage)
		return len(modules), nil
	})
	return modules, err
}

// Upstream lists the modules a module or package depends on, directly or
// transitively.
func (s *Service) Upstream(ctx context.Context, graphID string, q ModuleQuery) ([]string, error) {
	var modules []string
	err := s.query(ctx, "FindUpstreamModules", graphID, func(g *graph.Graph) (int, error) {
		modules = g.FindUpstreamModules(q.Module, q.AsPackage)
		return len(modules), nil
	})
	return modules, err
}

// DirectImports lists the modules a module imports directly. Empty when
// the module is absent.
func (s *Service) DirectImports(ctx context.Context, graphID, module string) ([]string, error) {
	var modules []string
	err := s.query(ctx, "FindModulesDirectlyImportedBy", graphID, func(g *graph.Graph) (int, error) {
		modules = g.FindModulesDirectlyImportedBy(module)
		return len(modules), nil
	})
	return modules, err
}

// DirectImporters lists the modules that import a module directly.
func (s *Service) DirectImporters(ctx context.Context, graphID, module string) ([]string, error) {
	var modules []string
	err := s.query(ctx, "FindModulesThatDirectlyImport", graphID, func(g *graph.Graph) (int, error) {
		modules = g.FindModulesThatDirectlyImport(module)
		return len(modules), nil
	})
	return modules, err
}

// ModuleInfo reports whether a module is present and squashed, and where
// it sits in the namespace. An absent module is not an error.
func (s *Service) ModuleInfo(ctx context.Context, graphID, module string) (*ModuleInfo, error) {
	info := &ModuleInfo{Module: module, Root: graph.RootOf(module)}
	info.Parent, _ = graph.ParentOf(module)

	err := s.query(ctx, "IsModuleSquashed", graphID, func(g *graph.Graph) (int, error) {
		if !g.ContainsModule(module) {
			return 0, nil
		}
		squashed, err := g.IsModuleSquashed(module)
		if err != nil {
			return 0, err
		}
		info.Present = true
		info.Squashed = squashed
		return 1, nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Children lists the immediate children of a module.
func (s *Service) Children(ctx context.Context, graphID, module string) ([]string, error) {
	var modules []string
	err := s.query(ctx, "FindChildren", graphID, func(g *graph.Graph) (int, error) {
		var err error
		modules, err = g.FindChildren(module)
		return len(modules), err
	})
	return modules, err
}

// Descendants lists every descendant of a module.
func (s *Service) Descendants(ctx context.Context, graphID, module string) ([]string, error) {
	var modules []string
	err := s.query(ctx, "FindDescendants", graphID, func(g *graph.Graph) (int, error) {
		var err error
		modules, err = g.FindDescendants(module)
		return len(modules), err
	})
	return modules, err
}

// ShortestChain returns the shortest chain from importer to imported, or
// nil if there is none.
func (s *Service) ShortestChain(ctx context.Context, graphID, importer, imported string) ([]string, error) {
	var chain []string
	err := s.query(ctx, "FindShortestChain", graphID, func(g *graph.Graph) (int, error) {
		chain = g.FindShortestChain(importer, imported)
		return len(chain), nil
	})
	return chain, err
}

// ShortestChains returns the shortest chain for every (head, tail) pair
// between two packages.
func (s *Service) ShortestChains(ctx context.Context, graphID, importer, imported string) ([][]string, error) {
	var chains [][]string
	err := s.query(ctx, "FindShortestChains", graphID, func(g *graph.Graph) (int, error) {
		var err error
		chains, err = g.FindShortestChains(importer, imported)
		return len(chains), err
	})
	return chains, err
}

// AllChains enumerates simple chains from importer to imported.
//
// Description:
//
//	Enumeration stops after limit chains (0 means DefaultChainLimit,
//	larger than MaxChainLimit is clamped) or when ctx is done, including
//	while the walk is still searching for the first chain. The
//	QueryTimeout applies on top of ctx.
//
// Outputs:
//
//	[][]string - The chains found, in enumeration order.
//	bool - True if the limit cut the enumeration short.
//	error - graph.ErrModuleNotPresent, context errors.
func (s *Service) AllChains(ctx context.Context, graphID string, q AllChainsQuery) ([][]string, bool, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.config.DefaultChainLimit
	}
	if limit > s.config.MaxChainLimit {
		limit = s.config.MaxChainLimit
	}
	if s.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.QueryTimeout)
		defer cancel()
	}

	chains := make([][]string, 0)
	truncated := false
	err := s.query(ctx, "FindAllSimpleChains", graphID, func(g *graph.Graph) (int, error) {
		seq, err := g.FindAllSimpleChainsContext(ctx, q.Importer, q.Imported)
		if err != nil {
			return 0, err
		}
		for chain := range seq {
			if len(chains) == limit {
				truncated = true
				return len(chains), nil
			}
			chains = append(chains, chain)
		}
		return len(chains), ctx.Err()
	})
	if err != nil {
		return nil, false, err
	}
	return chains, truncated, nil
}

// ChainExists reports whether any chain leads from importer to imported.
func (s *Service) ChainExists(ctx context.Context, graphID string, q PairQuery) (bool, error) {
	var exists bool
	err := s.query(ctx, "ChainExists", graphID, func(g *graph.Graph) (int, error) {
		var err error
		exists, err = g.ChainExists(q.Importer, q.Imported, q.AsPackages)
		return boolCount(exists), err
	})
	return exists, err
}

// =============================================================================
// Snapshots
// =============================================================================

// SaveSnapshot persists a graph.
//
// Errors:
//
//	ErrSnapshotsDisabled - no snapshot store is configured
//	ErrGraphNotFound - no graph has this ID
func (s *Service) SaveSnapshot(ctx context.Context, graphID, name string) (*storage.SnapshotInfo, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}

	var snap *graph.Snapshot
	err := s.read(ctx, "Snapshot", graphID, func(stored *storedGraph) (int, error) {
		snap = stored.graph.Snapshot()
		return len(snap.Modules), nil
	})
	if err != nil {
		return nil, err
	}

	info, err := s.snapshots.Save(ctx, name, snap)
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot saved",
		slog.String("graph_id", graphID),
		slog.String("snapshot_id", info.ID),
		slog.Int("modules", info.ModuleCount),
		slog.Int("imports", info.ImportCount),
	)
	return &info, nil
}

// RestoreSnapshot loads a stored snapshot into a new graph.
//
// Errors:
//
//	ErrSnapshotsDisabled - no snapshot store is configured
//	storage.ErrSnapshotNotFound - no snapshot has this ID
func (s *Service) RestoreSnapshot(ctx context.Context, snapshotID string) (*GraphSummary, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	snap, err := s.snapshots.Load(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return s.CreateGraph(ctx, snap)
}

// ListSnapshots lists stored snapshots, newest first.
func (s *Service) ListSnapshots(ctx context.Context) ([]storage.SnapshotInfo, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshots.List(ctx)
}

// SnapshotInfo returns a stored snapshot's metadata without loading it.
func (s *Service) SnapshotInfo(ctx context.Context, snapshotID string) (*storage.SnapshotInfo, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	info, err := s.snapshots.Info(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteSnapshot removes a stored snapshot.
func (s *Service) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	if s.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	return s.snapshots.Delete(ctx, snapshotID)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Service) lookup(graphID string) (*storedGraph, error) {
	s.mu.RLock()
	stored, ok := s.graphs[graphID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, graphID)
	}
	return stored, nil
}

// read runs fn under the graph's read lock inside a span, recording
// metrics. fn returns the result count.
func (s *Service) read(ctx context.Context, op, graphID string, fn func(*storedGraph) (int, error)) error {
	ctx, span := startOperationSpan(ctx, op, graphID)
	defer span.End()
	start := time.Now()

	count, err := func() (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		stored, err := s.lookup(graphID)
		if err != nil {
			return 0, err
		}
		stored.mu.RLock()
		defer stored.mu.RUnlock()
		return fn(stored)
	}()

	recordOperationMetrics(ctx, op, time.Since(start), count, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanOK(span)
	return nil
}

func (s *Service) query(ctx context.Context, op, graphID string, fn func(*graph.Graph) (int, error)) error {
	return s.read(ctx, op, graphID, func(stored *storedGraph) (int, error) {
		return fn(stored.graph)
	})
}

// write runs fn under the graph's write lock inside a span.
func (s *Service) write(ctx context.Context, op, graphID string, fn func(*graph.Graph) error) error {
	ctx, span := startOperationSpan(ctx, op, graphID)
	defer span.End()
	start := time.Now()

	err := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stored, err := s.lookup(graphID)
		if err != nil {
			return err
		}
		stored.mu.Lock()
		defer stored.mu.Unlock()
		return fn(stored.graph)
	}()

	recordOperationMetrics(ctx, op, time.Since(start), 0, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanOK(span)
	return nil
}

// summarize builds a GraphSummary. Caller must hold at least the read
// lock or not have published stored yet.
func summarize(stored *storedGraph) *GraphSummary {
	return &GraphSummary{
		GraphID:     stored.id,
		Modules:     stored.graph.CountModules(),
		Imports:     stored.graph.CountImports(),
		Description: stored.graph.String(),
		CreatedAt:   stored.createdAt,
	}
}

func moduleCount(summary *GraphSummary) int {
	if summary == nil {
		return 0
	}
	return summary.Modules
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

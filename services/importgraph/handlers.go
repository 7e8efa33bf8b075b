// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package importgraph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/telemetry"
)

// Handlers contains the HTTP handlers for the import graph service.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// requestLogger returns a logger carrying the request ID, the handler
// name, the graph ID when present, and the trace ID when sampled. A
// sampled trace ID is also echoed in X-Trace-ID.
func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
	if graphID := c.Param("graph_id"); graphID != "" {
		logger = logger.With("graph_id", graphID)
	}
	if traceID := telemetry.TraceID(c.Request.Context()); traceID != "" {
		c.Header("X-Trace-ID", traceID)
	}
	return telemetry.LoggerWithTrace(c.Request.Context(), logger)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// respondError writes err as an ErrorResponse with its mapped status.
func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "error", err, "code", code)
	} else {
		logger.Warn(msg, "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// badRequest writes an INVALID_REQUEST response for a binding failure.
func badRequest(c *gin.Context, logger *slog.Logger, msg string, err error) {
	logger.Warn(msg, "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg + ": " + err.Error(), Code: CodeInvalidRequest})
}

// =============================================================================
// Graph lifecycle
// =============================================================================

// HandleCreateGraph handles POST /v1/importgraph/graphs.
//
// Description:
//
//	Creates a graph. The optional body is a graph.Snapshot (modules and
//	imports) used to populate it; an empty body creates an empty graph.
//
// Response:
//
//	201 Created: GraphSummary
//	400 Bad Request: Malformed snapshot
//	409 Conflict: Snapshot violates the squash invariant
func (h *Handlers) HandleCreateGraph(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCreateGraph")

	var snap *graph.Snapshot
	var body graph.Snapshot
	if err := c.ShouldBindJSON(&body); err != nil {
		if !errors.Is(err, io.EOF) {
			badRequest(c, logger, "Invalid request body", err)
			return
		}
	} else {
		snap = &body
	}

	summary, err := h.svc.CreateGraph(c.Request.Context(), snap)
	if err != nil {
		respondError(c, logger, "Create graph failed", err)
		return
	}

	logger.Info("Graph created",
		"graph_id", summary.GraphID,
		"modules", summary.Modules,
		"imports", summary.Imports)
	c.JSON(http.StatusCreated, summary)
}

// HandleGetGraph handles GET /v1/importgraph/graphs/:graph_id.
//
// Response:
//
//	200 OK: GraphSummary
//	404 Not Found: GRAPH_NOT_FOUND
func (h *Handlers) HandleGetGraph(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetGraph")

	summary, err := h.svc.Summary(c.Request.Context(), c.Param("graph_id"))
	if err != nil {
		respondError(c, logger, "Get graph failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// HandleDeleteGraph handles DELETE /v1/importgraph/graphs/:graph_id.
//
// Response:
//
//	204 No Content
//	404 Not Found: GRAPH_NOT_FOUND
func (h *Handlers) HandleDeleteGraph(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDeleteGraph")

	if err := h.svc.DeleteGraph(c.Request.Context(), c.Param("graph_id")); err != nil {
		respondError(c, logger, "Delete graph failed", err)
		return
	}
	logger.Info("Graph deleted")
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Mutations
// =============================================================================

// HandleAddModule handles POST /v1/importgraph/graphs/:graph_id/modules.
//
// Request Body:
//
//	AddModuleRequest
//
// Response:
//
//	204 No Content
//	400 Bad Request: Missing or malformed name
//	409 Conflict: INVALID_STATE
func (h *Handlers) HandleAddModule(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAddModule")

	var req AddModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", err)
		return
	}

	if err := h.svc.AddModule(c.Request.Context(), c.Param("graph_id"), req.Name, req.Squashed); err != nil {
		respondError(c, logger, "Add module failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRemoveModule handles DELETE /v1/importgraph/graphs/:graph_id/modules.
//
// Query Parameters:
//
//	module: Module to remove (required)
func (h *Handlers) HandleRemoveModule(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRemoveModule")

	var q ModuleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	if err := h.svc.RemoveModule(c.Request.Context(), c.Param("graph_id"), q.Module); err != nil {
		respondError(c, logger, "Remove module failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListModules handles GET /v1/importgraph/graphs/:graph_id/modules.
//
// Response:
//
//	200 OK: ModulesResponse
func (h *Handlers) HandleListModules(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListModules")

	modules, err := h.svc.Modules(c.Request.Context(), c.Param("graph_id"))
	if err != nil {
		respondError(c, logger, "List modules failed", err)
		return
	}
	c.JSON(http.StatusOK, ModulesResponse{Modules: modules, Count: len(modules)})
}

// HandleAddImport handles POST /v1/importgraph/graphs/:graph_id/imports.
//
// Request Body:
//
//	AddImportRequest
//
// Response:
//
//	204 No Content
//	400 Bad Request: Missing or malformed module names
//	409 Conflict: A module would land beneath a squashed module
func (h *Handlers) HandleAddImport(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAddImport")

	var req AddImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", err)
		return
	}

	if err := h.svc.AddImport(c.Request.Context(), c.Param("graph_id"), req); err != nil {
		respondError(c, logger, "Add import failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRemoveImport handles DELETE /v1/importgraph/graphs/:graph_id/imports.
//
// Query Parameters:
//
//	importer, imported: The import to remove (required)
func (h *Handlers) HandleRemoveImport(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRemoveImport")

	var q PairQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	if err := h.svc.RemoveImport(c.Request.Context(), c.Param("graph_id"), q.Importer, q.Imported); err != nil {
		respondError(c, logger, "Remove import failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleImportDetails handles GET /v1/importgraph/graphs/:graph_id/imports/details.
//
// Response:
//
//	200 OK: DetailsResponse (may be empty)
func (h *Handlers) HandleImportDetails(c *gin.Context) {
	logger := h.requestLogger(c, "HandleImportDetails")

	var q PairQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	details, err := h.svc.ImportDetails(c.Request.Context(), c.Param("graph_id"), q.Importer, q.Imported)
	if err != nil {
		respondError(c, logger, "Import details failed", err)
		return
	}
	c.JSON(http.StatusOK, DetailsResponse{Details: details})
}

// HandleSquash handles POST /v1/importgraph/graphs/:graph_id/squash.
//
// Request Body:
//
//	SquashRequest
//
// Response:
//
//	200 OK: GraphSummary after the squash
//	404 Not Found: MODULE_NOT_PRESENT
func (h *Handlers) HandleSquash(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSquash")

	var req SquashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	graphID := c.Param("graph_id")
	if err := h.svc.SquashModule(ctx, graphID, req.Module); err != nil {
		respondError(c, logger, "Squash failed", err)
		return
	}

	summary, err := h.svc.Summary(ctx, graphID)
	if err != nil {
		respondError(c, logger, "Squash failed", err)
		return
	}
	logger.Info("Module squashed", "module", req.Module, "modules", summary.Modules)
	c.JSON(http.StatusOK, summary)
}

// =============================================================================
// Queries
// =============================================================================

// HandleDirectImport handles GET /v1/importgraph/graphs/:graph_id/direct.
//
// Query Parameters:
//
//	importer, imported: Modules or packages (required)
//	as_packages: Compare whole packages (optional, default false)
//
// Response:
//
//	200 OK: ExistsResponse
//	400 Bad Request: INVALID_OPERATION when the packages overlap
func (h *Handlers) HandleDirectImport(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDirectImport")

	var q PairQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	exists, err := h.svc.DirectImportExists(c.Request.Context(), c.Param("graph_id"), q)
	if err != nil {
		respondError(c, logger, "Direct import query failed", err)
		return
	}
	c.JSON(http.StatusOK, ExistsResponse{Exists: exists})
}

// HandleDownstream handles GET /v1/importgraph/graphs/:graph_id/downstream.
func (h *Handlers) HandleDownstream(c *gin.Context) {
	h.handleReachable(c, "HandleDownstream", h.svc.Downstream)
}

// HandleUpstream handles GET /v1/importgraph/graphs/:graph_id/upstream.
func (h *Handlers) HandleUpstream(c *gin.Context) {
	h.handleReachable(c, "HandleUpstream", h.svc.Upstream)
}

func (h *Handlers) handleReachable(c *gin.Context, name string, find func(context.Context, string, ModuleQuery) ([]string, error)) {
	logger := h.requestLogger(c, name)

	var q ModuleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	modules, err := find(c.Request.Context(), c.Param("graph_id"), q)
	if err != nil {
		respondError(c, logger, "Reachability query failed", err)
		return
	}
	c.JSON(http.StatusOK, ModulesResponse{Modules: modules, Count: len(modules)})
}

// HandleChildren handles GET /v1/importgraph/graphs/:graph_id/children.
//
// Response:
//
//	200 OK: ModulesResponse
//	400 Bad Request: INVALID_OPERATION for a squashed module
//	404 Not Found: MODULE_NOT_PRESENT
func (h *Handlers) HandleChildren(c *gin.Context) {
	h.handleModuleList(c, "HandleChildren", h.svc.Children)
}

// HandleDescendants handles GET /v1/importgraph/graphs/:graph_id/descendants.
func (h *Handlers) HandleDescendants(c *gin.Context) {
	h.handleModuleList(c, "HandleDescendants", h.svc.Descendants)
}

// HandleDirectImports handles GET /v1/importgraph/graphs/:graph_id/direct/imports.
func (h *Handlers) HandleDirectImports(c *gin.Context) {
	h.handleModuleList(c, "HandleDirectImports", h.svc.DirectImports)
}

// HandleDirectImporters handles GET /v1/importgraph/graphs/:graph_id/direct/importers.
func (h *Handlers) HandleDirectImporters(c *gin.Context) {
	h.handleModuleList(c, "HandleDirectImporters", h.svc.DirectImporters)
}

// HandleModuleInfo handles GET /v1/importgraph/graphs/:graph_id/module.
//
// Response:
//
//	200 OK: ModuleInfo (Present=false for an absent module)
//	404 Not Found: GRAPH_NOT_FOUND
func (h *Handlers) HandleModuleInfo(c *gin.Context) {
	logger := h.requestLogger(c, "HandleModuleInfo")

	var q ModuleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	info, err := h.svc.ModuleInfo(c.Request.Context(), c.Param("graph_id"), q.Module)
	if err != nil {
		respondError(c, logger, "Module lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handlers) handleModuleList(c *gin.Context, name string, find func(context.Context, string, string) ([]string, error)) {
	logger := h.requestLogger(c, name)

	var q ModuleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	modules, err := find(c.Request.Context(), c.Param("graph_id"), q.Module)
	if err != nil {
		respondError(c, logger, "Module query failed", err)
		return
	}
	c.JSON(http.StatusOK, ModulesResponse{Modules: modules, Count: len(modules)})
}

// HandleShortestChain handles GET /v1/importgraph/graphs/:graph_id/chain.
//
// Response:
//
//	200 OK: ChainResponse (Found=false when there is no chain)
func (h *Handlers) HandleShortestChain(c *gin.Context) {
	logger := h.requestLogger(c, "HandleShortestChain")

	var q PairQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	chain, err := h.svc.ShortestChain(c.Request.Context(), c.Param("graph_id"), q.Importer, q.Imported)
	if err != nil {
		respondError(c, logger, "Shortest chain query failed", err)
		return
	}
	if chain == nil {
		chain = []string{}
	}
	c.JSON(http.StatusOK, ChainResponse{Chain: chain, Found: len(chain) > 0})
}

// HandleShortestChains handles GET /v1/importgraph/graphs/:graph_id/chains.
//
// Description:
//
//	Returns the shortest chain for every (head, tail) pair between the
//	importer package and the imported package.
//
// Response:
//
//	200 OK: ChainsResponse
//	400 Bad Request: INVALID_OPERATION when the packages overlap
func (h *Handlers) HandleShortestChains(c *gin.Context) {
	logger := h.requestLogger(c, "HandleShortestChains")

	var q PairQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	chains, err := h.svc.ShortestChains(c.Request.Context(), c.Param("graph_id"), q.Importer, q.Imported)
	if err != nil {
		respondError(c, logger, "Shortest chains query failed", err)
		return
	}
	c.JSON(http.StatusOK, ChainsResponse{Chains: chains, Count: len(chains)})
}

// HandleAllChains handles GET /v1/importgraph/graphs/:graph_id/chains/all.
//
// Query Parameters:
//
//	importer, imported: Modules (required)
//	limit: Maximum chains to return (optional, service default when 0)
//
// Response:
//
//	200 OK: ChainsResponse, Truncated=true when the limit was hit
//	404 Not Found: MODULE_NOT_PRESENT
//	499: QUERY_CANCELLED, the client disconnected
//	504 Gateway Timeout: QUERY_TIMEOUT
func (h *Handlers) HandleAllChains(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAllChains")

	var q AllChainsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	chains, truncated, err := h.svc.AllChains(c.Request.Context(), c.Param("graph_id"), q)
	if err != nil {
		respondError(c, logger, "All chains query failed", err)
		return
	}
	if truncated {
		logger.Info("Chain enumeration truncated", "count", len(chains))
	}
	c.JSON(http.StatusOK, ChainsResponse{Chains: chains, Count: len(chains), Truncated: truncated})
}

// HandleChainExists handles GET /v1/importgraph/graphs/:graph_id/chains/exists.
//
// Response:
//
//	200 OK: ExistsResponse
//	400 Bad Request: INVALID_OPERATION when as_packages and the packages overlap
func (h *Handlers) HandleChainExists(c *gin.Context) {
	logger := h.requestLogger(c, "HandleChainExists")

	var q PairQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, logger, "Invalid query parameters", err)
		return
	}

	exists, err := h.svc.ChainExists(c.Request.Context(), c.Param("graph_id"), q)
	if err != nil {
		respondError(c, logger, "Chain exists query failed", err)
		return
	}
	c.JSON(http.StatusOK, ExistsResponse{Exists: exists})
}

// =============================================================================
// Snapshots
// =============================================================================

// HandleSaveSnapshot handles POST /v1/importgraph/graphs/:graph_id/snapshots.
//
// Request Body:
//
//	SaveSnapshotRequest (optional)
//
// Response:
//
//	201 Created: storage.SnapshotInfo
//	503 Service Unavailable: SNAPSHOTS_DISABLED
func (h *Handlers) HandleSaveSnapshot(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSaveSnapshot")

	var req SaveSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, logger, "Invalid request body", err)
		return
	}

	info, err := h.svc.SaveSnapshot(c.Request.Context(), c.Param("graph_id"), req.Name)
	if err != nil {
		respondError(c, logger, "Save snapshot failed", err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// HandleListSnapshots handles GET /v1/importgraph/snapshots.
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListSnapshots")

	infos, err := h.svc.ListSnapshots(c.Request.Context())
	if err != nil {
		respondError(c, logger, "List snapshots failed", err)
		return
	}
	c.JSON(http.StatusOK, SnapshotsResponse{Snapshots: infos})
}

// HandleRestoreSnapshot handles POST /v1/importgraph/snapshots/:snapshot_id/restore.
//
// Response:
//
//	201 Created: GraphSummary of the new graph
//	404 Not Found: SNAPSHOT_NOT_FOUND
func (h *Handlers) HandleRestoreSnapshot(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRestoreSnapshot")
	snapshotID := c.Param("snapshot_id")

	summary, err := h.svc.RestoreSnapshot(c.Request.Context(), snapshotID)
	if err != nil {
		respondError(c, logger, "Restore snapshot failed", err)
		return
	}
	logger.Info("Snapshot restored", "snapshot_id", snapshotID, "graph_id", summary.GraphID)
	c.JSON(http.StatusCreated, summary)
}

// HandleGetSnapshot handles GET /v1/importgraph/snapshots/:snapshot_id.
func (h *Handlers) HandleGetSnapshot(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetSnapshot")

	info, err := h.svc.SnapshotInfo(c.Request.Context(), c.Param("snapshot_id"))
	if err != nil {
		respondError(c, logger, "Snapshot lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleDeleteSnapshot handles DELETE /v1/importgraph/snapshots/:snapshot_id.
func (h *Handlers) HandleDeleteSnapshot(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDeleteSnapshot")

	if err := h.svc.DeleteSnapshot(c.Request.Context(), c.Param("snapshot_id")); err != nil {
		respondError(c, logger, "Delete snapshot failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Health
// =============================================================================

// HandleHealth handles GET /v1/importgraph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/importgraph/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, ReadyResponse{
		Ready:      true,
		GraphCount: h.svc.GraphCount(),
		Snapshots:  h.svc.SnapshotsEnabled(),
	})
}

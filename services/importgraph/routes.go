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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all import graph routes with the router.
//
// Description:
//
//	Registers all /v1/importgraph/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Graph Endpoints:
//
//	POST   /v1/importgraph/graphs - Create a graph, optionally from a snapshot
//	GET    /v1/importgraph/graphs/:graph_id - Graph summary
//	DELETE /v1/importgraph/graphs/:graph_id - Drop a graph
//	POST   /v1/importgraph/graphs/:graph_id/modules - Add a module
//	GET    /v1/importgraph/graphs/:graph_id/modules - List modules
//	DELETE /v1/importgraph/graphs/:graph_id/modules - Remove a module
//	POST   /v1/importgraph/graphs/:graph_id/imports - Add an import
//	DELETE /v1/importgraph/graphs/:graph_id/imports - Remove an import
//	GET    /v1/importgraph/graphs/:graph_id/imports/details - Import statements for a pair
//	POST   /v1/importgraph/graphs/:graph_id/squash - Squash a module
//
// Query Endpoints:
//
//	GET /v1/importgraph/graphs/:graph_id/module - Presence, squash flag, parent
//	GET /v1/importgraph/graphs/:graph_id/direct - Direct import check
//	GET /v1/importgraph/graphs/:graph_id/direct/imports - Modules imported directly
//	GET /v1/importgraph/graphs/:graph_id/direct/importers - Modules importing directly
//	GET /v1/importgraph/graphs/:graph_id/downstream - Modules depending on a module
//	GET /v1/importgraph/graphs/:graph_id/upstream - Modules a module depends on
//	GET /v1/importgraph/graphs/:graph_id/children - Immediate children
//	GET /v1/importgraph/graphs/:graph_id/descendants - All descendants
//	GET /v1/importgraph/graphs/:graph_id/chain - Shortest chain
//	GET /v1/importgraph/graphs/:graph_id/chains - Shortest chains between packages
//	GET /v1/importgraph/graphs/:graph_id/chains/all - All simple chains
//	GET /v1/importgraph/graphs/:graph_id/chains/exists - Chain existence
//
// Snapshot Endpoints:
//
//	POST   /v1/importgraph/graphs/:graph_id/snapshots - Persist a graph
//	GET    /v1/importgraph/snapshots - List snapshots
//	GET    /v1/importgraph/snapshots/:snapshot_id - Snapshot metadata
//	POST   /v1/importgraph/snapshots/:snapshot_id/restore - Restore into a new graph
//	DELETE /v1/importgraph/snapshots/:snapshot_id - Delete a snapshot
//
// Health Endpoints:
//
//	GET /v1/importgraph/health - Health check
//	GET /v1/importgraph/ready - Readiness check
//
// Example:
//
//	svc, _ := importgraph.NewService(importgraph.DefaultServiceConfig())
//	handlers := importgraph.NewHandlers(svc, logger)
//
//	v1 := router.Group("/v1")
//	importgraph.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	ig := rg.Group("/importgraph")
	{
		ig.POST("/graphs", handlers.HandleCreateGraph)

		g := ig.Group("/graphs/:graph_id")
		{
			g.GET("", handlers.HandleGetGraph)
			g.DELETE("", handlers.HandleDeleteGraph)

			// Building
			g.POST("/modules", handlers.HandleAddModule)
			g.GET("/modules", handlers.HandleListModules)
			g.DELETE("/modules", handlers.HandleRemoveModule)
			g.POST("/imports", handlers.HandleAddImport)
			g.DELETE("/imports", handlers.HandleRemoveImport)
			g.GET("/imports/details", handlers.HandleImportDetails)
			g.POST("/squash", handlers.HandleSquash)

			// Queries
			g.GET("/module", handlers.HandleModuleInfo)
			g.GET("/direct", handlers.HandleDirectImport)
			g.GET("/direct/imports", handlers.HandleDirectImports)
			g.GET("/direct/importers", handlers.HandleDirectImporters)
			g.GET("/downstream", handlers.HandleDownstream)
			g.GET("/upstream", handlers.HandleUpstream)
			g.GET("/children", handlers.HandleChildren)
			g.GET("/descendants", handlers.HandleDescendants)
			g.GET("/chain", handlers.HandleShortestChain)
			g.GET("/chains", handlers.HandleShortestChains)
			g.GET("/chains/all", handlers.HandleAllChains)
			g.GET("/chains/exists", handlers.HandleChainExists)

			g.POST("/snapshots", handlers.HandleSaveSnapshot)
		}

		ig.GET("/snapshots", handlers.HandleListSnapshots)
		ig.GET("/snapshots/:snapshot_id", handlers.HandleGetSnapshot)
		ig.POST("/snapshots/:snapshot_id/restore", handlers.HandleRestoreSnapshot)
		ig.DELETE("/snapshots/:snapshot_id", handlers.HandleDeleteSnapshot)

		// Health checks
		ig.GET("/health", handlers.HandleHealth)
		ig.GET("/ready", handlers.HandleReady)
	}
}

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
	"time"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/storage"
)

// =============================================================================
// Requests
// =============================================================================

// AddModuleRequest is the request body for POST /graphs/:graph_id/modules.
type AddModuleRequest struct {
	// Name is the dotted module name. Required.
	Name string `json:"name" binding:"required"`

	// Squashed adds the module as a squashed module.
	Squashed bool `json:"squashed"`
}

// AddImportRequest is the request body for POST /graphs/:graph_id/imports.
//
// LineNumber and LineContents are optional; when both are absent the
// import is recorded without details.
type AddImportRequest struct {
	Importer     string  `json:"importer" binding:"required"`
	Imported     string  `json:"imported" binding:"required"`
	LineNumber   *uint   `json:"line_number,omitempty" binding:"omitempty,gte=1"`
	LineContents *string `json:"line_contents,omitempty"`
}

// SquashRequest is the request body for POST /graphs/:graph_id/squash.
type SquashRequest struct {
	// Module is the module to squash. Required.
	Module string `json:"module" binding:"required"`
}

// SaveSnapshotRequest is the request body for POST /graphs/:graph_id/snapshots.
type SaveSnapshotRequest struct {
	// Name is an optional label.
	Name string `json:"name" binding:"max=256"`
}

// ModuleQuery holds query parameters for single-module queries.
type ModuleQuery struct {
	Module    string `form:"module" binding:"required"`
	AsPackage bool   `form:"as_package"`
}

// PairQuery holds query parameters for importer/imported queries.
type PairQuery struct {
	Importer   string `form:"importer" binding:"required"`
	Imported   string `form:"imported" binding:"required"`
	AsPackages bool   `form:"as_packages"`
}

// AllChainsQuery holds query parameters for GET .../chains/all.
type AllChainsQuery struct {
	Importer string `form:"importer" binding:"required"`
	Imported string `form:"imported" binding:"required"`

	// Limit caps the number of chains. 0 uses the service default.
	Limit int `form:"limit" binding:"gte=0"`
}

// =============================================================================
// Responses
// =============================================================================

// GraphSummary describes a stored graph.
type GraphSummary struct {
	// GraphID identifies the graph in later requests.
	GraphID string `json:"graph_id"`

	// Modules is the number of modules.
	Modules int `json:"modules"`

	// Imports is the number of distinct (importer, imported) pairs.
	Imports int `json:"imports"`

	// Description is the short human-readable summary, e.g.
	// "<ImportGraph: 'a', 'b'>".
	Description string `json:"description"`

	// CreatedAt is when the graph was created or last replaced.
	CreatedAt time.Time `json:"created_at"`
}

// ModulesResponse lists module names in lexical order.
type ModulesResponse struct {
	Modules []string `json:"modules"`
	Count   int      `json:"count"`
}

// ModuleInfo describes one module's place in the hierarchy.
type ModuleInfo struct {
	Module   string `json:"module"`
	Present  bool   `json:"present"`
	Squashed bool   `json:"squashed"`

	// Parent is empty for top-level modules.
	Parent string `json:"parent,omitempty"`
	Root   string `json:"root"`
}

// ExistsResponse answers a yes/no query.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// ChainResponse is the response for GET .../chain.
type ChainResponse struct {
	// Chain runs from importer to imported. Empty when Found is false.
	Chain []string `json:"chain"`
	Found bool     `json:"found"`
}

// ChainsResponse is the response for GET .../chains and .../chains/all.
type ChainsResponse struct {
	Chains [][]string `json:"chains"`
	Count  int        `json:"count"`

	// Truncated is true when the chain limit was reached before every
	// chain was enumerated.
	Truncated bool `json:"truncated,omitempty"`
}

// DetailsResponse lists the import statements recorded for a pair.
type DetailsResponse struct {
	Details []graph.ImportDetail `json:"details"`
}

// SnapshotsResponse lists stored snapshots, newest first.
type SnapshotsResponse struct {
	Snapshots []storage.SnapshotInfo `json:"snapshots"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /ready.
type ReadyResponse struct {
	Ready      bool `json:"ready"`
	GraphCount int  `json:"graph_count"`
	Snapshots  bool `json:"snapshots"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the stable error code, e.g. MODULE_NOT_PRESENT.
	Code string `json:"code,omitempty"`
}

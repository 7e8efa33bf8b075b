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
	"net/http"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/storage"
)

// Sentinel errors for the import graph service.
var (
	// ErrGraphNotFound indicates no graph has the requested ID. It may
	// never have existed or may have been evicted.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrSnapshotsDisabled indicates the service has no snapshot store.
	ErrSnapshotsDisabled = errors.New("snapshot storage not configured")

	// ErrInvalidRequest indicates a request failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeModuleNotPresent  = "MODULE_NOT_PRESENT"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidOperation  = "INVALID_OPERATION"
	CodeGraphNotFound     = "GRAPH_NOT_FOUND"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeSnapshotNotFound  = "SNAPSHOT_NOT_FOUND"
	CodeSnapshotsDisabled = "SNAPSHOTS_DISABLED"
	CodeQueryTimeout      = "QUERY_TIMEOUT"
	CodeQueryCancelled    = "QUERY_CANCELLED"
	CodeQueryFailed       = "QUERY_FAILED"
)

// StatusClientClosedRequest is returned when the client went away before
// the query finished. It is not in net/http.
const StatusClientClosedRequest = 499

// classifyError maps a service error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrGraphNotFound):
		return http.StatusNotFound, CodeGraphNotFound
	case errors.Is(err, graph.ErrModuleNotPresent):
		return http.StatusNotFound, CodeModuleNotPresent
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return http.StatusNotFound, CodeSnapshotNotFound
	case errors.Is(err, graph.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, graph.ErrInvalidOperation):
		return http.StatusBadRequest, CodeInvalidOperation
	case errors.Is(err, graph.ErrInvalidModuleName), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, ErrSnapshotsDisabled):
		return http.StatusServiceUnavailable, CodeSnapshotsDisabled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeQueryTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, CodeQueryCancelled
	default:
		return http.StatusInternalServerError, CodeQueryFailed
	}
}

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
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
	"github.com/AleutianAI/importgraph/services/importgraph/storage"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"graph not found", fmt.Errorf("%w: x", ErrGraphNotFound), http.StatusNotFound, CodeGraphNotFound},
		{"module not present", graph.ErrModuleNotPresent, http.StatusNotFound, CodeModuleNotPresent},
		{"snapshot not found", storage.ErrSnapshotNotFound, http.StatusNotFound, CodeSnapshotNotFound},
		{"invalid state", graph.ErrInvalidState, http.StatusConflict, CodeInvalidState},
		{"invalid operation", graph.ErrInvalidOperation, http.StatusBadRequest, CodeInvalidOperation},
		{"invalid module name", graph.ErrInvalidModuleName, http.StatusBadRequest, CodeInvalidRequest},
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
		{"snapshots disabled", ErrSnapshotsDisabled, http.StatusServiceUnavailable, CodeSnapshotsDisabled},
		{"deadline", fmt.Errorf("walk: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeQueryTimeout},
		{"client gone", fmt.Errorf("walk: %w", context.Canceled), StatusClientClosedRequest, CodeQueryCancelled},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestHandlers_AllChains_ClientCancelled(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createScenarioHTTP(t, router)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet,
		"/v1/importgraph/graphs/"+id+"/chains/all?importer=mypackage.green&imported=mypackage.blue.two", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, StatusClientClosedRequest, w.Code)
	assert.Equal(t, CodeQueryCancelled, decode[ErrorResponse](t, w).Code)
}

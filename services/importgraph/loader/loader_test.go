// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const viewsFile = `
modules:
  - name: vendor
    squashed: true
imports:
  - importer: app.views
    imported: app.models
    line_number: 3
    line_contents: from app import models
  - importer: app.models
    imported: vendor
`

// =============================================================================
// Decode
// =============================================================================

func TestDecode_YAML(t *testing.T) {
	snap, err := Decode(strings.NewReader(viewsFile))
	require.NoError(t, err)

	require.Len(t, snap.Modules, 1)
	assert.Equal(t, "vendor", snap.Modules[0].Name)
	assert.True(t, snap.Modules[0].Squashed)

	require.Len(t, snap.Imports, 2)
	assert.Equal(t, "app.views", snap.Imports[0].Importer)
	require.NotNil(t, snap.Imports[0].LineNumber)
	assert.Equal(t, uint(3), *snap.Imports[0].LineNumber)
	assert.True(t, snap.Imports[1].Detail().IsZero())
}

func TestDecode_JSON(t *testing.T) {
	input := `{"imports": [{"importer": "a", "imported": "b", "line_number": 7}]}`

	snap, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, snap.Imports, 1)
	assert.Equal(t, uint(7), *snap.Imports[0].LineNumber)
	assert.Nil(t, snap.Imports[0].LineContents)
}

func TestDecode_Empty(t *testing.T) {
	snap, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, snap.Modules)
	assert.Empty(t, snap.Imports)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown field", "imports:\n  - importer: a\n    imported: b\n    weight: 2\n"},
		{"missing imported", "imports:\n  - importer: a\n"},
		{"missing module name", "modules:\n  - squashed: true\n"},
		{"malformed", "imports: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrInvalidFile)
		})
	}
}

// =============================================================================
// LoadFile
// =============================================================================

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "views.yaml", viewsFile)

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.models", "app.views", "vendor"}, g.Modules())
	assert.Equal(t, 2, g.CountImports())
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := LoadFile(path)
	require.Error(t, err)

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, path, fileErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_GraphError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", `
modules:
  - name: vendor
    squashed: true
imports:
  - importer: app
    imported: vendor.requests
`)

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, graph.ErrInvalidState)
}

// =============================================================================
// LoadFiles
// =============================================================================

func TestLoadFiles_Merges(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.yaml", `
imports:
  - importer: app.views
    imported: app.models
    line_number: 1
`)
	second := writeFile(t, dir, "second.yaml", `
imports:
  - importer: app.views
    imported: app.models
    line_number: 9
  - importer: app.models
    imported: app.db
`)

	g, err := LoadFiles(context.Background(), []string{first, second}, WithConcurrency(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"app.db", "app.models", "app.views"}, g.Modules())
	assert.Equal(t, 2, g.CountImports())

	details := g.ImportDetails("app.views", "app.models")
	require.Len(t, details, 2)
	assert.Equal(t, uint(1), *details[0].LineNumber)
	assert.Equal(t, uint(9), *details[1].LineNumber)
}

func TestLoadFiles_KeepsFileOrderSequentially(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, line := range []string{"5", "2", "8"} {
		paths = append(paths, writeFile(t, dir, "f"+string(rune('a'+i))+".yaml",
			"imports:\n  - importer: a\n    imported: b\n    line_number: "+line+"\n"))
	}

	g, err := LoadFiles(context.Background(), paths, WithConcurrency(1))
	require.NoError(t, err)

	details := g.ImportDetails("a", "b")
	require.Len(t, details, 3)
	assert.Equal(t, uint(5), *details[0].LineNumber)
	assert.Equal(t, uint(2), *details[1].LineNumber)
	assert.Equal(t, uint(8), *details[2].LineNumber)
}

func TestLoadFiles_Squash(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", `
modules:
  - name: lib
imports:
  - importer: app.views
    imported: lib.http.client
  - importer: lib.http.client
    imported: lib.util
`)

	g, err := LoadFiles(context.Background(), []string{path}, WithSquash("lib"))
	require.NoError(t, err)

	assert.Equal(t, []string{"app.views", "lib"}, g.Modules())
	ok, err := g.DirectImportExists("app.views", "lib", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, g.CountImports())
}

func TestLoadFiles_SquashMissingModule(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", viewsFile)

	_, err := LoadFiles(context.Background(), []string{path}, WithSquash("nope"))
	assert.ErrorIs(t, err, graph.ErrModuleNotPresent)
}

func TestLoadFiles_NoFiles(t *testing.T) {
	_, err := LoadFiles(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestLoadFiles_PropagatesFileError(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", viewsFile)
	bad := writeFile(t, dir, "bad.yaml", "imports:\n  - importer: a\n")

	_, err := LoadFiles(context.Background(), []string{good, bad})
	require.Error(t, err)

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, bad, fileErr.Path)
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestLoadFiles_MergeConflict(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.yaml", "modules:\n  - name: vendor\n    squashed: true\n")
	second := writeFile(t, dir, "second.yaml", "imports:\n  - importer: app\n    imported: vendor.requests\n")

	_, err := LoadFiles(context.Background(), []string{first, second})
	require.Error(t, err)

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, second, fileErr.Path)
	assert.ErrorIs(t, err, graph.ErrInvalidState)
}

func TestLoadFiles_ContextCancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", viewsFile)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadFiles(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

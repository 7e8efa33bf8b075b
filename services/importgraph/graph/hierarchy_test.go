// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Direct imports
// =============================================================================

func TestGraph_DirectImportExists(t *testing.T) {
	g := buildGraph(t,
		[2]string{"a.two", "a.one"},
		[2]string{"c.one", "a.two"},
		[2]string{"a.three", "c.one"},
	)

	tests := []struct {
		name       string
		importer   string
		imported   string
		asPackages bool
		want       bool
	}{
		{"literal edge", "a.two", "a.one", false, true},
		{"siblings as packages", "a.two", "a.one", true, true},
		{"reverse literal", "a.one", "a.two", false, false},
		{"indirect is not direct", "a.three", "a.one", false, false},
		{"package c imports package a", "c", "a", true, true},
		{"package a imports package c", "a", "c", true, true},
		{"absent packages", "x", "y", true, false},
		{"absent literal", "x", "a.one", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.DirectImportExists(tt.importer, tt.imported, tt.asPackages)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGraph_DirectImportExists_OverlappingPackages(t *testing.T) {
	g := buildGraph(t, [2]string{"a.two", "a.one"})

	for _, pair := range [][2]string{
		{"b.two", "b"},
		{"a", "a.one"},
		{"a", "a"},
	} {
		_, err := g.DirectImportExists(pair[0], pair[1], true)
		assert.ErrorIs(t, err, ErrInvalidOperation, pair)

		var invalid *InvalidOperationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "DirectImportExists", invalid.Operation)
	}
}

func TestGraph_DirectImportExists_ParentToChildLiteral(t *testing.T) {
	g := buildGraph(t, [2]string{"pkg", "pkg.sub"})

	exists, err := g.DirectImportExists("pkg", "pkg.sub", false)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGraph_FindModulesDirectlyImported(t *testing.T) {
	g := buildGraph(t,
		[2]string{"foo", "c"},
		[2]string{"foo", "a"},
		[2]string{"bar", "a"},
		[2]string{"a", "b"},
	)

	assert.Equal(t, []string{"a", "c"}, g.FindModulesDirectlyImportedBy("foo"))
	assert.Equal(t, []string{"bar", "foo"}, g.FindModulesThatDirectlyImport("a"))
	assert.Empty(t, g.FindModulesDirectlyImportedBy("b"))
	assert.Empty(t, g.FindModulesThatDirectlyImport("foo"))
	assert.Empty(t, g.FindModulesDirectlyImportedBy("missing"))
	assert.Empty(t, g.FindModulesThatDirectlyImport("missing"))
}

// =============================================================================
// Downstream / Upstream
// =============================================================================

func TestGraph_FindDownstreamAndUpstream(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddModule("a"))
	require.NoError(t, g.AddModule("a.one"))
	require.NoError(t, g.AddImport("a.two", "a.one"))

	assert.Equal(t, []string{"a.two"}, g.FindDownstreamModules("a.one", false))
	assert.Equal(t, []string{"a.one"}, g.FindUpstreamModules("a.two", false))
	assert.Empty(t, g.FindDownstreamModules("a", false))
}

func TestGraph_FindDownstreamAndUpstream_Transitive(t *testing.T) {
	g := buildGraph(t,
		[2]string{"x", "y"},
		[2]string{"y", "z"},
		[2]string{"w", "x"},
	)

	assert.Equal(t, []string{"w", "x", "y"}, g.FindDownstreamModules("z", false))
	assert.Equal(t, []string{"x", "y", "z"}, g.FindUpstreamModules("w", false))
}

func TestGraph_FindDownstreamAndUpstream_Cycle(t *testing.T) {
	g := buildGraph(t,
		[2]string{"a", "b"},
		[2]string{"b", "a"},
	)

	assert.Equal(t, []string{"b"}, g.FindDownstreamModules("a", false))
	assert.Equal(t, []string{"b"}, g.FindUpstreamModules("a", false))
}

func TestGraph_FindDownstreamAndUpstream_AsPackage(t *testing.T) {
	g := buildGraph(t,
		[2]string{"foo.one", "bar"},
		[2]string{"baz", "foo.two"},
		[2]string{"qux", "baz"},
		[2]string{"foo.one", "foo.two"},
	)

	assert.Equal(t, []string{"baz", "qux"}, g.FindDownstreamModules("foo", true))
	assert.Equal(t, []string{"bar"}, g.FindUpstreamModules("foo", true))

	// Literal mode on the package name sees nothing: "foo" itself is absent.
	assert.Empty(t, g.FindDownstreamModules("foo", false))
	assert.Equal(t, []string{"baz", "foo.one", "qux"}, g.FindDownstreamModules("foo.two", false))
}

func TestGraph_FindDownstreamAndUpstream_Missing(t *testing.T) {
	g := buildGraph(t, [2]string{"a", "b"})

	assert.Empty(t, g.FindDownstreamModules("missing", false))
	assert.Empty(t, g.FindUpstreamModules("missing", true))
}

// =============================================================================
// Children / Descendants
// =============================================================================

func TestGraph_FindChildrenAndDescendants(t *testing.T) {
	g := NewGraph()
	for _, name := range []string{"a", "a.b", "a.b.c", "a.d", "ab", "b.a"} {
		require.NoError(t, g.AddModule(name))
	}

	children, err := g.FindChildren("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b", "a.d"}, children)

	descendants, err := g.FindDescendants("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b", "a.b.c", "a.d"}, descendants)

	leaf, err := g.FindChildren("a.d")
	require.NoError(t, err)
	assert.Empty(t, leaf)
}

func TestGraph_FindChildren_EndToEnd(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddModule("a"))
	require.NoError(t, g.AddModule("a.one"))
	require.NoError(t, g.AddImport("a.two", "a.one"))

	children, err := g.FindChildren("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.one", "a.two"}, children)
}

func TestGraph_FindChildren_NotPresent(t *testing.T) {
	g := buildGraph(t, [2]string{"a.b", "c"})

	_, err := g.FindChildren("a")
	var notPresent *ModuleNotPresentError
	require.ErrorAs(t, err, &notPresent)
	assert.Equal(t, "a", notPresent.Module)

	_, err = g.FindDescendants("nope")
	assert.ErrorIs(t, err, ErrModuleNotPresent)
}

func TestGraph_FindChildren_Squashed(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddSquashedModule("foo"))

	_, err := g.FindChildren("foo")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = g.FindDescendants("foo")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

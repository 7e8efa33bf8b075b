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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// buildGraph creates a graph from (importer, imported) pairs.
func buildGraph(t *testing.T, edges ...[2]string) *Graph {
	t.Helper()

	g := NewGraph()
	for _, e := range edges {
		require.NoError(t, g.AddImport(e[0], e[1]))
	}
	return g
}

// =============================================================================
// AddModule / AddSquashedModule
// =============================================================================

func TestGraph_AddModule_Idempotent(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddModule("foo"))
	require.NoError(t, g.AddModule("foo"))

	assert.Equal(t, []string{"foo"}, g.Modules())
	assert.Equal(t, 1, g.CountModules())
}

func TestGraph_AddSquashedModule_Idempotent(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddSquashedModule("foo"))
	require.NoError(t, g.AddSquashedModule("foo"))

	squashed, err := g.IsModuleSquashed("foo")
	require.NoError(t, err)
	assert.True(t, squashed)
}

func TestGraph_AddModule_ConflictingSquashFlag(t *testing.T) {
	t.Run("squashed then plain", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.AddSquashedModule("foo"))
		assert.ErrorIs(t, g.AddModule("foo"), ErrInvalidState)
	})

	t.Run("plain then squashed", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.AddModule("foo"))
		assert.ErrorIs(t, g.AddSquashedModule("foo"), ErrInvalidState)
	})
}

func TestGraph_AddModule_BeneathSquashedModule(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddSquashedModule("mypackage.foo"))

	assert.ErrorIs(t, g.AddModule("mypackage.foo.one"), ErrInvalidState)
	assert.ErrorIs(t, g.AddModule("mypackage.foo.one.two"), ErrInvalidState)
	assert.ErrorIs(t, g.AddSquashedModule("mypackage.foo.one"), ErrInvalidState)
	assert.ErrorIs(t, g.AddImport("mypackage.foo.one", "other"), ErrInvalidState)
	assert.ErrorIs(t, g.AddImport("other", "mypackage.foo.one"), ErrInvalidState)

	// Siblings and lookalikes are unaffected.
	assert.NoError(t, g.AddModule("mypackage.foobar"))
	assert.NoError(t, g.AddModule("mypackage.bar"))
	assert.NoError(t, g.AddModule("mypackage"))
}

func TestGraph_AddSquashedModule_WithDescendantPresent(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddModule("foo.one"))

	assert.ErrorIs(t, g.AddSquashedModule("foo"), ErrInvalidState)
	assert.False(t, g.ContainsModule("foo"))
}

func TestGraph_AddModule_InvalidName(t *testing.T) {
	g := NewGraph()
	for _, name := range []string{"", "a..b", ".a", "a."} {
		assert.ErrorIs(t, g.AddModule(name), ErrInvalidModuleName, name)
	}
	assert.ErrorIs(t, g.AddImport("a", ""), ErrInvalidModuleName)
	assert.Empty(t, g.Modules())
}

// =============================================================================
// AddImport / ImportDetails
// =============================================================================

func TestGraph_AddImport_CreatesModules(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddImport("foo", "bar"))

	assert.Equal(t, []string{"bar", "foo"}, g.Modules())
	assert.Equal(t, 1, g.CountImports())
}

func TestGraph_AddImport_PreRegisteredModules(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddModule("foo"))
	require.NoError(t, g.AddModule("bar"))

	require.NoError(t, g.AddImport("foo", "bar"))

	assert.Equal(t, []string{"bar", "foo"}, g.Modules())
	exists, err := g.DirectImportExists("foo", "bar", false)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGraph_AddImport_DetailsAreNotDeduplicated(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddImport("a", "b", NewImportDetail(1, "import b")))
	require.NoError(t, g.AddImport("a", "b", NewImportDetail(1, "import b")))
	require.NoError(t, g.AddImport("a", "b", NewImportDetail(7, "from . import b")))

	details := g.ImportDetails("a", "b")
	require.Len(t, details, 3)
	assert.Equal(t, uint(1), *details[0].LineNumber)
	assert.Equal(t, "import b", *details[1].LineContents)
	assert.Equal(t, uint(7), *details[2].LineNumber)

	assert.Equal(t, 1, g.CountImports())
}

func TestGraph_AddImport_PartialDetail(t *testing.T) {
	g := NewGraph()
	line := uint(12)

	require.NoError(t, g.AddImport("a", "b", ImportDetail{LineNumber: &line}))

	details := g.ImportDetails("a", "b")
	require.Len(t, details, 1)
	assert.Equal(t, uint(12), *details[0].LineNumber)
	assert.Nil(t, details[0].LineContents)
}

func TestGraph_AddImport_BareEdge(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddImport("a", "b"))
	require.NoError(t, g.AddImport("a", "b", ImportDetail{}))

	details := g.ImportDetails("a", "b")
	assert.NotNil(t, details)
	assert.Empty(t, details)
	assert.Equal(t, 1, g.CountImports())
}

func TestGraph_ImportDetails_ReturnsCopies(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddImport("a", "b", NewImportDetail(1, "import b")))

	details := g.ImportDetails("a", "b")
	*details[0].LineNumber = 99

	assert.Equal(t, uint(1), *g.ImportDetails("a", "b")[0].LineNumber)
}

func TestGraph_ImportDetails_NoEdge(t *testing.T) {
	g := buildGraph(t, [2]string{"a", "b"})

	assert.Empty(t, g.ImportDetails("b", "a"))
	assert.Empty(t, g.ImportDetails("missing", "a"))
	assert.Empty(t, g.ImportDetails("a", "missing"))
}

func TestGraph_CountImports_CountsPairs(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddImport("a", "b", NewImportDetail(1, "import b")))
	require.NoError(t, g.AddImport("a", "b", NewImportDetail(2, "import b")))
	require.NoError(t, g.AddImport("a", "c"))
	require.NoError(t, g.AddImport("c", "a"))

	assert.Equal(t, 3, g.CountImports())
}

// =============================================================================
// RemoveImport / RemoveModule
// =============================================================================

func TestGraph_RemoveImport(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddImport("a", "b", NewImportDetail(1, "import b")))

	g.RemoveImport("a", "b")

	assert.Equal(t, []string{"a", "b"}, g.Modules())
	assert.Equal(t, 0, g.CountImports())
	assert.Empty(t, g.ImportDetails("a", "b"))
	exists, err := g.DirectImportExists("a", "b", false)
	require.NoError(t, err)
	assert.False(t, exists)

	// Re-adding starts with a fresh detail list.
	require.NoError(t, g.AddImport("a", "b"))
	assert.Empty(t, g.ImportDetails("a", "b"))
}

func TestGraph_RemoveImport_Missing(t *testing.T) {
	g := buildGraph(t, [2]string{"a", "b"})

	g.RemoveImport("b", "a")
	g.RemoveImport("x", "y")

	assert.Equal(t, 1, g.CountImports())
}

func TestGraph_RemoveModule(t *testing.T) {
	g := buildGraph(t,
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "b"},
		[2]string{"b", "b"},
	)

	g.RemoveModule("b")

	assert.Equal(t, []string{"a", "c"}, g.Modules())
	assert.Equal(t, 0, g.CountImports())
	assert.Empty(t, g.FindModulesDirectlyImportedBy("a"))
	assert.Empty(t, g.FindModulesThatDirectlyImport("c"))
}

func TestGraph_RemoveModule_Missing(t *testing.T) {
	g := buildGraph(t, [2]string{"a", "b"})

	g.RemoveModule("nope")

	assert.Equal(t, []string{"a", "b"}, g.Modules())
	assert.Equal(t, 1, g.CountImports())
}

func TestGraph_RemoveModule_RecyclesSlot(t *testing.T) {
	g := buildGraph(t, [2]string{"a", "b"})
	g.RemoveModule("a")

	require.NoError(t, g.AddImport("c", "b", NewImportDetail(4, "import b")))

	assert.Equal(t, []string{"b", "c"}, g.Modules())
	assert.Equal(t, []string{"c"}, g.FindModulesThatDirectlyImport("b"))
	assert.Empty(t, g.ImportDetails("a", "b"))
	assert.Len(t, g.ImportDetails("c", "b"), 1)
}

func TestGraph_RemoveModule_ClearsSquashedFlag(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddSquashedModule("foo"))

	g.RemoveModule("foo")

	require.NoError(t, g.AddModule("foo.one"))
	require.NoError(t, g.AddModule("foo"))
	squashed, err := g.IsModuleSquashed("foo")
	require.NoError(t, err)
	assert.False(t, squashed)
}

// =============================================================================
// Queries on the store
// =============================================================================

func TestGraph_IsModuleSquashed_NotPresent(t *testing.T) {
	g := NewGraph()

	_, err := g.IsModuleSquashed("foo")

	var notPresent *ModuleNotPresentError
	require.ErrorAs(t, err, &notPresent)
	assert.Equal(t, "foo", notPresent.Module)
	assert.ErrorIs(t, err, ErrModuleNotPresent)
}

func TestGraph_String(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "<ImportGraph: empty>", NewGraph().String())
	})

	t.Run("few modules", func(t *testing.T) {
		g := buildGraph(t, [2]string{"c", "a"}, [2]string{"b", "a"})
		assert.Equal(t, "<ImportGraph: 'a', 'b', 'c'>", g.String())
	})

	t.Run("exactly five", func(t *testing.T) {
		g := NewGraph()
		for i := 0; i < 5; i++ {
			require.NoError(t, g.AddModule(fmt.Sprintf("m%d", i)))
		}
		assert.Equal(t, "<ImportGraph: 'm0', 'm1', 'm2', 'm3', 'm4'>", g.String())
	})

	t.Run("more than five", func(t *testing.T) {
		g := NewGraph()
		for i := 0; i < 7; i++ {
			require.NoError(t, g.AddModule(fmt.Sprintf("m%d", i)))
		}
		assert.Equal(t, "<ImportGraph: 'm0', 'm1', 'm2', 'm3', 'm4', ...>", g.String())
	})
}

// =============================================================================
// Clone / Merge
// =============================================================================

func TestGraph_Clone_IsIndependent(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddImport("a", "b", NewImportDetail(1, "import b")))
	require.NoError(t, g.AddSquashedModule("s"))

	c := g.Clone()
	require.NoError(t, c.AddImport("a", "c"))
	require.NoError(t, c.AddImport("a", "b", NewImportDetail(2, "import b")))
	c.RemoveModule("s")

	assert.Equal(t, []string{"a", "b", "s"}, g.Modules())
	assert.Equal(t, 1, g.CountImports())
	assert.Len(t, g.ImportDetails("a", "b"), 1)

	assert.Equal(t, []string{"a", "b", "c"}, c.Modules())
	assert.Equal(t, 2, c.CountImports())
	assert.Len(t, c.ImportDetails("a", "b"), 2)
}

func TestGraph_Merge(t *testing.T) {
	left := NewGraph()
	require.NoError(t, left.AddImport("a", "b", NewImportDetail(1, "import b")))

	right := NewGraph()
	require.NoError(t, right.AddSquashedModule("s"))
	require.NoError(t, right.AddImport("a", "b", NewImportDetail(3, "import b")))
	require.NoError(t, right.AddImport("b", "s"))
	require.NoError(t, right.AddModule("lonely"))

	require.NoError(t, left.Merge(right))

	assert.Equal(t, []string{"a", "b", "lonely", "s"}, left.Modules())
	assert.Equal(t, 2, left.CountImports())
	details := left.ImportDetails("a", "b")
	require.Len(t, details, 2)
	assert.Equal(t, uint(1), *details[0].LineNumber)
	assert.Equal(t, uint(3), *details[1].LineNumber)

	squashed, err := left.IsModuleSquashed("s")
	require.NoError(t, err)
	assert.True(t, squashed)
}

func TestGraph_Merge_Conflict(t *testing.T) {
	left := buildGraph(t, [2]string{"s.inner", "x"})

	right := NewGraph()
	require.NoError(t, right.AddSquashedModule("s"))

	assert.ErrorIs(t, left.Merge(right), ErrInvalidState)
}

func TestGraph_Merge_Nil(t *testing.T) {
	g := buildGraph(t, [2]string{"a", "b"})
	assert.NoError(t, g.Merge(nil))
	assert.Equal(t, 1, g.CountImports())
}

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
	"sort"
	"strings"
)

// summaryLimit caps how many module names String() shows.
const summaryLimit = 5

// ImportDetail records where an import statement appears.
//
// Either field may be nil when the collector did not supply it. Several
// details may exist for the same (importer, imported) pair, one per import
// statement, including exact duplicates on different source lines.
type ImportDetail struct {
	// LineNumber is the 1-based line of the import statement.
	LineNumber *uint `json:"line_number,omitempty" yaml:"line_number,omitempty"`

	// LineContents is the source text of the import statement.
	LineContents *string `json:"line_contents,omitempty" yaml:"line_contents,omitempty"`
}

// NewImportDetail returns a detail with both fields set.
func NewImportDetail(lineNumber uint, lineContents string) ImportDetail {
	return ImportDetail{LineNumber: &lineNumber, LineContents: &lineContents}
}

// IsZero reports whether neither field is set.
func (d ImportDetail) IsZero() bool {
	return d.LineNumber == nil && d.LineContents == nil
}

func (d ImportDetail) clone() ImportDetail {
	out := ImportDetail{}
	if d.LineNumber != nil {
		n := *d.LineNumber
		out.LineNumber = &n
	}
	if d.LineContents != nil {
		s := *d.LineContents
		out.LineContents = &s
	}
	return out
}

// edgeKey identifies an (importer, imported) pair by module index.
type edgeKey struct {
	importer int
	imported int
}

// indexSet is a set of module indexes.
type indexSet map[int]struct{}

// GraphOptions configures Graph allocation.
type GraphOptions struct {
	// ExpectedModules pre-sizes the module tables. Zero means no hint.
	ExpectedModules int
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithExpectedModules pre-sizes the graph for about n modules.
func WithExpectedModules(n int) GraphOption {
	return func(o *GraphOptions) {
		if n > 0 {
			o.ExpectedModules = n
		}
	}
}

// Graph is a hierarchical import graph.
//
// Module names are interned: each name gets an integer index and all
// adjacency is kept in maps keyed by that index. Indexes of removed
// modules are recycled.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use. See the package documentation.
type Graph struct {
	// names maps index to module name. Freed slots hold "".
	names []string

	// index maps module name to index.
	index map[string]int

	// free lists recycled indexes.
	free []int

	// importsOf maps importer to the set of modules it imports.
	importsOf map[int]indexSet

	// importedBy maps imported module to the set of its importers.
	importedBy map[int]indexSet

	// details holds the import statements per edge, in insertion order.
	details map[edgeKey][]ImportDetail

	// squashed holds the indexes of squashed modules.
	squashed indexSet

	// importCount is the number of distinct (importer, imported) pairs.
	importCount int
}

// NewGraph creates an empty import graph.
//
// Example:
//
//	g := graph.NewGraph()
//	_ = g.AddImport("mypackage.foo", "mypackage.bar",
//	    graph.NewImportDetail(3, "from mypackage import bar"))
func NewGraph(opts ...GraphOption) *Graph {
	options := GraphOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		names:      make([]string, 0, options.ExpectedModules),
		index:      make(map[string]int, options.ExpectedModules),
		importsOf:  make(map[int]indexSet, options.ExpectedModules),
		importedBy: make(map[int]indexSet, options.ExpectedModules),
		details:    make(map[edgeKey][]ImportDetail),
		squashed:   make(indexSet),
	}
}

// String renders a short summary of the graph.
//
// An empty graph renders as "<ImportGraph: empty>". Otherwise up to five
// module names are shown in lexical order, followed by ", ..." when the
// graph holds more.
func (g *Graph) String() string {
	if len(g.index) == 0 {
		return "<ImportGraph: empty>"
	}

	modules := g.Modules()
	shown := modules
	if len(shown) > summaryLimit {
		shown = shown[:summaryLimit]
	}

	quoted := make([]string, len(shown))
	for i, m := range shown {
		quoted[i] = "'" + m + "'"
	}

	var sb strings.Builder
	sb.WriteString("<ImportGraph: ")
	sb.WriteString(strings.Join(quoted, ", "))
	if len(modules) > summaryLimit {
		sb.WriteString(", ...")
	}
	sb.WriteString(">")
	return sb.String()
}

// sortedNames converts a set of indexes into sorted module names.
func (g *Graph) sortedNames(set indexSet) []string {
	out := make([]string, 0, len(set))
	for idx := range set {
		out = append(out, g.names[idx])
	}
	sort.Strings(out)
	return out
}

// sortedIndexes returns the members of set ordered by module name.
func (g *Graph) sortedIndexes(set indexSet) []int {
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.names[out[i]] < g.names[out[j]]
	})
	return out
}

// namesOf maps a path of indexes to a freshly allocated slice of names.
func (g *Graph) namesOf(path []int) []string {
	out := make([]string, len(path))
	for i, idx := range path {
		out[i] = g.names[idx]
	}
	return out
}

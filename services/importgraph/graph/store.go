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
	"sort"
	"strings"
)

// AddModule adds a non-squashed module.
//
// Description:
//
//	Adding a module that is already present with the same flag is a no-op.
//
// Errors:
//
//	ErrInvalidModuleName - name is empty or has an empty segment
//	ErrInvalidState - name is already present as a squashed module, or
//	                  lies beneath a squashed module
func (g *Graph) AddModule(name string) error {
	return g.addModule(name, false)
}

// AddSquashedModule adds a module whose internals have already been
// contracted into it.
//
// Description:
//
//	Adding a module that is already present as squashed is a no-op. To
//	contract a module that already has descendants in the graph, use
//	SquashModule instead.
//
// Errors:
//
//	ErrInvalidModuleName - name is empty or has an empty segment
//	ErrInvalidState - name is already present as a non-squashed module,
//	                  lies beneath a squashed module, or already has
//	                  descendants in the graph
func (g *Graph) AddSquashedModule(name string) error {
	return g.addModule(name, true)
}

func (g *Graph) addModule(name string, squashed bool) error {
	if idx, ok := g.index[name]; ok {
		if g.isSquashed(idx) != squashed {
			return fmt.Errorf("%w: module %q already added with squashed=%t",
				ErrInvalidState, name, !squashed)
		}
		return nil
	}

	if squashed {
		for _, other := range g.names {
			if other != "" && IsDescendant(other, name) {
				return fmt.Errorf("%w: cannot add %q as squashed, descendant %q is present",
					ErrInvalidState, name, other)
			}
		}
	}

	idx, err := g.ensureModule(name)
	if err != nil {
		return err
	}
	if squashed {
		g.squashed[idx] = struct{}{}
	}
	return nil
}

// ensureModule returns the index of name, adding it as a non-squashed
// module when absent. It is the only place nodes are created.
func (g *Graph) ensureModule(name string) (int, error) {
	if idx, ok := g.index[name]; ok {
		return idx, nil
	}
	if err := g.checkNewModule(name); err != nil {
		return 0, err
	}

	var idx int
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
		g.names[idx] = name
	} else {
		idx = len(g.names)
		g.names = append(g.names, name)
	}
	g.index[name] = idx
	return idx, nil
}

// checkNewModule reports why name could not be added, or nil.
func (g *Graph) checkNewModule(name string) error {
	if _, ok := g.index[name]; ok {
		return nil
	}
	if err := validateModuleName(name); err != nil {
		return err
	}
	if ancestor, ok := g.squashedAncestor(name); ok {
		return fmt.Errorf("%w: %q is a descendant of squashed module %q",
			ErrInvalidState, name, ancestor)
	}
	return nil
}

// squashedAncestor walks up the dotted name looking for a squashed module.
func (g *Graph) squashedAncestor(name string) (string, bool) {
	for i := strings.LastIndex(name, moduleSeparator); i > 0; i = strings.LastIndex(name[:i], moduleSeparator) {
		prefix := name[:i]
		if idx, ok := g.index[prefix]; ok && g.isSquashed(idx) {
			return prefix, true
		}
	}
	return "", false
}

func (g *Graph) isSquashed(idx int) bool {
	_, ok := g.squashed[idx]
	return ok
}

// AddImport records that importer imports imported.
//
// Description:
//
//	Both modules are added as non-squashed modules if absent. Each
//	non-zero detail is appended to the edge's detail list; details are
//	never deduplicated, so adding the same statement twice stores it
//	twice. Without details only the bare edge is recorded.
//
// Inputs:
//
//	importer - The module containing the import statement.
//	imported - The module being imported.
//	details - Optional line number / line contents records.
//
// Errors:
//
//	ErrInvalidModuleName - Either name is malformed
//	ErrInvalidState - An absent endpoint lies beneath a squashed module
func (g *Graph) AddImport(importer, imported string, details ...ImportDetail) error {
	if err := g.checkNewModule(imported); err != nil {
		return fmt.Errorf("adding imported: %w", err)
	}
	from, err := g.ensureModule(importer)
	if err != nil {
		return fmt.Errorf("adding importer: %w", err)
	}
	to, err := g.ensureModule(imported)
	if err != nil {
		return fmt.Errorf("adding imported: %w", err)
	}

	g.addEdge(from, to)

	key := edgeKey{importer: from, imported: to}
	for _, d := range details {
		if d.IsZero() {
			continue
		}
		g.details[key] = append(g.details[key], d.clone())
	}
	return nil
}

// addEdge links two existing modules. Returns false if already linked.
func (g *Graph) addEdge(from, to int) bool {
	out, ok := g.importsOf[from]
	if !ok {
		out = make(indexSet)
		g.importsOf[from] = out
	}
	if _, exists := out[to]; exists {
		return false
	}
	out[to] = struct{}{}

	in, ok := g.importedBy[to]
	if !ok {
		in = make(indexSet)
		g.importedBy[to] = in
	}
	in[from] = struct{}{}

	g.importCount++
	return true
}

// removeEdge unlinks two modules and drops the edge's details.
func (g *Graph) removeEdge(from, to int) bool {
	out := g.importsOf[from]
	if _, exists := out[to]; !exists {
		return false
	}
	delete(out, to)
	if len(out) == 0 {
		delete(g.importsOf, from)
	}

	in := g.importedBy[to]
	delete(in, from)
	if len(in) == 0 {
		delete(g.importedBy, to)
	}

	delete(g.details, edgeKey{importer: from, imported: to})
	g.importCount--
	return true
}

// RemoveImport deletes the edge and all of its details.
//
// The modules stay in the graph even if they become isolated. Removing an
// import that does not exist is a no-op.
func (g *Graph) RemoveImport(importer, imported string) {
	from, ok := g.index[importer]
	if !ok {
		return
	}
	to, ok := g.index[imported]
	if !ok {
		return
	}
	g.removeEdge(from, to)
}

// RemoveModule deletes the module and every edge touching it.
//
// Removing a module that is not present is a no-op.
func (g *Graph) RemoveModule(name string) {
	idx, ok := g.index[name]
	if !ok {
		return
	}
	g.removeIndex(idx)
}

func (g *Graph) removeIndex(idx int) {
	for to := range g.importsOf[idx] {
		g.removeEdge(idx, to)
	}
	for from := range g.importedBy[idx] {
		g.removeEdge(from, idx)
	}

	delete(g.index, g.names[idx])
	delete(g.squashed, idx)
	g.names[idx] = ""
	g.free = append(g.free, idx)
}

// Modules returns every module in the graph, sorted.
func (g *Graph) Modules() []string {
	out := make([]string, 0, len(g.index))
	for name := range g.index {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ContainsModule reports whether name is in the graph.
func (g *Graph) ContainsModule(name string) bool {
	_, ok := g.index[name]
	return ok
}

// CountModules returns the number of modules.
func (g *Graph) CountModules() int {
	return len(g.index)
}

// CountImports returns the number of distinct (importer, imported) pairs.
//
// This is not the number of import statements: a pair with several
// details counts once.
func (g *Graph) CountImports() int {
	return g.importCount
}

// ImportDetails returns the recorded import statements for a pair.
//
// Returns an empty slice if there is no edge or it has no details.
func (g *Graph) ImportDetails(importer, imported string) []ImportDetail {
	from, ok := g.index[importer]
	if !ok {
		return []ImportDetail{}
	}
	to, ok := g.index[imported]
	if !ok {
		return []ImportDetail{}
	}

	stored := g.details[edgeKey{importer: from, imported: to}]
	out := make([]ImportDetail, len(stored))
	for i, d := range stored {
		out[i] = d.clone()
	}
	return out
}

// IsModuleSquashed reports whether name is squashed.
//
// Errors:
//
//	ErrModuleNotPresent - name is not in the graph
func (g *Graph) IsModuleSquashed(name string) (bool, error) {
	idx, ok := g.index[name]
	if !ok {
		return false, moduleNotPresent(name)
	}
	return g.isSquashed(idx), nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := NewGraph(WithExpectedModules(len(g.index)))
	c.names = append(c.names, g.names...)
	c.free = append(c.free, g.free...)
	for name, idx := range g.index {
		c.index[name] = idx
	}
	for from, set := range g.importsOf {
		cp := make(indexSet, len(set))
		for to := range set {
			cp[to] = struct{}{}
		}
		c.importsOf[from] = cp
	}
	for to, set := range g.importedBy {
		cp := make(indexSet, len(set))
		for from := range set {
			cp[from] = struct{}{}
		}
		c.importedBy[to] = cp
	}
	for key, ds := range g.details {
		cp := make([]ImportDetail, len(ds))
		for i, d := range ds {
			cp[i] = d.clone()
		}
		c.details[key] = cp
	}
	for idx := range g.squashed {
		c.squashed[idx] = struct{}{}
	}
	c.importCount = g.importCount
	return c
}

// Merge adds every module, edge and import detail of other into g.
//
// Description:
//
//	Squashed modules of other are added first so the squash invariants
//	are checked before any edge lands. Details are appended after those
//	already in g. other is not modified.
//
// Errors:
//
//	ErrInvalidState - A module of other conflicts with g's squash flags
func (g *Graph) Merge(other *Graph) error {
	if other == nil {
		return nil
	}

	for _, idx := range other.sortedIndexes(other.squashed) {
		if err := g.AddSquashedModule(other.names[idx]); err != nil {
			return fmt.Errorf("merging module: %w", err)
		}
	}
	for _, name := range other.Modules() {
		if other.isSquashed(other.index[name]) {
			continue
		}
		if err := g.AddModule(name); err != nil {
			return fmt.Errorf("merging module: %w", err)
		}
	}

	for from, set := range other.importsOf {
		for to := range set {
			ds := other.details[edgeKey{importer: from, imported: to}]
			if err := g.AddImport(other.names[from], other.names[to], ds...); err != nil {
				return fmt.Errorf("merging import: %w", err)
			}
		}
	}
	return nil
}

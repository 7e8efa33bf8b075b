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

// SquashModule contracts every descendant of name into name.
//
// Description:
//
//	Each edge (d, x) from a descendant d becomes (name, x) and each edge
//	(x, d) becomes (x, name). Rerouted edges that already exist are not
//	duplicated, and edges that would become a self-loop on name (imports
//	between two modules of the squashed subtree, or between name and its
//	own descendants) are dropped. Import details already recorded on
//	name's own edges are kept; details that belonged to descendant edges
//	are discarded along with the descendants. The descendants are then
//	removed and name is marked squashed. Squashing cannot be undone.
//
// Errors:
//
//	ErrModuleNotPresent - name is not in the graph
//
// Example:
//
//	_ = g.AddImport("foo.green", "bar.blue")
//	_ = g.SquashModule("foo")
//	ok, _ := g.DirectImportExists("foo", "bar.blue", false) // true
func (g *Graph) SquashModule(name string) error {
	root, ok := g.index[name]
	if !ok {
		return moduleNotPresent(name)
	}
	if g.isSquashed(root) {
		return nil
	}

	subtree := g.packageMembers(name)
	descendants := g.sortedIndexes(subtree)

	for _, d := range descendants {
		if d == root {
			continue
		}
		for to := range g.importsOf[d] {
			if _, internal := subtree[to]; internal {
				continue
			}
			g.addEdge(root, to)
		}
		for from := range g.importedBy[d] {
			if _, internal := subtree[from]; internal {
				continue
			}
			g.addEdge(from, root)
		}
	}

	for _, d := range descendants {
		if d != root {
			g.removeIndex(d)
		}
	}

	g.squashed[root] = struct{}{}
	return nil
}

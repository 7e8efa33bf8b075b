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

// =============================================================================
// Package membership
// =============================================================================

// packageMembers returns the indexes of name (if present) and every
// present descendant of name.
func (g *Graph) packageMembers(name string) indexSet {
	members := make(indexSet)
	for idx, other := range g.names {
		if other != "" && IsSameOrDescendant(other, name) {
			members[idx] = struct{}{}
		}
	}
	return members
}

// moduleOrPackage resolves the starting set for a query: the package
// members when asPackage is set, otherwise the single module if present.
func (g *Graph) moduleOrPackage(name string, asPackage bool) indexSet {
	if asPackage {
		return g.packageMembers(name)
	}
	set := make(indexSet, 1)
	if idx, ok := g.index[name]; ok {
		set[idx] = struct{}{}
	}
	return set
}

// =============================================================================
// Direct imports
// =============================================================================

// FindModulesDirectlyImportedBy returns the modules module imports directly.
func (g *Graph) FindModulesDirectlyImportedBy(module string) []string {
	idx, ok := g.index[module]
	if !ok {
		return []string{}
	}
	return g.sortedNames(g.importsOf[idx])
}

// FindModulesThatDirectlyImport returns the modules that import module directly.
func (g *Graph) FindModulesThatDirectlyImport(module string) []string {
	idx, ok := g.index[module]
	if !ok {
		return []string{}
	}
	return g.sortedNames(g.importedBy[idx])
}

// DirectImportExists reports whether importer directly imports imported.
//
// Description:
//
//	With asPackages false this is a literal edge check between the two
//	exact names; an edge from a package to its own child counts if it
//	was added. With asPackages true it reports whether any module in the
//	importer package (the module or a descendant) directly imports any
//	module in the imported package.
//
// Errors:
//
//	ErrInvalidOperation - asPackages is true and the two packages overlap
//	                      (same module, or one is an ancestor of the other)
func (g *Graph) DirectImportExists(importer, imported string, asPackages bool) (bool, error) {
	if !asPackages {
		from, ok := g.index[importer]
		if !ok {
			return false, nil
		}
		to, ok := g.index[imported]
		if !ok {
			return false, nil
		}
		_, exists := g.importsOf[from][to]
		return exists, nil
	}

	if packagesOverlap(importer, imported) {
		return false, invalidOperation("DirectImportExists",
			"%q and %q are in an ancestor/descendant relationship", importer, imported)
	}

	for from := range g.packageMembers(importer) {
		for to := range g.importsOf[from] {
			if IsSameOrDescendant(g.names[to], imported) {
				return true, nil
			}
		}
	}
	return false, nil
}

// =============================================================================
// Transitive closure
// =============================================================================

// FindDownstreamModules returns every module that depends on module,
// directly or transitively.
//
// Description:
//
//	Walks edges backwards from module (or, with asPackage, from every
//	module in the package). The starting modules are never part of the
//	result.
func (g *Graph) FindDownstreamModules(module string, asPackage bool) []string {
	return g.closure(g.moduleOrPackage(module, asPackage), g.importedBy)
}

// FindUpstreamModules returns every module that module depends on,
// directly or transitively.
//
// Description:
//
//	Walks edges forwards from module (or, with asPackage, from every
//	module in the package). The starting modules are never part of the
//	result.
func (g *Graph) FindUpstreamModules(module string, asPackage bool) []string {
	return g.closure(g.moduleOrPackage(module, asPackage), g.importsOf)
}

// closure runs a breadth-first walk from sources along adjacency and
// returns the sorted names reached, excluding the sources.
func (g *Graph) closure(sources indexSet, adjacency map[int]indexSet) []string {
	seen := make(indexSet, len(sources))
	queue := make([]int, 0, len(sources))
	for idx := range sources {
		seen[idx] = struct{}{}
		queue = append(queue, idx)
	}

	found := make(indexSet)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for next := range adjacency[current] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			found[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return g.sortedNames(found)
}

// =============================================================================
// Children and descendants
// =============================================================================

// FindChildren returns the modules exactly one segment below module.
//
// Errors:
//
//	ErrModuleNotPresent - module was never added
//	ErrInvalidOperation - module is squashed, so it has no internal structure
func (g *Graph) FindChildren(module string) ([]string, error) {
	if err := g.checkExpandable("FindChildren", module); err != nil {
		return nil, err
	}

	children := make(indexSet)
	for idx, other := range g.names {
		if other != "" && isImmediateChild(other, module) {
			children[idx] = struct{}{}
		}
	}
	return g.sortedNames(children), nil
}

// FindDescendants returns every module beneath module, at any depth.
//
// Errors:
//
//	ErrModuleNotPresent - module was never added
//	ErrInvalidOperation - module is squashed
func (g *Graph) FindDescendants(module string) ([]string, error) {
	if err := g.checkExpandable("FindDescendants", module); err != nil {
		return nil, err
	}

	descendants := g.packageMembers(module)
	delete(descendants, g.index[module])
	return g.sortedNames(descendants), nil
}

func (g *Graph) checkExpandable(op, module string) error {
	idx, ok := g.index[module]
	if !ok {
		return moduleNotPresent(module)
	}
	if g.isSquashed(idx) {
		return invalidOperation(op, "module %q is squashed", module)
	}
	return nil
}

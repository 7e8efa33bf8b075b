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
	"context"
	"iter"
)

// FindShortestChain returns a minimum-hop chain from importer to imported.
//
// Description:
//
//	Uses bidirectional BFS over literal edges, always expanding the
//	smaller frontier one full level at a time. The chain includes both
//	endpoints. When several chains share the minimum length, any one of
//	them may be returned. A module reaches itself with a one-element
//	chain.
//
// Outputs:
//
//	[]string - The chain, or nil if no chain exists or either module is
//	           absent. A missing chain is an ordinary outcome, not an error.
func (g *Graph) FindShortestChain(importer, imported string) []string {
	from, ok := g.index[importer]
	if !ok {
		return nil
	}
	to, ok := g.index[imported]
	if !ok {
		return nil
	}

	path := g.bidirectionalShortestPath(from, to)
	if path == nil {
		return nil
	}
	return g.namesOf(path)
}

// bidirectionalShortestPath returns the index path from -> to, or nil.
func (g *Graph) bidirectionalShortestPath(from, to int) []int {
	if from == to {
		return []int{from}
	}

	// pred maps a forward-visited node to its predecessor; succ maps a
	// backward-visited node to its successor. -1 marks the search roots.
	pred := map[int]int{from: -1}
	succ := map[int]int{to: -1}
	forward := []int{from}
	backward := []int{to}

	meet := -1
	for len(forward) > 0 && len(backward) > 0 && meet < 0 {
		if len(forward) <= len(backward) {
			forward, meet = expandLevel(forward, g.importsOf, pred, succ)
		} else {
			backward, meet = expandLevel(backward, g.importedBy, succ, pred)
		}
	}
	if meet < 0 {
		return nil
	}

	path := make([]int, 0)
	for n := meet; n != -1; n = pred[n] {
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	for n := succ[meet]; n != -1; n = succ[n] {
		path = append(path, n)
	}
	return path
}

// expandLevel advances one BFS level along adjacency. It records parents
// in own and stops at the first node already reached by the other side.
func expandLevel(frontier []int, adjacency map[int]indexSet, own, other map[int]int) ([]int, int) {
	next := make([]int, 0, len(frontier))
	for _, current := range frontier {
		for n := range adjacency[current] {
			if _, seen := own[n]; seen {
				continue
			}
			own[n] = current
			if _, met := other[n]; met {
				return next, n
			}
			next = append(next, n)
		}
	}
	return next, -1
}

// FindAllSimpleChains lazily enumerates every simple chain from importer
// to imported.
//
// Description:
//
//	A simple chain never repeats a module. Chains are produced by a
//	depth-first walk that visits imports in lexical order; each yielded
//	slice is freshly allocated and owned by the caller. No package-aware
//	pruning is applied, so the number of chains can grow exponentially
//	with graph size: intended for small subgraphs. The graph must not be
//	mutated while the sequence is being consumed.
//
// Outputs:
//
//	iter.Seq[[]string] - The chains. Stop early by breaking out of the range loop.
//
// Errors:
//
//	ErrModuleNotPresent - importer or imported is absent
//
// Example:
//
//	chains, err := g.FindAllSimpleChains("foo", "bar")
//	if err != nil {
//	    return err
//	}
//	for chain := range chains {
//	    fmt.Println(strings.Join(chain, " -> "))
//	}
func (g *Graph) FindAllSimpleChains(importer, imported string) (iter.Seq[[]string], error) {
	return g.FindAllSimpleChainsContext(context.Background(), importer, imported)
}

// FindAllSimpleChainsContext is FindAllSimpleChains with cancellation.
//
// ctx is checked before every module the walk expands, so the sequence
// ends soon after ctx is done even when no chain is being produced.
// Callers tell cancellation apart from exhaustion with ctx.Err().
func (g *Graph) FindAllSimpleChainsContext(ctx context.Context, importer, imported string) (iter.Seq[[]string], error) {
	from, ok := g.index[importer]
	if !ok {
		return nil, moduleNotPresent(importer)
	}
	to, ok := g.index[imported]
	if !ok {
		return nil, moduleNotPresent(imported)
	}

	return func(yield func([]string) bool) {
		if ctx.Err() != nil {
			return
		}
		if from == to {
			yield([]string{importer})
			return
		}

		path := []int{from}
		onPath := indexSet{from: {}}

		var walk func(current int) bool
		walk = func(current int) bool {
			for _, next := range g.sortedIndexes(g.importsOf[current]) {
				if ctx.Err() != nil {
					return false
				}
				if _, visited := onPath[next]; visited {
					continue
				}
				if next == to {
					if !yield(g.namesOf(append(path, next))) {
						return false
					}
					continue
				}

				onPath[next] = struct{}{}
				path = append(path, next)
				if !walk(next) {
					return false
				}
				path = path[:len(path)-1]
				delete(onPath, next)
			}
			return true
		}
		walk(from)
	}, nil
}

// ChainExists reports whether importer reaches imported through any
// number of imports.
//
// Description:
//
//	With asPackages false only the two literal modules are considered.
//	With asPackages true it reports whether any module in the importer
//	package reaches any module in the imported package.
//
// Errors:
//
//	ErrInvalidOperation - asPackages is true and the two packages overlap,
//	                      the same rule as DirectImportExists
func (g *Graph) ChainExists(importer, imported string, asPackages bool) (bool, error) {
	if !asPackages {
		return g.FindShortestChain(importer, imported) != nil, nil
	}

	if packagesOverlap(importer, imported) {
		return false, invalidOperation("ChainExists",
			"%q and %q are in an ancestor/descendant relationship", importer, imported)
	}

	targets := g.packageMembers(imported)
	if len(targets) == 0 {
		return false, nil
	}

	sources := g.packageMembers(importer)
	seen := make(indexSet, len(sources))
	queue := make([]int, 0, len(sources))
	for idx := range sources {
		seen[idx] = struct{}{}
		queue = append(queue, idx)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for next := range g.importsOf[current] {
			if _, hit := targets[next]; hit {
				return true, nil
			}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false, nil
}

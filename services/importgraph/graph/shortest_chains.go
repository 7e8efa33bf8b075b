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

// FindShortestChains returns the shortest chain for every pair of modules
// (head, tail) where head is in the importer package and tail is in the
// imported package.
//
// Description:
//
//	For each head in the importer package a BFS is run in which modules
//	of either package may only appear as the chain's endpoints: other
//	importer-package modules are never entered and imported-package
//	modules are never expanded. The shortest chain to every tail reached
//	is kept. The result is the union over all (head, tail) pairs, so a
//	long chain between one pair is reported even when a different pair
//	has a shorter one. Chains internal to the importer package are never
//	reported since every chain ends inside the imported package.
//
// Outputs:
//
//	[][]string - Chains sorted lexically by their joined names. Empty if
//	             no chain crosses between the packages.
//
// Errors:
//
//	ErrInvalidOperation - the two packages overlap
//
// Limitations:
//
//	One BFS per module of the importer package: O(H * (V + E)).
func (g *Graph) FindShortestChains(importer, imported string) ([][]string, error) {
	if packagesOverlap(importer, imported) {
		return nil, invalidOperation("FindShortestChains",
			"%q and %q are in an ancestor/descendant relationship", importer, imported)
	}

	heads := g.packageMembers(importer)
	tails := g.packageMembers(imported)

	chains := make([][]string, 0)
	if len(heads) == 0 || len(tails) == 0 {
		return chains, nil
	}

	for _, head := range g.sortedIndexes(heads) {
		for _, path := range g.shortestPathsToTails(head, heads, tails) {
			chains = append(chains, g.namesOf(path))
		}
	}

	sort.Slice(chains, func(i, j int) bool {
		return strings.Join(chains[i], " ") < strings.Join(chains[j], " ")
	})
	return chains, nil
}

// shortestPathsToTails runs one BFS from head and returns the shortest
// path to each tail reached, ordered by tail name.
func (g *Graph) shortestPathsToTails(head int, heads, tails indexSet) [][]int {
	parent := map[int]int{head: -1}
	queue := []int{head}
	reached := make(indexSet)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for next := range g.importsOf[current] {
			if _, seen := parent[next]; seen {
				continue
			}
			if _, inImporter := heads[next]; inImporter {
				continue
			}
			parent[next] = current
			if _, isTail := tails[next]; isTail {
				reached[next] = struct{}{}
				continue
			}
			queue = append(queue, next)
		}
	}

	paths := make([][]int, 0, len(reached))
	for _, tail := range g.sortedIndexes(reached) {
		path := make([]int, 0)
		for n := tail; n != -1; n = parent[n] {
			path = append(path, n)
		}
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
		paths = append(paths, path)
	}
	return paths
}

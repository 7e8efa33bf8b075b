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
)

// ModuleRecord is a serialized module.
type ModuleRecord struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Squashed bool   `json:"squashed,omitempty" yaml:"squashed,omitempty"`
}

// ImportRecord is a serialized import statement.
//
// A record with neither LineNumber nor LineContents describes a bare edge.
type ImportRecord struct {
	Importer     string  `json:"importer" yaml:"importer" validate:"required"`
	Imported     string  `json:"imported" yaml:"imported" validate:"required"`
	LineNumber   *uint   `json:"line_number,omitempty" yaml:"line_number,omitempty"`
	LineContents *string `json:"line_contents,omitempty" yaml:"line_contents,omitempty"`
}

// Detail returns the record's import detail (zero for a bare edge).
func (r ImportRecord) Detail() ImportDetail {
	return ImportDetail{LineNumber: r.LineNumber, LineContents: r.LineContents}
}

// Snapshot is a serializable form of a Graph.
//
// It doubles as the inbound record stream from a source-scanning
// collector: modules to add (with their squashed flag) followed by import
// statements.
type Snapshot struct {
	Modules []ModuleRecord `json:"modules,omitempty" yaml:"modules,omitempty" validate:"dive"`
	Imports []ImportRecord `json:"imports,omitempty" yaml:"imports,omitempty" validate:"dive"`
}

// Snapshot serializes the graph.
//
// Modules are sorted by name and imports by (importer, imported); details
// of an edge keep their insertion order. An edge without details yields a
// single bare record.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		Modules: make([]ModuleRecord, 0, len(g.index)),
		Imports: make([]ImportRecord, 0, g.importCount),
	}

	for _, name := range g.Modules() {
		s.Modules = append(s.Modules, ModuleRecord{
			Name:     name,
			Squashed: g.isSquashed(g.index[name]),
		})
	}

	keys := make([]edgeKey, 0, g.importCount)
	for from, set := range g.importsOf {
		for to := range set {
			keys = append(keys, edgeKey{importer: from, imported: to})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if g.names[a.importer] != g.names[b.importer] {
			return g.names[a.importer] < g.names[b.importer]
		}
		return g.names[a.imported] < g.names[b.imported]
	})

	for _, key := range keys {
		importer, imported := g.names[key.importer], g.names[key.imported]
		ds := g.details[key]
		if len(ds) == 0 {
			s.Imports = append(s.Imports, ImportRecord{Importer: importer, Imported: imported})
			continue
		}
		for _, d := range ds {
			c := d.clone()
			s.Imports = append(s.Imports, ImportRecord{
				Importer:     importer,
				Imported:     imported,
				LineNumber:   c.LineNumber,
				LineContents: c.LineContents,
			})
		}
	}
	return s
}

// FromSnapshot builds a Graph from a snapshot.
//
// Description:
//
//	Squashed modules are added first, then the remaining modules, then
//	the imports, so squash invariants are enforced against the final
//	module set.
//
// Errors:
//
//	ErrInvalidState, ErrInvalidModuleName - as for AddModule / AddImport
func FromSnapshot(s *Snapshot) (*Graph, error) {
	g := NewGraph()
	if s == nil {
		return g, nil
	}
	if err := g.Apply(s); err != nil {
		return nil, err
	}
	return g, nil
}

// Apply adds the modules and imports of s to g.
func (g *Graph) Apply(s *Snapshot) error {
	for _, m := range s.Modules {
		if !m.Squashed {
			continue
		}
		if err := g.AddSquashedModule(m.Name); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}
	for _, m := range s.Modules {
		if m.Squashed {
			continue
		}
		if err := g.AddModule(m.Name); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}
	for i, r := range s.Imports {
		if err := g.AddImport(r.Importer, r.Imported, r.Detail()); err != nil {
			return fmt.Errorf("import[%d] %s -> %s: %w", i, r.Importer, r.Imported, err)
		}
	}
	return nil
}

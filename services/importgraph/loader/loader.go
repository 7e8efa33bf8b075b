// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loader builds import graphs from import files.
//
// An import file is the YAML (or JSON) form of graph.Snapshot, as produced
// by a source scanner:
//
//	modules:
//	  - name: vendor
//	    squashed: true
//	imports:
//	  - importer: app.views
//	    imported: app.models
//	    line_number: 3
//	    line_contents: from app import models
//
// Several files can be loaded in parallel and merged into one graph. A
// Watcher reloads them when they change on disk.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
)

var fileValidate = validator.New()

// Options configures LoadFiles.
type Options struct {
	// Concurrency caps the number of files decoded at once.
	// Default: runtime.GOMAXPROCS(0).
	Concurrency int

	// Squash lists modules to squash after the merge, in order.
	Squash []string

	// Logger receives per-file debug logs. Default: slog.Default().
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithConcurrency caps parallel decoding. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithSquash squashes the named modules once every file is merged.
func WithSquash(modules ...string) Option {
	return func(o *Options) {
		o.Squash = append(o.Squash, modules...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		Concurrency: runtime.GOMAXPROCS(0),
		Logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Decode reads one import file from r.
//
// Description:
//
//	Unknown keys are rejected. An empty document yields an empty
//	snapshot. Every record must name its modules.
//
// Errors:
//
//	ErrInvalidFile - malformed YAML/JSON or a record failing validation
func Decode(r io.Reader) (*graph.Snapshot, error) {
	var snap graph.Snapshot

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	if err := fileValidate.Struct(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &snap, nil
}

// LoadFile decodes one import file into a new graph.
//
// Errors:
//
//	*FileError wrapping an os error, ErrInvalidFile, or a graph error
//	(graph.ErrInvalidState, graph.ErrInvalidModuleName).
func LoadFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return g, nil
}

// LoadFiles loads every path and merges the results into one graph.
//
// Description:
//
//	Files are decoded in parallel, each into its own graph, bounded by
//	Options.Concurrency. The per-file graphs are then merged one at a
//	time in the order of paths, so import details of a shared edge keep
//	file order. Finally the Options.Squash modules are squashed.
//
// Inputs:
//
//	ctx - Cancels pending file loads.
//	paths - Import files. At least one.
//	opts - WithConcurrency, WithSquash, WithLogger.
//
// Outputs:
//
//	*graph.Graph - The merged graph.
//	error - The first failure; no partial graph is returned.
//
// Errors:
//
//	ErrNoFiles - paths is empty
//	*FileError - a file could not be read, decoded or merged
//	graph.ErrModuleNotPresent - a module to squash is absent
func LoadFiles(ctx context.Context, paths []string, opts ...Option) (*graph.Graph, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	o := buildOptions(opts)

	graphs := make([]*graph.Graph, len(paths))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.Concurrency)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			g, err := LoadFile(path)
			if err != nil {
				return err
			}
			o.Logger.Debug("import file loaded",
				slog.String("path", path),
				slog.Int("modules", g.CountModules()),
				slog.Int("imports", g.CountImports()),
			)
			graphs[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := graphs[0]
	for i, g := range graphs[1:] {
		if err := merged.Merge(g); err != nil {
			return nil, &FileError{Path: paths[i+1], Err: err}
		}
	}

	for _, module := range o.Squash {
		if err := merged.SquashModule(module); err != nil {
			return nil, fmt.Errorf("squash %s: %w", module, err)
		}
	}
	return merged, nil
}

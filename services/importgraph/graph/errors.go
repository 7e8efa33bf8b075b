// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the hierarchical import graph.
//
// The graph is a directed graph whose nodes are dotted module names
// (for example "mypackage.foo.bar") and whose edges record that one module
// imports another. Module names form a hierarchy purely lexically:
// "a.b" is a descendant of "a", and "a" is treated as a package when a
// query is asked "as packages".
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. It assumes exclusive ownership
// during mutation. Read queries may be run from several goroutines only
// when no mutation is happening. Callers that build graphs concurrently
// should build one Graph per worker and Merge them on a single goroutine.
//
// # Lifecycle
//
//  1. Create with NewGraph()
//  2. Build with AddModule(), AddSquashedModule() and AddImport() calls
//  3. Optionally contract packages with SquashModule()
//  4. Query with DirectImportExists(), FindShortestChain(), etc.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrModuleNotPresent is returned when an operation requires a module
	// that has never been added to the graph.
	ErrModuleNotPresent = errors.New("module not present")

	// ErrInvalidState is returned when an add would break the squash
	// invariants: re-adding a module with a conflicting squashed flag, or
	// adding a module underneath a squashed module.
	ErrInvalidState = errors.New("invalid graph state")

	// ErrInvalidOperation is returned when a query makes no sense for its
	// arguments, such as a package-level import check between a package
	// and its own subpackage, or asking for the children of a squashed
	// module.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidModuleName is returned for empty names and names with
	// empty dotted segments ("a..b", ".a", "a.").
	ErrInvalidModuleName = errors.New("invalid module name")
)

// ModuleNotPresentError names the module that was missing.
type ModuleNotPresentError struct {
	Module string
}

// Error implements the error interface.
func (e *ModuleNotPresentError) Error() string {
	return fmt.Sprintf("module %q not present in graph", e.Module)
}

// Unwrap returns the sentinel error.
func (e *ModuleNotPresentError) Unwrap() error {
	return ErrModuleNotPresent
}

// InvalidOperationError describes why a query was rejected.
type InvalidOperationError struct {
	// Operation is the graph method that rejected the call.
	Operation string

	// Reason is a human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

// Unwrap returns the sentinel error.
func (e *InvalidOperationError) Unwrap() error {
	return ErrInvalidOperation
}

func moduleNotPresent(module string) error {
	return &ModuleNotPresentError{Module: module}
}

func invalidOperation(op, format string, args ...any) error {
	return &InvalidOperationError{Operation: op, Reason: fmt.Sprintf(format, args...)}
}

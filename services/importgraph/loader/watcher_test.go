// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loader

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
)

type rebuildResult struct {
	g   *graph.Graph
	err error
}

func collectRebuilds() (RebuildFunc, <-chan rebuildResult) {
	ch := make(chan rebuildResult, 16)
	return func(g *graph.Graph, err error) {
		ch <- rebuildResult{g: g, err: err}
	}, ch
}

func waitRebuild(t *testing.T, ch <-chan rebuildResult) rebuildResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
		return rebuildResult{}
	}
}

func TestNewWatcher_Errors(t *testing.T) {
	onRebuild, _ := collectRebuilds()

	_, err := NewWatcher(nil, onRebuild, nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = NewWatcher([]string{"a.yaml"}, nil, nil)
	assert.Error(t, err)
}

func TestWatcher_InitialAndChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "imports.yaml", "imports:\n  - importer: a\n    imported: b\n")

	onRebuild, ch := collectRebuilds()
	w, err := NewWatcher([]string{path}, onRebuild, &WatcherOptions{
		Debounce:    20 * time.Millisecond,
		MinInterval: 0,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	first := waitRebuild(t, ch)
	require.NoError(t, first.err)
	assert.Equal(t, []string{"a", "b"}, first.g.Modules())

	require.NoError(t, os.WriteFile(path, []byte("imports:\n  - importer: a\n    imported: c\n"), 0o644))

	second := waitRebuild(t, ch)
	require.NoError(t, second.err)
	assert.Equal(t, []string{"a", "c"}, second.g.Modules())
	assert.GreaterOrEqual(t, w.Rebuilds(), 2)
}

func TestWatcher_ReportsLoadErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "imports.yaml", "imports:\n  - importer: a\n")

	onRebuild, ch := collectRebuilds()
	w, err := NewWatcher([]string{path}, onRebuild, &WatcherOptions{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	r := waitRebuild(t, ch)
	assert.Nil(t, r.g)
	assert.ErrorIs(t, r.err, ErrInvalidFile)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "imports.yaml", "imports:\n  - importer: a\n    imported: b\n")

	onRebuild, ch := collectRebuilds()
	w, err := NewWatcher([]string{path}, onRebuild, &WatcherOptions{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	waitRebuild(t, ch)

	writeFile(t, dir, "notes.txt", "unrelated")

	select {
	case <-ch:
		t.Fatal("unexpected rebuild for an unwatched file")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 1, w.Rebuilds())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	onRebuild, _ := collectRebuilds()
	w, err := NewWatcher([]string{"imports.yaml"}, onRebuild, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked")
	}
}

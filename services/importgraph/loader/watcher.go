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
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
)

// RebuildFunc receives each freshly loaded graph, or the load error.
type RebuildFunc func(g *graph.Graph, err error)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is the quiet period after the last change before a
	// rebuild starts. Default: 200ms.
	Debounce time.Duration

	// MinInterval is the minimum time between two rebuilds. 0 disables
	// throttling. Default: 1s.
	MinInterval time.Duration

	// Load is passed to LoadFiles on every rebuild.
	Load []Option

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		Debounce:    200 * time.Millisecond,
		MinInterval: time.Second,
	}
}

// Watcher reloads a set of import files whenever one of them changes.
//
// # Description
//
// The parent directory of each file is watched, since editors and
// scanners usually replace a file rather than write it in place. Events
// for other files in those directories are ignored. Bursts of events are
// collapsed by the debounce window, and a rate limiter spaces rebuilds
// at least MinInterval apart.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. The RebuildFunc is always
// called from a single goroutine.
type Watcher struct {
	paths     []string
	watched   map[string]struct{}
	onRebuild RebuildFunc
	opts      WatcherOptions
	logger    *slog.Logger
	limiter   *rate.Limiter
	fsw       *fsnotify.Watcher

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	started  bool
	running  bool
	rebuilds int
}

// NewWatcher creates a watcher for paths. Call Start to begin.
//
// # Inputs
//
//   - paths: Import files to load and watch.
//   - onRebuild: Called with every rebuild result. Must not be nil.
//   - opts: nil uses DefaultWatcherOptions.
//
// # Errors
//
//   - ErrNoFiles: paths is empty.
func NewWatcher(paths []string, onRebuild RebuildFunc, opts *WatcherOptions) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	if onRebuild == nil {
		return nil, fmt.Errorf("onRebuild must not be nil")
	}
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	watched := make(map[string]struct{}, len(paths))
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, &FileError{Path: p, Err: err}
		}
		abs = append(abs, a)
		watched[a] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		paths:     abs,
		watched:   watched,
		onRebuild: onRebuild,
		opts:      *opts,
		logger:    logger,
		limiter:   rate.NewLimiter(limit, 1),
		fsw:       fsw,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}, nil
}

// Start loads the files once, reports the result, and then watches for
// changes until ctx is cancelled or Stop is called.
//
// Errors:
//
//	A directory could not be watched. The initial load error is passed
//	to the RebuildFunc, not returned.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	dirs := make(map[string]struct{})
	for _, p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.rebuild(ctx)

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	go w.loop(ctx)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()

		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if running {
			<-w.stopped
		}
	})
}

// Rebuilds returns how many rebuilds have run, including the initial load.
func (w *Watcher) Rebuilds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rebuilds
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("import file changed",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
			)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))

		case <-timerC:
			timerC = nil
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.watched[abs]
	return ok
}

func (w *Watcher) rebuild(ctx context.Context) {
	start := time.Now()
	g, err := LoadFiles(ctx, w.paths, w.opts.Load...)

	w.mu.Lock()
	w.rebuilds++
	n := w.rebuilds
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("import graph rebuild failed",
			slog.Int("rebuild", n),
			slog.String("error", err.Error()),
		)
	} else {
		w.logger.Info("import graph rebuilt",
			slog.Int("rebuild", n),
			slog.Int("modules", g.CountModules()),
			slog.Int("imports", g.CountImports()),
			slog.Duration("duration", time.Since(start)),
		)
	}
	w.onRebuild(g, err)
}

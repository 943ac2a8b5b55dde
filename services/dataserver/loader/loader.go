// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package loader populates the cache from data files.
//
// # Description
//
// A data directory holds SNAPSHOT_*.jsonl and DELTA_*.jsonl files. At
// startup the loader applies every snapshot file, then every delta file,
// in lexical name order; afterwards it watches the directory and applies
// newly arrived delta files. Every file is applied through the cache's
// batched Apply, so readers observe either none or all of a file.
//
// Producers must publish files atomically: write to a temporary name and
// rename into place. The watcher reacts to create events only.
//
// # Record Format
//
// One JSON object per line:
//
//	{"mutation":"update","key":"k1","value":"v1"}
//	{"mutation":"delete","key":"k1"}
//	{"mutation":"update_set","key":"a","values":["x","y"]}
//	{"mutation":"delete_set","key":"a","values":["x"]}
package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/driftline/keyserve/services/dataserver/cache"
)

const (
	snapshotPrefix = "SNAPSHOT_"
	deltaPrefix    = "DELTA_"
	fileSuffix     = ".jsonl"
)

// record is one line of a data file.
type record struct {
	Mutation string   `json:"mutation"`
	Key      string   `json:"key"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

var mutationTypes = map[string]cache.MutationType{
	"update":     cache.MutationUpdate,
	"delete":     cache.MutationDelete,
	"update_set": cache.MutationUpdateSet,
	"delete_set": cache.MutationDeleteSet,
}

// Loader reads data files into a cache writer.
//
// # Thread Safety
//
// Safe for concurrent use; the applied-file set is mutex protected so
// startup loading and the watcher goroutine never double-apply a file.
type Loader struct {
	dir    string
	writer cache.Writer
	logger *slog.Logger

	mu      sync.Mutex
	applied map[string]struct{}
}

// NewLoader builds a loader over dir feeding w.
func NewLoader(dir string, w cache.Writer, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dir:     dir,
		writer:  w,
		logger:  logger,
		applied: map[string]struct{}{},
	}
}

// LoadExisting applies every snapshot file, then every delta file, in
// lexical name order. It fails on the first unreadable or malformed
// file; nothing from a failed file is applied.
func (l *Loader) LoadExisting(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}
	var snapshots, deltas []string
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
		case isDataFile(name, snapshotPrefix):
			snapshots = append(snapshots, name)
		case isDataFile(name, deltaPrefix):
			deltas = append(deltas, name)
		}
	}
	sort.Strings(snapshots)
	sort.Strings(deltas)

	for _, name := range append(snapshots, deltas...) {
		if err := l.applyFile(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Watch starts a goroutine applying delta files as they arrive in the
// data directory. It returns after the watch is established; the
// goroutine stops when ctx is cancelled. Apply failures are logged, not
// fatal: a bad delta must not take down serving.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch data dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) {
					continue
				}
				name := filepath.Base(event.Name)
				if !isDataFile(name, deltaPrefix) {
					continue
				}
				if err := l.applyFile(ctx, name); err != nil {
					l.logger.Error("failed to apply delta file",
						"file", name, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("data dir watcher error", "error", err)
			}
		}
	}()
	return nil
}

// applyFile parses one data file and installs it as a single cache
// generation. Files already applied are skipped. The name is reserved
// in the applied set up front so concurrent events cannot double-apply,
// and released again on failure so a retry event can pick the file up.
func (l *Loader) applyFile(ctx context.Context, name string) error {
	l.mu.Lock()
	if _, done := l.applied[name]; done {
		l.mu.Unlock()
		return nil
	}
	l.applied[name] = struct{}{}
	l.mu.Unlock()

	if err := l.loadFile(ctx, name); err != nil {
		l.mu.Lock()
		delete(l.applied, name)
		l.mu.Unlock()
		return err
	}
	return nil
}

// loadFile reads and applies one data file unconditionally.
func (l *Loader) loadFile(ctx context.Context, name string) error {
	path := filepath.Join(l.dir, name)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	var mutations []cache.Mutation
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return fmt.Errorf("%s line %d: %w", name, line, err)
		}
		mutationType, ok := mutationTypes[rec.Mutation]
		if !ok {
			return fmt.Errorf("%s line %d: unknown mutation %q", name, line, rec.Mutation)
		}
		if rec.Key == "" {
			return fmt.Errorf("%s line %d: missing key", name, line)
		}
		mutations = append(mutations, cache.Mutation{
			Type:   mutationType,
			Key:    rec.Key,
			Value:  rec.Value,
			Values: rec.Values,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	l.writer.Apply(ctx, mutations)
	l.logger.Info("applied data file", "file", name, "mutations", len(mutations))
	return nil
}

func isDataFile(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && strings.HasSuffix(name, fileSuffix)
}

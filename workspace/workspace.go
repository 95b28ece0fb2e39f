/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"chainguard.dev/issueforge/retry"
	"github.com/chainguard-dev/clog"
)

type digest [sha256.Size]byte

// renameFile and removeFile are seams for fault injection in tests.
var (
	renameFile = os.Rename
	removeFile = os.Remove
)

// Workspace is an exclusively-owned on-disk mirror of a file state. All
// mutation goes through Reconcile; the recorded digests are the source of
// truth for what is on disk, so comparisons never re-read files.
type Workspace struct {
	manager *Manager
	root    string

	mu     sync.Mutex
	hashes map[string]digest
}

// Root returns the absolute path of the workspace directory.
func (w *Workspace) Root() string { return w.root }

// Paths returns the tracked relative paths, sorted.
func (w *Workspace) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.hashes))
	for p := range w.hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ValidatePath reports whether a relative path stays inside root, returning
// the resolved absolute path. Absolute paths and any path whose cleaned form
// escapes the root are rejected.
func ValidatePath(root, path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", &PathError{Path: path}
	}
	fullPath := filepath.Join(root, filepath.Clean(path))
	rel, err := filepath.Rel(root, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", &PathError{Path: path}
	}
	return fullPath, nil
}

// Reconcile drives the directory toward target, a complete mapping of
// relative path to content: paths absent from target are removed. Every
// target path is validated before any write; a single offending path aborts
// the whole call with a PathError and no changes applied.
//
// Deltas are computed against the in-memory digests only. Each changed path
// is written to a temporary file and renamed into place; the digest entry is
// updated only once the write (or removal) is confirmed, so a failure
// mid-reconcile leaves the confirmed subset recorded and the rest reported
// via PartialError. Replaying the same target resumes the unapplied deltas.
func (w *Workspace) Reconcile(ctx context.Context, target map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := clog.FromContext(ctx)

	resolved := make(map[string]string, len(target))
	for path := range target {
		fullPath, err := ValidatePath(w.root, path)
		if err != nil {
			return err
		}
		resolved[path] = fullPath
	}

	var unapplied []string
	var firstErr error
	record := func(path string, err error) {
		unapplied = append(unapplied, path)
		if firstErr == nil {
			firstErr = err
		}
	}

	writes := 0
	for path, content := range target {
		want := digest(sha256.Sum256([]byte(content)))
		if have, ok := w.hashes[path]; ok && have == want {
			continue
		}
		if err := w.writeFile(ctx, resolved[path], content); err != nil {
			log.With("path", path).With("error", err).Warn("Write failed")
			record(path, err)
			continue
		}
		w.hashes[path] = want
		writes++
	}

	removals := 0
	for path := range w.hashes {
		if _, ok := target[path]; ok {
			continue
		}
		fullPath, err := ValidatePath(w.root, path)
		if err != nil {
			// Tracked paths were validated when written; treat a failure
			// here as unapplied rather than fatal.
			record(path, err)
			continue
		}
		if err := removeFile(fullPath); err != nil && !os.IsNotExist(err) {
			log.With("path", path).With("error", err).Warn("Removal failed")
			record(path, err)
			continue
		}
		delete(w.hashes, path)
		removals++
	}

	if len(unapplied) > 0 {
		sort.Strings(unapplied)
		return &PartialError{Unapplied: unapplied, Err: firstErr}
	}

	if writes > 0 || removals > 0 {
		log.With("writes", writes).With("removals", removals).Info("Reconciled workspace")
	}
	return nil
}

// writeFile writes content to fullPath via temp-file-then-rename, retrying
// transient failures with a small budget.
func (w *Workspace) writeFile(ctx context.Context, fullPath, content string) error {
	_, err := retry.Do(ctx, retry.IOConfig(), "workspace_write", nil, func() (struct{}, error) {
		return struct{}{}, writeAtomic(fullPath, content)
	})
	return err
}

func writeAtomic(fullPath, content string) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating parent dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reconcile-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := renameFile(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// Return wipes the workspace contents and places the directory back into the
// manager's pool. Once Return succeeds the workspace is invalid.
func (w *Workspace) Return(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.root == "" {
		return nil
	}

	if err := wipeDir(w.root); err != nil {
		clog.FromContext(ctx).With("root", w.root).With("error", err).
			Warn("Discarding workspace after wipe failure")
		os.RemoveAll(w.root)
		w.invalidate()
		return err
	}

	w.manager.releaseDir(w.root)
	w.invalidate()
	return nil
}

// Teardown removes the workspace directory outright, bypassing the pool.
// Safe to call after Return; it is then a no-op.
func (w *Workspace) Teardown() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.root == "" {
		return nil
	}
	err := os.RemoveAll(w.root)
	w.invalidate()
	return err
}

func (w *Workspace) invalidate() {
	w.root = ""
	w.hashes = nil
	w.manager = nil
}

// wipeDir removes every entry under dir, keeping dir itself.
func wipeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

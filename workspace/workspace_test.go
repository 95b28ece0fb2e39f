/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// countRenames wraps the rename seam and counts completed writes.
func countRenames(t *testing.T) *int {
	t.Helper()
	count := 0
	orig := renameFile
	renameFile = func(oldpath, newpath string) error {
		count++
		return orig(oldpath, newpath)
	}
	t.Cleanup(func() { renameFile = orig })
	return &count
}

func leaseTestWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	ctx := context.Background()

	mgr, err := NewManager("workspace-test")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	ws, err := mgr.Lease(ctx, files)
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	t.Cleanup(func() { ws.Teardown() })
	return ws
}

// readTree reads every file under root into a path->content map.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	return tree
}

func TestLeaseWritesSnapshot(t *testing.T) {
	snapshot := map[string]string{
		"a.py":         "x=1",
		"pkg/util.py":  "def f(): pass",
		"docs/read.md": "# hi",
	}
	ws := leaseTestWorkspace(t, snapshot)

	if diff := cmp.Diff(snapshot, readTree(t, ws.Root())); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}

	wantPaths := []string{"a.py", "docs/read.md", "pkg/util.py"}
	if diff := cmp.Diff(wantPaths, ws.Paths()); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	snapshot := map[string]string{"a.py": "x=1", "b.py": "y=2"}
	ws := leaseTestWorkspace(t, snapshot)

	writes := countRenames(t)
	if err := ws.Reconcile(ctx, snapshot); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if *writes != 0 {
		t.Fatalf("round-trip reconcile performed %d writes, want 0", *writes)
	}

	target := map[string]string{"a.py": "x=2", "b.py": "y=2"}
	if err := ws.Reconcile(ctx, target); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if *writes != 1 {
		t.Fatalf("minimal diff performed %d writes, want 1", *writes)
	}

	if err := ws.Reconcile(ctx, target); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if *writes != 1 {
		t.Fatalf("repeated reconcile performed %d extra writes, want 0", *writes-1)
	}
}

func TestReconcileRemovesOmittedPaths(t *testing.T) {
	ctx := context.Background()
	ws := leaseTestWorkspace(t, map[string]string{"keep.py": "k", "gone.py": "g"})

	if err := ws.Reconcile(ctx, map[string]string{"keep.py": "k"}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if _, err := os.Stat(filepath.Join(ws.Root(), "gone.py")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected gone.py removed, stat err=%v", err)
	}
	if diff := cmp.Diff([]string{"keep.py"}, ws.Paths()); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileRejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	snapshot := map[string]string{"a.py": "x=1"}
	ws := leaseTestWorkspace(t, snapshot)

	before := readTree(t, ws.Root())

	for _, path := range []string{"../outside.txt", "/etc/passwd", "sub/../../esc.txt", ""} {
		target := map[string]string{"a.py": "changed", path: "nope"}
		err := ws.Reconcile(ctx, target)
		var pathErr *PathError
		if !errors.As(err, &pathErr) {
			t.Fatalf("path %q: err = %v, want PathError", path, err)
		}
	}

	// None of the pending changes may have been applied.
	if diff := cmp.Diff(before, readTree(t, ws.Root())); diff != "" {
		t.Fatalf("workspace changed despite PathError (-want +got):\n%s", diff)
	}
}

func TestReconcilePartialFailureResumes(t *testing.T) {
	ctx := context.Background()
	ws := leaseTestWorkspace(t, map[string]string{"a.py": "x=1", "b.py": "y=1"})

	// Fail every write to b.py; a.py goes through.
	orig := renameFile
	renameFile = func(oldpath, newpath string) error {
		if filepath.Base(newpath) == "b.py" {
			return errors.New("disk full")
		}
		return orig(oldpath, newpath)
	}
	t.Cleanup(func() { renameFile = orig })

	target := map[string]string{"a.py": "x=2", "b.py": "y=2"}
	err := ws.Reconcile(ctx, target)
	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialError", err)
	}
	if diff := cmp.Diff([]string{"b.py"}, partial.Unapplied); diff != "" {
		t.Fatalf("unapplied mismatch (-want +got):\n%s", diff)
	}

	// The confirmed write is recorded; retrying resumes only b.py.
	renameFile = orig
	writes := countRenames(t)
	if err := ws.Reconcile(ctx, target); err != nil {
		t.Fatalf("Reconcile retry: %v", err)
	}
	if *writes != 1 {
		t.Fatalf("retry performed %d writes, want 1", *writes)
	}

	if diff := cmp.Diff(target, readTree(t, ws.Root())); diff != "" {
		t.Fatalf("tree mismatch after retry (-want +got):\n%s", diff)
	}
}

func TestValidatePath(t *testing.T) {
	root := t.TempDir()

	for _, ok := range []string{"a.py", "pkg/a.py", "deep/nested/dir/file.txt"} {
		if _, err := ValidatePath(root, ok); err != nil {
			t.Fatalf("ValidatePath(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "..", "../x", "/abs/path", "a/../../x"} {
		if _, err := ValidatePath(root, bad); err == nil {
			t.Fatalf("ValidatePath(%q): expected error", bad)
		}
	}
}

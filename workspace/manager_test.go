/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestNewManagerRejectsEmptyIdentity(t *testing.T) {
	if _, err := NewManager("  "); err == nil {
		t.Fatal("expected error for blank identity")
	}
}

func TestLeaseLifecycle(t *testing.T) {
	ctx := context.Background()

	mgr, err := NewManager("lifecycle-test")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	ws, err := mgr.Lease(ctx, map[string]string{"a.py": "x=1"})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	firstRoot := ws.Root()

	if err := ws.Return(ctx); err != nil {
		t.Fatalf("Return: %v", err)
	}
	if ws.Root() != "" {
		t.Fatal("workspace still valid after Return")
	}

	// The pooled directory is reused and arrives empty before hydration.
	ws2, err := mgr.Lease(ctx, map[string]string{"b.py": "y=2"})
	if err != nil {
		t.Fatalf("second Lease: %v", err)
	}
	defer ws2.Teardown()

	if ws2.Root() != firstRoot {
		t.Fatalf("pooled dir not reused: got %s, want %s", ws2.Root(), firstRoot)
	}
	if _, err := os.Stat(ws2.Root() + "/a.py"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale file survived Return, stat err=%v", err)
	}
	if _, err := os.Stat(ws2.Root() + "/b.py"); err != nil {
		t.Fatalf("hydrated file missing: %v", err)
	}
}

func TestTeardownRemovesDirectory(t *testing.T) {
	ctx := context.Background()

	mgr, err := NewManager("teardown-test")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	ws, err := mgr.Lease(ctx, map[string]string{"a.py": "x=1"})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	root := ws.Root()

	if err := ws.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("directory survived Teardown, stat err=%v", err)
	}

	// Teardown after Teardown (or Return) is a no-op.
	if err := ws.Teardown(); err != nil {
		t.Fatalf("second Teardown: %v", err)
	}
}

func TestCloseRemovesPooledDirectories(t *testing.T) {
	ctx := context.Background()

	mgr, err := NewManager("close-test")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ws, err := mgr.Lease(ctx, map[string]string{"a.py": "x=1"})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	root := ws.Root()
	if err := ws.Return(ctx); err != nil {
		t.Fatalf("Return: %v", err)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pooled directory survived Close, stat err=%v", err)
	}
}

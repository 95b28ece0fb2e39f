/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"
)

const workspaceDirPrefix = "issueforge-workspace-"

// Manager owns a pool of workspace directories that can be leased to callers
// for a single session. Each lease is hydrated from a snapshot and must be
// returned (or torn down) when the session ends. Directories are taken from
// the front of the pool while Return appends to the back, so recently
// returned directories are not immediately reused.
type Manager struct {
	identity string

	mu        sync.Mutex
	available []string
}

// NewManager constructs a Manager. Identity names the automation for log
// attribution and the temp directory prefix.
func NewManager(identity string) (*Manager, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, errors.New("identity cannot be empty")
	}
	return &Manager{identity: identity}, nil
}

// Lease acquires a directory, writes every file in the snapshot, and returns
// a Workspace tracking a digest per path. On any initialization failure the
// directory is removed entirely; no partial workspace is left behind.
func (m *Manager) Lease(ctx context.Context, snapshot map[string]string) (*Workspace, error) {
	dir, pooled, err := m.acquireDir()
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		manager: m,
		root:    dir,
		hashes:  make(map[string]digest, len(snapshot)),
	}

	clog.FromContext(ctx).With("root", dir).
		With("files", len(snapshot)).
		With("pooled", pooled).
		Info("Initializing workspace")

	if err := ws.Reconcile(ctx, snapshot); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}

	return ws, nil
}

// acquireDir returns a pooled directory or creates a new one.
func (m *Manager) acquireDir() (string, bool, error) {
	m.mu.Lock()
	if n := len(m.available); n > 0 {
		dir := m.available[0]
		m.available = m.available[1:]
		m.mu.Unlock()
		return dir, true, nil
	}
	m.mu.Unlock()

	dir, err := os.MkdirTemp("", workspaceDirPrefix+m.identity+"-")
	if err != nil {
		return "", false, fmt.Errorf("creating workspace dir: %w", err)
	}
	return dir, false, nil
}

// releaseDir returns an emptied directory to the back of the pool.
func (m *Manager) releaseDir(dir string) {
	m.mu.Lock()
	m.available = append(m.available, dir)
	m.mu.Unlock()
}

// Close removes all pooled directories. Leased workspaces are unaffected;
// they clean up via Return or Teardown.
func (m *Manager) Close() error {
	m.mu.Lock()
	dirs := m.available
	m.available = nil
	m.mu.Unlock()

	var errs []error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

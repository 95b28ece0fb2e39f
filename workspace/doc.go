/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workspace provides pooled on-disk mirrors of a file state, tailored
// for one-session-per-issue workloads. A Manager owns a pool of directories
// and exposes Workspace handles that:
//   - Hydrate a snapshot into an exclusively-owned directory, recording a
//     SHA-256 digest per path.
//   - Offer Reconcile, which drives the directory toward a target file state
//     with the minimal set of writes, comparing digests in memory rather than
//     re-reading disk.
//   - Reject any path that would resolve outside the workspace root before a
//     single byte is written.
//
// Callers typically lease a workspace per session, reconcile it as edits
// arrive, and finally Return it to reset and reuse the directory. Reconcile
// is idempotent: replaying the same target performs zero additional writes,
// which makes recovery from partial failures a plain retry.
package workspace

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package snapshot captures the file state of a repository ref as an
// in-memory path-to-content mapping. The GitLoader clones the ref into
// memory (no on-disk checkout) and walks the head tree, so the snapshot
// reflects exactly one commit.
package snapshot

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package snapshot

import (
	"maps"
	"sort"
)

// Snapshot maps repository-relative paths (slash-separated) to file contents.
type Snapshot map[string]string

// Paths returns the snapshot's paths, sorted.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return maps.Clone(s)
}

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"fmt"
	"strings"
)

// PathError reports a target path that would resolve outside the workspace
// root. It is fatal for the session: no changes from the offending call are
// applied.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q escapes workspace root", e.Path)
}

// PartialError reports a reconcile that confirmed some deltas but could not
// apply others. The hash map reflects only the confirmed writes, so retrying
// with the same target resumes exactly the unapplied paths.
type PartialError struct {
	// Unapplied lists the paths whose writes or removals did not complete,
	// sorted.
	Unapplied []string
	// Err is the first underlying failure.
	Err error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("reconcile left %d paths unapplied (%s): %v",
		len(e.Unapplied), strings.Join(e.Unapplied, ", "), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

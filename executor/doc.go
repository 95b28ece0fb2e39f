/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package executor applies model actions to a leased workspace. It folds
// edit deltas into a desired file state, reconciles the workspace toward it,
// runs the test suite after every edit, and refuses to publish until the
// most recent run passed.
package executor

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package publisher turns a workspace file state into a GitHub pull request.
// Each publish commits the complete file state as a single tree on a head
// branch and upserts the PR for that branch, so repeating a publish with the
// same inputs converges instead of stacking duplicate commits or PRs.
package publisher

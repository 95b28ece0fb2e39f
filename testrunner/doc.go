/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testrunner executes a project's test command inside a workspace
// directory and reports the outcome. A failing or timed-out run is a normal
// Result, not an error; errors are reserved for being unable to run the
// command at all.
package testrunner

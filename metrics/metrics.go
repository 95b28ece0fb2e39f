/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics exposes Prometheus counters for issue sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sessions counts completed sessions by terminal state.
	Sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "issueforge_sessions_total",
		Help: "Completed issue sessions by terminal state.",
	}, []string{"state"})

	// Attempts counts model attempts by result.
	Attempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "issueforge_attempts_total",
		Help: "Model attempts by result.",
	}, []string{"result"})

	// PublishedPRs counts pull requests opened or updated.
	PublishedPRs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issueforge_published_prs_total",
		Help: "Pull requests opened or updated by submits.",
	})
)

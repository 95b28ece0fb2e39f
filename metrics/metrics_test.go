/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(Attempts.WithLabelValues("tests_failed"))
	Attempts.WithLabelValues("tests_failed").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Attempts.WithLabelValues("tests_failed")))

	before = testutil.ToFloat64(Sessions.WithLabelValues("succeeded"))
	Sessions.WithLabelValues("succeeded").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Sessions.WithLabelValues("succeeded")))

	before = testutil.ToFloat64(PublishedPRs)
	PublishedPRs.Inc()
	require.Equal(t, before+1, testutil.ToFloat64(PublishedPRs))
}

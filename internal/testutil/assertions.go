package testutil

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/buildgrid/internal/metrics"
	"github.com/stretchr/testify/require"
)

// Actions returns how many primitive actions of kind were performed.
func Actions(m *metrics.Metrics, kind string) int {
	return int(testutil.ToFloat64(m.Actions().WithLabelValues(kind)))
}

// TotalActions sums the action counter over the given kinds, or over every
// known kind when none are given.
func TotalActions(m *metrics.Metrics, kinds ...string) int {
	if len(kinds) == 0 {
		kinds = []string{"spawn", "touch", "copy", "install", "remove", "mkpath", "write"}
	}
	total := 0
	for _, k := range kinds {
		total += Actions(m, k)
	}
	return total
}

// AssertLogged checks that the captured log output contains every fragment.
func AssertLogged(t *testing.T, logs *SafeBuffer, fragments ...string) {
	t.Helper()
	out := logs.String()
	for _, f := range fragments {
		require.True(t, strings.Contains(out, f), "expected log output to contain %q", f)
	}
}

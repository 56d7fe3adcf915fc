package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveTask("rule", "complete")
	m.ObserveAction("touch")
	m.ObserveAction("touch")
	m.ObserveCommand(1, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks().WithLabelValues("rule", "complete")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Actions().WithLabelValues("touch")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.commands))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveTask("rule", "failed")
		m.ObserveAction("copy")
		m.ObserveCommand(0, time.Second)
	})
	assert.Nil(t, m.Registry())
	assert.Nil(t, m.Actions())
	assert.Nil(t, m.Tasks())
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAction("write")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `buildgrid_actions_total{action="write"} 1`)
}

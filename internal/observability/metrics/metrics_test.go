package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AccessDecision("allow", "")
		m.GeoLookup("primary", ResultError, errors.New("x"))
		m.Teardown(true)
		m.UpstreamCall(500)
		m.ObserveHTTP(http.MethodGet, 200, time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AccessDecision("redirect", "unauthenticated")
	m.AccessDecision("redirect", "unauthenticated")
	m.Teardown(true)
	m.Teardown(false)
	m.Teardown(false)

	assert.InDelta(t, 2, testutil.ToFloat64(m.accessDecisions.WithLabelValues("redirect", "unauthenticated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.teardowns.WithLabelValues("run")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.teardowns.WithLabelValues("deduplicated")), 0)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(nil)
	m.UpstreamCall(401)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `console_upstream_requests_total{code="401"} 1`)
}

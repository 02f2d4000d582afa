package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	m := New()

	m.MessageSent("ok")
	m.MessageSent("ok")
	m.MessageSent("rate_limited")
	m.TitleInferred(true)
	m.TitleInferred(false)
	m.ShareCreated()
	m.SharesSwept("delete", 3)
	m.SharesSwept("delete", 0)
	m.ObserveGeneration("reply", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.titles.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sharesCreated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sharesSwept.WithLabelValues("delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationErrors.WithLabelValues("reply")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageSent("ok")
		m.TitleInferred(true)
		m.ShareCreated()
		m.SharesSwept("revoke", 1)
		m.ObserveGeneration("title", time.Millisecond, nil)
		m.ObserveHTTP("GET", "/api/chats", 200, time.Millisecond)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/chats", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `converse_http_requests_total{method="GET",route="/api/chats",status="200"} 1`)
}

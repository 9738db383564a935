package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if labels[l.GetName()] != l.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond, 0, 10)
	m.RecordHTTPRequest("GET", "/stream", "429", time.Millisecond, 0, 10)
	m.RecordChange(true)
	m.RecordChange(true)
	m.RecordChange(false)
	m.RecordInputEvent("dispatched")
	m.RecordInputEvent("dropped")
	m.SetConnectionsActive(3)
	m.SetWindowsActive(7)

	s := m.Snapshot()
	assert.EqualValues(t, 2, s.TotalRequests)
	assert.EqualValues(t, 1, s.TotalErrors)
	assert.EqualValues(t, 2, s.ChangesSucceeded)
	assert.EqualValues(t, 1, s.ChangesFailed)
	assert.EqualValues(t, 1, s.InputDropped)
	assert.EqualValues(t, 3, s.ActiveConnections)
	assert.EqualValues(t, 7, s.ActiveWindows)

	assert.Equal(t, 2.0, counterValue(t, m, "windowserver_changes_total", map[string]string{"result": "success"}))
	assert.Equal(t, 1.0, counterValue(t, m, "windowserver_input_events_total", map[string]string{"outcome": "dropped"}))
}

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordChange(true)
	assert.Zero(t, counterValue(t, b, "windowserver_changes_total", map[string]string{"result": "success"}))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/displays/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/displays/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/displays/2", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, counterValue(t, m, "windowserver_http_requests_total",
		map[string]string{"method": "GET", "path": "/displays/:id", "status": "204"}))
	assert.Equal(t, 1.0, counterValue(t, m, "windowserver_http_requests_total",
		map[string]string{"method": "GET", "path": "unmatched", "status": "404"}))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	m.RecordWSMessage("in", "new_window")
	NewTimer(m, "new_window").Stop()
	NewTimer(nil, "ignored").Stop()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `windowserver_ws_messages_total{direction="in",type="new_window"} 1`))
	assert.Contains(t, body, "windowserver_loop_task_duration_seconds_count")
	assert.Contains(t, body, "windowserver_uptime_seconds")
}

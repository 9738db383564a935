package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Tree metrics
	ConnectionsActive prometheus.Gauge
	WindowsActive     prometheus.Gauge
	ChangesTotal      *prometheus.CounterVec
	WMChangesInFlight prometheus.Gauge
	InputEvents       *prometheus.CounterVec
	LoopTaskDuration  *prometheus.HistogramVec
	PendingClients    prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveConnections int64   `json:"active_connections"`
	ActiveWindows     int64   `json:"active_windows"`
	ChangesSucceeded  int64   `json:"changes_succeeded"`
	ChangesFailed     int64   `json:"changes_failed"`
	InputDropped      int64   `json:"input_dropped"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector with its own registry, so several
// servers can live in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowserver_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowserver_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowserver_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowserver_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Tree metrics
		ConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowserver_connections_active",
				Help: "Number of attached tree connections",
			},
		),
		WindowsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowserver_windows_active",
				Help: "Number of windows in the tree, display roots included",
			},
		),
		ChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowserver_changes_total",
				Help: "Client change requests by completion result",
			},
			[]string{"result"},
		),
		WMChangesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowserver_wm_changes_in_flight",
				Help: "Client changes waiting on a window manager",
			},
		),
		InputEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowserver_input_events_total",
				Help: "Input events by outcome",
			},
			[]string{"outcome"},
		),
		LoopTaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowserver_loop_task_duration_seconds",
				Help:    "Time spent running a transport request on the tree loop",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"type"},
		),
		PendingClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowserver_pending_clients",
				Help: "Clients waiting to be embedded",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windowserver_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowserver_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "windowserver_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordChange records a change completion sent to a client
func (m *Metrics) RecordChange(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.ChangesTotal.WithLabelValues(result).Inc()

	m.mu.Lock()
	if success {
		m.snapshot.ChangesSucceeded++
	} else {
		m.snapshot.ChangesFailed++
	}
	m.mu.Unlock()
}

// RecordInputEvent records an input event outcome: dispatched, queued or
// dropped.
func (m *Metrics) RecordInputEvent(outcome string) {
	m.InputEvents.WithLabelValues(outcome).Inc()
	if outcome == "dropped" {
		m.mu.Lock()
		m.snapshot.InputDropped++
		m.mu.Unlock()
	}
}

// RecordLoopTask records how long one request held the tree loop
func (m *Metrics) RecordLoopTask(msgType string, duration time.Duration) {
	m.LoopTaskDuration.WithLabelValues(msgType).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetConnectionsActive sets the number of attached connections
func (m *Metrics) SetConnectionsActive(count int) {
	m.ConnectionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveConnections = int64(count)
	m.mu.Unlock()
}

// SetWindowsActive sets the number of windows in the tree
func (m *Metrics) SetWindowsActive(count int) {
	m.WindowsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveWindows = int64(count)
	m.mu.Unlock()
}

// SetWindowManagerChangesInFlight sets the number of routed changes
func (m *Metrics) SetWindowManagerChangesInFlight(count int) {
	m.WMChangesInFlight.Set(float64(count))
}

// SetPendingClients sets the number of clients waiting for an embed
func (m *Metrics) SetPendingClients(count int) {
	m.PendingClients.Set(float64(count))
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

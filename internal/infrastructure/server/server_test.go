package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/logging"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	return cfg
}

// start serves srv on a random port until the test ends.
func start(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return ln.Addr().String()
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(cfg, logging.Nop())
	require.NoError(t, err)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		require.NoError(t, sonic.UnmarshalString(buf.String(), out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	addr := start(t, newTestServer(t, testConfig()))

	var body map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/health", &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "metrics")
}

func TestDisplaysFromLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "displays.yaml")
	layout := "displays:\n  - width: 1280\n    height: 720\n  - width: 2560\n    height: 1440\n    scale: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(layout), 0o600))

	cfg := testConfig()
	cfg.Display.File = path
	addr := start(t, newTestServer(t, cfg))

	var body struct {
		Displays []DisplayInfo `json:"displays"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/displays", &body))
	require.Len(t, body.Displays, 2)
	assert.Equal(t, int64(1), body.Displays[0].ID)
	assert.Equal(t, 1280, body.Displays[0].Metrics.Width)
	assert.Equal(t, 2.0, body.Displays[1].Metrics.DeviceScaleFactor)
	assert.Zero(t, body.Displays[0].WindowManager)
}

func TestDisplaysGivesUpWhenLoopIsBusy(t *testing.T) {
	srv := newTestServer(t, testConfig())

	// Nothing runs the loop yet, so the request times out.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/displays", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	loopCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go srv.Loop().Run(loopCtx)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/displays", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Displays []DisplayInfo `json:"displays"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Displays, 1)
}

func TestBadLayoutFails(t *testing.T) {
	cfg := testConfig()
	cfg.Display.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(cfg, logging.Nop())
	assert.Error(t, err)
}

func TestStreamAndMetrics(t *testing.T) {
	addr := start(t, newTestServer(t, testConfig()))

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/stream?role=wm&display=1", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, sonic.Unmarshal(data, &frame))
	assert.Equal(t, "embed", frame["type"])

	var body struct {
		Displays []DisplayInfo `json:"displays"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/displays", &body))
	require.Len(t, body.Displays, 1)
	assert.NotZero(t, body.Displays[0].WindowManager)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "windowserver_connections_active 1")
}

func TestRunRejectsBadAddress(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "not-a-port"
	srv := newTestServer(t, cfg)
	assert.Error(t, srv.Run(context.Background()))
}

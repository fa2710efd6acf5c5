package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemix/lagwatch/internal/alerting"
	"github.com/wemix/lagwatch/internal/config"
	"github.com/wemix/lagwatch/internal/height"
	"github.com/wemix/lagwatch/internal/metrics"
	"github.com/wemix/lagwatch/internal/monitor"
	"github.com/wemix/lagwatch/pkg/logger"
)

// fakeStatus is a StatusProvider with canned answers
type fakeStatus struct {
	last     *monitor.CycleResult
	state    alerting.State
	stateErr error
}

func (f *fakeStatus) LastResult() *monitor.CycleResult   { return f.last }
func (f *fakeStatus) LoadState() (alerting.State, error) { return f.state, f.stateErr }
func (f *fakeStatus) Thresholds() alerting.Thresholds {
	return alerting.NewThresholds(10, 50, 100, 500, 1000)
}

// setupTestServer creates a server in test mode
func setupTestServer(t *testing.T, status StatusProvider, jwtSecret string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.APIConfig{
		Host:        "127.0.0.1",
		Port:        0,
		CORSOrigins: []string{"https://ops.example.com"},
		JWTSecret:   jwtSecret,
	}
	return NewServer(cfg, status, metrics.NewCollector(), "test", logger.NewTestLogger())
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func sampleResult() *monitor.CycleResult {
	diff := int64(15)
	return &monitor.CycleResult{
		Timestamp:  time.Now(),
		Outcome:    monitor.OutcomeOK,
		Gap:        &height.Gap{QuorumHeight: 1015, NodeHeight: 1000, Diff: 15},
		Level:      1,
		Transition: alerting.TransitionEscalation.String(),
		Message:    "Alert Level 1: Block height difference is 15 blocks!",
		Notified:   1,
		State:      alerting.State{PreviousHeightDiff: &diff, LastAlertLevel: 1},
		Persisted:  true,
	}
}

func TestHealthHandler(t *testing.T) {
	// Arrange
	server := setupTestServer(t, nil, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	// Act
	w := serve(server, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name   string
		status StatusProvider
		want   int
	}{
		{name: "no monitor", status: nil, want: http.StatusServiceUnavailable},
		{name: "no cycle yet", status: &fakeStatus{}, want: http.StatusServiceUnavailable},
		{name: "after first cycle", status: &fakeStatus{last: sampleResult()}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, tt.status, "")
			w := serve(server, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestGetStatus(t *testing.T) {
	// Arrange
	status := &fakeStatus{last: sampleResult(), state: sampleResult().State}
	server := setupTestServer(t, status, "")

	// Act
	w := serve(server, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Version   string               `json:"version"`
		LastCycle *monitor.CycleResult `json:"last_cycle"`
		State     alerting.State       `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Version)
	require.NotNil(t, body.LastCycle)
	assert.Equal(t, monitor.OutcomeOK, body.LastCycle.Outcome)
	assert.Equal(t, int64(15), body.LastCycle.Gap.Diff)
	assert.Equal(t, alerting.Level(1), body.State.LastAlertLevel)
	require.NotNil(t, body.State.PreviousHeightDiff)
	assert.Equal(t, int64(15), *body.State.PreviousHeightDiff)
}

func TestGetStatus_StateError(t *testing.T) {
	server := setupTestServer(t, &fakeStatus{stateErr: errors.New("corrupt")}, "")

	w := serve(server, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetThresholds(t *testing.T) {
	server := setupTestServer(t, &fakeStatus{}, "")

	w := serve(server, httptest.NewRequest(http.MethodGet, "/api/v1/thresholds", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Thresholds map[string]int64 `json:"thresholds"`
		Ascending  bool             `json:"ascending"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]int64{
		"level_1": 10, "level_2": 50, "level_3": 100, "level_4": 500, "level_5": 1000,
	}, body.Thresholds)
	assert.True(t, body.Ascending)
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t, nil, "")

	w := serve(server, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lagwatch_alert_level")
}

func TestCORSHeaders(t *testing.T) {
	server := setupTestServer(t, nil, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")

	w := serve(server, req)

	assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthentication(t *testing.T) {
	const secret = "test-secret"
	server := setupTestServer(t, &fakeStatus{last: sampleResult()}, secret)
	auth := NewAuthMiddleware(secret, logger.NewTestLogger())

	valid, err := auth.GenerateJWT("ops", time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateJWT("ops", -time.Hour)
	require.NoError(t, err)
	foreign, err := NewAuthMiddleware("other-secret", logger.NewTestLogger()).GenerateJWT("ops", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing token", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + valid, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/thresholds", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(server, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	// probes stay public
	w := serve(server, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	// Arrange
	server := setupTestServer(t, &fakeStatus{}, "")

	// Act
	require.NoError(t, server.Start())
	addr := server.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "healthy"))
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_StopWithoutStart(t *testing.T) {
	server := setupTestServer(t, nil, "")
	assert.NoError(t, server.Stop(context.Background()))
}

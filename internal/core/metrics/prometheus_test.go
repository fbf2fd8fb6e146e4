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

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
)

func TestRecordMutation(t *testing.T) {
	p := NewPrometheusCollector(&MetricsConfig{Enabled: true, Prefix: "test"})

	p.RecordMutation("toggle_device", nil)
	p.RecordMutation("toggle_device", nil)
	p.RecordMutation("toggle_device", &home.NotFoundError{Kind: home.KindDevice, Key: "x"})
	p.RecordMutation("delete_room", &home.AuthorizationError{Operation: "delete_room"})
	p.RecordMutation("create_room", &home.ValidationError{Field: "name"})
	p.RecordMutation("create_room", &home.ExternalServiceError{Service: "store", Err: errors.New("disk full")})

	assert.Equal(t, 2.0, testutil.ToFloat64(p.mutations.WithLabelValues("toggle_device", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mutations.WithLabelValues("toggle_device", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mutations.WithLabelValues("delete_room", "forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mutations.WithLabelValues("create_room", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mutations.WithLabelValues("create_room", "error")))
}

func TestRecordWebSocketConnection(t *testing.T) {
	p := NewPrometheusCollector(nil)

	p.RecordWebSocketConnection("connect")
	p.RecordWebSocketConnection("connect")
	p.RecordWebSocketConnection("disconnect")

	assert.Equal(t, 1.0, testutil.ToFloat64(p.websocketConnections))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.websocketEvents.WithLabelValues("connect")))
}

func TestRecordLLMRequest(t *testing.T) {
	p := NewPrometheusCollector(nil)

	p.RecordLLMRequest("gemini", true, 300*time.Millisecond, 42)
	p.RecordLLMRequest("gemini", false, time.Second, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.llmRequests.WithLabelValues("gemini", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.llmRequests.WithLabelValues("gemini", "false")))
	assert.Equal(t, 42.0, testutil.ToFloat64(p.llmTokensUsed.WithLabelValues("gemini")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	p := NewPrometheusCollector(&MetricsConfig{Enabled: true, Prefix: "panel"})
	p.RecordHTTPRequest("GET", "/api/v1/devices", 200, 5*time.Millisecond)
	p.RecordVoiceCommand("device", true)
	p.RecordSystemResource(12.5, 40, 70)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `panel_http_requests_total{method="GET",path="/api/v1/devices",status="200"} 1`)
	assert.Contains(t, body, `panel_voice_commands_total{action="device",executed="true"} 1`)
	assert.Contains(t, body, "panel_system_cpu_usage_percent 12.5")
	assert.Contains(t, body, "go_goroutines")
}

package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
)

// PrometheusCollector implements MetricsCollector using Prometheus metrics
type PrometheusCollector struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// HTTP Metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	websocketEvents      *prometheus.CounterVec

	// Home Metrics
	mutations     *prometheus.CounterVec
	voiceCommands *prometheus.CounterVec

	// LLM Metrics
	llmRequests     *prometheus.CounterVec
	llmTokensUsed   *prometheus.CounterVec
	llmResponseTime *prometheus.HistogramVec

	// System Metrics
	systemCPU    prometheus.Gauge
	systemMemory prometheus.Gauge
	systemDisk   prometheus.Gauge
}

// NewPrometheusCollector creates a collector with its own registry, which
// also carries the Go runtime and process collectors
func NewPrometheusCollector(config *MetricsConfig) *PrometheusCollector {
	if config == nil {
		config = &MetricsConfig{
			Enabled: true,
			Prefix:  "home_panel",
		}
	}

	prefix := config.Prefix
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	collector := &PrometheusCollector{
		config:   config,
		registry: registry,
	}

	// Initialize HTTP metrics
	collector.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	collector.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Initialize WebSocket metrics
	collector.websocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	collector.websocketEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_websocket_events_total",
			Help: "Total number of WebSocket connects and disconnects",
		},
		[]string{"action"},
	)

	// Initialize Home metrics
	collector.mutations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_mutations_total",
			Help: "Total number of state mutations by outcome",
		},
		[]string{"operation", "result"},
	)

	collector.voiceCommands = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_voice_commands_total",
			Help: "Total number of voice commands by parsed action",
		},
		[]string{"action", "executed"},
	)

	// Initialize LLM metrics
	collector.llmRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_llm_requests_total",
			Help: "Total number of LLM requests",
		},
		[]string{"provider", "success"},
	)

	collector.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_llm_tokens_used_total",
			Help: "Total number of LLM tokens used",
		},
		[]string{"provider"},
	)

	collector.llmResponseTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_llm_response_time_seconds",
			Help:    "LLM response time in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"provider"},
	)

	// Initialize System metrics
	collector.systemCPU = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_system_cpu_usage_percent",
			Help: "System CPU usage percentage",
		},
	)

	collector.systemMemory = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_system_memory_usage_percent",
			Help: "System memory usage percentage",
		},
	)

	collector.systemDisk = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_system_disk_usage_percent",
			Help: "System disk usage percentage",
		},
	)

	return collector
}

// Handler serves the registry in the Prometheus exposition format
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// RecordHTTPRequest records HTTP request metrics
func (p *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWebSocketConnection records WebSocket connection events
func (p *PrometheusCollector) RecordWebSocketConnection(action string) {
	p.websocketEvents.WithLabelValues(action).Inc()
	switch action {
	case "connect":
		p.websocketConnections.Inc()
	case "disconnect":
		p.websocketConnections.Dec()
	}
}

// RecordMutation counts a committed or failed state mutation. It satisfies
// home.Recorder.
func (p *PrometheusCollector) RecordMutation(operation string, err error) {
	p.mutations.WithLabelValues(operation, mutationResult(err)).Inc()
}

func mutationResult(err error) string {
	var (
		nf  *home.NotFoundError
		ve  *home.ValidationError
		aze *home.AuthorizationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &aze):
		return "forbidden"
	default:
		return "error"
	}
}

// RecordVoiceCommand counts a handled voice command
func (p *PrometheusCollector) RecordVoiceCommand(action string, executed bool) {
	p.voiceCommands.WithLabelValues(action, strconv.FormatBool(executed)).Inc()
}

// RecordLLMRequest records LLM request metrics
func (p *PrometheusCollector) RecordLLMRequest(provider string, success bool, duration time.Duration, tokens int) {
	p.llmRequests.WithLabelValues(provider, strconv.FormatBool(success)).Inc()
	p.llmResponseTime.WithLabelValues(provider).Observe(duration.Seconds())
	if tokens > 0 {
		p.llmTokensUsed.WithLabelValues(provider).Add(float64(tokens))
	}
}

// RecordSystemResource records system resource metrics
func (p *PrometheusCollector) RecordSystemResource(cpu, memory, disk float64) {
	p.systemCPU.Set(cpu)
	p.systemMemory.Set(memory)
	p.systemDisk.Set(disk)
}

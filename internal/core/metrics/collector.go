package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordWebSocketConnection(action string)
	RecordMutation(operation string, err error)
	RecordLLMRequest(provider string, success bool, duration time.Duration, tokens int)
	RecordVoiceCommand(action string, executed bool)
	RecordSystemResource(cpu, memory, disk float64)
}

// MetricsConfig contains configuration for metrics collection
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

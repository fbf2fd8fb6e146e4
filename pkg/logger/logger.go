package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RouteStats aggregates successful requests for one method and route
type RouteStats struct {
	Count      int           `json:"count"`
	TotalTime  time.Duration `json:"total_time"`
	MinLatency time.Duration `json:"min_latency"`
	MaxLatency time.Duration `json:"max_latency"`
}

// Options configures a logger
type Options struct {
	Level     string
	Format    string
	Output    io.Writer
	BatchSize int
}

// BatchLogger wraps logrus.Logger and folds successful requests into periodic summaries
type BatchLogger struct {
	*logrus.Logger
	mu        sync.Mutex
	routes    map[string]*RouteStats
	pending   int
	batchSize int
}

// New creates a logger from options. Empty fields fall back to LOG_LEVEL, JSON output and stdout.
func New(opts Options) *BatchLogger {
	log := logrus.New()

	switch strings.ToLower(opts.Format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
			},
		})
	}

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	log.SetLevel(ParseLevel(level))

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &BatchLogger{
		Logger:    log,
		routes:    make(map[string]*RouteStats),
		batchSize: batchSize,
	}
}

// ParseLevel maps a level name to a logrus level, defaulting to info
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// LogRequest records one HTTP request. 2xx responses are batched, everything else is logged at once.
func (bl *BatchLogger) LogRequest(method, route string, status int, latency time.Duration, fields logrus.Fields) {
	if status >= 200 && status < 300 {
		bl.record(method+" "+route, latency)
		return
	}

	entry := bl.WithFields(fields)
	switch {
	case status >= 500:
		entry.Errorf("%s %s -> %d (%v)", method, route, status, latency)
	case status >= 400:
		entry.Warnf("%s %s -> %d (%v)", method, route, status, latency)
	default:
		entry.Infof("%s %s -> %d (%v)", method, route, status, latency)
	}
}

func (bl *BatchLogger) record(key string, latency time.Duration) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	stats, ok := bl.routes[key]
	if !ok {
		stats = &RouteStats{MinLatency: latency, MaxLatency: latency}
		bl.routes[key] = stats
	}
	stats.Count++
	stats.TotalTime += latency
	if latency < stats.MinLatency {
		stats.MinLatency = latency
	}
	if latency > stats.MaxLatency {
		stats.MaxLatency = latency
	}

	bl.pending++
	if bl.pending >= bl.batchSize {
		bl.flushLocked()
	}
}

func (bl *BatchLogger) flushLocked() {
	if bl.pending == 0 {
		return
	}
	bl.WithFields(logrus.Fields{
		"batch_summary":  true,
		"total_requests": bl.pending,
		"routes":         bl.routes,
	}).Info("Request batch summary")

	bl.routes = make(map[string]*RouteStats)
	bl.pending = 0
}

// FlushPending writes out any batched request summary
func (bl *BatchLogger) FlushPending() {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.flushLocked()
}

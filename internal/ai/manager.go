package ai

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/config"
	apperrors "github.com/frostdev-ops/home-panel-go/pkg/errors"
)

// ErrNoProviders is returned when no registered provider can serve a request
var ErrNoProviders = &ProviderError{Type: "unavailable", Message: "No AI providers available"}

// RequestObserver is told about every provider request
type RequestObserver interface {
	RecordLLMRequest(provider string, success bool, duration time.Duration, tokens int)
}

// LLMManager manages multiple AI providers with priority order, fallback and
// a circuit breaker per provider
type LLMManager struct {
	entries         []*providerEntry
	fallbackEnabled bool
	timeout         time.Duration
	breakerFailures int
	breakerReset    time.Duration
	observer        RequestObserver
	logger          *logrus.Logger
	mu              sync.RWMutex
}

type providerEntry struct {
	provider LLMProvider
	priority int
	breaker  *apperrors.CircuitBreaker
	requests atomic.Int64
	errors   atomic.Int64
}

// NewLLMManager creates a manager with no providers registered
func NewLLMManager(cfg config.AIConfig, logger *logrus.Logger) *LLMManager {
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	return &LLMManager{
		fallbackEnabled: cfg.FallbackEnabled,
		timeout:         cfg.TimeoutDuration(),
		breakerFailures: failures,
		breakerReset:    cfg.BreakerResetDuration(),
		logger:          logger,
	}
}

// RegisterProvider adds a provider; lower priority values are tried first
func (m *LLMManager) RegisterProvider(provider LLMProvider, priority int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, &providerEntry{
		provider: provider,
		priority: priority,
		breaker: apperrors.NewCircuitBreaker(apperrors.BreakerConfig{
			Name:         provider.GetName(),
			MaxFailures:  m.breakerFailures,
			ResetTimeout: m.breakerReset,
			Logger:       m.logger,
		}),
	})
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].priority < m.entries[j].priority
	})

	m.logger.WithFields(logrus.Fields{
		"provider": provider.GetName(),
		"priority": priority,
	}).Info("AI provider registered")
}

// SetObserver installs an observer for provider requests
func (m *LLMManager) SetObserver(observer RequestObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = observer
}

func (m *LLMManager) observe(provider string, err error, started time.Time, tokens int) {
	m.mu.RLock()
	observer := m.observer
	m.mu.RUnlock()
	if observer != nil {
		observer.RecordLLMRequest(provider, err == nil, time.Since(started), tokens)
	}
}

// Timeout is the deadline applied to each request
func (m *LLMManager) Timeout() time.Duration {
	return m.timeout
}

func (m *LLMManager) snapshot() []*providerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]*providerEntry, len(m.entries))
	copy(entries, m.entries)
	return entries
}

func (m *LLMManager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return context.WithCancel(ctx)
}

// Generate sends req to the highest priority available provider, falling
// back to the next one on failure when fallback is enabled
func (m *LLMManager) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var lastErr error = ErrNoProviders
	for _, entry := range m.snapshot() {
		if !entry.provider.IsAvailable(ctx) {
			continue
		}

		var resp *GenerateResponse
		started := time.Now()
		entry.requests.Add(1)
		err := entry.breaker.Execute(func() error {
			var err error
			resp, err = entry.provider.Generate(ctx, req)
			return err
		})
		if err == nil {
			m.observe(entry.provider.GetName(), nil, started, resp.TokensUsed.TotalTokens)
			return resp, nil
		}
		m.observe(entry.provider.GetName(), err, started, 0)

		entry.errors.Add(1)
		lastErr = err
		m.logger.WithError(err).WithField("provider", entry.provider.GetName()).Warn("AI provider request failed")

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !m.fallbackEnabled {
			break
		}
	}
	return nil, lastErr
}

// Synthesize converts text to speech with the first available speech provider
func (m *LLMManager) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	for _, entry := range m.snapshot() {
		speaker, ok := entry.provider.(SpeechProvider)
		if !ok || !entry.provider.IsAvailable(ctx) {
			continue
		}

		var audio *Audio
		started := time.Now()
		entry.requests.Add(1)
		err := entry.breaker.Execute(func() error {
			var err error
			audio, err = speaker.Synthesize(ctx, text, voice)
			return err
		})
		m.observe(entry.provider.GetName(), err, started, 0)
		if err != nil {
			entry.errors.Add(1)
			return nil, err
		}
		return audio, nil
	}
	return nil, ErrNoProviders
}

// GetProviders reports the state of every registered provider
func (m *LLMManager) GetProviders(ctx context.Context) []ProviderStatus {
	entries := m.snapshot()
	statuses := make([]ProviderStatus, 0, len(entries))
	for _, entry := range entries {
		_, speech := entry.provider.(SpeechProvider)
		statuses = append(statuses, ProviderStatus{
			Name:         entry.provider.GetName(),
			Priority:     entry.priority,
			Available:    entry.provider.IsAvailable(ctx),
			Breaker:      entry.breaker.State().String(),
			RequestCount: entry.requests.Load(),
			ErrorCount:   entry.errors.Load(),
			Speech:       speech,
		})
	}
	return statuses
}

// IsRetryable reports whether err is a provider error worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

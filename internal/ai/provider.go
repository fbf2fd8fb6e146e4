package ai

import (
	"context"
	"time"
)

// LLMProvider defines the interface that all AI providers must implement
type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	GetName() string
	IsAvailable(ctx context.Context) bool
}

// SpeechProvider is implemented by providers that can synthesize speech
type SpeechProvider interface {
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}

// GenerateRequest holds a single-turn prompt
type GenerateRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	JSON         bool    `json:"json,omitempty"`
	Model        string  `json:"model,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// GenerateResponse represents the text returned by a provider
type GenerateResponse struct {
	Text             string     `json:"text"`
	Model            string     `json:"model"`
	Provider         string     `json:"provider"`
	FinishReason     string     `json:"finish_reason,omitempty"`
	TokensUsed       TokenUsage `json:"tokens_used"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TokenUsage represents token consumption statistics
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Audio is raw signed little-endian PCM
type Audio struct {
	PCM           []byte
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// ProviderStatus represents the current status of a provider
type ProviderStatus struct {
	Name         string `json:"name"`
	Priority     int    `json:"priority"`
	Available    bool   `json:"available"`
	Breaker      string `json:"breaker"`
	RequestCount int64  `json:"request_count"`
	ErrorCount   int64  `json:"error_count"`
	Speech       bool   `json:"speech"`
}

// ProviderError represents errors from AI providers
type ProviderError struct {
	Provider   string `json:"provider"`
	Type       string `json:"type"` // "auth", "network", "rate_limit", "parse_error", "unavailable", "internal"
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	Underlying error  `json:"-"`
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return e.Message + ": " + e.Underlying.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns true if the error is retryable
func (e *ProviderError) IsRetryable() bool {
	return e.Retryable
}

package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/config"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements text generation on a local Ollama server
type OllamaProvider struct {
	name            string
	client          *http.Client
	logger          *logrus.Logger
	baseURL         string
	model           string
	maxTokens       int
	mu              sync.RWMutex
	lastHealthCheck time.Time
	healthy         bool
}

// NewOllamaProvider creates a new Ollama provider instance
func NewOllamaProvider(cfg config.AIProviderConfig, logger *logrus.Logger) *OllamaProvider {
	baseURL := strings.TrimRight(cfg.URL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{
		name:      "ollama",
		client:    &http.Client{Timeout: 120 * time.Second},
		logger:    logger,
		baseURL:   baseURL,
		model:     cfg.DefaultModel,
		maxTokens: cfg.MaxTokens,
	}
}

// GetName returns the provider name
func (o *OllamaProvider) GetName() string {
	return o.name
}

// IsAvailable checks the server, caching the result for a minute
func (o *OllamaProvider) IsAvailable(ctx context.Context) bool {
	o.mu.RLock()
	fresh := time.Since(o.lastHealthCheck) < time.Minute
	healthy := o.healthy
	o.mu.RUnlock()
	if fresh {
		return healthy
	}

	err := o.HealthCheck(ctx)
	if err != nil {
		o.logger.WithError(err).Debug("Ollama health check failed")
	}
	return err == nil
}

// HealthCheck lists local models to confirm the server is reachable
func (o *OllamaProvider) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := makeRequest(checkCtx, o.client, o.name, http.MethodGet, o.baseURL+"/api/tags", nil, ollamaErrorMessage)

	o.mu.Lock()
	o.lastHealthCheck = time.Now()
	o.healthy = err == nil
	o.mu.Unlock()
	return err
}

// Generate performs a single-turn completion through /api/generate
func (o *OllamaProvider) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}
	startTime := time.Now()

	request := map[string]interface{}{
		"model":  model,
		"prompt": req.Prompt,
		"stream": false,
	}
	if req.SystemPrompt != "" {
		request["system"] = req.SystemPrompt
	}
	if req.JSON {
		request["format"] = "json"
	}

	options := make(map[string]interface{})
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = o.maxTokens
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if len(options) > 0 {
		request["options"] = options
	}

	body, err := makeRequest(ctx, o.client, o.name, http.MethodPost, o.baseURL+"/api/generate", request, ollamaErrorMessage)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Model           string `json:"model"`
		Response        string `json:"response"`
		DoneReason      string `json:"done_reason"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.ProviderError{
			Provider:   o.name,
			Type:       "parse_error",
			Message:    "Failed to parse Ollama response",
			Underlying: err,
		}
	}

	return &ai.GenerateResponse{
		Text:             resp.Response,
		Model:            model,
		Provider:         o.name,
		FinishReason:     resp.DoneReason,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		TokensUsed: ai.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
		CreatedAt: time.Now(),
	}, nil
}

func ollamaErrorMessage(body []byte) string {
	var errorResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errorResp) != nil {
		return ""
	}
	return errorResp.Error
}

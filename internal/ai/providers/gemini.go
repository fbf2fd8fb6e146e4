package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/config"
)

const (
	defaultGeminiURL         = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultGeminiSpeechModel = "gemini-2.5-flash-preview-tts"
	defaultSpeechRate        = 24000
)

// GeminiProvider implements text generation and speech synthesis on the
// Google Gemini API
type GeminiProvider struct {
	name        string
	client      *http.Client
	logger      *logrus.Logger
	apiKey      string
	baseURL     string
	model       string
	speechModel string
	maxTokens   int
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(cfg config.AIProviderConfig, logger *logrus.Logger) *GeminiProvider {
	g := &GeminiProvider{
		name:        "gemini",
		client:      &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		model:       cfg.DefaultModel,
		speechModel: cfg.SpeechModel,
		maxTokens:   cfg.MaxTokens,
	}
	if g.baseURL == "" {
		g.baseURL = defaultGeminiURL
	}
	if g.model == "" {
		g.model = defaultGeminiModel
	}
	if g.speechModel == "" {
		g.speechModel = defaultGeminiSpeechModel
	}
	return g
}

// GetName returns the provider name
func (g *GeminiProvider) GetName() string {
	return g.name
}

// IsAvailable reports whether an API key is configured
func (g *GeminiProvider) IsAvailable(ctx context.Context) bool {
	return g.apiKey != ""
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate performs a single-turn completion, asking for a JSON document
// when req.JSON is set
func (g *GeminiProvider) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	startTime := time.Now()

	request := map[string]interface{}{
		"contents": []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.SystemPrompt != "" {
		request["systemInstruction"] = geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	genConfig := make(map[string]interface{})
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.maxTokens
	}
	if maxTokens > 0 {
		genConfig["maxOutputTokens"] = maxTokens
	}
	if req.Temperature > 0 {
		genConfig["temperature"] = req.Temperature
	}
	if req.JSON {
		genConfig["responseMimeType"] = "application/json"
	}
	if len(genConfig) > 0 {
		request["generationConfig"] = genConfig
	}

	body, err := makeRequest(ctx, g.client, g.name, http.MethodPost, g.endpoint(model), request, geminiErrorMessage)
	if err != nil {
		return nil, err
	}

	resp, err := g.decode(body)
	if err != nil {
		return nil, err
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	return &ai.GenerateResponse{
		Text:             text.String(),
		Model:            model,
		Provider:         g.name,
		FinishReason:     candidate.FinishReason,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		TokensUsed: ai.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		CreatedAt: time.Now(),
	}, nil
}

// Synthesize renders text with a prebuilt voice and returns the raw PCM
func (g *GeminiProvider) Synthesize(ctx context.Context, text, voice string) (*ai.Audio, error) {
	request := map[string]interface{}{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]interface{}{
				"voiceConfig": map[string]interface{}{
					"prebuiltVoiceConfig": map[string]string{"voiceName": voice},
				},
			},
		},
	}

	body, err := makeRequest(ctx, g.client, g.name, http.MethodPost, g.endpoint(g.speechModel), request, geminiErrorMessage)
	if err != nil {
		return nil, err
	}

	resp, err := g.decode(body)
	if err != nil {
		return nil, err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil {
			continue
		}
		pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, &ai.ProviderError{
				Provider:   g.name,
				Type:       "parse_error",
				Message:    "Failed to decode audio data",
				Underlying: err,
			}
		}
		return &ai.Audio{
			PCM:           pcm,
			SampleRate:    sampleRate(part.InlineData.MimeType),
			Channels:      1,
			BitsPerSample: 16,
		}, nil
	}

	return nil, &ai.ProviderError{
		Provider: g.name,
		Type:     "internal",
		Message:  "No audio returned from Gemini",
	}
}

func (g *GeminiProvider) endpoint(model string) string {
	return g.baseURL + "/models/" + model + ":generateContent?key=" + g.apiKey
}

func (g *GeminiProvider) decode(body []byte) (*geminiResponse, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.ProviderError{
			Provider:   g.name,
			Type:       "parse_error",
			Message:    "Failed to parse Gemini response",
			Underlying: err,
		}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &ai.ProviderError{
			Provider: g.name,
			Type:     "internal",
			Message:  "No candidates returned from Gemini",
		}
	}
	return &resp, nil
}

func geminiErrorMessage(body []byte) string {
	var errorResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errorResp) != nil {
		return ""
	}
	return errorResp.Error.Message
}

// sampleRate reads the rate parameter of a mime type such as
// "audio/L16;codec=pcm;rate=24000"
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || key != "rate" {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultSpeechRate
}

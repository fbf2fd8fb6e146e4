package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/core/auth"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/core/metrics"
	"github.com/frostdev-ops/home-panel-go/internal/core/system"
	"github.com/frostdev-ops/home-panel-go/internal/core/voice"
	"github.com/frostdev-ops/home-panel-go/internal/websocket"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// Assistant runs the LLM flows behind the /assistant endpoints
type Assistant interface {
	AnalyzeSystemStatus(ctx context.Context, input ai.SystemStatusInput) *ai.SystemStatus
	SecurityAlert(ctx context.Context, input ai.SecurityEventInput) (*ai.SecurityAlert, error)
	SuggestScenes(ctx context.Context, input ai.SuggestScenesInput) (*ai.SceneSuggestions, error)
	TextToSpeech(ctx context.Context, text string) string
}

// VoiceDispatcher executes spoken commands
type VoiceDispatcher interface {
	Handle(ctx context.Context, actor home.Actor, transcript string) (*voice.Result, error)
}

// SystemReporter produces host and household snapshots
type SystemReporter interface {
	Snapshot(ctx context.Context) (*system.Snapshot, error)
}

// ProviderLister reports the state of the configured LLM providers
type ProviderLister interface {
	GetProviders(ctx context.Context) []ai.ProviderStatus
}

// StorePinger checks the persistence backend
type StorePinger func(ctx context.Context) error

// Deps are the services the handlers delegate to. Assistant, Voice, System,
// Providers, Hub, Metrics and Ping may be nil.
type Deps struct {
	Home      *home.Service
	Auth      *auth.Service
	Assistant Assistant
	Voice     VoiceDispatcher
	System    SystemReporter
	Providers ProviderLister
	Hub       *websocket.Hub
	Metrics   metrics.MetricsCollector
	Ping      StorePinger
	Backend   string
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	home      *home.Service
	auth      *auth.Service
	assistant Assistant
	voice     VoiceDispatcher
	system    SystemReporter
	providers ProviderLister
	hub       *websocket.Hub
	metrics   metrics.MetricsCollector
	ping      StorePinger
	backend   string
	log       *logrus.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Deps, logger *logrus.Logger) *Handlers {
	return &Handlers{
		home:      deps.Home,
		auth:      deps.Auth,
		assistant: deps.Assistant,
		voice:     deps.Voice,
		system:    deps.System,
		providers: deps.Providers,
		hub:       deps.Hub,
		metrics:   deps.Metrics,
		ping:      deps.Ping,
		backend:   deps.Backend,
		log:       logger,
	}
}

// bindJSON decodes the request body and answers 400 on failure. An empty
// body is accepted when optional is set.
func bindJSON(c *gin.Context, v interface{}, optional bool) bool {
	if optional && (c.Request.Body == nil || c.Request.ContentLength == 0) {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		// Chunked and unsized requests only reveal an empty body on read
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		utils.SendError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handlers) assistantUnavailable(c *gin.Context) bool {
	if h.assistant == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "The assistant is not configured.")
		return true
	}
	return false
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// ProcessVoiceCommand parses and executes a spoken command
func (h *Handlers) ProcessVoiceCommand(c *gin.Context) {
	if h.voice == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "The assistant is not configured.")
		return
	}

	var req struct {
		Transcript string `json:"transcript"`
	}
	if !bindJSON(c, &req, false) {
		return
	}

	result, err := h.voice.Handle(c.Request.Context(), middleware.Actor(c), req.Transcript)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordVoiceCommand(string(result.Command.Action), result.Executed)
	}

	utils.SendSuccessWithToast(c, result, result.Title, result.Speech)
}

// TextToSpeech renders text as a WAV data URI. The audio is empty when
// synthesis fails.
func (h *Handlers) TextToSpeech(c *gin.Context) {
	if h.assistantUnavailable(c) {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Text is required.")
		return
	}

	utils.SendSuccess(c, gin.H{"audio": h.assistant.TextToSpeech(c.Request.Context(), req.Text)})
}

// AnalyzeSystemStatus asks the model to look for anomalies. Without a
// metrics payload the current host snapshot is analyzed.
func (h *Handlers) AnalyzeSystemStatus(c *gin.Context) {
	if h.assistantUnavailable(c) {
		return
	}

	var input ai.SystemStatusInput
	if !bindJSON(c, &input, true) {
		return
	}

	if input.SystemMetrics == "" && h.system != nil {
		snapshot, err := h.system.Snapshot(c.Request.Context())
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.recordResources(snapshot.CPU.Usage, snapshot.Memory.UsedPercent, snapshot.Disk.UsedPercent)
		raw, err := json.Marshal(snapshot)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.SystemMetrics = string(raw)
	}

	utils.SendSuccess(c, h.assistant.AnalyzeSystemStatus(c.Request.Context(), input))
}

// ProcessSecurityEvent produces an alert for a sensor event
func (h *Handlers) ProcessSecurityEvent(c *gin.Context) {
	if h.assistantUnavailable(c) {
		return
	}

	var input ai.SecurityEventInput
	if !bindJSON(c, &input, false) {
		return
	}

	alert, err := h.assistant.SecurityAlert(c.Request.Context(), input)
	if err != nil {
		h.assistantError(c, err, "Could not process security event. Please try again.")
		return
	}
	utils.SendSuccessWithToast(c, alert, alert.AlertTitle, alert.AlertDescription)
}

// SuggestScenes proposes new scenes from recent actions
func (h *Handlers) SuggestScenes(c *gin.Context) {
	if h.assistantUnavailable(c) {
		return
	}

	var input ai.SuggestScenesInput
	if !bindJSON(c, &input, true) {
		return
	}

	suggestions, err := h.assistant.SuggestScenes(c.Request.Context(), input)
	if err != nil {
		h.assistantError(c, err, "Could not suggest new scenes. Please try again.")
		return
	}
	utils.SendSuccess(c, suggestions)
}

// GetProviders reports the configured LLM providers
func (h *Handlers) GetProviders(c *gin.Context) {
	if h.providers == nil {
		utils.SendSuccess(c, []ai.ProviderStatus{})
		return
	}
	utils.SendSuccess(c, h.providers.GetProviders(c.Request.Context()))
}

// assistantError reports model failures with a flow specific message
func (h *Handlers) assistantError(c *gin.Context, err error, message string) {
	var ext *home.ExternalServiceError
	if errors.As(err, &ext) {
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Warn("Assistant request failed")
		c.Error(err)
		utils.SendError(c, http.StatusBadGateway, message)
		return
	}
	h.respondError(c, err)
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
)

// Engine is the model backend used by the assistant flows. LLMManager
// satisfies it.
type Engine interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}

// VoiceAction is the kind of command a transcript resolved to
type VoiceAction string

const (
	ActionDevice     VoiceAction = "device"
	ActionScene      VoiceAction = "scene"
	ActionAutomation VoiceAction = "automation"
	ActionNavigation VoiceAction = "navigation"
	ActionUnknown    VoiceAction = "unknown"
)

// VoiceCommandInput is a transcript plus the names the model may resolve it to
type VoiceCommandInput struct {
	Command     string   `json:"command" validate:"required,max=500"`
	Devices     []string `json:"devices"`
	Scenes      []string `json:"scenes"`
	Automations []string `json:"automations"`
}

// VoiceCommand is the structured result of parsing a transcript
type VoiceCommand struct {
	Action         VoiceAction `json:"action" validate:"required,oneof=device scene automation navigation unknown"`
	Target         string      `json:"target"`
	Value          *bool       `json:"value,omitempty"`
	SpeechResponse string      `json:"speechResponse" validate:"required"`
}

// UnmarshalJSON accepts the loose value encodings models produce
// ("on", "true", 1) in addition to booleans.
func (v *VoiceCommand) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action         VoiceAction     `json:"action"`
		Target         string          `json:"target"`
		Value          json.RawMessage `json:"value"`
		SpeechResponse string          `json:"speechResponse"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Action = VoiceAction(strings.ToLower(string(raw.Action)))
	v.Target = raw.Target
	v.SpeechResponse = raw.SpeechResponse
	v.Value = looseBool(raw.Value)
	return nil
}

func looseBool(raw json.RawMessage) *bool {
	if len(raw) == 0 {
		return nil
	}
	var value interface{}
	if json.Unmarshal(raw, &value) != nil {
		return nil
	}
	on, off := true, false
	switch val := value.(type) {
	case bool:
		return &val
	case float64:
		if val != 0 {
			return &on
		}
		return &off
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "on", "active", "enable", "enabled", "yes":
			return &on
		case "false", "off", "paused", "inactive", "disable", "disabled", "no":
			return &off
		}
	}
	return nil
}

// SystemStatusInput carries host metrics as a JSON document
type SystemStatusInput struct {
	SystemMetrics string `json:"systemMetrics"`
}

// SystemStatus is the anomaly analysis of a metrics snapshot
type SystemStatus struct {
	HasAnomalies       bool   `json:"hasAnomalies"`
	AnomalyExplanation string `json:"anomalyExplanation" validate:"required"`
	Recommendations    string `json:"recommendations"`
}

// SecurityEventInput describes a detected hazard
type SecurityEventInput struct {
	EventType string `json:"eventType" validate:"required,oneof=smoke intrusion gas_leak"`
	Location  string `json:"location" validate:"required,max=100"`
}

// SecurityAlert is the user-facing alert for a security event
type SecurityAlert struct {
	AlertTitle       string   `json:"alertTitle" validate:"required"`
	AlertDescription string   `json:"alertDescription" validate:"required"`
	Recommendations  []string `json:"recommendations" validate:"required,min=1,dive,required"`
	SpeechResponse   string   `json:"speechResponse" validate:"required"`
}

// SuggestScenesInput lists actions the user performed recently
type SuggestScenesInput struct {
	PastActions []string `json:"pastActions" validate:"max=100,dive,required,max=500"`
}

// SceneSuggestions is the model's list of proposed scene names
type SceneSuggestions struct {
	SuggestedScenes []string `json:"suggestedScenes" validate:"dive,required"`
}

const (
	statusFallbackRecommendation = "Check system logs for more information."
	assistantService             = "assistant"
)

// Assistant runs the prompt-based flows against an Engine
type Assistant struct {
	engine   Engine
	validate *validator.Validate
	voice    string
	logger   *logrus.Logger
}

// NewAssistant creates an assistant that speaks with the given prebuilt voice
func NewAssistant(engine Engine, voice string, logger *logrus.Logger) *Assistant {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if voice == "" {
		voice = "Algenib"
	}
	return &Assistant{
		engine:   engine,
		validate: validate,
		voice:    voice,
		logger:   logger,
	}
}

// ParseVoiceCommand resolves a transcript to a device, scene, automation or page
func (a *Assistant) ParseVoiceCommand(ctx context.Context, input VoiceCommandInput) (*VoiceCommand, error) {
	if err := a.checkInput(input); err != nil {
		return nil, err
	}

	prompt, err := render("voice", struct {
		VoiceCommandInput
		Pages []string
	}{input, NavigationPages})
	if err != nil {
		return nil, err
	}

	var cmd VoiceCommand
	if err := a.generateJSON(ctx, "voice", prompt, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// AnalyzeSystemStatus asks the model for anomalies in a metrics snapshot.
// It never fails: invalid metrics or model errors produce an anomaly report
// describing the failure.
func (a *Assistant) AnalyzeSystemStatus(ctx context.Context, input SystemStatusInput) *SystemStatus {
	var metrics bytes.Buffer
	if err := json.Compact(&metrics, []byte(input.SystemMetrics)); err != nil {
		a.logger.WithError(err).Warn("Error parsing system metrics")
		return statusFailure(fmt.Sprintf("Error parsing system metrics: %v", err))
	}

	prompt, err := render("system_status", struct{ Metrics string }{metrics.String()})
	if err != nil {
		return statusFailure(err.Error())
	}

	var status SystemStatus
	if err := a.generateJSON(ctx, "system_status", prompt, &status); err != nil {
		return statusFailure(err.Error())
	}
	return &status
}

func statusFailure(explanation string) *SystemStatus {
	return &SystemStatus{
		HasAnomalies:       true,
		AnomalyExplanation: explanation,
		Recommendations:    statusFallbackRecommendation,
	}
}

// SecurityAlert turns a raw security event into an alert with recommendations
func (a *Assistant) SecurityAlert(ctx context.Context, input SecurityEventInput) (*SecurityAlert, error) {
	if err := a.checkInput(input); err != nil {
		return nil, err
	}

	prompt, err := render("security", input)
	if err != nil {
		return nil, err
	}

	var alert SecurityAlert
	if err := a.generateJSON(ctx, "security", prompt, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// SuggestScenes proposes scenes based on the user's recent actions
func (a *Assistant) SuggestScenes(ctx context.Context, input SuggestScenesInput) (*SceneSuggestions, error) {
	if err := a.checkInput(input); err != nil {
		return nil, err
	}

	prompt, err := render("suggest_scenes", input)
	if err != nil {
		return nil, err
	}

	var suggestions SceneSuggestions
	if err := a.generateJSON(ctx, "suggest_scenes", prompt, &suggestions); err != nil {
		return nil, err
	}
	if suggestions.SuggestedScenes == nil {
		suggestions.SuggestedScenes = []string{}
	}
	return &suggestions, nil
}

// TextToSpeech synthesizes text and returns a WAV data URI, or "" when
// synthesis is unavailable or fails
func (a *Assistant) TextToSpeech(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	audio, err := a.engine.Synthesize(ctx, text, a.voice)
	if err != nil {
		a.logger.WithError(err).Warn("Error during text-to-speech generation")
		return ""
	}
	if audio == nil || len(audio.PCM) == 0 {
		a.logger.Warn("No audio returned from speech model")
		return ""
	}
	return WAVDataURI(audio)
}

func (a *Assistant) generateJSON(ctx context.Context, flow, prompt string, out interface{}) error {
	resp, err := a.engine.Generate(ctx, GenerateRequest{Prompt: prompt, JSON: true})
	if err != nil {
		a.logger.WithError(err).WithField("flow", flow).Warn("Assistant request failed")
		return &home.ExternalServiceError{Service: assistantService, Err: err}
	}

	if err := json.Unmarshal([]byte(stripFences(resp.Text)), out); err != nil {
		a.logger.WithError(err).WithField("flow", flow).Warn("Assistant returned invalid JSON")
		return &home.ExternalServiceError{Service: assistantService, Err: fmt.Errorf("invalid %s response: %w", flow, err)}
	}
	if err := a.validate.Struct(out); err != nil {
		a.logger.WithError(err).WithField("flow", flow).Warn("Assistant response failed validation")
		return &home.ExternalServiceError{Service: assistantService, Err: fmt.Errorf("invalid %s response: %w", flow, err)}
	}

	a.logger.WithFields(logrus.Fields{
		"flow":     flow,
		"provider": resp.Provider,
		"duration": resp.ProcessingTimeMs,
	}).Debug("Assistant request completed")
	return nil
}

func (a *Assistant) checkInput(input interface{}) error {
	err := a.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		message := "is invalid"
		switch fe.Tag() {
		case "required":
			message = "is required"
		case "oneof":
			message = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
		case "max":
			message = "is too long"
		}
		return &home.ValidationError{Field: fe.Field(), Message: message}
	}
	return &home.ValidationError{Message: err.Error()}
}

// stripFences removes a markdown code fence some models wrap JSON in
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// MockEngine implements Engine for testing
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*GenerateResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	args := m.Called(ctx, text, voice)
	if audio := args.Get(0); audio != nil {
		return audio.(*Audio), args.Error(1)
	}
	return nil, args.Error(1)
}

func reply(text string) *GenerateResponse {
	return &GenerateResponse{Text: text, Provider: "mock"}
}

// MockProvider implements LLMProvider for testing
type MockProvider struct {
	name      string
	available bool
	err       error
	delay     time.Duration
	calls     atomic.Int32
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &GenerateResponse{Text: "{}", Provider: m.name, CreatedAt: time.Now()}, nil
}

func (m *MockProvider) GetName() string {
	return m.name
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

// MockSpeaker adds speech synthesis to MockProvider
type MockSpeaker struct {
	MockProvider
}

func (m *MockSpeaker) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	return &Audio{PCM: []byte{1, 2}, SampleRate: 24000, Channels: 1, BitsPerSample: 16}, nil
}

func newManager(fallback bool, timeout string) *LLMManager {
	return NewLLMManager(config.AIConfig{
		FallbackEnabled: fallback,
		Timeout:         timeout,
		BreakerFailures: 2,
		BreakerReset:    "1m",
	}, quietLogger())
}

func TestLLMManager_PriorityOrder(t *testing.T) {
	manager := newManager(true, "1s")
	second := &MockProvider{name: "second", available: true}
	first := &MockProvider{name: "first", available: true}
	manager.RegisterProvider(second, 2)
	manager.RegisterProvider(first, 1)

	resp, err := manager.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Provider)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestLLMManager_Fallback(t *testing.T) {
	manager := newManager(true, "1s")
	broken := &MockProvider{name: "broken", available: true, err: errors.New("boom")}
	backup := &MockProvider{name: "backup", available: true}
	manager.RegisterProvider(broken, 1)
	manager.RegisterProvider(backup, 2)

	resp, err := manager.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "backup", resp.Provider)

	statuses := manager.GetProviders(context.Background())
	require.Len(t, statuses, 2)
	assert.Equal(t, "broken", statuses[0].Name)
	assert.Equal(t, int64(1), statuses[0].ErrorCount)
	assert.Equal(t, int64(1), statuses[1].RequestCount)
}

func TestLLMManager_NoFallback(t *testing.T) {
	manager := newManager(false, "1s")
	broken := &MockProvider{name: "broken", available: true, err: errors.New("boom")}
	backup := &MockProvider{name: "backup", available: true}
	manager.RegisterProvider(broken, 1)
	manager.RegisterProvider(backup, 2)

	_, err := manager.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(0), backup.calls.Load())
}

func TestLLMManager_SkipsUnavailable(t *testing.T) {
	manager := newManager(true, "1s")
	manager.RegisterProvider(&MockProvider{name: "offline"}, 1)

	_, err := manager.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestLLMManager_Timeout(t *testing.T) {
	manager := newManager(true, "20ms")
	manager.RegisterProvider(&MockProvider{name: "slow", available: true, delay: time.Second}, 1)

	_, err := manager.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLLMManager_CircuitBreakerOpens(t *testing.T) {
	manager := newManager(false, "1s")
	broken := &MockProvider{name: "broken", available: true, err: errors.New("boom")}
	manager.RegisterProvider(broken, 1)

	for i := 0; i < 3; i++ {
		_, _ = manager.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	}

	assert.Equal(t, int32(2), broken.calls.Load())
	assert.Equal(t, "open", manager.GetProviders(context.Background())[0].Breaker)
}

func TestLLMManager_Synthesize(t *testing.T) {
	manager := newManager(true, "1s")
	manager.RegisterProvider(&MockProvider{name: "text-only", available: true}, 1)
	manager.RegisterProvider(&MockSpeaker{MockProvider{name: "speaker", available: true}}, 2)

	audio, err := manager.Synthesize(context.Background(), "hello", "Algenib")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, audio.PCM)

	statuses := manager.GetProviders(context.Background())
	assert.False(t, statuses[0].Speech)
	assert.True(t, statuses[1].Speech)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ProviderError{Type: "rate_limit", Retryable: true}))
	assert.False(t, IsRetryable(&ProviderError{Type: "auth"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestParseVoiceCommand(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())

	engine.On("Generate", mock.Anything, mock.MatchedBy(func(req GenerateRequest) bool {
		return req.JSON &&
			strings.Contains(req.Prompt, "- Kitchen Lights") &&
			strings.Contains(req.Prompt, "- Good Night") &&
			strings.Contains(req.Prompt, "Dashboard, Rooms, Scenes, Automations, Energy, System, Profile") &&
			strings.Contains(req.Prompt, `User command: "turn on the kitchen lights"`)
	})).Return(reply("```json\n{\"action\":\"device\",\"target\":\"Kitchen Lights\",\"value\":\"on\",\"speechResponse\":\"Turning on the kitchen lights.\"}\n```"), nil)

	cmd, err := assistant.ParseVoiceCommand(context.Background(), VoiceCommandInput{
		Command: "turn on the kitchen lights",
		Devices: []string{"Kitchen Lights"},
		Scenes:  []string{"Good Night"},
	})
	require.NoError(t, err)
	assert.Equal(t, ActionDevice, cmd.Action)
	assert.Equal(t, "Kitchen Lights", cmd.Target)
	require.NotNil(t, cmd.Value)
	assert.True(t, *cmd.Value)
	engine.AssertExpectations(t)
}

func TestParseVoiceCommand_RejectsUnknownAction(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	engine.On("Generate", mock.Anything, mock.Anything).
		Return(reply(`{"action":"dance","target":"x","speechResponse":"ok"}`), nil)

	_, err := assistant.ParseVoiceCommand(context.Background(), VoiceCommandInput{Command: "dance"})
	var ext *home.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "assistant", ext.Service)
}

func TestParseVoiceCommand_BlankCommand(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())

	_, err := assistant.ParseVoiceCommand(context.Background(), VoiceCommandInput{})
	var ve *home.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "command", ve.Field)
	engine.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestLooseBool(t *testing.T) {
	tests := []struct {
		raw  string
		want *bool
	}{
		{`true`, boolPtr(true)},
		{`false`, boolPtr(false)},
		{`"off"`, boolPtr(false)},
		{`"Paused"`, boolPtr(false)},
		{`1`, boolPtr(true)},
		{`null`, nil},
		{`"maybe"`, nil},
		{``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, looseBool([]byte(tt.raw)))
		})
	}
}

func boolPtr(v bool) *bool { return &v }

func TestAnalyzeSystemStatus(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	engine.On("Generate", mock.Anything, mock.MatchedBy(func(req GenerateRequest) bool {
		return strings.Contains(req.Prompt, `{"cpu":97}`)
	})).Return(reply(`{"hasAnomalies":true,"anomalyExplanation":"CPU is pegged.","recommendations":"Restart the hub."}`), nil)

	status := assistant.AnalyzeSystemStatus(context.Background(), SystemStatusInput{SystemMetrics: "{ \"cpu\": 97 }"})
	assert.True(t, status.HasAnomalies)
	assert.Equal(t, "CPU is pegged.", status.AnomalyExplanation)
	assert.Equal(t, "Restart the hub.", status.Recommendations)
}

func TestAnalyzeSystemStatus_InvalidMetrics(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())

	status := assistant.AnalyzeSystemStatus(context.Background(), SystemStatusInput{SystemMetrics: "not json"})
	assert.True(t, status.HasAnomalies)
	assert.True(t, strings.HasPrefix(status.AnomalyExplanation, "Error parsing system metrics: "))
	assert.Equal(t, "Check system logs for more information.", status.Recommendations)
	engine.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAnalyzeSystemStatus_ModelFailure(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	engine.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	status := assistant.AnalyzeSystemStatus(context.Background(), SystemStatusInput{SystemMetrics: "{}"})
	assert.True(t, status.HasAnomalies)
	assert.Contains(t, status.AnomalyExplanation, "quota exceeded")
	assert.Equal(t, "Check system logs for more information.", status.Recommendations)
}

func TestSecurityAlert(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	engine.On("Generate", mock.Anything, mock.MatchedBy(func(req GenerateRequest) bool {
		return strings.Contains(req.Prompt, "Event Type: smoke") && strings.Contains(req.Prompt, "Location: Kitchen")
	})).Return(reply(`{"alertTitle":"Smoke Detected in Kitchen!","alertDescription":"The smoke detector was triggered.","recommendations":["Evacuate the area immediately."],"speechResponse":"Alert: Smoke has been detected in the kitchen."}`), nil)

	alert, err := assistant.SecurityAlert(context.Background(), SecurityEventInput{EventType: "smoke", Location: "Kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "Smoke Detected in Kitchen!", alert.AlertTitle)
	assert.Len(t, alert.Recommendations, 1)
}

func TestSecurityAlert_InvalidEventType(t *testing.T) {
	assistant := NewAssistant(new(MockEngine), "", quietLogger())

	_, err := assistant.SecurityAlert(context.Background(), SecurityEventInput{EventType: "flood", Location: "Kitchen"})
	var ve *home.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "eventType", ve.Field)
	assert.Equal(t, "must be one of smoke, intrusion, gas_leak", ve.Message)
}

func TestSecurityAlert_IncompleteResponse(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	engine.On("Generate", mock.Anything, mock.Anything).
		Return(reply(`{"alertTitle":"Intrusion!","recommendations":[]}`), nil)

	_, err := assistant.SecurityAlert(context.Background(), SecurityEventInput{EventType: "intrusion", Location: "Garden"})
	var ext *home.ExternalServiceError
	assert.ErrorAs(t, err, &ext)
}

func TestSuggestScenes(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	engine.On("Generate", mock.Anything, mock.MatchedBy(func(req GenerateRequest) bool {
		return strings.Contains(req.Prompt, "- Turned off Kitchen Lights\n")
	})).Return(reply(`{"suggestedScenes":["Late Snack","Early Bird"]}`), nil)

	out, err := assistant.SuggestScenes(context.Background(), SuggestScenesInput{
		PastActions: []string{"Turned off Kitchen Lights"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Late Snack", "Early Bird"}, out.SuggestedScenes)
}

func TestSuggestScenes_ModelFailure(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	engine.On("Generate", mock.Anything, mock.Anything).Return(nil, ErrNoProviders)

	_, err := assistant.SuggestScenes(context.Background(), SuggestScenesInput{PastActions: []string{"x"}})
	var ext *home.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestTextToSpeech(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "", quietLogger())
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	engine.On("Synthesize", mock.Anything, "Hello there", "Algenib").
		Return(&Audio{PCM: pcm, SampleRate: 24000, Channels: 1, BitsPerSample: 16}, nil)

	uri := assistant.TextToSpeech(context.Background(), "  Hello there ")
	require.True(t, strings.HasPrefix(uri, "data:audio/wav;base64,"))

	wav, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:audio/wav;base64,"))
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.True(t, bytes.Equal(pcm, wav[44:]))
}

func TestTextToSpeech_FailureReturnsEmpty(t *testing.T) {
	engine := new(MockEngine)
	assistant := NewAssistant(engine, "Kore", quietLogger())
	engine.On("Synthesize", mock.Anything, "Hi", "Kore").Return(nil, ErrNoProviders)

	assert.Equal(t, "", assistant.TextToSpeech(context.Background(), "Hi"))
	assert.Equal(t, "", assistant.TextToSpeech(context.Background(), "   "))
	engine.AssertNumberOfCalls(t, "Synthesize", 1)
}

type countingObserver struct {
	successes, failures atomic.Int32
}

func (o *countingObserver) RecordLLMRequest(provider string, success bool, duration time.Duration, tokens int) {
	if success {
		o.successes.Add(1)
	} else {
		o.failures.Add(1)
	}
}

func TestLLMManager_Observer(t *testing.T) {
	manager := newManager(true, "1s")
	observer := &countingObserver{}
	manager.SetObserver(observer)
	manager.RegisterProvider(&MockProvider{name: "broken", available: true, err: errors.New("boom")}, 1)
	manager.RegisterProvider(&MockProvider{name: "ok", available: true}, 2)

	_, err := manager.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), observer.successes.Load())
	assert.Equal(t, int32(1), observer.failures.Load())
}

package voice

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/database/memory"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

var member = home.Actor{UserID: "user-1", Role: models.RoleUser}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type MockParser struct {
	mock.Mock
}

func (m *MockParser) ParseVoiceCommand(ctx context.Context, input ai.VoiceCommandInput) (*ai.VoiceCommand, error) {
	args := m.Called(ctx, input)
	if cmd := args.Get(0); cmd != nil {
		return cmd.(*ai.VoiceCommand), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockParser) TextToSpeech(ctx context.Context, text string) string {
	return m.Called(ctx, text).String(0)
}

type fixture struct {
	svc     *home.Service
	kitchen *models.Device
	lock    *models.Device
	night   *models.Automation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	svc := home.NewService(memory.New(), quietLogger())

	_, err := svc.CreateRoom(ctx, home.System, home.RoomInput{Name: "Kitchen", Temp: 22})
	require.NoError(t, err)
	kitchen, err := svc.CreateDevice(ctx, home.System, home.DeviceInput{Name: "Kitchen Lights", Room: "Kitchen", Category: "light"})
	require.NoError(t, err)
	lock, err := svc.CreateDevice(ctx, home.System, home.DeviceInput{Name: "Front Door Lock", Room: "Kitchen", Category: "lock"})
	require.NoError(t, err)
	_, err = svc.CreateScene(ctx, home.System, home.SceneInput{Name: "Good Night"})
	require.NoError(t, err)
	night, err := svc.CreateAutomation(ctx, home.System, home.AutomationInput{Name: "Night Mode", Trigger: "11:00 PM"})
	require.NoError(t, err)

	return &fixture{svc: svc, kitchen: kitchen, lock: lock, night: night}
}

func boolPtr(v bool) *bool { return &v }

func TestHandle_Device(t *testing.T) {
	f := newFixture(t)
	parser := new(MockParser)
	var input ai.VoiceCommandInput
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		input = args.Get(1).(ai.VoiceCommandInput)
	}).Return(&ai.VoiceCommand{
		Action:         ai.ActionDevice,
		Target:         "kitchen lights",
		Value:          boolPtr(true),
		SpeechResponse: "Turning on the kitchen lights.",
	}, nil)

	d := NewDispatcher(f.svc, parser, false, quietLogger())
	result, err := d.Handle(context.Background(), member, "  turn on the kitchen lights ")
	require.NoError(t, err)

	assert.Equal(t, "turn on the kitchen lights", input.Command)
	assert.ElementsMatch(t, []string{"Kitchen Lights", "Front Door Lock"}, input.Devices)
	assert.Equal(t, []string{"Good Night"}, input.Scenes)
	assert.Equal(t, []string{"Night Mode"}, input.Automations)

	assert.True(t, result.Executed)
	assert.Equal(t, TitleExecuted, result.Title)
	assert.Equal(t, "Turning on the kitchen lights.", result.Speech)
	require.NotNil(t, result.Device)
	assert.True(t, result.Device.Active)
	assert.Equal(t, "On", result.Device.Status)

	room, err := f.svc.GetRoom(context.Background(), "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, 1, room.LightsOn)
	parser.AssertNotCalled(t, "TextToSpeech", mock.Anything, mock.Anything)
}

func TestHandle_DeviceWithoutValueFlips(t *testing.T) {
	f := newFixture(t)
	parser := new(MockParser)
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Return(&ai.VoiceCommand{
		Action:         ai.ActionDevice,
		Target:         "Front Door Lock",
		SpeechResponse: "Locking the front door.",
	}, nil)

	d := NewDispatcher(f.svc, parser, false, quietLogger())
	result, err := d.Handle(context.Background(), member, "lock the front door")
	require.NoError(t, err)
	require.NotNil(t, result.Device)
	assert.True(t, result.Device.Active)
	assert.Equal(t, "Locked", result.Device.Status)
}

func TestHandle_Scene(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ToggleDevice(context.Background(), member, f.kitchen.ID, boolPtr(true))
	require.NoError(t, err)

	parser := new(MockParser)
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Return(&ai.VoiceCommand{
		Action:         ai.ActionScene,
		Target:         "Good Night",
		SpeechResponse: "Good night!",
	}, nil)

	d := NewDispatcher(f.svc, parser, false, quietLogger())
	result, err := d.Handle(context.Background(), member, "good night")
	require.NoError(t, err)
	assert.True(t, result.Executed)
	require.NotNil(t, result.Scene)
	assert.True(t, result.Scene.Matched)

	lights, err := f.svc.GetDevice(context.Background(), f.kitchen.ID)
	require.NoError(t, err)
	assert.False(t, lights.Active)
	lock, err := f.svc.GetDevice(context.Background(), f.lock.ID)
	require.NoError(t, err)
	assert.True(t, lock.Active)
}

func TestHandle_Automation(t *testing.T) {
	f := newFixture(t)
	parser := new(MockParser)
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Return(&ai.VoiceCommand{
		Action:         ai.ActionAutomation,
		Target:         "Night Mode",
		Value:          boolPtr(false),
		SpeechResponse: "Pausing night mode.",
	}, nil)

	d := NewDispatcher(f.svc, parser, false, quietLogger())
	result, err := d.Handle(context.Background(), member, "pause night mode")
	require.NoError(t, err)
	require.NotNil(t, result.Automation)
	assert.False(t, result.Automation.Active)
	assert.Equal(t, "Paused", result.Automation.Status)
}

func TestHandle_Navigation(t *testing.T) {
	f := newFixture(t)
	parser := new(MockParser)
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Return(&ai.VoiceCommand{
		Action:         ai.ActionNavigation,
		Target:         "Energy",
		SpeechResponse: "Opening energy.",
	}, nil)

	d := NewDispatcher(f.svc, parser, false, quietLogger())
	result, err := d.Handle(context.Background(), member, "show me energy")
	require.NoError(t, err)
	assert.True(t, result.Executed)
	assert.Equal(t, "/energy", result.Route)
}

func TestHandle_TargetNotFound(t *testing.T) {
	f := newFixture(t)
	parser := new(MockParser)
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Return(&ai.VoiceCommand{
		Action:         ai.ActionDevice,
		Target:         "Garage Door",
		SpeechResponse: "Opening the garage.",
	}, nil)
	parser.On("TextToSpeech", mock.Anything, "Sorry, I couldn't find the Garage Door.").Return("data:audio/wav;base64,AAAA")

	d := NewDispatcher(f.svc, parser, true, quietLogger())
	result, err := d.Handle(context.Background(), member, "open the garage")
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Equal(t, TitleFailed, result.Title)
	assert.Equal(t, "Sorry, I couldn't find the Garage Door.", result.Speech)
	assert.Equal(t, "data:audio/wav;base64,AAAA", result.Audio)
	parser.AssertExpectations(t)
}

func TestHandle_AutomationNotFound(t *testing.T) {
	f := newFixture(t)
	parser := new(MockParser)
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Return(&ai.VoiceCommand{
		Action:         ai.ActionAutomation,
		Target:         "Vacation Mode",
		Value:          boolPtr(true),
		SpeechResponse: "Enabling vacation mode.",
	}, nil)
	parser.On("TextToSpeech", mock.Anything, "Sorry, I couldn't find the Vacation Mode.").Return("data:audio/wav;base64,BBBB")

	d := NewDispatcher(f.svc, parser, true, quietLogger())
	result, err := d.Handle(context.Background(), member, "turn on vacation mode")
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Nil(t, result.Automation)
	assert.Equal(t, TitleFailed, result.Title)
	assert.Equal(t, "Sorry, I couldn't find the Vacation Mode.", result.Speech)
	assert.Equal(t, "data:audio/wav;base64,BBBB", result.Audio)
	parser.AssertExpectations(t)

	night, err := f.svc.GetAutomation(context.Background(), f.night.ID)
	require.NoError(t, err)
	assert.True(t, night.Active)
}

func TestHandle_UnknownAction(t *testing.T) {
	f := newFixture(t)
	parser := new(MockParser)
	parser.On("ParseVoiceCommand", mock.Anything, mock.Anything).Return(&ai.VoiceCommand{
		Action:         ai.ActionUnknown,
		Target:         "weather",
		SpeechResponse: "I can't do that.",
	}, nil)

	d := NewDispatcher(f.svc, parser, false, quietLogger())
	result, err := d.Handle(context.Background(), member, "what's the weather")
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Equal(t, "Sorry, I couldn't find the weather.", result.Speech)
}

func TestHandle_BlankTranscript(t *testing.T) {
	d := NewDispatcher(newFixture(t).svc, new(MockParser), false, quietLogger())

	_, err := d.Handle(context.Background(), member, "   ")
	var ve *home.ValidationError
	assert.ErrorAs(t, err, &ve)
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	select {
	case <-time.After(5 * time.Second):
		return &ai.GenerateResponse{Text: `{"action":"device","target":"Kitchen Lights","speechResponse":"ok"}`}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (slowProvider) GetName() string                  { return "slow" }
func (slowProvider) IsAvailable(context.Context) bool { return true }

func TestHandle_ModelTimeoutFallsBackToUnknown(t *testing.T) {
	f := newFixture(t)
	manager := ai.NewLLMManager(config.AIConfig{Timeout: "20ms"}, quietLogger())
	manager.RegisterProvider(slowProvider{}, 1)
	assistant := ai.NewAssistant(manager, "", quietLogger())

	d := NewDispatcher(f.svc, assistant, false, quietLogger())
	start := time.Now()
	result, err := d.Handle(context.Background(), member, "turn on the kitchen lights")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, result.Executed)
	assert.Equal(t, ai.ActionUnknown, result.Command.Action)
	assert.Equal(t, TitleError, result.Title)
	assert.Equal(t, "Sorry, I couldn't process that command.", result.Speech)

	lights, err := f.svc.GetDevice(context.Background(), f.kitchen.ID)
	require.NoError(t, err)
	assert.False(t, lights.Active)
}

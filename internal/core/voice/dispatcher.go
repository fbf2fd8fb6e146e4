package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

const (
	TitleExecuted = "Command Executed"
	TitleFailed   = "Command Failed"
	TitleError    = "Error"

	processingFailed = "Sorry, I couldn't process that command."
)

// Parser turns a transcript into a command and speaks responses
type Parser interface {
	ParseVoiceCommand(ctx context.Context, input ai.VoiceCommandInput) (*ai.VoiceCommand, error)
	TextToSpeech(ctx context.Context, text string) string
}

// Home is the part of the home service a voice command can drive
type Home interface {
	ListDevices(ctx context.Context) ([]*models.Device, error)
	ListScenes(ctx context.Context) ([]*models.Scene, error)
	ListAutomations(ctx context.Context) ([]*models.Automation, error)
	FindDeviceByName(ctx context.Context, name string) (*models.Device, error)
	FindAutomationByName(ctx context.Context, name string) (*models.Automation, error)
	ToggleDevice(ctx context.Context, actor home.Actor, id string, force *bool) (*models.Device, error)
	ToggleAutomation(ctx context.Context, actor home.Actor, id string, force *bool) (*models.Automation, error)
	ActivateScene(ctx context.Context, actor home.Actor, name string) (*home.SceneResult, error)
}

// Result is the outcome of one voice command
type Result struct {
	Transcript string             `json:"transcript"`
	Command    ai.VoiceCommand    `json:"command"`
	Executed   bool               `json:"executed"`
	Title      string             `json:"title"`
	Speech     string             `json:"speech"`
	Audio      string             `json:"audio,omitempty"`
	Route      string             `json:"route,omitempty"`
	Device     *models.Device     `json:"device,omitempty"`
	Automation *models.Automation `json:"automation,omitempty"`
	Scene      *home.SceneResult  `json:"scene,omitempty"`
}

// Dispatcher executes parsed voice commands against the home service
type Dispatcher struct {
	home   Home
	parser Parser
	logger *logrus.Logger
	speak  bool
}

// NewDispatcher creates a dispatcher. When speak is set, every result carries
// synthesized audio of its speech text.
func NewDispatcher(h Home, parser Parser, speak bool, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{home: h, parser: parser, speak: speak, logger: logger}
}

// Handle parses transcript and executes the command. Parse failures and
// timeouts are reported as an unknown action, never as an error; only a
// blank transcript is rejected.
func (d *Dispatcher) Handle(ctx context.Context, actor home.Actor, transcript string) (*Result, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, &home.ValidationError{Field: "transcript", Message: "is required"}
	}

	result := &Result{Transcript: transcript}
	if err := d.run(ctx, actor, result); err != nil {
		d.logger.WithError(err).WithField("transcript", transcript).Warn("Error processing voice command")
		result.Command = ai.VoiceCommand{Action: ai.ActionUnknown, SpeechResponse: processingFailed}
		result.Executed = false
		result.Title = TitleError
		result.Speech = processingFailed
		result.Route = ""
		result.Device, result.Automation, result.Scene = nil, nil, nil
	}

	if d.speak {
		result.Audio = d.parser.TextToSpeech(ctx, result.Speech)
	}
	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, actor home.Actor, result *Result) error {
	input, err := d.vocabulary(ctx)
	if err != nil {
		return err
	}
	input.Command = result.Transcript

	cmd, err := d.parser.ParseVoiceCommand(ctx, input)
	if err != nil {
		return err
	}
	result.Command = *cmd

	switch cmd.Action {
	case ai.ActionDevice:
		device, err := d.home.FindDeviceByName(ctx, cmd.Target)
		if home.IsNotFound(err) {
			break
		}
		if err != nil {
			return err
		}
		result.Device, err = d.home.ToggleDevice(ctx, actor, device.ID, cmd.Value)
		if err != nil {
			return err
		}
		result.Executed = true
	case ai.ActionScene:
		result.Scene, err = d.home.ActivateScene(ctx, actor, cmd.Target)
		if err != nil {
			return err
		}
		result.Executed = true
	case ai.ActionAutomation:
		automation, err := d.home.FindAutomationByName(ctx, cmd.Target)
		if home.IsNotFound(err) {
			break
		}
		if err != nil {
			return err
		}
		result.Automation, err = d.home.ToggleAutomation(ctx, actor, automation.ID, cmd.Value)
		if err != nil {
			return err
		}
		result.Executed = true
	case ai.ActionNavigation:
		if page := strings.TrimSpace(cmd.Target); page != "" {
			result.Route = "/" + strings.ToLower(page)
			result.Executed = true
		}
	}

	if result.Executed {
		result.Title = TitleExecuted
		result.Speech = cmd.SpeechResponse
	} else {
		result.Title = TitleFailed
		result.Speech = fmt.Sprintf("Sorry, I couldn't find the %s.", cmd.Target)
	}

	d.logger.WithFields(logrus.Fields{
		"action":   cmd.Action,
		"target":   cmd.Target,
		"executed": result.Executed,
		"actor":    actor.UserID,
	}).Info("Voice command handled")
	return nil
}

func (d *Dispatcher) vocabulary(ctx context.Context) (ai.VoiceCommandInput, error) {
	var input ai.VoiceCommandInput

	devices, err := d.home.ListDevices(ctx)
	if err != nil {
		return input, err
	}
	scenes, err := d.home.ListScenes(ctx)
	if err != nil {
		return input, err
	}
	automations, err := d.home.ListAutomations(ctx)
	if err != nil {
		return input, err
	}

	input.Devices = make([]string, 0, len(devices))
	for _, dev := range devices {
		input.Devices = append(input.Devices, dev.Name)
	}
	input.Scenes = make([]string, 0, len(scenes))
	for _, sc := range scenes {
		input.Scenes = append(input.Scenes, sc.Name)
	}
	input.Automations = make([]string, 0, len(automations))
	for _, a := range automations {
		input.Automations = append(input.Automations, a.Name)
	}
	return input, nil
}

package ai

import (
	"strings"
	"text/template"
)

// NavigationPages are the panel pages a voice command may navigate to
var NavigationPages = []string{"Dashboard", "Rooms", "Scenes", "Automations", "Energy", "System", "Profile"}

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`
{{define "voice"}}You are a smart home voice assistant. Your task is to parse the user's command and convert it into a structured JSON object.
Based on the command, determine the action ('device', 'scene', 'automation', or 'navigation'), the target, and any necessary value (e.g., true/false for on/off).
Also, provide a short, natural language response to confirm the action.

If the user's command is ambiguous or doesn't match any available items, set the action to 'unknown' and provide a helpful speech response like "Sorry, I couldn't find a device or scene with that name."

Turning something on, activating or enabling it means a value of true. Turning it off, deactivating, disabling or pausing it means a value of false.

Available devices:
{{range .Devices}}- {{.}}
{{end}}
Available scenes:
{{range .Scenes}}- {{.}}
{{end}}
Available automations:
{{range .Automations}}- {{.}}
{{end}}
Available pages for navigation: {{join .Pages ", "}}.

User command: "{{.Command}}"

Respond with a JSON object with the fields action, target, value and speechResponse.
{{end}}

{{define "system_status"}}You are an AI-powered smart home system expert.

You are provided with system metrics data in JSON format. Analyze the data to proactively detect anomalies that could indicate potential issues.

Based on the data, determine if there are any anomalies, explain the anomalies in an easy-to-understand format, and provide recommendations for addressing them.

System Metrics Data:
{{.Metrics}}

Respond with a JSON object with the fields hasAnomalies (boolean), anomalyExplanation (string) and recommendations (string).
{{end}}

{{define "security"}}You are a home security AI assistant. Your primary function is to alert users to critical security events in a clear, calm, and actionable manner.

A security event has been detected.
Event Type: {{.EventType}}
Location: {{.Location}}

Generate a response in JSON format with the following fields:
- alertTitle: A short, urgent title for the alert.
- alertDescription: A clear, concise description of what happened and where.
- recommendations: A list of 2-3 immediate, simple actions the user should take.
- speechResponse: A voice message to announce the event. Start with "Alert:" and speak calmly and clearly.
{{end}}

{{define "suggest_scenes"}}You are a smart home automation expert. Based on the user's past actions, suggest customized smart home scenarios.

Past Actions:
{{range .PastActions}}- {{.}}
{{end}}
Suggest smart home scenarios that the user might find useful, based on their past actions. Be specific and provide actionable scene names.

Respond with a JSON object with a single field suggestedScenes holding a list of strings.
{{end}}
`))

func render(name string, data interface{}) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

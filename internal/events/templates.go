package events

import (
	"fmt"
	"strings"
)

// MessageTemplateEngine provides dynamic message generation for events.
type MessageTemplateEngine struct {
	templates map[EventReason]string
}

// NewMessageTemplateEngine creates a new message template engine with default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[EventReason]string),
	}
	engine.loadDefaultTemplates()
	return engine
}

func (e *MessageTemplateEngine) loadDefaultTemplates() {
	e.templates[ReasonServerStarted] = "Server {{.Name}} started"
	e.templates[ReasonServerStopped] = "Server {{.Name}} stopped{{if .Duration}} after {{.Duration}}{{end}}"
	e.templates[ReasonServerRestarting] = "Server {{.Name}} is restarting"
	e.templates[ReasonServerExited] = "Server {{.Name}} exited{{if .Error}}: {{.Error}}{{end}}"
	e.templates[ReasonServerFailed] = "Server {{.Name}} failed to start{{if .Error}}: {{.Error}}{{end}}"

	e.templates[ReasonProfileSwitched] = "Switched to profile {{.Name}}{{if .Count}} ({{.Count}} servers){{end}}"
	e.templates[ReasonProfileSynced] = "Synced profile {{.Name}}{{if .Count}} ({{.Count}} servers){{end}}"
}

// Render generates a message for the given event reason and data.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	template, exists := e.templates[reason]
	if !exists {
		return fmt.Sprintf("Event: %s for %s", string(reason), data.displayName())
	}
	return e.renderTemplate(template, data)
}

// SetTemplate allows customizing the message template for a specific event reason.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, template string) {
	e.templates[reason] = template
}

// GetTemplate returns the template for a specific event reason.
func (e *MessageTemplateEngine) GetTemplate(reason EventReason) (string, bool) {
	template, exists := e.templates[reason]
	return template, exists
}

func (d EventData) displayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// renderTemplate substitutes EventData fields. Supported placeholders are
// {{.ID}}, {{.Name}}, {{.Error}}, {{.Duration}} and {{.Count}}, plus
// {{if .Field}}...{{end}} blocks for Error, Duration and Count.
func (e *MessageTemplateEngine) renderTemplate(template string, data EventData) string {
	result := renderConditional(template, "{{if .Error}}", data.Error != "")
	result = renderConditional(result, "{{if .Duration}}", data.Duration > 0)
	result = renderConditional(result, "{{if .Count}}", data.Count > 0)

	duration, count := "", ""
	if data.Duration > 0 {
		duration = data.Duration.String()
	}
	if data.Count > 0 {
		count = fmt.Sprintf("%d", data.Count)
	}

	return strings.NewReplacer(
		"{{.ID}}", data.ID,
		"{{.Name}}", data.displayName(),
		"{{.Error}}", data.Error,
		"{{.Duration}}", duration,
		"{{.Count}}", count,
	).Replace(result)
}

// renderConditional keeps or drops the first {{if ...}}...{{end}} block
// opened by startMarker.
func renderConditional(template, startMarker string, condition bool) string {
	const endMarker = "{{end}}"

	startIndex := strings.Index(template, startMarker)
	if startIndex == -1 {
		return template
	}
	endIndex := strings.Index(template[startIndex:], endMarker)
	if endIndex == -1 {
		return template
	}
	endIndex += startIndex

	before := template[:startIndex]
	after := template[endIndex+len(endMarker):]
	if condition {
		return before + template[startIndex+len(startMarker):endIndex] + after
	}
	return before + after
}

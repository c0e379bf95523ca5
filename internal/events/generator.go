package events

import (
	"time"

	"relay/pkg/logging"
)

// EventGenerator renders lifecycle messages and publishes them on a Broker.
// A nil *EventGenerator discards events.
type EventGenerator struct {
	broker    *Broker
	templates *MessageTemplateEngine
	now       func() time.Time
}

// NewEventGenerator creates a new EventGenerator publishing to broker.
func NewEventGenerator(broker *Broker) *EventGenerator {
	return &EventGenerator{
		broker:    broker,
		templates: NewMessageTemplateEngine(),
		now:       time.Now,
	}
}

// ServerEvent publishes an event about one server.
func (g *EventGenerator) ServerEvent(id, name string, reason EventReason, data EventData) {
	data.ID = id
	data.Name = name
	g.emit(reason, data)
}

// ProfileEvent publishes an event about a profile operation affecting count servers.
func (g *EventGenerator) ProfileEvent(id, name string, reason EventReason, count int) {
	g.emit(reason, EventData{ID: id, Name: name, Count: count})
}

func (g *EventGenerator) emit(reason EventReason, data EventData) {
	if g == nil {
		return
	}
	message := g.templates.Render(reason, data)
	eventType := getEventType(reason)

	logging.Debug("events", "Generating event: reason=%s, message=%s, type=%s", string(reason), message, string(eventType))

	g.broker.PublishLifecycle(LifecycleEvent{
		Type:      eventType,
		Reason:    reason,
		ID:        data.ID,
		Message:   message,
		Timestamp: g.now().UTC(),
	})
}

// Templates exposes the template engine so callers can override messages.
func (g *EventGenerator) Templates() *MessageTemplateEngine {
	return g.templates
}

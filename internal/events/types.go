package events

import (
	"time"

	"relay/internal/api"
)

// Topic names a stream of events.
type Topic string

const (
	// TopicUsage carries a UsageSnapshot after every metered line.
	TopicUsage Topic = "context-usage"
	// TopicLog carries one LogEvent per line a supervised server writes.
	TopicLog Topic = "server-log"
	// TopicLifecycle carries LifecycleEvents about starts, stops and exits.
	TopicLifecycle Topic = "server-lifecycle"
)

// Event is the envelope delivered to subscribers. Exactly one payload field
// is set, matching Topic.
type Event struct {
	Topic     Topic
	Usage     *api.UsageSnapshot
	Log       *api.LogEvent
	Lifecycle *LifecycleEvent
}

// EventType represents the severity of a lifecycle event.
type EventType string

const (
	// EventTypeNormal indicates normal, non-problematic events.
	EventTypeNormal EventType = "Normal"

	// EventTypeWarning indicates events that may require attention.
	EventTypeWarning EventType = "Warning"
)

// EventReason represents the reason code for a lifecycle event.
type EventReason string

// Server lifecycle reasons
const (
	// ReasonServerStarted indicates a server process was spawned.
	ReasonServerStarted EventReason = "ServerStarted"

	// ReasonServerStopped indicates a server process was terminated on request.
	ReasonServerStopped EventReason = "ServerStopped"

	// ReasonServerRestarting indicates a server is being stopped to be spawned again.
	ReasonServerRestarting EventReason = "ServerRestarting"

	// ReasonServerExited indicates a server process exited on its own.
	ReasonServerExited EventReason = "ServerExited"

	// ReasonServerFailed indicates a spawn failed.
	ReasonServerFailed EventReason = "ServerFailed"
)

// Profile reasons
const (
	// ReasonProfileSwitched indicates the active profile changed and its servers were started.
	ReasonProfileSwitched EventReason = "ProfileSwitched"

	// ReasonProfileSynced indicates running servers were converged to the active profile.
	ReasonProfileSynced EventReason = "ProfileSynced"
)

// EventData contains the values templates are rendered with.
type EventData struct {
	// ID is the server or profile id.
	ID string

	// Name is the human-readable server or profile name.
	Name string

	// Error contains error information for failure events.
	Error string

	// Duration is how long the operation took.
	Duration time.Duration

	// Count is the number of servers affected by a profile operation.
	Count int
}

// LifecycleEvent is published on TopicLifecycle.
type LifecycleEvent struct {
	Type      EventType   `json:"type"`
	Reason    EventReason `json:"reason"`
	ID        string      `json:"id"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// getEventType returns the appropriate EventType for a given EventReason.
func getEventType(reason EventReason) EventType {
	switch reason {
	case ReasonServerFailed, ReasonServerExited:
		return EventTypeWarning
	default:
		return EventTypeNormal
	}
}

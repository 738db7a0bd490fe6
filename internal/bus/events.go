// Package bus provides the in-process event bus the engine publishes turn,
// tool and sweep events on. Subscribers (metrics, live views) consume them
// asynchronously and never slow the pipeline down.
package bus

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened.
type EventType string

const (
	// Turn events
	EventMessageIn  EventType = "message_in"
	EventMessageOut EventType = "message_out"

	// Pipeline events
	EventToolExecuted  EventType = "tool_executed"
	EventFallbackUsed  EventType = "fallback_used"
	EventPipelineError EventType = "pipeline_error"

	// Lifecycle events
	EventSessionsSwept EventType = "sessions_swept"
)

// Event is one occurrence on the bus.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	SessionID string `json:"session_id,omitempty"`

	// Turn outcome
	Intent       string  `json:"intent,omitempty"`
	ResponseType string  `json:"response_type,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`

	// Stage timings in milliseconds, keyed by stage name.
	Stages map[string]float64 `json:"stages,omitempty"`

	// Tool execution
	Tool       string `json:"tool,omitempty"`
	Success    bool   `json:"success,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`

	// Count is the number of items affected, e.g. sessions swept.
	Count int `json:"count,omitempty"`

	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewEvent creates an event with a fresh id and the current time.
func NewEvent(eventType EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
	}
}

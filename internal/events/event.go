// Package events provides an in-memory event bus recording the lifecycle of
// authoring sessions and their selectors.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// Session lifecycle
	EventSessionCreated EventType = "session.created"
	EventSessionClosed  EventType = "session.closed"

	// Collection changes
	EventSelectorAdded   EventType = "selector.added"
	EventSelectorRemoved EventType = "selector.removed"
	EventSelectorsReset  EventType = "selectors.reset"

	// Pending selector
	EventDraftMetadata   EventType = "draft.metadata"
	EventDraftDefinition EventType = "draft.definition"
	EventDraftDiscarded  EventType = "draft.discarded"

	// Export
	EventFileWritten EventType = "file.written"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceGateway EventSource = "gateway"
	SourceWS      EventSource = "ws"
	SourceMCP     EventSource = "mcp"
	SourceCLI     EventSource = "cli"
	SourceTUI     EventSource = "tui"
)

// Event represents an event in the system.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

func generateEventID() string {
	return uuid.NewString()
}

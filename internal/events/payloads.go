package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

type SessionCreatedPayload struct {
	Selectors int `json:"selectors"`
}

func (SessionCreatedPayload) EventType() EventType { return EventSessionCreated }

type SessionClosedPayload struct {
	Selectors int `json:"selectors"`
}

func (SessionClosedPayload) EventType() EventType { return EventSessionClosed }

type SelectorAddedPayload struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Mode  string `json:"mode"`
}

func (SelectorAddedPayload) EventType() EventType { return EventSelectorAdded }

type SelectorRemovedPayload struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func (SelectorRemovedPayload) EventType() EventType { return EventSelectorRemoved }

type SelectorsResetPayload struct {
	Removed int `json:"removed"`
}

func (SelectorsResetPayload) EventType() EventType { return EventSelectorsReset }

type DraftMetadataPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
}

func (DraftMetadataPayload) EventType() EventType { return EventDraftMetadata }

type DraftDefinitionPayload struct {
	Mode string `json:"mode"`
}

func (DraftDefinitionPayload) EventType() EventType { return EventDraftDefinition }

type DraftDiscardedPayload struct {
	Name string `json:"name,omitempty"`
}

func (DraftDiscardedPayload) EventType() EventType { return EventDraftDiscarded }

type FileWrittenPayload struct {
	Path      string `json:"path"`
	Selectors int    `json:"selectors"`
	Bytes     int    `json:"bytes"`
}

func (FileWrittenPayload) EventType() EventType { return EventFileWritten }

// NewTypedEvent builds an event from a typed payload.
func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

// NewTypedEventWithSession builds an event from a typed payload for a session.
func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	e := NewTypedEvent(source, payload)
	e.SessionID = sessionID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes an event's payload into T.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
